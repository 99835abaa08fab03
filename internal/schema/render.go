package schema

import "strings"

type builder = strings.Builder

// concat joins base schema, Query block, Mutation block and plugin fragments
// in that order.
func concat(base string, query, mutation []FieldDeclaration, fragments []string, skipEmpty bool) string {
	var b builder
	if base != "" {
		b.WriteString(base)
		if !strings.HasSuffix(base, "\n") {
			b.WriteString("\n")
		}
	}
	if !skipEmpty || len(query) > 0 {
		renderRootType(&b, "Query", query)
	}
	if !skipEmpty || len(mutation) > 0 {
		renderRootType(&b, "Mutation", mutation)
	}
	for _, f := range fragments {
		b.WriteString(f)
		if !strings.HasSuffix(f, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderRootType(b *builder, name string, fields []FieldDeclaration) {
	b.WriteString("type ")
	b.WriteString(name)
	b.WriteString(" {\n")
	for _, f := range fields {
		b.WriteString("  ")
		renderField(b, f)
		b.WriteString("\n")
	}
	b.WriteString("}\n")
}

// renderField writes name(input: Arg):Return, or name:Return without an argument.
func renderField(b *builder, f FieldDeclaration) {
	b.WriteString(f.Name)
	if f.ArgumentType != "" {
		b.WriteString("(input: ")
		b.WriteString(f.ArgumentType)
		b.WriteString(")")
	}
	b.WriteString(":")
	b.WriteString(f.ReturnType)
}
