// Package naming infers the category, return type and argument type of a
// resolver from its name. The rules are plain prefix and substring checks;
// results feed field declarations character for character.
package naming

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hanpama/minigql/internal/resolver"
)

// WriteVerbs are the name prefixes that mark a resolver as a mutation. Order
// matters: the first matching verb wins.
var WriteVerbs = []string{
	"create",
	"add",
	"insert",
	"update",
	"edit",
	"remove",
	"delete",
	"upload",
	"login",
	"register",
	"send",
}

// IDInputType is the built-in argument type used by "ById" resolvers. The base
// schema must declare it.
const IDInputType = "IdInput"

const byID = "ById"

// Category returns explicit when set, otherwise Write for names starting with
// a write verb and Read for everything else.
func Category(name string, explicit resolver.Category) resolver.Category {
	if explicit != resolver.Unset {
		return explicit
	}
	if _, ok := matchVerb(name); ok {
		return resolver.Write
	}
	return resolver.Read
}

// ReturnType returns explicit when set. Otherwise:
//
//	getUserById -> GetUser   (literal "ById" removed)
//	createOrder -> Order     (write verb stripped)
//	listUsers   -> [User]    (plural, leading lowercase verb dropped)
//	getUser     -> ""        (nothing matched)
func ReturnType(name, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if strings.Contains(name, byID) {
		return Capitalize(strings.Replace(name, byID, "", 1))
	}
	if verb, ok := matchVerb(name); ok {
		return Capitalize(name[len(verb):])
	}
	if strings.HasSuffix(name, "s") {
		return "[" + Capitalize(dropLeadingWord(strings.TrimSuffix(name, "s"))) + "]"
	}
	return ""
}

// ArgumentType returns the declared input type, or "" when the field takes no
// argument. schemaText is searched for a "<Name>Input" type by substring.
func ArgumentType(name, explicit, schemaText string) string {
	if explicit != "" {
		return explicit
	}
	if strings.Contains(name, byID) {
		return IDInputType + "!"
	}
	candidate := Capitalize(name) + "Input"
	if strings.Contains(schemaText, candidate) {
		return candidate + "!"
	}
	return ""
}

// Capitalize upper-cases the first rune and leaves the rest untouched.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func matchVerb(name string) (string, bool) {
	folded := strings.ToLower(name)
	for _, verb := range WriteVerbs {
		if strings.HasPrefix(folded, verb) {
			return verb, true
		}
	}
	return "", false
}

// dropLeadingWord removes a leading lowercase run when an upper-case word
// follows it (listUser -> User). Names without a second word are returned as is.
func dropLeadingWord(s string) string {
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i == 0 {
				return s
			}
			return s[i:]
		}
	}
	return s
}
