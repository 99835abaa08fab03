package executor

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	language "github.com/hanpama/minigql/internal/language"
)

// argumentValues coerces the field's arguments; fields without a definition
// take none.
func argumentValues(field *language.Field, variables map[string]any) map[string]any {
	if field.Definition == nil {
		return map[string]any{}
	}
	args := field.ArgumentMap(variables)
	if args == nil {
		args = map[string]any{}
	}
	return args
}

// serializeLeafValue dereferences pointers and leaves JSON-ready values alone.
// Named types use their String method when present, otherwise they are
// converted to their base kind.
func serializeLeafValue(v any) any {
	if _, ok := v.(json.Marshaler); ok {
		return v
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
		if m, ok := rv.Interface().(json.Marshaler); ok {
			return m
		}
	}
	if rv.Type().PkgPath() == "" {
		return rv.Interface()
	}
	if s, ok := rv.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return rv.Interface()
}

// toSlice returns the items of a slice or array; a nil slice yields an
// empty list.
func toSlice(v any) ([]any, bool) {
	if direct, ok := v.([]any); ok {
		if direct == nil {
			return []any{}, true
		}
		return direct, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func pathToString(path Path) string {
	var b strings.Builder
	for i, elem := range path {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				b.WriteString(".")
			}
			b.WriteString(v)
		case int:
			fmt.Fprintf(&b, "[%d]", v)
		}
	}
	return b.String()
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}

// isNullish reports nil interfaces and typed nil pointers, funcs and chans.
// Nil slices and maps are empty values, not null.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
