package maprt

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	argsType    = reflect.TypeOf(map[string]any(nil))
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Project resolves field from source. Maps are read by key. For other values
// a method named after the field is preferred, then an exported struct field
// matched by json tag or case-insensitively by name.
//
// Methods may take no parameters, a context.Context, the argument map, the
// single field argument, or (context.Context, map[string]any). They return a
// value and optionally an error.
func Project(ctx context.Context, source any, field string, args map[string]any) (any, error) {
	if source == nil {
		return nil, nil
	}
	if m, ok := source.(map[string]any); ok {
		return m[field], nil
	}

	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}

	if m, ok := methodFor(rv, field); ok {
		return callMethod(ctx, m, field, args)
	}

	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("cannot project %q from %s", field, rv.Type())
		}
		v := rv.MapIndex(reflect.ValueOf(field).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	case reflect.Struct:
		if v, ok := structField(rv, field); ok {
			return v.Interface(), nil
		}
		return nil, nil
	}
	return nil, fmt.Errorf("cannot project %q from %s", field, rv.Type())
}

// methodFor looks up the exported method named after field. Non-pointer
// values are copied into an addressable value so pointer receiver methods
// are found too.
func methodFor(rv reflect.Value, field string) (reflect.Value, bool) {
	name := exportedName(field)
	if name == "" {
		return reflect.Value{}, false
	}
	if rv.Kind() != reflect.Ptr {
		ptr := reflect.New(rv.Type())
		ptr.Elem().Set(rv)
		rv = ptr
	} else if rv.IsNil() {
		return reflect.Value{}, false
	}
	m := rv.MethodByName(name)
	return m, m.IsValid()
}

func callMethod(ctx context.Context, m reflect.Value, field string, args map[string]any) (any, error) {
	mt := m.Type()
	in := make([]reflect.Value, mt.NumIn())
	switch mt.NumIn() {
	case 0:
	case 1:
		p := mt.In(0)
		switch {
		case p == contextType:
			in[0] = reflect.ValueOf(ctx)
		case p == argsType:
			in[0] = reflect.ValueOf(args)
		case len(args) == 1:
			v, err := singleArg(p, args)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field, err)
			}
			in[0] = v
		default:
			return nil, fmt.Errorf("%s: method parameter %s does not match %d arguments", field, p, len(args))
		}
	case 2:
		if mt.In(0) != contextType || mt.In(1) != argsType {
			return nil, fmt.Errorf("%s: unsupported method signature %s", field, mt)
		}
		in[0], in[1] = reflect.ValueOf(ctx), reflect.ValueOf(args)
	default:
		return nil, fmt.Errorf("%s: unsupported method signature %s", field, mt)
	}

	out := m.Call(in)
	switch {
	case len(out) == 1:
		return out[0].Interface(), nil
	case len(out) == 2 && mt.Out(1) == errorType:
		if err, _ := out[1].Interface().(error); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	}
	return nil, fmt.Errorf("%s: unsupported method signature %s", field, mt)
}

func singleArg(p reflect.Type, args map[string]any) (reflect.Value, error) {
	for _, v := range args {
		if v == nil {
			return reflect.Zero(p), nil
		}
		av := reflect.ValueOf(v)
		if av.Type().AssignableTo(p) {
			return av, nil
		}
		if av.Type().ConvertibleTo(p) {
			return av.Convert(p), nil
		}
		return reflect.Value{}, fmt.Errorf("argument of type %s is not assignable to %s", av.Type(), p)
	}
	return reflect.Zero(p), nil
}

func structField(rv reflect.Value, field string) (reflect.Value, bool) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if tag, _, _ := strings.Cut(sf.Tag.Get("json"), ","); tag != "" {
			if tag == "-" {
				continue
			}
			if tag == field {
				return rv.Field(i), true
			}
		}
		if strings.EqualFold(sf.Name, field) {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func exportedName(field string) string {
	r, size := utf8.DecodeRuneInString(field)
	if r == utf8.RuneError || r == '_' {
		return ""
	}
	return string(unicode.ToUpper(r)) + field[size:]
}

// typeNameOf reads the concrete type name from a __typename key, a
// TypeNamer or the Go type name.
func typeNameOf(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case map[string]any:
		name, _ := v["__typename"].(string)
		return name
	case TypeNamer:
		return v.GraphQLTypeName()
	}
	t := reflect.TypeOf(value)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		return t.Name()
	}
	return ""
}
