package omitnilpointers

import (
	"reflect"
	"strings"
)

// OmitNilPointers drops nil values and dereferences the remaining pointers.
func OmitNilPointers(fields map[string]any) map[string]any {
	omitted := make(map[string]any, len(fields))
	for key, value := range fields {
		if v, ok := deref(reflect.ValueOf(value)); ok {
			omitted[key] = v
		}
	}

	return omitted
}

// FromStruct collects the non-nil pointer fields of a struct, keyed by their json name.
// Non-pointer fields are skipped.
func FromStruct(s any) map[string]any {
	v := reflect.Indirect(reflect.ValueOf(s))
	if v.Kind() != reflect.Struct {
		return map[string]any{}
	}

	fields := make(map[string]any)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Type.Kind() != reflect.Pointer {
			continue
		}

		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}

		if value, ok := deref(v.Field(i)); ok {
			fields[name] = value
		}
	}

	return fields
}

func deref(v reflect.Value) (any, bool) {
	if !v.IsValid() {
		return nil, false
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, false
		}
		return v.Elem().Interface(), true
	}

	return v.Interface(), true
}
