// Package mask flattens configuration structs into ordered key/value pairs with
// sensitive fields hidden, for printing at startup.
package mask

import (
	"reflect"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Placeholder replaces the value of every non-zero field tagged `mask:"true"`.
const Placeholder = "***"

// StructToOrdMap flattens v into dotted keys ("db.password") in field order.
// Field names come from the json tag, then the yaml tag, then the Go name;
// fields tagged "-" are left out. Zero values are kept even when masked, so
// missing secrets stay visible.
func StructToOrdMap(v any) *orderedmap.OrderedMap[string, any] {
	om := orderedmap.New[string, any]()
	if v == nil {
		return om
	}
	flatten(om, reflect.ValueOf(v), "")
	return om
}

func flatten(om *orderedmap.OrderedMap[string, any], val reflect.Value, prefix string) {
	if val.Kind() == reflect.Pointer {
		if val.IsNil() {
			om.Set(prefix, nil)
			return
		}
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		om.Set(prefix, val.Interface())
		return
	}

	typ := val.Type()
	for i := range val.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		name, skip := fieldName(field)
		if skip {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}

		fv := val.Field(i)
		switch {
		case strings.EqualFold(field.Tag.Get("mask"), "true"):
			om.Set(name, hide(fv))
		case isStruct(fv):
			flatten(om, fv, name)
		default:
			om.Set(name, fv.Interface())
		}
	}
}

func isStruct(val reflect.Value) bool {
	if val.Kind() == reflect.Pointer {
		return !val.IsNil() && val.Elem().Kind() == reflect.Struct
	}
	return val.Kind() == reflect.Struct
}

func hide(val reflect.Value) any {
	switch val.Kind() { //nolint:exhaustive // other kinds are compared with IsZero
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		if val.IsNil() {
			return nil
		}
	}
	if val.IsZero() {
		return val.Interface()
	}
	return Placeholder
}

// fieldName returns the printed name of field and whether to leave it out.
func fieldName(field reflect.StructField) (string, bool) {
	for _, key := range []string{"json", "yaml"} {
		tag, ok := field.Tag.Lookup(key)
		if !ok {
			continue
		}
		if tag == "-" {
			return "", true
		}
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			return name, false
		}
	}
	return field.Name, false
}
