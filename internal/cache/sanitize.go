package cache

import (
	"fmt"
	"reflect"
	"strings"
)

const maxSanitizeDepth = 10

// sanitize walks v and produces a plain JSON-safe tree (maps, slices,
// primitives), dropping anything that cannot round-trip through JSON —
// funcs, channels, unsafe pointers — and any struct whose type is named
// "Page" (a defensive backstop against accidentally caching a live
// browser/page handle instead of the PageRecord it was turned into).
// Recursion is capped at maxSanitizeDepth.
func sanitize(v interface{}, depth int) interface{} {
	return sanitizeValue(reflect.ValueOf(v), depth)
}

func sanitizeValue(rv reflect.Value, depth int) interface{} {
	if !rv.IsValid() {
		return nil
	}
	if depth > maxSanitizeDepth {
		return nil
	}

	switch rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil

	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return sanitizeValue(rv.Elem(), depth+1)

	case reflect.Struct:
		if rv.Type().Name() == "Page" {
			return nil
		}
		t := rv.Type()
		out := make(map[string]interface{}, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue // unexported
			}
			name, skip := jsonFieldName(f)
			if skip {
				continue
			}
			out[name] = sanitizeValue(rv.Field(i), depth+1)
		}
		return out

	case reflect.Map:
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key()
			var keyStr string
			if key.Kind() == reflect.String {
				keyStr = key.String()
			} else {
				keyStr = toString(key)
			}
			out[keyStr] = sanitizeValue(iter.Value(), depth+1)
		}
		return out

	case reflect.Slice, reflect.Array:
		n := rv.Len()
		out := make([]interface{}, n)
		for i := 0; i < n; i++ {
			out[i] = sanitizeValue(rv.Index(i), depth+1)
		}
		return out

	default:
		if rv.CanInterface() {
			return rv.Interface()
		}
		return nil
	}
}

func jsonFieldName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if tag == "" {
		return f.Name, false
	}
	name := strings.Split(tag, ",")[0]
	if name == "" {
		name = f.Name
	}
	return name, false
}

func toString(v reflect.Value) string {
	if v.CanInterface() {
		return fmt.Sprint(v.Interface())
	}
	return v.String()
}
