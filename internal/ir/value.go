package ir

import (
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the types allowed in hashable IR
// fragments: string, int, bool, array, object. Floats and null are
// forbidden - they break deterministic content addressing.
type Value interface {
	value() // sealed
}

// String is a string value.
type String string

func (String) value() {}

// Int is an integer value. Always int64, never a float.
type Int int64

func (Int) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// Array is an ordered sequence of values.
type Array []Value

func (Array) value() {}

// Object is a string-keyed mapping of values.
// Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// SortedKeys returns keys in RFC 8785 canonical order, which compares
// UTF-16 code units rather than UTF-8 bytes. The two orders differ for
// strings containing supplementary-plane characters.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	au := utf16.Encode([]rune(a))
	bu := utf16.Encode([]rune(b))
	n := min(len(au), len(bu))
	for i := 0; i < n; i++ {
		if au[i] != bu[i] {
			if au[i] < bu[i] {
				return -1
			}
			return 1
		}
	}
	return len(au) - len(bu)
}

// FromAny converts plain Go values (as produced by encoding/json into any)
// to a Value. Floats and nil are rejected.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case bool:
		return Bool(val), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden in IR fragments: %v", val)
	case nil:
		return nil, fmt.Errorf("null is forbidden in IR fragments")
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			iv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = iv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			iv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = iv
		}
		return obj, nil
	case Value:
		return val, nil
	default:
		return nil, fmt.Errorf("unsupported fragment type: %T", v)
	}
}
