// Package identity implements reference-style identity for arbitrary Go values.
//
// Go has no single notion of "the same object": maps, slices and funcs are not
// comparable with ==, while scalars and comparable structs are compared by
// value. Same bridges the two so that callers holding values of an unknown
// type parameter can ask whether a replacement is a no-op.
package identity

import "reflect"

// Same reports whether a and b are identical.
//
// Rules:
//   - Two nil values are identical; nil is never identical to a non-nil value.
//   - Values of different dynamic types are never identical.
//   - Maps, pointers, channels, funcs and unsafe pointers compare by address.
//   - Slices compare by backing array address and length.
//   - Other comparable values compare with ==.
//   - Non-comparable values (e.g. structs holding slices) are never identical.
func Same(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return !va.IsValid() && !vb.IsValid()
	}
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}

	if !va.Comparable() || !vb.Comparable() {
		return false
	}
	return va.Equal(vb)
}
