package store

import "reflect"

// strictEqual reports whether a and b are the same value: == for comparable
// values, reference identity for slices, maps, funcs, channels and pointers.
// Structs and arrays that contain non-comparable fields are never equal.
func strictEqual[T any](a, b T) bool {
	av, bv := any(a), any(b)
	if av == nil || bv == nil {
		return av == nil && bv == nil
	}

	at, bt := reflect.TypeOf(av), reflect.TypeOf(bv)
	if at != bt {
		return false
	}

	switch at.Kind() {
	case reflect.Slice:
		ra, rb := reflect.ValueOf(av), reflect.ValueOf(bv)
		if ra.IsNil() || rb.IsNil() {
			return ra.IsNil() && rb.IsNil()
		}
		return ra.Len() == rb.Len() && ra.UnsafePointer() == rb.UnsafePointer()
	case reflect.Map, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return reflect.ValueOf(av).UnsafePointer() == reflect.ValueOf(bv).UnsafePointer()
	}

	if !at.Comparable() {
		return false
	}
	return comparableEqual(av, bv)
}

// comparableEqual compares two values of a comparable type. Interface-typed
// struct fields may still hold non-comparable dynamic values; those compare
// unequal instead of panicking.
func comparableEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
