package store

import (
	"fmt"
	"reflect"

	"github.com/vango-dev/store/internal/errors"
)

// Error is the structured error type returned and panicked by this package.
// Contract violations carry category "contract" and an S-prefixed code.
type Error = errors.Error

// IsContractError reports whether err is a store contract violation, such
// as a nil callback or an invalid derived-store configuration.
func IsContractError(err error) bool {
	return errors.HasCategory(err, errors.CategoryContract)
}

// TypeMismatchError is returned by SetAny when the value's type does not
// match the store's type.
type TypeMismatchError struct {
	Store    string
	Expected string
	Actual   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("store %q: type mismatch: expected %s, got %s", e.Store, e.Expected, e.Actual)
}

// Unwrap exposes the contract error code S006.
func (e *TypeMismatchError) Unwrap() error {
	return errors.New("S006")
}

func newTypeMismatch[T any](name string, value any) *TypeMismatchError {
	actual := "nil"
	if value != nil {
		actual = reflect.TypeOf(value).String()
	}
	return &TypeMismatchError{
		Store:    name,
		Expected: reflect.TypeOf((*T)(nil)).Elem().String(),
		Actual:   actual,
	}
}

// isNilable reports whether the zero T is a nil value.
func isNilable[T any]() bool {
	switch reflect.TypeOf((*T)(nil)).Elem().Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return true
	}
	return false
}
