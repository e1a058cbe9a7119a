package store

import (
	"reflect"
	"sync"

	"github.com/vango-dev/store/internal/errors"
)

// Source is the type-erased read capability a derived store consumes.
// Store and Derived implement it directly; wrap any other Readable with
// Erase.
type Source interface {
	GetAny() any
	SubscribeAny(fn func(any)) Unsubscribe
}

// Erase adapts a typed Readable into a Source.
func Erase[T any](r Readable[T]) Source {
	if src, ok := r.(Source); ok {
		return src
	}
	return readableSource[T]{r: r}
}

type readableSource[T any] struct {
	r Readable[T]
}

func (s readableSource[T]) GetAny() any { return s.r.Get() }

func (s readableSource[T]) SubscribeAny(fn func(any)) Unsubscribe {
	return s.r.Subscribe(func(v T) { fn(v) })
}

// IsStoreLike reports whether v exposes the store read capability: a
// Source, or any value with a Get() X method and a Subscribe(func(X)) func()
// method. Use it at dynamic boundaries only; typed code should accept
// Readable or Source.
func IsStoreLike(v any) bool {
	if isNil(v) {
		return false
	}
	if _, ok := v.(Source); ok {
		return true
	}
	_, _, ok := storeMethods(reflect.ValueOf(v))
	return ok
}

// AsSource adapts a store-like value into a Source. It returns a contract
// error if v does not pass IsStoreLike.
func AsSource(v any) (Source, error) {
	if isNil(v) {
		return nil, errors.New("S004").WithDetail("value is nil")
	}
	if src, ok := v.(Source); ok {
		return src, nil
	}
	get, sub, ok := storeMethods(reflect.ValueOf(v))
	if !ok {
		return nil, errors.New("S004").WithDetailf("%T has no Get/Subscribe methods", v)
	}
	return reflectSource{get: get, subscribe: sub}, nil
}

// storeMethods looks up Get and Subscribe with store-contract shapes.
func storeMethods(rv reflect.Value) (get, subscribe reflect.Value, ok bool) {
	get = rv.MethodByName("Get")
	subscribe = rv.MethodByName("Subscribe")
	if !get.IsValid() || !subscribe.IsValid() {
		return get, subscribe, false
	}

	gt := get.Type()
	if gt.NumIn() != 0 || gt.NumOut() != 1 {
		return get, subscribe, false
	}

	st := subscribe.Type()
	if st.NumIn() != 1 || st.NumOut() != 1 {
		return get, subscribe, false
	}
	cb, unsub := st.In(0), st.Out(0)
	if cb.Kind() != reflect.Func || cb.NumIn() != 1 || cb.NumOut() != 0 {
		return get, subscribe, false
	}
	if unsub.Kind() != reflect.Func || unsub.NumIn() != 0 || unsub.NumOut() != 0 {
		return get, subscribe, false
	}
	return get, subscribe, true
}

// reflectSource drives a store-like value through reflection.
type reflectSource struct {
	get       reflect.Value
	subscribe reflect.Value
}

func (s reflectSource) GetAny() any {
	return s.get.Call(nil)[0].Interface()
}

func (s reflectSource) SubscribeAny(fn func(any)) Unsubscribe {
	cbType := s.subscribe.Type().In(0)
	cb := reflect.MakeFunc(cbType, func(args []reflect.Value) []reflect.Value {
		fn(args[0].Interface())
		return nil
	})
	unsub := s.subscribe.Call([]reflect.Value{cb})[0]
	var once sync.Once
	return func() {
		once.Do(func() {
			if !unsub.IsNil() {
				unsub.Call(nil)
			}
		})
	}
}

// isNil reports whether v is nil or a typed nil.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
