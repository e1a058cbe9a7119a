// Package store provides reactive value containers that follow the store
// contract:
//
//  1. Subscribe must call the callback immediately and synchronously with
//     the current value, then again on every change.
//  2. Subscribe returns an unsubscribe function. After it is called the
//     callback is never called again by the store.
//  3. A writable store has Set, which synchronously calls every active
//     callback when the value changes.
//
// # Core Types
//
// Store[T] is a writable value container:
//
//	count := store.New(0)
//	unsub := count.Subscribe(func(n int) { fmt.Println(n) }) // prints 0
//	count.Set(5)                                              // prints 5
//	count.Update(func(n int) int { return n + 1 })            // prints 6
//	unsub()
//
// Derived[T] is a read-only store computed from one or more sources:
//
//	a, b := store.New("foo"), store.New(123)
//	joined := store.MustDerived([]store.Source{a, b},
//	    store.Sync(func(v []any) string { return fmt.Sprint(v...) }),
//	)
//
// A derived store is cold until its first subscriber arrives. While cold it
// holds no subscriptions on its sources and never runs the derive function.
// The last unsubscribe makes it cold again; the cached source values are
// kept for the next activation.
//
// Async derivers receive a set callback that may be called later, from any
// goroutine, any number of times (or not at all):
//
//	debounced := store.MustDerived([]store.Source{query},
//	    store.Async(func(v []any, set func(string)) {
//	        time.AfterFunc(100*time.Millisecond, func() { set(v[0].(string)) })
//	    }),
//	)
//
// Superseded async results are not cancelled; the last set to land wins.
//
// # Equality
//
// Set only notifies when the new value is not identical to the current one.
// Comparable values use ==. Slices, maps, functions, channels and pointers
// compare by identity, never by content. Use WithEquals for anything else.
//
// # Reading a derived store
//
// Derived.Get is passive: it returns the last computed value (or the
// configured initial value) and never activates the sources. Derived.Resolve
// performs a throwaway subscribe to force a fresh value.
//
// # Thread Safety
//
// Stores may be used from multiple goroutines. Callbacks run on the goroutine
// that caused the change and no lock is held while they run, so a callback
// may set other stores (or the same one) reentrantly. Cycles between stores
// are not detected.
package store
