package store

// Observer receives lifecycle and activity hooks from stores.
// Implementations must be safe for concurrent use.
type Observer interface {
	// StoreSet is called after a Set changed the value, before subscribers
	// are notified.
	StoreSet(name string)

	// StoreDerive is called before a derive function runs. The returned
	// func is called when it returns. For async derivers that is when the
	// derive function returns, not when it calls set.
	StoreDerive(name string, mode Mode) (done func())

	// StoreActivated is called when a derived store goes hot.
	StoreActivated(name string)

	// StoreDeactivated is called when a derived store goes cold.
	StoreDeactivated(name string)
}

// NopObserver ignores every hook.
type NopObserver struct{}

func (NopObserver) StoreSet(string)                 {}
func (NopObserver) StoreDerive(string, Mode) func() { return func() {} }
func (NopObserver) StoreActivated(string)           {}
func (NopObserver) StoreDeactivated(string)         {}
