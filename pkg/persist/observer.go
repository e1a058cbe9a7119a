package persist

// Observer receives persistence outcomes.
// Implementations must be safe for concurrent use.
type Observer interface {
	// PersistSaved is called after every Set attempt. err is nil on success.
	PersistSaved(key string, kind Kind, err error)

	// PersistLoaded is called after every Get attempt.
	PersistLoaded(key string, kind Kind, found bool, err error)
}

// NopObserver ignores every hook.
type NopObserver struct{}

func (NopObserver) PersistSaved(string, Kind, error)        {}
func (NopObserver) PersistLoaded(string, Kind, bool, error) {}
