package instrument

import (
	"github.com/vango-dev/store/pkg/persist"
	"github.com/vango-dev/store/pkg/store"
)

type multi []Observer

// Multi fans every hook out to each observer in order. Nil observers are
// skipped.
func Multi(observers ...Observer) Observer {
	m := make(multi, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multi) StoreSet(name string) {
	for _, o := range m {
		o.StoreSet(name)
	}
}

func (m multi) StoreDerive(name string, mode store.Mode) func() {
	dones := make([]func(), len(m))
	for i, o := range m {
		dones[i] = o.StoreDerive(name, mode)
	}
	return func() {
		for i := len(dones) - 1; i >= 0; i-- {
			dones[i]()
		}
	}
}

func (m multi) StoreActivated(name string) {
	for _, o := range m {
		o.StoreActivated(name)
	}
}

func (m multi) StoreDeactivated(name string) {
	for _, o := range m {
		o.StoreDeactivated(name)
	}
}

func (m multi) PersistSaved(key string, kind persist.Kind, err error) {
	for _, o := range m {
		o.PersistSaved(key, kind, err)
	}
}

func (m multi) PersistLoaded(key string, kind persist.Kind, found bool, err error) {
	for _, o := range m {
		o.PersistLoaded(key, kind, found, err)
	}
}
