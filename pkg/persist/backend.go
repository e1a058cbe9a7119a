package persist

import (
	"context"
	"strings"

	"github.com/vango-dev/store/internal/errors"
)

// Backend is a key-value storage capability.
// Implementations must be safe for concurrent use.
type Backend interface {
	// GetItem returns the bytes stored under key.
	// Returns (nil, false, nil) if the key does not exist.
	GetItem(ctx context.Context, key string) ([]byte, bool, error)

	// SetItem stores data under key, overwriting any previous value.
	SetItem(ctx context.Context, key string, data []byte) error

	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error

	// Clear deletes every key in the backend's namespace, not just the keys
	// written by one persistor.
	Clear(ctx context.Context) error
}

// Kind selects which host backend a persistor uses.
type Kind string

const (
	// KindSession is storage scoped to one session.
	KindSession Kind = "session"
	// KindLocal is durable storage.
	KindLocal Kind = "local"
	// KindMemory is transient storage owned by the Host.
	KindMemory Kind = "memory"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSession, KindLocal, KindMemory:
		return true
	}
	return false
}

// ParseKind parses a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", errors.New("P004").WithDetailf("got %q", s)
	}
	return k, nil
}

// Host owns the backends persistors read from and write to.
type Host struct {
	// Session backs KindSession. Nil disables session persistence.
	Session Backend

	// Local backs KindLocal. Nil disables local persistence.
	Local Backend

	// Memory backs KindMemory.
	Memory *MemoryBackend
}

// NewHost creates a host with the given session and local backends and a
// fresh memory backend.
func NewHost(session, local Backend) *Host {
	return &Host{
		Session: session,
		Local:   local,
		Memory:  NewMemoryBackend(),
	}
}

// Backend returns the backend for kind, or nil if none is configured.
func (h *Host) Backend(kind Kind) Backend {
	if h == nil {
		return nil
	}
	switch kind {
	case KindSession:
		return h.Session
	case KindLocal:
		return h.Local
	case KindMemory:
		if h.Memory == nil {
			return nil
		}
		return h.Memory
	}
	return nil
}
