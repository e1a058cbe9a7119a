// Package persist saves store values to key-value backends.
//
// A Persistor binds one key to one backend and translates values to bytes
// with a Codec (JSON by default). Persistence never fails from the caller's
// point of view: read errors and undecodable data yield (zero, false), and
// write errors are logged and reported to the Observer while the in-memory
// store stays authoritative.
//
// Backends are selected by Kind from a Host:
//
//	host := persist.NewHost(sessionBackend, localBackend)
//	cart := persist.NewStorageStore(host, "cart", persist.KindLocal, Cart{})
//
// KindSession and KindLocal use the host's Session and Local backends; either
// may be nil, in which case every operation is a no-op that reports absence.
// KindMemory uses the host's own MemoryBackend, so separate hosts never share
// in-memory state.
//
// The redisbackend, sqlbackend, s3backend and etcdbackend subpackages provide
// networked Backend implementations.
package persist
