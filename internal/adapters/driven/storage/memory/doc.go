// Package memory provides in-memory implementations of the storage ports.
//
// This is the default backend: all state is process-lifetime and there
// is no eviction. The stores are safe for concurrent use; mutation is
// guarded per store and entries are keyed by opaque ids so unrelated
// documents and conversations never contend on each other's data.
package memory
