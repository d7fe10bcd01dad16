package router

import "sync/atomic"

// Handle is a swappable reference to the active routing table.
// Readers load the current snapshot without locking; a reload builds a
// complete new Table and publishes it atomically, so concurrent
// lookups always see one consistent generation.
type Handle struct {
	table atomic.Pointer[Table]
}

// NewHandle creates a Handle publishing the given table.
func NewHandle(t *Table) *Handle {
	h := &Handle{}
	h.table.Store(t)
	return h
}

// Load returns the current table snapshot.
func (h *Handle) Load() *Table {
	return h.table.Load()
}

// Swap publishes a new table snapshot and returns the previous one.
func (h *Handle) Swap(t *Table) *Table {
	return h.table.Swap(t)
}

// Lookup performs a lookup against the current snapshot.
func (h *Handle) Lookup(path string) (*Match, bool) {
	return h.Load().Lookup(path)
}
