// Package index implements the hash-table index from (table, object id) to
// a tagged reference into the log: either a live object record or a
// tombstone. The index holds non-owning references; entries must never
// outlive the segment they point into.
package index

import (
	"github.com/dd0wney/cluso-ramstore/pkg/seglog"
)

// EntryType is the one-bit tag distinguishing live objects from tombstones.
type EntryType uint8

const (
	EntryObject    EntryType = 0
	EntryTombstone EntryType = 1
)

// Entry is a tagged reference into log storage.
type Entry struct {
	Type EntryType
	Ref  seglog.Ref
}

// Key identifies an object within a table.
type Key struct {
	TableID  uint64
	ObjectID uint64
}

// Index maps keys to entries. It is touched only on the master's single
// serving context and carries no internal locking.
type Index struct {
	entries map[Key]Entry
}

// New creates an index sized for roughly capacityHint keys.
func New(capacityHint int) *Index {
	if capacityHint < 0 {
		capacityHint = 0
	}
	return &Index{
		entries: make(map[Key]Entry, capacityHint),
	}
}

// Lookup returns the current entry for (table, id), if any.
func (ix *Index) Lookup(tableID, objectID uint64) (Entry, bool) {
	e, ok := ix.entries[Key{TableID: tableID, ObjectID: objectID}]
	return e, ok
}

// Replace unconditionally installs entry for (table, id) and reports
// whether a previous entry was displaced.
func (ix *Index) Replace(tableID, objectID uint64, entry Entry) bool {
	k := Key{TableID: tableID, ObjectID: objectID}
	_, existed := ix.entries[k]
	ix.entries[k] = entry
	return existed
}

// Remove deletes and returns the previous entry for (table, id), if any.
func (ix *Index) Remove(tableID, objectID uint64) (Entry, bool) {
	k := Key{TableID: tableID, ObjectID: objectID}
	e, ok := ix.entries[k]
	if ok {
		delete(ix.entries, k)
	}
	return e, ok
}

// Len returns the number of entries, objects and tombstones alike.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// ForEach visits every entry. The callback may not mutate the index;
// collect keys first when removal is needed.
func (ix *Index) ForEach(fn func(key Key, entry Entry)) {
	for k, e := range ix.entries {
		fn(k, e)
	}
}

// Keys returns all keys currently present. Used by sweeps that mutate the
// index while scanning.
func (ix *Index) Keys() []Key {
	keys := make([]Key, 0, len(ix.entries))
	for k := range ix.entries {
		keys = append(keys, k)
	}
	return keys
}
