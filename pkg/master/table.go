package master

// Table is the lightweight handle shared by every tablet of one table on
// this master. It owns the table's object-id and version allocators.
// Versions handed out are monotonically increasing per table, so a write to
// a previously-absent object can never reuse a version an earlier object at
// that key observed.
type Table struct {
	id           uint32
	nextObjectID uint64
	nextVersion  uint64
}

// NewTable creates a table handle. The first version allocated is 1.
func NewTable(id uint32) *Table {
	return &Table{
		id:          id,
		nextVersion: 1,
	}
}

// ID returns the table's identifier.
func (t *Table) ID() uint32 {
	return t.id
}

// AllocateObjectID returns the next fresh object id for create.
func (t *Table) AllocateObjectID() uint64 {
	id := t.nextObjectID
	t.nextObjectID++
	return id
}

// AllocateVersion returns the next version for a write to an absent object
// and advances the allocator.
func (t *Table) AllocateVersion() uint64 {
	v := t.nextVersion
	t.nextVersion++
	return v
}

// RaiseVersion moves the allocator above an externally observed version.
// Recovery calls this once replay is done and the recovered tables' handles
// are installed (applyReplayHighWater), so post-recovery writes cannot hand
// out versions that existed before the crash. Write calls it with the
// version of each overwrite.
func (t *Table) RaiseVersion(seen uint64) {
	if seen >= t.nextVersion {
		t.nextVersion = seen + 1
	}
}

// RaiseObjectID moves the object-id allocator above an externally observed
// id, keeping create from reissuing recovered ids.
func (t *Table) RaiseObjectID(seen uint64) {
	if seen >= t.nextObjectID {
		t.nextObjectID = seen + 1
	}
}
