package master

import (
	"fmt"

	"github.com/dd0wney/cluso-ramstore/pkg/logging"
)

// TabletMap owns the ordered set of tablets this master serves and the
// Table handles attached to them. Tablets of the same table share one
// handle; handles are referenced from tablet descriptors through the opaque
// UserData field rather than a raw pointer.
type TabletMap struct {
	tablets []Tablet

	// tables maps handle identifiers to Table handles; byTable maps a
	// table id to its current handle identifier.
	tables     map[uint64]*Table
	byTable    map[uint32]uint64
	nextHandle uint64

	logger logging.Logger
}

// NewTabletMap creates an empty tablet map.
func NewTabletMap(logger logging.Logger) *TabletMap {
	return &TabletMap{
		tables:  make(map[uint64]*Table),
		byTable: make(map[uint32]uint64),
		logger:  logger,
	}
}

// Tablets returns a copy of the current tablet list.
func (tm *TabletMap) Tablets() []Tablet {
	out := make([]Tablet, len(tm.tablets))
	copy(out, tm.tablets)
	return out
}

// GetTable resolves the key to the Table handle of the first tablet that
// covers it. Fails with ErrTableDoesntExist when no tablet does.
func (tm *TabletMap) GetTable(tableID, objectID uint64) (*Table, error) {
	for _, t := range tm.tablets {
		if t.Contains(tableID, objectID) {
			return tm.tables[t.UserData], nil
		}
	}
	return nil, ErrTableDoesntExist
}

// GetTableByID resolves a table id to its handle through any tablet of that
// table. Used by create, which has no object id yet.
func (tm *TabletMap) GetTableByID(tableID uint64) (*Table, error) {
	for _, t := range tm.tablets {
		if uint64(t.TableID) == tableID {
			return tm.tables[t.UserData], nil
		}
	}
	return nil, ErrTableDoesntExist
}

// TableByHandle resolves a handle identifier from a tablet's UserData.
func (tm *TabletMap) TableByHandle(handle uint64) (*Table, bool) {
	t, ok := tm.tables[handle]
	return t, ok
}

// SetTablets atomically replaces the tablet set. Table handles are reused
// for table ids that survive the change, allocated fresh for new ids, and
// destroyed for ids no longer referenced by any tablet.
func (tm *TabletMap) SetTablets(newList []Tablet) {
	newByTable := make(map[uint32]uint64, len(newList))
	newTables := make(map[uint64]*Table, len(newList))
	installed := make([]Tablet, len(newList))

	for i, t := range newList {
		handle, ok := newByTable[t.TableID]
		if !ok {
			if existing, reuse := tm.byTable[t.TableID]; reuse {
				handle = existing
				newTables[handle] = tm.tables[handle]
			} else {
				tm.nextHandle++
				handle = tm.nextHandle
				newTables[handle] = NewTable(t.TableID)
			}
			newByTable[t.TableID] = handle
		}
		t.UserData = handle
		installed[i] = t
	}

	tm.tablets = installed
	tm.tables = newTables
	tm.byTable = newByTable

	tm.logger.Info("Now serving tablets:")
	for _, t := range tm.tablets {
		tm.logger.Info(fmt.Sprintf("table: %20d, start: %20d, end  : %20d",
			t.TableID, t.StartObjectID, t.EndObjectID))
	}
}
