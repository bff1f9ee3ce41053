// Package master implements the master node of the distributed main-memory
// key-value store: the in-memory object store backed by an append-only
// segmented log, the hash-table index over it, the tablet map, the
// optimistic-concurrency reject rules, and the crash-recovery engine that
// replays log segments fetched from backup nodes.
package master

// VersionNonexistent is reported in the version out-value when the target
// object does not exist.
const VersionNonexistent uint64 = 0

// TabletState tracks whether a tablet is serving or still being recovered.
type TabletState uint8

const (
	TabletNormal TabletState = iota
	TabletRecovering
)

func (s TabletState) String() string {
	switch s {
	case TabletNormal:
		return "NORMAL"
	case TabletRecovering:
		return "RECOVERING"
	default:
		return "UNKNOWN"
	}
}

// Tablet is a contiguous object-id range within a table assigned to this
// master. UserData is opaque on the wire; locally it holds the identifier
// of the Table handle attached to the tablet.
type Tablet struct {
	TableID       uint32      `json:"table_id"`
	StartObjectID uint64      `json:"start_object_id"`
	EndObjectID   uint64      `json:"end_object_id"`
	State         TabletState `json:"state"`
	UserData      uint64      `json:"user_data"`
}

// Contains reports whether the tablet covers the given key.
func (t Tablet) Contains(tableID, objectID uint64) bool {
	return uint64(t.TableID) == tableID &&
		t.StartObjectID <= objectID && objectID <= t.EndObjectID
}

// RejectRules is the optimistic-concurrency predicate bundle attached to
// read, write, and remove requests. Flags referencing versions are only
// meaningful when the object exists.
type RejectRules struct {
	DoesntExist    bool   `json:"doesnt_exist"`
	Exists         bool   `json:"exists"`
	VersionLeGiven bool   `json:"version_le_given"`
	VersionNeGiven bool   `json:"version_ne_given"`
	GivenVersion   uint64 `json:"given_version"`
}

// BackupEntry advertises one segment replica held by a backup. Several
// backups may advertise the same segment id.
type BackupEntry struct {
	ServerID  uint64 `json:"server_id"`
	SegmentID uint64 `json:"segment_id"`
	Locator   string `json:"service_locator"`
}

// RecoveryBackend fetches recovery data from backups. The master retries a
// failed fetch against the next advertised backup for that segment.
type RecoveryBackend interface {
	// GetRecoveryData returns the segment bytes holding only those objects
	// and tombstones that fall within the given partition's tablets.
	GetRecoveryData(locator string, masterID, segmentID, partitionID uint64, tablets []Tablet) ([]byte, error)
}

// CoordinatorNotifier is the slice of the coordinator protocol the master
// drives at the end of a recovery.
type CoordinatorNotifier interface {
	TabletsRecovered(masterID uint64, tablets []Tablet) error
}
