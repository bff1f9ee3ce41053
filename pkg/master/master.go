package master

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-ramstore/pkg/index"
	"github.com/dd0wney/cluso-ramstore/pkg/logging"
	"github.com/dd0wney/cluso-ramstore/pkg/metrics"
	"github.com/dd0wney/cluso-ramstore/pkg/seglog"
)

// Config holds the sizing and identity parameters of a master.
type Config struct {
	ServerID uint64
	Locator  string

	// SegmentSize is the per-segment capacity in bytes.
	SegmentSize uint32
	// MaxSegments bounds the resident log; 0 means unbounded.
	MaxSegments int
	// IndexSizeHint pre-sizes the hash-table index (number of keys).
	IndexSizeHint int
}

// Master owns the in-memory object store: the append-only log, the index
// over it, and the tablet map. Request handlers run to completion under one
// lock, matching the single serving context the store is designed for.
type Master struct {
	mu sync.Mutex

	cfg       Config
	log       *seglog.Log
	objectMap *index.Index
	tablets   *TabletMap

	logger  logging.Logger
	metrics *metrics.Registry

	backend RecoveryBackend
	coord   CoordinatorNotifier
	shuffle func([]BackupEntry)

	// replayMax holds the highest object id and version observed per table
	// during replay, applied to the table allocators once the recovered
	// tablets (and their Table handles) are installed.
	replayMax map[uint64]replayHighWater
}

// replayHighWater is the per-table allocator floor accumulated by replay.
type replayHighWater struct {
	version  uint64
	objectID uint64
}

// NewMaster creates a master with an empty log and index.
func NewMaster(cfg Config, logger logging.Logger) *Master {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Master{
		cfg:       cfg,
		log:       seglog.NewLog(cfg.SegmentSize, cfg.MaxSegments),
		objectMap: index.New(cfg.IndexSizeHint),
		tablets:   NewTabletMap(logger),
		logger:    logger,
		replayMax: make(map[uint64]replayHighWater),
	}
}

// SetMetrics attaches a metrics registry. Optional; the master records
// nothing when unset.
func (m *Master) SetMetrics(r *metrics.Registry) {
	m.metrics = r
}

// SetRecoveryBackend attaches the backup fetch client used by Recover.
func (m *Master) SetRecoveryBackend(b RecoveryBackend) {
	m.backend = b
}

// SetCoordinator attaches the coordinator notifier used at the end of a
// recovery.
func (m *Master) SetCoordinator(c CoordinatorNotifier) {
	m.coord = c
}

// SetShuffle injects the shuffle applied to a segment's candidate backups.
// Tests inject a deterministic function.
func (m *Master) SetShuffle(fn func([]BackupEntry)) {
	m.shuffle = fn
}

// ServerID returns this master's server id.
func (m *Master) ServerID() uint64 {
	return m.cfg.ServerID
}

// Locator returns this master's service locator.
func (m *Master) Locator() string {
	return m.cfg.Locator
}

func (m *Master) recordOp(op string, start time.Time, err error) {
	if m.metrics == nil {
		return
	}
	m.metrics.RecordOperation(op, StatusOf(err).String(), time.Since(start))
	m.metrics.SetLogStats(m.log.NumSegments(), m.log.AppendedBytes())
	m.metrics.SetIndexEntries(m.objectMap.Len())
}

// lookupObject returns the decoded live object at the key. ok is false when
// the key is absent or its index entry is a tombstone.
func (m *Master) lookupObject(tableID, objectID uint64) (*seglog.Object, index.Entry, bool) {
	entry, found := m.objectMap.Lookup(tableID, objectID)
	if !found || entry.Type != index.EntryObject {
		return nil, entry, false
	}
	obj, err := seglog.DecodeObject(m.log.Payload(entry.Ref))
	if err != nil {
		// An undecodable record behind a live index entry means the index
		// points at garbage; that is a programming error.
		panic("master: index entry references undecodable object record: " + err.Error())
	}
	return obj, entry, true
}

// storeObject appends an object record to the log and installs its index
// entry. Returns the stored version.
func (m *Master) storeObject(tableID, objectID, version uint64, data []byte) (uint64, error) {
	obj := &seglog.Object{
		TableID:  tableID,
		ObjectID: objectID,
		Version:  version,
		Data:     data,
	}
	ref, err := m.log.Append(seglog.RecordObject, obj.Encode())
	if err != nil {
		return VersionNonexistent, newInternalError("log append", err)
	}
	m.objectMap.Replace(tableID, objectID, index.Entry{Type: index.EntryObject, Ref: ref})
	return version, nil
}

// Ping is a no-op used for liveness probes.
func (m *Master) Ping() {
	m.logger.Debug("ping")
}

// Create allocates a fresh object id from the table and writes data at it.
// Returns the new object's id and version.
func (m *Master) Create(tableID uint64, data []byte) (objectID, version uint64, err error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.recordOp("create", start, err) }()

	table, err := m.tablets.GetTableByID(tableID)
	if err != nil {
		return 0, VersionNonexistent, err
	}

	objectID = table.AllocateObjectID()
	version, err = m.storeObject(tableID, objectID, table.AllocateVersion(), data)
	if err != nil {
		return 0, VersionNonexistent, err
	}
	m.logger.Debug("created object",
		logging.TableID(tableID), logging.ObjectID(objectID), logging.Version(version))
	return objectID, version, nil
}

// Read returns the object's data and version. The version out-value carries
// the observed version even when the read is rejected, and
// VersionNonexistent when the object does not exist.
func (m *Master) Read(tableID, objectID uint64, rules *RejectRules) (data []byte, version uint64, err error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.recordOp("read", start, err) }()

	if _, err := m.tablets.GetTable(tableID, objectID); err != nil {
		return nil, VersionNonexistent, err
	}

	obj, _, ok := m.lookupObject(tableID, objectID)
	if !ok {
		// A tombstoned entry reads as absent.
		if err := rejectOperation(rules, VersionNonexistent); err != nil {
			return nil, VersionNonexistent, err
		}
		return nil, VersionNonexistent, ErrObjectDoesntExist
	}

	if err := rejectOperation(rules, obj.Version); err != nil {
		return nil, obj.Version, err
	}

	// Copy out of log storage; the caller must not alias segment memory.
	out := make([]byte, len(obj.Data))
	copy(out, obj.Data)
	return out, obj.Version, nil
}

// Write stores data at the key. An overwrite bumps the current version by
// one; a write to an absent (or tombstoned) key draws its version from the
// table allocator.
func (m *Master) Write(tableID, objectID uint64, data []byte, rules *RejectRules) (version uint64, err error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.recordOp("write", start, err) }()

	table, err := m.tablets.GetTable(tableID, objectID)
	if err != nil {
		return VersionNonexistent, err
	}

	obj, _, ok := m.lookupObject(tableID, objectID)
	current := VersionNonexistent
	if ok {
		current = obj.Version
	}

	if err := rejectOperation(rules, current); err != nil {
		return current, err
	}

	var next uint64
	if ok {
		next = current + 1
		table.RaiseVersion(next)
	} else {
		next = table.AllocateVersion()
	}
	return m.storeObject(tableID, objectID, next, data)
}

// Remove deletes the object, appending a tombstone carrying the deleted
// version. Removing an absent object is a no-op that reports
// VersionNonexistent.
func (m *Master) Remove(tableID, objectID uint64, rules *RejectRules) (version uint64, err error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.recordOp("remove", start, err) }()

	if _, err := m.tablets.GetTable(tableID, objectID); err != nil {
		return VersionNonexistent, err
	}

	obj, entry, ok := m.lookupObject(tableID, objectID)
	if !ok {
		if err := rejectOperation(rules, VersionNonexistent); err != nil {
			return VersionNonexistent, err
		}
		return VersionNonexistent, nil
	}

	if err := rejectOperation(rules, obj.Version); err != nil {
		return obj.Version, err
	}

	tomb := &seglog.Tombstone{
		TableID:       tableID,
		ObjectID:      objectID,
		SegmentID:     entry.Ref.SegmentID,
		ObjectVersion: obj.Version,
	}
	ref, err := m.log.Append(seglog.RecordTombstone, tomb.Encode())
	if err != nil {
		return obj.Version, newInternalError("log append", err)
	}
	m.objectMap.Replace(tableID, objectID, index.Entry{Type: index.EntryTombstone, Ref: ref})
	return obj.Version, nil
}

// SetTablets atomically replaces the served tablet set.
func (m *Master) SetTablets(tablets []Tablet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tablets.SetTablets(tablets)
	if m.metrics != nil {
		m.metrics.SetTabletsServed(len(tablets))
	}
}

// Tablets returns a copy of the served tablet set.
func (m *Master) Tablets() []Tablet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tablets.Tablets()
}

// LogUtilization reports resident segments against the configured budget
// (0 when unbounded). Health checks watch this.
func (m *Master) LogUtilization() (segments, maxSegments int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.log.NumSegments(), m.cfg.MaxSegments
}

// TabletCount returns the number of tablets currently served.
func (m *Master) TabletCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tablets.tablets)
}
