package master

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"

	"github.com/dd0wney/cluso-ramstore/pkg/index"
	"github.com/dd0wney/cluso-ramstore/pkg/logging"
	"github.com/dd0wney/cluso-ramstore/pkg/seglog"
)

// Recover takes over the tablets of a crashed master. It fetches every
// advertised segment of the partition from the backups, replays them into
// the local log and index, sweeps tombstones, installs the recovered
// tablets as Normal, and notifies the coordinator. All-backups-exhausted
// for any single segment fails the whole recovery.
func (m *Master) Recover(masterID, partitionID uint64, tablets []Tablet, backups []BackupEntry) (err error) {
	start := time.Now()
	defer func() {
		if m.metrics != nil {
			m.metrics.RecordRecovery(StatusOf(err).String(), time.Since(start))
		}
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	recoveryID := uuid.NewString()
	m.logger.Info(fmt.Sprintf("Starting recovery of %d tablets on masterId %d", len(tablets), m.cfg.ServerID),
		logging.String("recovery_id", recoveryID),
		logging.MasterID(masterID))

	if err := m.recover(masterID, partitionID, tablets, backups); err != nil {
		return err
	}

	// Replay is done: take ownership. Tablets flip Recovering -> Normal and
	// get their Table handles when installed.
	recovered := make([]Tablet, len(tablets))
	for i, t := range tablets {
		t.State = TabletNormal
		recovered[i] = t
		m.logger.Info(fmt.Sprintf("set tablet %d %d %d to locator %s, id %d",
			t.TableID, t.StartObjectID, t.EndObjectID, m.cfg.Locator, m.cfg.ServerID))
	}

	if m.coord != nil {
		if err := m.coord.TabletsRecovered(m.cfg.ServerID, recovered); err != nil {
			return newInternalError("tabletsRecovered", err)
		}
	}

	m.tablets.SetTablets(append(m.tablets.Tablets(), recovered...))
	m.applyReplayHighWater()
	return nil
}

// recover runs the fetch/replay loop. Caller holds the lock.
func (m *Master) recover(masterID, partitionID uint64, tablets []Tablet, backups []BackupEntry) error {
	m.logger.Info(fmt.Sprintf("Recovering master %d, partition %d, %d hosts",
		masterID, partitionID, len(backups)))

	// Multimap segment id -> advertised backups, preserving input order.
	var segmentOrder []uint64
	bySegment := make(map[uint64][]BackupEntry)
	for _, b := range backups {
		if _, seen := bySegment[b.SegmentID]; !seen {
			segmentOrder = append(segmentOrder, b.SegmentID)
		}
		bySegment[b.SegmentID] = append(bySegment[b.SegmentID], b)
	}

	if m.backend == nil && len(backups) > 0 {
		return newInternalError("recover", fmt.Errorf("no recovery backend attached"))
	}

	shuffle := m.shuffle
	if shuffle == nil {
		rng := rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
		shuffle = func(entries []BackupEntry) {
			rng.Shuffle(len(entries), func(i, j int) {
				entries[i], entries[j] = entries[j], entries[i]
			})
		}
	}

	failed := make(map[string]bool)
	for _, segmentID := range segmentOrder {
		candidates := make([]BackupEntry, len(bySegment[segmentID]))
		copy(candidates, bySegment[segmentID])
		shuffle(candidates)

		var replayed bool
		for _, cand := range candidates {
			if failed[cand.Locator] {
				continue
			}
			m.logger.Info(fmt.Sprintf("Starting getRecoveryData from %s for segment %d",
				cand.Locator, segmentID))
			m.logger.Info(fmt.Sprintf("Waiting on recovery data for segment %d from %s",
				segmentID, cand.Locator))

			data, err := m.backend.GetRecoveryData(cand.Locator, masterID, segmentID, partitionID, tablets)
			if err != nil {
				m.logger.Warn(fmt.Sprintf("getRecoveryData failed on %s, trying next backup; failure was: %v",
					cand.Locator, err))
				if m.metrics != nil {
					m.metrics.RecordRecoveryFetchFailure(cand.Locator)
				}
				failed[cand.Locator] = true
				continue
			}

			m.logger.Info(fmt.Sprintf("Checking %s off the list for %d", cand.Locator, segmentID))
			m.logger.Info(fmt.Sprintf("Recovering segment %d with size %d", segmentID, len(data)))
			if err := m.recoverSegment(segmentID, data); err != nil {
				return err
			}
			replayed = true
			break
		}

		if !replayed {
			m.logger.Error(fmt.Sprintf("Failed to recover segment %d: all backups exhausted", segmentID))
			return ErrSegmentRecoveryFailed
		}
	}

	m.removeTombstones()
	return nil
}

// RecoverSegment replays one recovery segment into the local store.
// Exported for replay-level testing; Recover drives it internally.
func (m *Master) RecoverSegment(segmentID uint64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.recoverSegment(segmentID, data); err != nil {
		return err
	}
	m.applyReplayHighWater()
	return nil
}

func (m *Master) recoverSegment(segmentID uint64, data []byte) error {
	m.logger.Info(fmt.Sprintf("recoverSegment %d, ...", segmentID))

	seg := seglog.OpenSegment(segmentID, data)
	err := seg.Iterate(func(kind seglog.RecordType, _ seglog.Ref, payload []byte) error {
		switch kind {
		case seglog.RecordObject:
			obj, err := seglog.DecodeObject(payload)
			if err != nil {
				return err
			}
			m.noteReplayed(obj.TableID, obj.ObjectID, obj.Version)
			return m.replayObject(obj)
		case seglog.RecordTombstone:
			tomb, err := seglog.DecodeTombstone(payload)
			if err != nil {
				return err
			}
			m.noteReplayed(tomb.TableID, tomb.ObjectID, tomb.ObjectVersion)
			return m.replayTombstone(tomb)
		default:
			// Other record kinds carry no object state.
			return nil
		}
	})
	if err != nil {
		return &Error{
			Code:    StatusSegmentRecoveryFailed,
			Message: fmt.Sprintf("segment %d replay: %v", segmentID, err),
		}
	}

	if m.metrics != nil {
		m.metrics.RecordRecoverySegment(len(data))
	}
	m.logger.Info(fmt.Sprintf("Segment %d replay complete", segmentID))
	return nil
}

// entryVersion reads the version stored in the record an index entry
// references.
func (m *Master) entryVersion(entry index.Entry) uint64 {
	payload := m.log.Payload(entry.Ref)
	if entry.Type == index.EntryTombstone {
		tomb, err := seglog.DecodeTombstone(payload)
		if err != nil {
			panic("master: index entry references undecodable tombstone record: " + err.Error())
		}
		return tomb.ObjectVersion
	}
	obj, err := seglog.DecodeObject(payload)
	if err != nil {
		panic("master: index entry references undecodable object record: " + err.Error())
	}
	return obj.Version
}

// replayObject applies one recovered object. The object wins only against
// strictly older state: an equal-version object or tombstone already in the
// index keeps the recovered copy out.
func (m *Master) replayObject(obj *seglog.Object) error {
	cur, found := m.objectMap.Lookup(obj.TableID, obj.ObjectID)
	if found && obj.Version <= m.entryVersion(cur) {
		return nil
	}

	if _, err := m.storeObject(obj.TableID, obj.ObjectID, obj.Version, obj.Data); err != nil {
		return err
	}
	return nil
}

// noteReplayed accumulates the highest object id and version seen for a
// table during replay. The recovering tablets are not installed until the
// replay finishes, so the floors are held here and applied to the Table
// handles once SetTablets has created them.
func (m *Master) noteReplayed(tableID, objectID, version uint64) {
	hw := m.replayMax[tableID]
	if version > hw.version {
		hw.version = version
	}
	if objectID > hw.objectID {
		hw.objectID = objectID
	}
	m.replayMax[tableID] = hw
}

// applyReplayHighWater raises the allocators of every table whose handle
// now exists above the replay floors, so post-recovery writes and creates
// stay monotonic and cannot collide with recovered ids. Floors for tables
// still without a handle are kept for a later install.
func (m *Master) applyReplayHighWater() {
	for tableID, hw := range m.replayMax {
		table, err := m.tablets.GetTableByID(tableID)
		if err != nil {
			continue
		}
		table.RaiseVersion(hw.version)
		table.RaiseObjectID(hw.objectID)
		delete(m.replayMax, tableID)
	}
}

// replayTombstone applies one recovered tombstone. Against a live object a
// tombstone of equal version wins; against another tombstone only a
// strictly newer one does. A tombstone for an absent key is still installed
// so a later recovery segment cannot resurrect an equal-version object.
func (m *Master) replayTombstone(tomb *seglog.Tombstone) error {
	cur, found := m.objectMap.Lookup(tomb.TableID, tomb.ObjectID)
	if found {
		curVersion := m.entryVersion(cur)
		if cur.Type == index.EntryObject {
			if tomb.ObjectVersion < curVersion {
				return nil
			}
		} else {
			if tomb.ObjectVersion <= curVersion {
				return nil
			}
		}
	}

	ref, err := m.log.Append(seglog.RecordTombstone, tomb.Encode())
	if err != nil {
		return newInternalError("log append", err)
	}
	m.objectMap.Replace(tomb.TableID, tomb.ObjectID, index.Entry{Type: index.EntryTombstone, Ref: ref})
	return nil
}

// RemoveTombstones sweeps every tombstone out of the index. Called once
// after all segments replay, so a live object observed later in the replay
// is not shadowed, while a final tombstone still suppresses reads.
func (m *Master) RemoveTombstones() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeTombstones()
}

func (m *Master) removeTombstones() {
	for _, k := range m.objectMap.Keys() {
		if entry, ok := m.objectMap.Lookup(k.TableID, k.ObjectID); ok && entry.Type == index.EntryTombstone {
			m.objectMap.Remove(k.TableID, k.ObjectID)
		}
	}
}

// LookupEntryType exposes the index tag at a key for diagnostics: absent,
// object (0), or tombstone (1).
func (m *Master) LookupEntryType(tableID, objectID uint64) (index.EntryType, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.objectMap.Lookup(tableID, objectID)
	return entry.Type, ok
}
