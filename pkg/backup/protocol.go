// Package backup implements the slice of the backup protocol the master
// consumes during crash recovery, plus an in-memory backup service used by
// tests and single-process development clusters.
package backup

import (
	"errors"

	"github.com/dd0wney/cluso-ramstore/pkg/master"
)

// CodeBadSegmentID is the remote error code for a fetch of a segment the
// backup does not hold.
const CodeBadSegmentID = "bad segment id"

// ErrBadSegmentID is the client-side form of CodeBadSegmentID.
var ErrBadSegmentID = errors.New("bad segment id")

// StartReadingDataRequest asks a backup to begin reading the segments it
// holds for a crashed master. The call is idempotent.
type StartReadingDataRequest struct {
	MasterID uint64          `json:"master_id"`
	Tablets  []master.Tablet `json:"tablets"`
}

// GetRecoveryDataRequest fetches one recovery segment: the entries of the
// stored segment whose objects fall inside the partition's tablets.
type GetRecoveryDataRequest struct {
	MasterID    uint64          `json:"master_id"`
	SegmentID   uint64          `json:"segment_id"`
	PartitionID uint64          `json:"partition_id"`
	Tablets     []master.Tablet `json:"tablets"`
}

// GetRecoveryDataResponse carries the recovery segment, snappy-compressed
// for the wire.
type GetRecoveryDataResponse struct {
	Compressed         []byte `json:"compressed"`
	UncompressedLength int    `json:"uncompressed_length"`
}
