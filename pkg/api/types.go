package api

import (
	"github.com/dd0wney/cluso-ramstore/pkg/master"
)

// CreateRequest carries the data of a new object; the master allocates the
// object id.
type CreateRequest struct {
	Data []byte `json:"data"`
}

// CreateResponse reports where the object landed.
type CreateResponse struct {
	ObjectID uint64 `json:"object_id"`
	Version  uint64 `json:"version"`
}

// ReadResponse carries an object's data and version.
type ReadResponse struct {
	Data    []byte `json:"data"`
	Version uint64 `json:"version"`
}

// WriteRequest stores data at a fixed object id, optionally guarded by
// reject rules.
type WriteRequest struct {
	Data        []byte              `json:"data"`
	RejectRules *master.RejectRules `json:"reject_rules,omitempty"`
}

// WriteResponse reports the new version.
type WriteResponse struct {
	Version uint64 `json:"version"`
}

// RemoveRequest is a body form of a delete's reject rules. The remove
// handler does not read a body; it takes its rules from query parameters.
type RemoveRequest struct {
	RejectRules *master.RejectRules `json:"reject_rules,omitempty"`
}

// RemoveResponse reports the deleted version, or VERSION_NONEXISTENT when
// the object was already gone.
type RemoveResponse struct {
	Version uint64 `json:"version"`
}

// SetTabletsRequest atomically replaces the served tablet set.
type SetTabletsRequest struct {
	Tablets []master.Tablet `json:"tablets"`
}

// RecoverRequest starts a recovery of a crashed master's partition.
type RecoverRequest struct {
	MasterID    uint64               `json:"master_id"`
	PartitionID uint64               `json:"partition_id"`
	Tablets     []master.Tablet      `json:"tablets"`
	Backups     []master.BackupEntry `json:"backups"`
}

// ErrorResponse is the body of every failed request. Status is the stable
// numeric code; Version carries the observed version when the operation
// reports one even on failure.
type ErrorResponse struct {
	Status  int32  `json:"status"`
	Error   string `json:"error"`
	Version uint64 `json:"version"`
}
