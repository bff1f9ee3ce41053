package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dd0wney/cluso-ramstore/pkg/logging"
	"github.com/dd0wney/cluso-ramstore/pkg/master"
)

// writeJSON encodes v with the given HTTP status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a master error onto an HTTP status and the standard
// error body, carrying the observed version along.
func writeError(w http.ResponseWriter, err error, version uint64) {
	var httpStatus int
	switch master.StatusOf(err) {
	case master.StatusTableDoesntExist, master.StatusObjectDoesntExist:
		httpStatus = http.StatusNotFound
	case master.StatusObjectExists:
		httpStatus = http.StatusConflict
	case master.StatusWrongVersion:
		httpStatus = http.StatusPreconditionFailed
	default:
		httpStatus = http.StatusInternalServerError
	}
	writeJSON(w, httpStatus, ErrorResponse{
		Status:  int32(master.StatusOf(err)),
		Error:   err.Error(),
		Version: version,
	})
}

// pathUint64 parses a numeric path segment.
func pathUint64(r *http.Request, name string) (uint64, bool) {
	v, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	return v, err == nil
}

// rulesFromQuery assembles reject rules from query parameters; nil when no
// rule flag is present.
func rulesFromQuery(r *http.Request) (*master.RejectRules, error) {
	q := r.URL.Query()
	rules := &master.RejectRules{
		DoesntExist:    q.Get("doesnt_exist") == "true",
		Exists:         q.Get("exists") == "true",
		VersionLeGiven: q.Get("version_le_given") == "true",
		VersionNeGiven: q.Get("version_ne_given") == "true",
	}
	if given := q.Get("given_version"); given != "" {
		v, err := strconv.ParseUint(given, 10, 64)
		if err != nil {
			return nil, err
		}
		rules.GivenVersion = v
	}
	if !rules.DoesntExist && !rules.Exists && !rules.VersionLeGiven && !rules.VersionNeGiven {
		return nil, nil
	}
	return rules, nil
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	s.master.Ping()
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	tableID, ok := pathUint64(r, "table")
	if !ok {
		http.Error(w, "invalid table id", http.StatusBadRequest)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	objectID, version, err := s.master.Create(tableID, req.Data)
	if err != nil {
		writeError(w, err, version)
		return
	}
	writeJSON(w, http.StatusCreated, CreateResponse{ObjectID: objectID, Version: version})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	tableID, ok := pathUint64(r, "table")
	objectID, ok2 := pathUint64(r, "id")
	if !ok || !ok2 {
		http.Error(w, "invalid table or object id", http.StatusBadRequest)
		return
	}

	rules, err := rulesFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, version, err := s.master.Read(tableID, objectID, rules)
	if err != nil {
		writeError(w, err, version)
		return
	}
	writeJSON(w, http.StatusOK, ReadResponse{Data: data, Version: version})
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	tableID, ok := pathUint64(r, "table")
	objectID, ok2 := pathUint64(r, "id")
	if !ok || !ok2 {
		http.Error(w, "invalid table or object id", http.StatusBadRequest)
		return
	}

	var req WriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	version, err := s.master.Write(tableID, objectID, req.Data, req.RejectRules)
	if err != nil {
		writeError(w, err, version)
		return
	}
	writeJSON(w, http.StatusOK, WriteResponse{Version: version})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	tableID, ok := pathUint64(r, "table")
	objectID, ok2 := pathUint64(r, "id")
	if !ok || !ok2 {
		http.Error(w, "invalid table or object id", http.StatusBadRequest)
		return
	}

	rules, err := rulesFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	version, err := s.master.Remove(tableID, objectID, rules)
	if err != nil {
		writeError(w, err, version)
		return
	}
	writeJSON(w, http.StatusOK, RemoveResponse{Version: version})
}

func (s *Server) handleSetTablets(w http.ResponseWriter, r *http.Request) {
	var req SetTabletsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.master.SetTablets(req.Tablets)
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleGetTablets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SetTabletsRequest{Tablets: s.master.Tablets()})
}

func (s *Server) handleRecover(w http.ResponseWriter, r *http.Request) {
	var req RecoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Info("recover requested",
		logging.MasterID(req.MasterID),
		logging.Uint64("partition_id", req.PartitionID),
		logging.Count(len(req.Backups)))

	if err := s.master.Recover(req.MasterID, req.PartitionID, req.Tablets, req.Backups); err != nil {
		writeError(w, err, master.VersionNonexistent)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}
