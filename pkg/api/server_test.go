package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-ramstore/pkg/logging"
	"github.com/dd0wney/cluso-ramstore/pkg/master"
	"github.com/dd0wney/cluso-ramstore/pkg/metrics"
	"github.com/dd0wney/cluso-ramstore/pkg/seglog"
)

// buildSegment packages one object record as a closed recovery segment.
func buildSegment(t *testing.T, tableID, objectID, version uint64, contents string) []byte {
	t.Helper()
	seg := seglog.NewSegment(0, 8192)
	obj := &seglog.Object{TableID: tableID, ObjectID: objectID, Version: version, Data: []byte(contents)}
	_, err := seg.Append(seglog.RecordObject, obj.Encode())
	require.NoError(t, err)
	seg.Close()
	return seg.Bytes()
}

func newTestServer(t *testing.T) (*Server, *master.Master) {
	t.Helper()
	logger := logging.NewCaptureLogger()
	m := master.NewMaster(master.Config{
		ServerID:    2,
		Locator:     "mock:host=master",
		SegmentSize: 64 * 1024,
	}, logger)
	m.SetTablets([]master.Tablet{
		{TableID: 0, StartObjectID: 0, EndObjectID: ^uint64(0), State: master.TabletNormal},
	})
	return NewServer(m, ":0", logger, metrics.NewRegistry()), m
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Ping(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Routes(), http.MethodPost, "/ping", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_CreateReadRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)
	routes := s.Routes()

	rec := doJSON(t, routes, http.MethodPost, "/tables/0/objects", CreateRequest{Data: []byte("item0")})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created CreateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, uint64(0), created.ObjectID)
	assert.Equal(t, uint64(1), created.Version)

	rec = doJSON(t, routes, http.MethodGet, fmt.Sprintf("/tables/0/objects/%d", created.ObjectID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var read ReadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &read))
	assert.Equal(t, "item0", string(read.Data))
	assert.Equal(t, uint64(1), read.Version)

	// The request ID middleware tagged the response.
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_WriteVersionsAdvance(t *testing.T) {
	s, _ := newTestServer(t)
	routes := s.Routes()

	rec := doJSON(t, routes, http.MethodPut, "/tables/0/objects/3", WriteRequest{Data: []byte("v1")})
	require.Equal(t, http.StatusOK, rec.Code)
	var w1 WriteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &w1))
	assert.Equal(t, uint64(1), w1.Version)

	rec = doJSON(t, routes, http.MethodPut, "/tables/0/objects/3", WriteRequest{Data: []byte("v2")})
	require.Equal(t, http.StatusOK, rec.Code)
	var w2 WriteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &w2))
	assert.Equal(t, uint64(2), w2.Version)
}

func TestServer_ReadRejectRules(t *testing.T) {
	s, _ := newTestServer(t)
	routes := s.Routes()

	rec := doJSON(t, routes, http.MethodPost, "/tables/0/objects", CreateRequest{Data: []byte("abcdef")})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, routes, http.MethodGet,
		"/tables/0/objects/0?version_ne_given=true&given_version=2", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, int32(master.StatusWrongVersion), errResp.Status)
	// The observed version rides along even on rejection.
	assert.Equal(t, uint64(1), errResp.Version)
}

func TestServer_WriteRejectRules(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s.Routes(), http.MethodPut, "/tables/0/objects/3", WriteRequest{
		Data:        []byte("item0"),
		RejectRules: &master.RejectRules{DoesntExist: true},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, int32(master.StatusObjectDoesntExist), errResp.Status)
	assert.Equal(t, master.VersionNonexistent, errResp.Version)
}

func TestServer_RemoveThenReadIsGone(t *testing.T) {
	s, _ := newTestServer(t)
	routes := s.Routes()

	doJSON(t, routes, http.MethodPost, "/tables/0/objects", CreateRequest{Data: []byte("item0")})

	rec := doJSON(t, routes, http.MethodDelete, "/tables/0/objects/0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var removed RemoveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &removed))
	assert.Equal(t, uint64(1), removed.Version)

	rec = doJSON(t, routes, http.MethodGet, "/tables/0/objects/0", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_BadTable(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s.Routes(), http.MethodPost, "/tables/4/objects", CreateRequest{Data: []byte("")})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, int32(master.StatusTableDoesntExist), errResp.Status)
}

func TestServer_SetAndGetTablets(t *testing.T) {
	s, _ := newTestServer(t)
	routes := s.Routes()

	rec := doJSON(t, routes, http.MethodPut, "/tablets", SetTabletsRequest{
		Tablets: []master.Tablet{
			{TableID: 2, StartObjectID: 0, EndObjectID: 9, State: master.TabletNormal},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, routes, http.MethodGet, "/tablets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got SetTabletsRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Tablets, 1)
	assert.Equal(t, uint32(2), got.Tablets[0].TableID)
}

// recoverBackend serves one prebuilt segment for the recover endpoint test.
type recoverBackend struct {
	data map[uint64][]byte
}

func (b *recoverBackend) GetRecoveryData(locator string, masterID, segmentID, partitionID uint64, tablets []master.Tablet) ([]byte, error) {
	data, ok := b.data[segmentID]
	if !ok {
		return nil, fmt.Errorf("bad segment id")
	}
	return data, nil
}

func TestServer_Recover(t *testing.T) {
	s, m := newTestServer(t)

	seg := buildSegment(t, 123, 5, 1, "recovered")
	m.SetRecoveryBackend(&recoverBackend{data: map[uint64][]byte{87: seg}})
	m.SetShuffle(func([]master.BackupEntry) {})

	rec := doJSON(t, s.Routes(), http.MethodPost, "/recover", RecoverRequest{
		MasterID:    99,
		PartitionID: 0,
		Tablets: []master.Tablet{
			{TableID: 123, StartObjectID: 0, EndObjectID: 9, State: master.TabletRecovering},
		},
		Backups: []master.BackupEntry{
			{ServerID: 99, SegmentID: 87, Locator: "mock:host=backup1"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	data, _, err := m.Read(123, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(data))
}

func TestServer_Recover_Failure(t *testing.T) {
	s, m := newTestServer(t)

	m.SetRecoveryBackend(&recoverBackend{data: map[uint64][]byte{}})
	m.SetShuffle(func([]master.BackupEntry) {})

	rec := doJSON(t, s.Routes(), http.MethodPost, "/recover", RecoverRequest{
		MasterID: 99,
		Backups: []master.BackupEntry{
			{ServerID: 99, SegmentID: 87, Locator: "mock:host=backup1"},
		},
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, int32(master.StatusSegmentRecoveryFailed), errResp.Status)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	routes := s.Routes()

	rec := doJSON(t, routes, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, routes, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ramstore_")
}
