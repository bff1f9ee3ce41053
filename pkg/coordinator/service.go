package coordinator

import (
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-ramstore/pkg/logging"
	"github.com/dd0wney/cluso-ramstore/pkg/master"
	"github.com/dd0wney/cluso-ramstore/pkg/transport"
)

// ServerEntry is one enlisted server.
type ServerEntry struct {
	ServerID   uint64
	ServerType string
	Locator    string
}

// Service is an in-memory coordinator: it assigns server ids and records
// recovered tablet sets. Tests and development clusters bind it in place of
// a real coordinator.
type Service struct {
	mu      sync.Mutex
	logger  logging.Logger
	nextID  uint64
	servers []ServerEntry

	// recovered maps a master id to the tablets it last reported.
	recovered map[uint64][]master.Tablet
}

// NewService creates an empty coordinator.
func NewService(logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Service{
		logger:    logger,
		recovered: make(map[uint64][]master.Tablet),
	}
}

// Servers returns all enlisted servers.
func (s *Service) Servers() []ServerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ServerEntry, len(s.servers))
	copy(out, s.servers)
	return out
}

// Recovered returns the tablets a master last reported recovered.
func (s *Service) Recovered(masterID uint64) []master.Tablet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recovered[masterID]
}

// Handler dispatches coordinator protocol messages.
func (s *Service) Handler() transport.Handler {
	return func(req *transport.Message) (*transport.Message, error) {
		switch req.Type {
		case transport.MsgEnlistServer:
			return s.handleEnlistServer(req)
		case transport.MsgTabletsRecovered:
			return s.handleTabletsRecovered(req)
		default:
			return transport.NewErrorMessage("bad request",
				fmt.Sprintf("unexpected message type %d", req.Type)), nil
		}
	}
}

func (s *Service) handleEnlistServer(req *transport.Message) (*transport.Message, error) {
	var in EnlistServerRequest
	if err := req.Decode(&in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.nextID++
	entry := ServerEntry{
		ServerID:   s.nextID,
		ServerType: in.ServerType,
		Locator:    in.Locator,
	}
	s.servers = append(s.servers, entry)
	s.mu.Unlock()

	s.logger.Info(fmt.Sprintf("enlistServer %s at %s, id %d",
		in.ServerType, in.Locator, entry.ServerID))

	return transport.NewMessage(transport.MsgEnlistServer, EnlistServerResponse{
		ServerID: entry.ServerID,
	})
}

func (s *Service) handleTabletsRecovered(req *transport.Message) (*transport.Message, error) {
	var in TabletsRecoveredRequest
	if err := req.Decode(&in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.recovered[in.MasterID] = in.Tablets
	s.mu.Unlock()

	s.logger.Info(fmt.Sprintf("tabletsRecovered: called with %d tablets", len(in.Tablets)))
	return transport.NewMessage(transport.MsgAck, struct{}{})
}
