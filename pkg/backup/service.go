package backup

import (
	"fmt"
	"sync"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-ramstore/pkg/logging"
	"github.com/dd0wney/cluso-ramstore/pkg/master"
	"github.com/dd0wney/cluso-ramstore/pkg/seglog"
	"github.com/dd0wney/cluso-ramstore/pkg/transport"
)

// Service is an in-memory backup holding closed segments in frames. It
// serves startReadingData and getRecoveryData; tests and development
// clusters bind it in place of a real storage-backed backup server.
type Service struct {
	mu       sync.Mutex
	logger   logging.Logger
	segments map[uint64][]byte
}

// NewService creates an empty in-memory backup.
func NewService(logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Service{
		logger:   logger,
		segments: make(map[uint64][]byte),
	}
}

// PutSegment stores the bytes of a closed segment.
func (s *Service) PutSegment(segmentID uint64, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.segments[segmentID] = stored
}

// Handler dispatches backup protocol messages.
func (s *Service) Handler() transport.Handler {
	return func(req *transport.Message) (*transport.Message, error) {
		switch req.Type {
		case transport.MsgStartReadingData:
			return s.handleStartReadingData(req)
		case transport.MsgGetRecoveryData:
			return s.handleGetRecoveryData(req)
		default:
			return transport.NewErrorMessage("bad request",
				fmt.Sprintf("unexpected message type %d", req.Type)), nil
		}
	}
}

func (s *Service) handleStartReadingData(req *transport.Message) (*transport.Message, error) {
	var in StartReadingDataRequest
	if err := req.Decode(&in); err != nil {
		return nil, err
	}
	s.logger.Info(fmt.Sprintf("startReadingData %d", in.MasterID),
		logging.Count(len(in.Tablets)))
	return transport.NewMessage(transport.MsgAck, struct{}{})
}

func (s *Service) handleGetRecoveryData(req *transport.Message) (*transport.Message, error) {
	var in GetRecoveryDataRequest
	if err := req.Decode(&in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	stored, ok := s.segments[in.SegmentID]
	s.mu.Unlock()
	if !ok {
		return transport.NewErrorMessage(CodeBadSegmentID, CodeBadSegmentID), nil
	}

	filtered, err := filterSegment(in.SegmentID, stored, in.Tablets)
	if err != nil {
		return nil, err
	}

	s.logger.Info(fmt.Sprintf("getRecoveryData masterId %d, segmentId %d", in.MasterID, in.SegmentID),
		logging.Int("size", len(filtered)))

	return transport.NewMessage(transport.MsgGetRecoveryData, GetRecoveryDataResponse{
		Compressed:         snappy.Encode(nil, filtered),
		UncompressedLength: len(filtered),
	})
}

// filterSegment rebuilds a stored segment keeping only the entries whose
// object lies inside the partition's tablets.
func filterSegment(segmentID uint64, stored []byte, tablets []master.Tablet) ([]byte, error) {
	src := seglog.OpenSegment(segmentID, stored)
	dst := seglog.NewSegment(segmentID, uint32(len(stored))+seglog.DefaultSegmentSize/64)

	err := src.Iterate(func(kind seglog.RecordType, _ seglog.Ref, payload []byte) error {
		var tableID, objectID uint64
		switch kind {
		case seglog.RecordObject:
			obj, err := seglog.DecodeObject(payload)
			if err != nil {
				return err
			}
			tableID, objectID = obj.TableID, obj.ObjectID
		case seglog.RecordTombstone:
			tomb, err := seglog.DecodeTombstone(payload)
			if err != nil {
				return err
			}
			tableID, objectID = tomb.TableID, tomb.ObjectID
		default:
			return nil
		}

		for _, t := range tablets {
			if t.Contains(tableID, objectID) {
				_, err := dst.Append(kind, payload)
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dst.Close()
	return dst.Bytes(), nil
}
