package backup

import (
	"errors"
	"fmt"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-ramstore/pkg/master"
	"github.com/dd0wney/cluso-ramstore/pkg/transport"
)

// Client issues backup protocol calls over a transport. It satisfies the
// master's RecoveryBackend.
type Client struct {
	transport transport.Transport
}

var _ master.RecoveryBackend = (*Client)(nil)

// NewClient creates a backup client over the given transport.
func NewClient(t transport.Transport) *Client {
	return &Client{transport: t}
}

// StartReadingData asks the backup at locator to begin reading segments for
// the crashed master.
func (c *Client) StartReadingData(locator string, masterID uint64, tablets []master.Tablet) error {
	sess, err := c.transport.Dial(locator)
	if err != nil {
		return err
	}
	defer sess.Close()

	req, err := transport.NewMessage(transport.MsgStartReadingData, StartReadingDataRequest{
		MasterID: masterID,
		Tablets:  tablets,
	})
	if err != nil {
		return err
	}
	reply, err := sess.Call(req)
	if err != nil {
		return err
	}
	return transport.Expect(reply, transport.MsgAck)
}

// GetRecoveryData fetches and decompresses one recovery segment from the
// backup at locator. A missing segment surfaces as ErrBadSegmentID.
func (c *Client) GetRecoveryData(locator string, masterID, segmentID, partitionID uint64, tablets []master.Tablet) ([]byte, error) {
	sess, err := c.transport.Dial(locator)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	req, err := transport.NewMessage(transport.MsgGetRecoveryData, GetRecoveryDataRequest{
		MasterID:    masterID,
		SegmentID:   segmentID,
		PartitionID: partitionID,
		Tablets:     tablets,
	})
	if err != nil {
		return nil, err
	}
	reply, err := sess.Call(req)
	if err != nil {
		return nil, err
	}
	if err := transport.Expect(reply, transport.MsgGetRecoveryData); err != nil {
		var remote *transport.RemoteError
		if errors.As(err, &remote) && remote.Code == CodeBadSegmentID {
			return nil, ErrBadSegmentID
		}
		return nil, err
	}

	var resp GetRecoveryDataResponse
	if err := reply.Decode(&resp); err != nil {
		return nil, err
	}
	data, err := snappy.Decode(nil, resp.Compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress recovery segment %d: %w", segmentID, err)
	}
	if len(data) != resp.UncompressedLength {
		return nil, fmt.Errorf("recovery segment %d: got %d bytes, header says %d",
			segmentID, len(data), resp.UncompressedLength)
	}
	return data, nil
}
