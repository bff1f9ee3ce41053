// Package coordinator implements the slice of the coordinator protocol the
// master drives: server enlistment at startup and the tabletsRecovered
// notification at the end of a recovery. An in-memory coordinator service
// backs tests and single-process development clusters.
package coordinator

import (
	"github.com/dd0wney/cluso-ramstore/pkg/master"
	"github.com/dd0wney/cluso-ramstore/pkg/transport"
)

// Server kinds accepted by enlistServer.
const (
	ServerTypeMaster = "master"
	ServerTypeBackup = "backup"
)

// EnlistServerRequest registers a server with the coordinator.
type EnlistServerRequest struct {
	ServerType string `json:"server_type"`
	Locator    string `json:"service_locator"`
}

// EnlistServerResponse carries the id the coordinator assigned.
type EnlistServerResponse struct {
	ServerID uint64 `json:"server_id"`
}

// TabletsRecoveredRequest reports a finished recovery.
type TabletsRecoveredRequest struct {
	MasterID uint64          `json:"master_id"`
	Tablets  []master.Tablet `json:"tablets"`
}

// Client issues coordinator calls to a fixed locator over a transport. It
// satisfies the master's CoordinatorNotifier.
type Client struct {
	transport transport.Transport
	locator   string
}

var _ master.CoordinatorNotifier = (*Client)(nil)

// NewClient creates a coordinator client for the given locator.
func NewClient(t transport.Transport, locator string) *Client {
	return &Client{transport: t, locator: locator}
}

// EnlistServer registers a server and returns its assigned id.
func (c *Client) EnlistServer(serverType, locator string) (uint64, error) {
	sess, err := c.transport.Dial(c.locator)
	if err != nil {
		return 0, err
	}
	defer sess.Close()

	req, err := transport.NewMessage(transport.MsgEnlistServer, EnlistServerRequest{
		ServerType: serverType,
		Locator:    locator,
	})
	if err != nil {
		return 0, err
	}
	reply, err := sess.Call(req)
	if err != nil {
		return 0, err
	}
	if err := transport.Expect(reply, transport.MsgEnlistServer); err != nil {
		return 0, err
	}

	var resp EnlistServerResponse
	if err := reply.Decode(&resp); err != nil {
		return 0, err
	}
	return resp.ServerID, nil
}

// TabletsRecovered reports the recovered tablet set to the coordinator.
func (c *Client) TabletsRecovered(masterID uint64, tablets []master.Tablet) error {
	sess, err := c.transport.Dial(c.locator)
	if err != nil {
		return err
	}
	defer sess.Close()

	req, err := transport.NewMessage(transport.MsgTabletsRecovered, TabletsRecoveredRequest{
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
