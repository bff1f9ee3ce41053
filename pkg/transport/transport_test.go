package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_RoundTrip(t *testing.T) {
	type payload struct {
		MasterID  uint64 `json:"master_id"`
		SegmentID uint64 `json:"segment_id"`
	}

	msg, err := NewMessage(MsgGetRecoveryData, payload{MasterID: 99, SegmentID: 87})
	require.NoError(t, err)
	assert.Equal(t, MsgGetRecoveryData, msg.Type)

	var got payload
	require.NoError(t, msg.Decode(&got))
	assert.Equal(t, uint64(99), got.MasterID)
	assert.Equal(t, uint64(87), got.SegmentID)
}

func TestExpect(t *testing.T) {
	ack, err := NewMessage(MsgAck, struct{}{})
	require.NoError(t, err)
	assert.NoError(t, Expect(ack, MsgAck))
	assert.Error(t, Expect(ack, MsgGetRecoveryData))

	errMsg := NewErrorMessage("bad segment id", "bad segment id")
	err = Expect(errMsg, MsgAck)
	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "bad segment id", remote.Code)
	assert.Equal(t, "bad segment id", remote.Error())
}

func TestBindTransport_CallReachesHandler(t *testing.T) {
	bind := NewBindTransport()

	bind.AddService("mock:host=backup1", func(req *Message) (*Message, error) {
		assert.Equal(t, MsgStartReadingData, req.Type)
		return NewMessage(MsgAck, struct{}{})
	})

	sess, err := bind.Dial("mock:host=backup1")
	require.NoError(t, err)
	defer sess.Close()

	req, err := NewMessage(MsgStartReadingData, struct{}{})
	require.NoError(t, err)
	reply, err := sess.Call(req)
	require.NoError(t, err)
	assert.Equal(t, MsgAck, reply.Type)
}

func TestBindTransport_UnknownLocator(t *testing.T) {
	bind := NewBindTransport()
	_, err := bind.Dial("mock:host=nowhere")
	assert.ErrorIs(t, err, ErrUnknownLocator)
}

func TestBindTransport_RemoveService(t *testing.T) {
	bind := NewBindTransport()
	bind.AddService("mock:host=backup1", func(req *Message) (*Message, error) {
		return NewMessage(MsgAck, struct{}{})
	})
	bind.RemoveService("mock:host=backup1")

	_, err := bind.Dial("mock:host=backup1")
	assert.ErrorIs(t, err, ErrUnknownLocator)
}

func TestMangosTransport_RoundTrip(t *testing.T) {
	server := NewMangosServer()
	defer server.Close()

	locator := "inproc://transport_test"
	err := server.Serve(locator, func(req *Message) (*Message, error) {
		var in map[string]uint64
		if err := req.Decode(&in); err != nil {
			return nil, err
		}
		return NewMessage(MsgAck, map[string]uint64{"echo": in["value"]})
	})
	require.NoError(t, err)

	transport := NewMangosTransport(0)
	sess, err := transport.Dial(locator)
	require.NoError(t, err)
	defer sess.Close()

	req, err := NewMessage(MsgStartReadingData, map[string]uint64{"value": 7})
	require.NoError(t, err)
	reply, err := sess.Call(req)
	require.NoError(t, err)
	require.Equal(t, MsgAck, reply.Type)

	var out map[string]uint64
	require.NoError(t, reply.Decode(&out))
	assert.Equal(t, uint64(7), out["echo"])
}

func TestMangosTransport_HandlerErrorBecomesRemoteError(t *testing.T) {
	server := NewMangosServer()
	defer server.Close()

	locator := "inproc://transport_test_err"
	err := server.Serve(locator, func(req *Message) (*Message, error) {
		return nil, errors.New("boom")
	})
	require.NoError(t, err)

	transport := NewMangosTransport(0)
	sess, err := transport.Dial(locator)
	require.NoError(t, err)
	defer sess.Close()

	req, err := NewMessage(MsgAck, struct{}{})
	require.NoError(t, err)
	reply, err := sess.Call(req)
	require.NoError(t, err)

	err = Expect(reply, MsgAck)
	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Contains(t, remote.Message, "boom")
}
