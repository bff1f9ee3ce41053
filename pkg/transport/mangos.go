package transport

import (
	"encoding/json"
	"sync"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/rep"
	"go.nanomsg.org/mangos/v3/protocol/req"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

// MangosTransport speaks the request/reply protocol over NNG/mangos
// sockets. Locators are mangos addresses, e.g. "tcp://backup1:9090".
type MangosTransport struct {
	// RecvTimeout bounds each call; a timed-out fetch is indistinguishable
	// from an explicit failure to callers.
	RecvTimeout time.Duration
	SendTimeout time.Duration
}

// NewMangosTransport creates a transport with the given call timeout.
func NewMangosTransport(timeout time.Duration) *MangosTransport {
	return &MangosTransport{
		RecvTimeout: timeout,
		SendTimeout: timeout,
	}
}

// Dial connects a REQ socket to the locator.
func (t *MangosTransport) Dial(locator string) (Session, error) {
	sock, err := req.NewSocket()
	if err != nil {
		return nil, err
	}
	if t.RecvTimeout > 0 {
		if err := sock.SetOption(mangos.OptionRecvDeadline, t.RecvTimeout); err != nil {
			sock.Close()
			return nil, err
		}
	}
	if t.SendTimeout > 0 {
		if err := sock.SetOption(mangos.OptionSendDeadline, t.SendTimeout); err != nil {
			sock.Close()
			return nil, err
		}
	}
	if err := sock.Dial(locator); err != nil {
		sock.Close()
		return nil, err
	}
	return &mangosSession{sock: sock}, nil
}

type mangosSession struct {
	mu   sync.Mutex
	sock mangos.Socket
}

func (s *mangosSession) Call(reqMsg *Message) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(reqMsg)
	if err != nil {
		return nil, err
	}
	if err := s.sock.Send(data); err != nil {
		return nil, err
	}
	raw, err := s.sock.Recv()
	if err != nil {
		return nil, err
	}
	var reply Message
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *mangosSession) Close() error {
	return s.sock.Close()
}

// MangosServer serves a handler on a REP socket.
type MangosServer struct {
	mu      sync.Mutex
	sockets []mangos.Socket
	done    chan struct{}
	once    sync.Once
}

// NewMangosServer creates a server ready to Serve on one or more locators.
func NewMangosServer() *MangosServer {
	return &MangosServer{
		done: make(chan struct{}),
	}
}

// Serve listens at the locator and dispatches each request to the handler
// until Close. Handler errors are reported to the peer as MsgError replies.
func (s *MangosServer) Serve(locator string, handler Handler) error {
	sock, err := rep.NewSocket()
	if err != nil {
		return err
	}
	if err := sock.Listen(locator); err != nil {
		sock.Close()
		return err
	}

	s.mu.Lock()
	s.sockets = append(s.sockets, sock)
	s.mu.Unlock()

	go s.serveLoop(sock, handler)
	return nil
}

func (s *MangosServer) serveLoop(sock mangos.Socket, handler Handler) {
	for {
		raw, err := sock.Recv()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			// A receive error on a live server is a peer problem; keep
			// serving.
			continue
		}

		var reqMsg Message
		var reply *Message
		if err := json.Unmarshal(raw, &reqMsg); err != nil {
			reply = NewErrorMessage("bad request", err.Error())
		} else {
			reply, err = handler(&reqMsg)
			if err != nil {
				reply = NewErrorMessage("handler error", err.Error())
			}
		}

		data, err := json.Marshal(reply)
		if err != nil {
			data, _ = json.Marshal(NewErrorMessage("marshal error", err.Error()))
		}
		if err := sock.Send(data); err != nil {
			select {
			case <-s.done:
				return
			default:
			}
		}
	}
}

// Close shuts down all listening sockets.
func (s *MangosServer) Close() error {
	s.once.Do(func() { close(s.done) })

	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, sock := range s.sockets {
		if err := sock.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.sockets = nil
	return firstErr
}
