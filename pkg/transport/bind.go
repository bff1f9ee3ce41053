package transport

import (
	"sync"
)

// BindTransport routes calls directly to handlers registered in-process.
// Tests and single-process development clusters use it in place of a real
// network; a dialed session invokes the service handler synchronously.
type BindTransport struct {
	mu       sync.RWMutex
	services map[string]Handler
}

// NewBindTransport creates an empty in-process transport.
func NewBindTransport() *BindTransport {
	return &BindTransport{
		services: make(map[string]Handler),
	}
}

// AddService registers a handler at a locator, replacing any previous one.
func (t *BindTransport) AddService(locator string, handler Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.services[locator] = handler
}

// RemoveService unregisters the handler at a locator.
func (t *BindTransport) RemoveService(locator string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.services, locator)
}

// Dial returns a session bound to the handler registered at the locator.
func (t *BindTransport) Dial(locator string) (Session, error) {
	t.mu.RLock()
	handler, ok := t.services[locator]
	t.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownLocator
	}
	return &bindSession{handler: handler}, nil
}

// Serve implements Server by registering the handler.
func (t *BindTransport) Serve(locator string, handler Handler) error {
	t.AddService(locator, handler)
	return nil
}

// Close drops all registered services.
func (t *BindTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.services = make(map[string]Handler)
	return nil
}

type bindSession struct {
	handler Handler
}

func (s *bindSession) Call(req *Message) (*Message, error) {
	return s.handler(req)
}

func (s *bindSession) Close() error {
	return nil
}
