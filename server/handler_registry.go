package server

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/dotside-studios/nfc-bridge/protocol"
)

// HandlerFunc handles one inbound envelope. It runs on the UI execution
// context and may write to client directly.
type HandlerFunc func(ctx context.Context, client *Client, req protocol.Request) error

// HandlerServer is what a ServerHandler registers itself with.
type HandlerServer interface {
	Handle(messageType string, handler HandlerFunc) error
}

// ServerHandler groups related message handlers.
type ServerHandler interface {
	Register(server HandlerServer) error
}

// HandlerRegistry routes inbound envelopes by type.
type HandlerRegistry struct {
	handlers map[string]HandlerFunc
	mu       sync.RWMutex
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers a handler function for a message type. Registering the
// same type twice is an error.
func (r *HandlerRegistry) Handle(messageType string, handler HandlerFunc) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}
	if messageType == "" {
		return errors.New("message type cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[messageType]; exists {
		return errors.Errorf("handler for message type '%s' already registered", messageType)
	}
	r.handlers[messageType] = handler
	return nil
}

// Get retrieves a handler function by message type.
func (r *HandlerRegistry) Get(messageType string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[messageType]
	return handler, ok
}

func (r *HandlerRegistry) Has(messageType string) bool {
	_, ok := r.Get(messageType)
	return ok
}

// MessageTypes returns the registered message types in sorted order.
func (r *HandlerRegistry) MessageTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
