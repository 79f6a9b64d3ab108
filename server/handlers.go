package server

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/dotside-studios/nfc-bridge/protocol"
)

// MethodCall is a command sent by the UI client.
type MethodCall struct {
	Method    string
	Arguments map[string]any
}

// Argument returns the named argument.
func (c MethodCall) Argument(key string) (any, bool) {
	v, ok := c.Arguments[key]
	return v, ok
}

// MethodCallHandler answers method calls. OnMethodCall runs on the UI
// execution context.
type MethodCallHandler interface {
	OnMethodCall(call MethodCall, result Result)
}

// MethodCallHandlerFunc adapts a function to MethodCallHandler.
type MethodCallHandlerFunc func(call MethodCall, result Result)

func (f MethodCallHandlerFunc) OnMethodCall(call MethodCall, result Result) {
	f(call, result)
}

// LifecycleObserver receives foreground and background transitions of the
// UI client.
type LifecycleObserver interface {
	OnResume()
	OnPause()
}

// ChannelHandler serves methodCall and lifecycle envelopes.
type ChannelHandler struct {
	methods   MethodCallHandler
	lifecycle LifecycleObserver
	logger    zerolog.Logger
}

// NewChannelHandler creates a handler. Either argument may be nil: calls are
// then answered with notImplemented and lifecycle notifications ignored.
func NewChannelHandler(methods MethodCallHandler, lifecycle LifecycleObserver, logger zerolog.Logger) *ChannelHandler {
	return &ChannelHandler{
		methods:   methods,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// Register implements ServerHandler.
func (h *ChannelHandler) Register(server HandlerServer) error {
	if err := server.Handle(protocol.TypeMethodCall, h.handleMethodCall); err != nil {
		return err
	}
	return server.Handle(protocol.TypeLifecycle, h.handleLifecycle)
}

func (h *ChannelHandler) handleMethodCall(ctx context.Context, client *Client, req protocol.Request) error {
	var payload protocol.MethodCallPayload
	if err := decodePayload(req.Payload, &payload); err != nil || payload.Method == "" {
		if err == nil {
			err = errors.New("missing method name")
		}
		_ = client.SendError(req.ID, protocol.ErrCodeInvalid, "Invalid method call payload")
		return errors.Wrap(err, "methodCall")
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	h.logger.Debug().Str("session", client.SessionID()).Str("id", id).Str("method", payload.Method).Msg("method call")

	result := newChannelResult(client, id, payload.Method)
	if h.methods == nil {
		result.NotImplemented()
		return nil
	}
	h.methods.OnMethodCall(MethodCall{Method: payload.Method, Arguments: payload.Arguments}, result)
	return nil
}

func (h *ChannelHandler) handleLifecycle(ctx context.Context, client *Client, req protocol.Request) error {
	var payload protocol.LifecyclePayload
	if err := decodePayload(req.Payload, &payload); err != nil {
		_ = client.SendError(req.ID, protocol.ErrCodeInvalid, "Invalid lifecycle payload")
		return errors.Wrap(err, "lifecycle")
	}

	h.logger.Debug().Str("session", client.SessionID()).Str("state", payload.State).Msg("lifecycle")

	switch payload.State {
	case protocol.LifecycleResumed:
		if h.lifecycle != nil {
			h.lifecycle.OnResume()
		}
	case protocol.LifecyclePaused:
		if h.lifecycle != nil {
			h.lifecycle.OnPause()
		}
	default:
		_ = client.SendError(req.ID, protocol.ErrCodeInvalid, "Unknown lifecycle state: "+payload.State)
		return errors.Errorf("unknown lifecycle state %q", payload.State)
	}
	return nil
}

// decodePayload converts a generic payload map into a typed payload.
func decodePayload(payload map[string]any, v any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(err, "decode payload")
	}
	return nil
}
