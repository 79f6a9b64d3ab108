package server

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dotside-studios/nfc-bridge/protocol"
)

func mockHandlerFunc(ctx context.Context, client *Client, req protocol.Request) error {
	return nil
}

func errorHandlerFunc(ctx context.Context, client *Client, req protocol.Request) error {
	return errors.New("test error")
}

func TestHandlerRegistry_Handle(t *testing.T) {
	registry := NewHandlerRegistry()

	t.Run("register valid handler", func(t *testing.T) {
		if err := registry.Handle("test", mockHandlerFunc); err != nil {
			t.Fatalf("failed to register handler: %v", err)
		}
	})

	t.Run("register nil handler", func(t *testing.T) {
		if err := registry.Handle("nil", nil); err == nil {
			t.Fatal("expected error when registering nil handler")
		}
	})

	t.Run("register handler with empty message type", func(t *testing.T) {
		if err := registry.Handle("", mockHandlerFunc); err == nil {
			t.Fatal("expected error when registering handler with empty message type")
		}
	})

	t.Run("register duplicate handler", func(t *testing.T) {
		if err := registry.Handle("duplicate", mockHandlerFunc); err != nil {
			t.Fatalf("failed to register first handler: %v", err)
		}
		if err := registry.Handle("duplicate", errorHandlerFunc); err == nil {
			t.Fatal("expected error when registering duplicate handler")
		}
	})
}

func TestHandlerRegistry_Get(t *testing.T) {
	registry := NewHandlerRegistry()
	if err := registry.Handle("failing", errorHandlerFunc); err != nil {
		t.Fatal(err)
	}

	handler, ok := registry.Get("failing")
	if !ok {
		t.Fatal("expected handler to be found")
	}
	if err := handler(context.Background(), nil, protocol.Request{}); err == nil {
		t.Error("expected the registered handler to be returned")
	}

	if _, ok := registry.Get("missing"); ok {
		t.Error("expected missing handler not to be found")
	}
	if registry.Has("missing") || !registry.Has("failing") {
		t.Error("Has() disagrees with Get()")
	}
}

func TestHandlerRegistry_MessageTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	_ = registry.Handle("b", mockHandlerFunc)
	_ = registry.Handle("a", mockHandlerFunc)

	if got := registry.MessageTypes(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("MessageTypes() = %v", got)
	}
}

func TestServer_RegistersChannelTypes(t *testing.T) {
	s := New(Config{})
	for _, typ := range []string{protocol.TypeMethodCall, protocol.TypeLifecycle} {
		if !s.handlerRegistry.Has(typ) {
			t.Errorf("%s handler not registered", typ)
		}
	}
}
