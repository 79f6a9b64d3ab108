package server

import (
	"fmt"
	"sync"

	"github.com/dotside-studios/nfc-bridge/protocol"
)

// Result answers one method call. Only the first reply is sent.
type Result interface {
	Success(result any)
	Error(code, message string, details any)
	NotImplemented()
}

type channelResult struct {
	client *Client
	id     string
	method string
	once   sync.Once
}

func newChannelResult(client *Client, id, method string) *channelResult {
	return &channelResult{client: client, id: id, method: method}
}

func (r *channelResult) Success(result any) {
	r.reply(protocol.Response{
		ID:      r.id,
		Type:    protocol.TypeMethodResult,
		Success: true,
		Payload: protocol.MethodResultPayload{Status: protocol.StatusSuccess, Result: result},
	})
}

func (r *channelResult) Error(code, message string, details any) {
	r.reply(protocol.Response{
		ID:      r.id,
		Type:    protocol.TypeMethodResult,
		Success: false,
		Error:   message,
		Payload: protocol.MethodResultPayload{Status: protocol.StatusError, Code: code, Result: details},
	})
}

func (r *channelResult) NotImplemented() {
	r.reply(protocol.Response{
		ID:      r.id,
		Type:    protocol.TypeMethodResult,
		Success: false,
		Error:   fmt.Sprintf("method %q not implemented", r.method),
		Payload: protocol.MethodResultPayload{Status: protocol.StatusNotImplemented},
	})
}

func (r *channelResult) reply(resp protocol.Response) {
	replied := false
	r.once.Do(func() {
		replied = true
		_ = r.client.Send(resp)
	})
	if !replied {
		r.client.logger.Warn().Str("method", r.method).Str("id", r.id).Msg("method call answered twice, reply dropped")
	}
}
