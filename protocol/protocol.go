// Package protocol defines the method channel wire format shared by the
// bridge and its UI clients. It has no server dependencies so clients can
// import it directly.
package protocol

// Envelope types.
const (
	TypeMethodCall   = "methodCall"
	TypeMethodResult = "methodResult"
	TypeLifecycle    = "lifecycle"
	TypeInvokeMethod = "invokeMethod"
	TypeError        = "error"
)

// Method call result statuses.
const (
	StatusSuccess        = "success"
	StatusError          = "error"
	StatusNotImplemented = "notImplemented"
)

// Lifecycle states sent by the UI client.
const (
	LifecycleResumed = "resumed"
	LifecyclePaused  = "paused"
)

// Error codes carried in error envelopes.
const (
	ErrCodeParse       = "PARSE_ERROR"
	ErrCodeUnknownType = "UNKNOWN_TYPE"
	ErrCodeInvalid     = "INVALID_PAYLOAD"
	ErrCodeBusy        = "BUSY"
)

// MethodCallPayload is the payload of a methodCall request.
type MethodCallPayload struct {
	Method    string         `json:"method"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// MethodResultPayload is the payload of a methodResult response.
type MethodResultPayload struct {
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
	Result any    `json:"result"`
}

// LifecyclePayload is the payload of a lifecycle notification.
type LifecyclePayload struct {
	State string `json:"state"`
}

// InvokeMethodPayload is the payload of an event sent to the UI client.
type InvokeMethodPayload struct {
	Method    string `json:"method"`
	Arguments any    `json:"arguments"`
}

// ErrorPayload is the payload of an error response.
type ErrorPayload struct {
	Code string `json:"code"`
}
