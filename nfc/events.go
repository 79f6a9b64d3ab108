package nfc

// Method names of the outbound events.
const (
	MethodTagDetected = "onNfcTagDetected"
	MethodError       = "onNfcError"
)

// TagDetected is the payload of MethodTagDetected.
type TagDetected struct {
	UUID string `json:"uuid"`
}

// TagError is the payload of MethodError.
type TagError struct {
	Error string `json:"error"`
}

// EventEmitter delivers named events to the UI layer.
//
// InvokeMethod is only called from the Looper goroutine.
type EventEmitter interface {
	InvokeMethod(method string, arguments any)
}

// EventEmitterFunc adapts a function to the EventEmitter interface.
type EventEmitterFunc func(method string, arguments any)

func (f EventEmitterFunc) InvokeMethod(method string, arguments any) {
	f(method, arguments)
}

// Executor runs tasks on the UI execution context.
type Executor interface {
	Post(task func()) bool
}
