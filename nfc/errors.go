package nfc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a specific type of NFC error for programmatic handling.
type ErrorCode int

const (
	// Adapter errors (100-199)
	ErrCodeNotSupported ErrorCode = iota + 100
	ErrCodeRadioDisabled
	ErrCodeRegistrationFailed
	ErrCodeAdapterClosed
)

const (
	// Discovery errors (200-299)
	ErrCodeExtractFailed ErrorCode = iota + 200
	ErrCodeEncodeFailed
	ErrCodeCallbackPanic
)

// NFCError provides structured error information for programmatic handling.
type NFCError struct {
	Code    ErrorCode
	Op      string // Operation that failed (e.g., "ID", "EnableReaderMode")
	Message string // Human-readable message
	Cause   error  // Underlying error
}

func (e *NFCError) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *NFCError) Unwrap() error {
	return e.Cause
}

func (e *NFCError) Is(target error) bool {
	if t, ok := target.(*NFCError); ok {
		return e.Code == t.Code
	}
	return false
}

// Sentinel values for errors.Is comparisons by code.
var (
	ErrNotSupported       = &NFCError{Code: ErrCodeNotSupported, Message: "nfc not supported"}
	ErrRadioDisabled      = &NFCError{Code: ErrCodeRadioDisabled, Message: "nfc radio disabled"}
	ErrRegistrationFailed = &NFCError{Code: ErrCodeRegistrationFailed, Message: "reader registration failed"}
	ErrAdapterClosed      = &NFCError{Code: ErrCodeAdapterClosed, Message: "adapter closed"}
)

// NewNotSupportedError creates an error for operations on a missing or incapable adapter.
func NewNotSupportedError(op string) *NFCError {
	return &NFCError{
		Code:    ErrCodeNotSupported,
		Op:      op,
		Message: "operation not supported",
	}
}

// NewRegistrationError creates an error for a rejected reader-mode registration.
func NewRegistrationError(op string, cause error) *NFCError {
	return &NFCError{
		Code:    ErrCodeRegistrationFailed,
		Op:      op,
		Message: "reader registration failed",
		Cause:   cause,
	}
}

// NewExtractError creates an error for a tag identifier that could not be read.
func NewExtractError(op string, cause error) *NFCError {
	return &NFCError{
		Code:    ErrCodeExtractFailed,
		Op:      op,
		Message: "failed to read tag identifier",
		Cause:   cause,
	}
}

// NewEncodeError creates an error for a tag identifier that could not be encoded.
func NewEncodeError(op string, cause error) *NFCError {
	return &NFCError{
		Code:    ErrCodeEncodeFailed,
		Op:      op,
		Message: "failed to encode tag identifier",
		Cause:   cause,
	}
}

// IsNotSupportedError checks if an error indicates a missing or incapable adapter.
func IsNotSupportedError(err error) bool {
	return GetErrorCode(err) == ErrCodeNotSupported
}

// IsDiscoveryError checks if an error happened while handling a discovered tag.
func IsDiscoveryError(err error) bool {
	code := GetErrorCode(err)
	return code >= ErrCodeExtractFailed && code < 300
}

// GetErrorCode extracts the ErrorCode from an error if it's an NFCError.
// Returns 0 if the error is not an NFCError.
func GetErrorCode(err error) ErrorCode {
	var nfcErr *NFCError
	if errors.As(err, &nfcErr) {
		return nfcErr.Code
	}
	return 0
}

// Errorf creates an NFCError with a formatted message.
func Errorf(code ErrorCode, op, format string, args ...interface{}) *NFCError {
	return &NFCError{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}
