package nfc

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ReaderOption configures a TagReader.
type ReaderOption func(*TagReader)

// WithEncoder replaces EncodeUID.
func WithEncoder(encode Encoder) ReaderOption {
	return func(r *TagReader) {
		if encode != nil {
			r.encode = encode
		}
	}
}

// WithLogger sets the logger used by the reader.
func WithLogger(logger zerolog.Logger) ReaderOption {
	return func(r *TagReader) {
		r.logger = logger
	}
}

// WithReaderFlags replaces DefaultReaderFlags.
func WithReaderFlags(flags ReaderFlag) ReaderOption {
	return func(r *TagReader) {
		r.flags = flags
	}
}

// TagReader turns discovery callbacks into TagDetected and TagError events.
//
// Events are posted to the executor and delivered to the emitter from
// there, never from the adapter's goroutine.
type TagReader struct {
	adapter  Adapter // nil when the device has no reader
	executor Executor
	emitter  EventEmitter
	session  *Session
	encode   Encoder
	flags    ReaderFlag
	logger   zerolog.Logger
	mu       sync.Mutex // serializes Start and Stop
}

// NewTagReader creates a reader. adapter may be nil.
func NewTagReader(adapter Adapter, executor Executor, emitter EventEmitter, opts ...ReaderOption) *TagReader {
	r := &TagReader{
		adapter:  adapter,
		executor: executor,
		emitter:  emitter,
		encode:   EncodeUID,
		flags:    DefaultReaderFlags,
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("component", "reader").Logger()
	r.session = NewSession(r.logger)
	return r
}

// IsSupported reports whether a reader exists on this device.
func (r *TagReader) IsSupported() bool {
	return r.adapter != nil
}

// IsEnabled reports whether the reader's radio is powered on.
func (r *TagReader) IsEnabled() bool {
	return r.adapter != nil && r.adapter.Enabled()
}

// Active reports whether the reader is registered for discovery callbacks.
func (r *TagReader) Active() bool {
	return r.session.Active()
}

// Session returns the reader's session.
func (r *TagReader) Session() *Session {
	return r.session
}

// Adapter returns the hardware binding, or nil.
func (r *TagReader) Adapter() Adapter {
	return r.adapter
}

// Start registers the reader as the discovery sink. It does nothing when
// already active, when there is no adapter, or when the radio is off. A
// rejected registration leaves the session inactive.
func (r *TagReader) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session.Active() {
		return
	}
	if !r.IsEnabled() {
		r.logger.Debug().Bool("supported", r.IsSupported()).Msg("radio unavailable, not starting")
		return
	}

	if err := r.adapter.EnableReaderMode(r, r.flags); err != nil {
		r.logger.Warn().Err(NewRegistrationError("Start", err)).Str("adapter", r.adapter.String()).Msg("reader mode rejected")
		return
	}

	r.session.Activate()
	r.logger.Info().Str("adapter", r.adapter.String()).Stringer("flags", r.flags).Msg("scanning started")
}

// Stop unregisters the discovery sink. It is safe to call at any time.
func (r *TagReader) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.adapter != nil {
		r.adapter.DisableReaderMode()
	}
	if r.session.Deactivate() {
		r.logger.Info().Msg("scanning stopped")
	}
}

// OnTagDiscovered implements DiscoverySink. It emits at most one event and
// never panics back into the adapter.
func (r *TagReader) OnTagDiscovered(tag Tag) {
	if !r.session.Active() {
		r.logger.Debug().Msg("discovery while inactive, ignored")
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.postError(Errorf(ErrCodeCallbackPanic, "OnTagDiscovered", "%v", rec))
		}
	}()

	if tag == nil {
		return
	}

	id, err := tag.ID()
	if err != nil {
		r.postError(NewExtractError("OnTagDiscovered", err))
		return
	}
	if id == nil {
		return
	}

	uid, err := r.encode(id)
	if err != nil {
		r.postError(NewEncodeError("OnTagDiscovered", err))
		return
	}

	r.logger.Debug().Str("uid", uid).Str("technology", tag.Technology()).Msg("tag discovered")
	r.post(MethodTagDetected, TagDetected{UUID: uid})
}

func (r *TagReader) postError(err error) {
	r.logger.Warn().Err(err).Msg("tag discovery failed")
	r.post(MethodError, TagError{Error: err.Error()})
}

func (r *TagReader) post(method string, arguments any) {
	emitter := r.emitter
	if emitter == nil {
		return
	}
	if !r.executor.Post(func() { emitter.InvokeMethod(method, arguments) }) {
		r.logger.Warn().Str("method", method).Msg("event dropped")
	}
}
