// Package bridge connects the tag reader to the method channel.
package bridge

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dotside-studios/nfc-bridge/nfc"
	"github.com/dotside-studios/nfc-bridge/server"
)

// Commands accepted from the UI client.
const (
	MethodIsSupported = "isNfcSupported"
	MethodStartScan   = "startNfcScan"
	MethodStopScan    = "stopNfcScan"
)

// Controller dispatches UI commands to the tag reader and follows the UI
// client's foreground/background transitions.
//
// startNfcScan and stopNfcScan always report success, including when the
// reader is missing or its radio is off.
type Controller struct {
	reader *nfc.TagReader // nil when no reader could be constructed
	logger zerolog.Logger
}

// NewController creates a controller. reader may be nil.
func NewController(reader *nfc.TagReader) *Controller {
	return &Controller{
		reader: reader,
		logger: log.With().Str("component", "bridge").Logger(),
	}
}

// OnMethodCall implements server.MethodCallHandler.
func (c *Controller) OnMethodCall(call server.MethodCall, result server.Result) {
	switch call.Method {
	case MethodIsSupported:
		result.Success(c.reader != nil && c.reader.IsSupported())
	case MethodStartScan:
		c.start()
		result.Success(nil)
	case MethodStopScan:
		c.stop()
		result.Success(nil)
	default:
		c.logger.Debug().Str("method", call.Method).Msg("unknown command")
		result.NotImplemented()
	}
}

// OnResume implements server.LifecycleObserver.
func (c *Controller) OnResume() {
	c.logger.Debug().Msg("resumed")
	c.start()
}

// OnPause implements server.LifecycleObserver.
func (c *Controller) OnPause() {
	c.logger.Debug().Msg("paused")
	c.stop()
}

// Status reports the reader state.
func (c *Controller) Status() server.ReaderStatus {
	if c.reader == nil {
		return server.ReaderStatus{}
	}
	return server.ReaderStatus{
		Supported: c.reader.IsSupported(),
		Enabled:   c.reader.IsEnabled(),
		Active:    c.reader.Active(),
	}
}

func (c *Controller) start() {
	if c.reader != nil {
		c.reader.Start()
	}
}

func (c *Controller) stop() {
	if c.reader != nil {
		c.reader.Stop()
	}
}
