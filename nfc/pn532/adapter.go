// Package pn532 binds nfc.Adapter to a PN532 module on a serial port.
package pn532

import (
	"context"
	"strings"
	"sync"
	"time"

	gopn532 "github.com/ZaparooProject/go-pn532"
	"github.com/ZaparooProject/go-pn532/transport/uart"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dotside-studios/nfc-bridge/nfc"
)

// InitTimeout bounds the firmware handshake performed by Open.
const InitTimeout = 5 * time.Second

// Device is the part of a PN532 the adapter drives.
type Device interface {
	Detect(ctx context.Context) ([]*gopn532.DetectedTag, error)
	Close() error
}

// module adapts *gopn532.Device to Device, asking for a single target at
// the default baud rate.
type module struct {
	dev *gopn532.Device
}

func (m module) Detect(ctx context.Context) ([]*gopn532.DetectedTag, error) {
	return m.dev.DetectTagsContext(ctx, 1, 0)
}

func (m module) Close() error {
	return m.dev.Close()
}

// Adapter polls a PN532 for ISO14443A targets.
type Adapter struct {
	device Device
	path   string
	poller *nfc.Poller
	logger zerolog.Logger

	mu      sync.Mutex
	enabled bool
}

// Open connects to the PN532 on the UART at path and initializes it.
func Open(path string, opts ...nfc.PollerOption) (*Adapter, error) {
	transport, err := uart.New(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open UART %s", path)
	}

	device, err := gopn532.New(transport)
	if err != nil {
		_ = transport.Close()
		return nil, errors.Wrap(err, "create PN532 device")
	}

	ctx, cancel := context.WithTimeout(context.Background(), InitTimeout)
	defer cancel()
	if err := device.InitContext(ctx); err != nil {
		_ = device.Close()
		return nil, errors.Wrap(err, "initialize PN532")
	}

	return New(module{dev: device}, path, opts...), nil
}

// New wraps an initialized device.
func New(device Device, path string, opts ...nfc.PollerOption) *Adapter {
	a := &Adapter{
		device:  device,
		path:    path,
		enabled: true,
		logger:  log.With().Str("component", "pn532").Str("port", path).Logger(),
	}
	opts = append([]nfc.PollerOption{nfc.WithPollerLogger(a.logger)}, opts...)
	a.poller = nfc.NewPoller(a.scan, opts...)
	return a
}

func (a *Adapter) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

func (a *Adapter) EnableReaderMode(sink nfc.DiscoverySink, flags nfc.ReaderFlag) error {
	if !flags.Has(nfc.FlagReaderNfcA) {
		return nfc.NewNotSupportedError("EnableReaderMode " + flags.String())
	}
	if !a.Enabled() {
		return nfc.ErrRadioDisabled
	}
	a.poller.Start(sink)
	return nil
}

func (a *Adapter) DisableReaderMode() {
	a.poller.Stop()
}

func (a *Adapter) String() string {
	return "pn532:" + a.path
}

// Close stops polling and closes the serial port.
func (a *Adapter) Close() error {
	a.poller.Stop()

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.enabled {
		return nil
	}
	a.enabled = false
	return a.device.Close()
}

func (a *Adapter) scan(ctx context.Context) ([]nfc.DetectedTag, error) {
	tags, err := a.device.Detect(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "detect tags")
	}

	found := make([]nfc.DetectedTag, 0, len(tags))
	for _, t := range tags {
		if t == nil {
			continue
		}
		found = append(found, nfc.DetectedTag{
			Key: strings.ToUpper(t.UID),
			Tag: &Tag{uid: t.UIDBytes},
		})
	}
	return found, nil
}

// Tag is a target reported by the PN532.
type Tag struct {
	uid []byte
}

func (t *Tag) ID() ([]byte, error) {
	if len(t.uid) == 0 {
		return nil, nil
	}
	id := make([]byte, len(t.uid))
	copy(id, t.uid)
	return id, nil
}

func (t *Tag) Technology() string {
	return nfc.TechnologyNfcA
}
