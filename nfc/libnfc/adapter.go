// Package libnfc binds nfc.Adapter to a libnfc device.
package libnfc

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/clausecker/freefare"
	"github.com/clausecker/nfc/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	bridgenfc "github.com/dotside-studios/nfc-bridge/nfc"
)

// DeviceEnumRetries is the number of attempts made to list libnfc devices.
const DeviceEnumRetries = 3

// Adapter polls a libnfc device for ISO14443A targets.
type Adapter struct {
	device nfc.Device
	poller *bridgenfc.Poller
	logger zerolog.Logger

	mu      sync.Mutex // guards the device outside the poll goroutine
	enabled bool
}

// ListDevices returns the connection strings of the attached libnfc devices.
func ListDevices() ([]string, error) {
	var devices []string
	var err error
	for i := 0; i < DeviceEnumRetries; i++ {
		devices, err = nfc.ListDevices()
		if err == nil {
			return devices, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil, errors.Wrapf(err, "failed to list NFC devices after %d retries", DeviceEnumRetries)
}

// Open opens the libnfc device at connstring ("" picks the first one) and
// puts it into initiator mode.
func Open(connstring string, opts ...bridgenfc.PollerOption) (*Adapter, error) {
	dev, err := nfc.Open(connstring)
	if err != nil {
		return nil, errors.Wrapf(err, "open libnfc device %q", connstring)
	}

	a := &Adapter{
		device: dev,
		logger: log.With().Str("component", "libnfc").Str("device", dev.String()).Logger(),
	}

	if err := dev.InitiatorInit(); err != nil {
		a.logger.Warn().Err(err).Msg("initiator init failed, radio reported disabled")
	} else {
		a.enabled = true
	}

	opts = append([]bridgenfc.PollerOption{bridgenfc.WithPollerLogger(a.logger)}, opts...)
	a.poller = bridgenfc.NewPoller(a.scan, opts...)
	return a, nil
}

// Enabled reports whether the device accepted initiator mode.
func (a *Adapter) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

func (a *Adapter) EnableReaderMode(sink bridgenfc.DiscoverySink, flags bridgenfc.ReaderFlag) error {
	if !flags.Has(bridgenfc.FlagReaderNfcA) {
		return bridgenfc.NewNotSupportedError("EnableReaderMode " + flags.String())
	}
	if !a.Enabled() {
		return bridgenfc.ErrRadioDisabled
	}
	a.poller.Start(sink)
	return nil
}

func (a *Adapter) DisableReaderMode() {
	a.poller.Stop()
}

func (a *Adapter) String() string {
	return "libnfc:" + a.device.Connection()
}

// Close stops polling and releases the device.
func (a *Adapter) Close() error {
	a.poller.Stop()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = false
	return a.device.Close()
}

// scan runs on the poller goroutine only.
func (a *Adapter) scan(ctx context.Context) ([]bridgenfc.DetectedTag, error) {
	var found []bridgenfc.DetectedTag
	seen := make(map[string]bool)

	ffTags, ffErr := freefare.GetTags(a.device)
	if ffErr != nil {
		a.logger.Debug().Err(ffErr).Msg("freefare.GetTags failed")
	}
	for _, ffTag := range ffTags {
		key := strings.ToUpper(ffTag.UID())
		if seen[key] {
			continue
		}
		seen[key] = true
		found = append(found, bridgenfc.DetectedTag{
			Key: key,
			Tag: &Tag{hexUID: ffTag.UID(), family: familyName(ffTag)},
		})
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	modulation := nfc.Modulation{Type: nfc.ISO14443a, BaudRate: nfc.Nbr106}
	targets, err := a.device.InitiatorListPassiveTargets(modulation)
	if err != nil {
		if ffErr != nil && len(found) == 0 {
			return nil, errors.Wrapf(err, "freefare (%v) and passive target listing failed", ffErr)
		}
		return found, nil
	}

	for i, target := range targets {
		isoA, ok := target.(*nfc.ISO14443aTarget)
		if !ok {
			continue
		}
		tag := newTargetTag(isoA)
		key, err := tag.key()
		if err != nil {
			key = fmt.Sprintf("invalid:%d", i)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		found = append(found, bridgenfc.DetectedTag{Key: key, Tag: tag})
	}

	return found, nil
}

func familyName(tag freefare.Tag) string {
	switch tag.(type) {
	case freefare.ClassicTag:
		return "MIFARE Classic"
	case freefare.DESFireTag:
		return "MIFARE DESFire"
	case freefare.UltralightTag:
		return "MIFARE Ultralight"
	default:
		return ""
	}
}
