// Package pcsc binds nfc.Adapter to a PC/SC contactless reader.
package pcsc

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ebfe/scard"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dotside-studios/nfc-bridge/nfc"
)

// CardContext is the part of a PC/SC context the adapter uses.
type CardContext interface {
	ListReaders() ([]string, error)
	GetStatusChange(states []scard.ReaderState, timeout time.Duration) error
	Connect(reader string) (Card, error)
	Release() error
}

// Card is a connected card.
type Card interface {
	Transmit(cmd []byte) ([]byte, error)
	Disconnect() error
}

// Adapter watches one PC/SC reader for card presentations.
type Adapter struct {
	ctx    CardContext
	reader string
	poller *nfc.Poller
	logger zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// Open establishes a PC/SC context and binds the adapter to readerName.
// An empty name selects the first contactless reader.
func Open(readerName string, opts ...nfc.PollerOption) (*Adapter, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, errors.Wrap(err, "failed to establish PC/SC context")
	}

	a, err := New(&scardContext{ctx: ctx}, readerName, opts...)
	if err != nil {
		ctx.Release()
		return nil, err
	}
	return a, nil
}

// New creates an adapter on an existing context.
func New(ctx CardContext, readerName string, opts ...nfc.PollerOption) (*Adapter, error) {
	if readerName == "" {
		readers, err := ctx.ListReaders()
		if err != nil {
			return nil, errors.Wrap(err, "failed to list readers")
		}
		readers = FilterContactlessReaders(readers)
		if len(readers) == 0 {
			return nil, errors.New("no PC/SC readers found")
		}
		readerName = readers[0]
	}

	a := &Adapter{
		ctx:    ctx,
		reader: readerName,
		logger: log.With().Str("component", "pcsc").Str("reader", readerName).Logger(),
	}
	opts = append([]nfc.PollerOption{nfc.WithPollerLogger(a.logger)}, opts...)
	a.poller = nfc.NewPoller(a.scan, opts...)
	return a, nil
}

// Enabled reports whether the reader is still attached.
func (a *Adapter) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return false
	}
	readers, err := a.ctx.ListReaders()
	if err != nil {
		return false
	}
	for _, r := range readers {
		if r == a.reader {
			return true
		}
	}
	return false
}

func (a *Adapter) EnableReaderMode(sink nfc.DiscoverySink, flags nfc.ReaderFlag) error {
	if !flags.Has(nfc.FlagReaderNfcA) {
		return nfc.NewNotSupportedError("EnableReaderMode " + flags.String())
	}
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return nfc.ErrAdapterClosed
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
	return "pcsc:" + a.reader
}

// Close stops polling and releases the PC/SC context.
func (a *Adapter) Close() error {
	a.poller.Stop()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.ctx.Release()
}

// scan checks card presence without blocking. The reader's event counter
// (upper 16 bits of EventState) changes on every insertion, so it keys the
// presentation.
func (a *Adapter) scan(ctx context.Context) ([]nfc.DetectedTag, error) {
	states := []scard.ReaderState{
		{Reader: a.reader, CurrentState: scard.StateUnaware},
	}
	if err := a.ctx.GetStatusChange(states, 0); err != nil && !isTimeout(err) {
		return nil, errors.Wrap(err, "GetStatusChange")
	}

	state := states[0].EventState
	if state&scard.StatePresent == 0 || state&scard.StateMute != 0 {
		return nil, nil
	}

	key := fmt.Sprintf("%s#%d", a.reader, uint16(state>>16))
	return []nfc.DetectedTag{{
		Key: key,
		Tag: &Tag{ctx: a.ctx, reader: a.reader, atr: states[0].Atr},
	}}, nil
}

func isTimeout(err error) bool {
	if err == scard.ErrTimeout {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// FilterContactlessReaders drops SAM slots from a reader list.
func FilterContactlessReaders(readers []string) []string {
	var filtered []string
	for _, r := range readers {
		if strings.Contains(strings.ToUpper(r), "SAM") {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// scardContext adapts *scard.Context to CardContext.
type scardContext struct {
	ctx *scard.Context
}

func (c *scardContext) ListReaders() ([]string, error) {
	return c.ctx.ListReaders()
}

func (c *scardContext) GetStatusChange(states []scard.ReaderState, timeout time.Duration) error {
	return c.ctx.GetStatusChange(states, timeout)
}

func (c *scardContext) Connect(reader string) (Card, error) {
	card, err := c.ctx.Connect(reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		return nil, err
	}
	return &scardCard{card: card}, nil
}

func (c *scardContext) Release() error {
	return c.ctx.Release()
}

type scardCard struct {
	card *scard.Card
}

func (c *scardCard) Transmit(cmd []byte) ([]byte, error) {
	return c.card.Transmit(cmd)
}

func (c *scardCard) Disconnect() error {
	return c.card.Disconnect(scard.LeaveCard)
}
