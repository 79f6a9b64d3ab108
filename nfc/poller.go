package nfc

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPollingInterval is the scan period used when none is configured.
const DefaultPollingInterval = 100 * time.Millisecond

// DetectedTag is a tag found by one scan. Key identifies the physical
// presentation: the same key on consecutive scans means the tag stayed in
// the field.
type DetectedTag struct {
	Key string
	Tag Tag
}

// ScanFunc lists the tags currently in the field.
type ScanFunc func(ctx context.Context) ([]DetectedTag, error)

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval sets the scan period.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClock replaces the real clock.
func WithClock(clock Clock) PollerOption {
	return func(p *Poller) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithPollerLogger sets the logger used by the poller.
func WithPollerLogger(logger zerolog.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = logger
	}
}

// Poller turns a polling driver into discovery callbacks: one callback per
// presentation, delivered from the poller's goroutine.
type Poller struct {
	scan     ScanFunc
	interval time.Duration
	clock    Clock
	logger   zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a stopped poller.
func NewPoller(scan ScanFunc, opts ...PollerOption) *Poller {
	p := &Poller{
		scan:     scan,
		interval: DefaultPollingInterval,
		clock:    NewRealClock(),
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling on behalf of sink, replacing any previous sink.
func (p *Poller) Start(sink DiscoverySink) {
	p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, sink, p.done)
}

// Stop cancels the poll loop and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the poll loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) loop(ctx context.Context, sink DiscoverySink, done chan struct{}) {
	defer close(done)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	present := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}

		tags, err := p.scan(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.logger.Debug().Err(err).Msg("scan failed")
			continue
		}

		seen := make(map[string]struct{}, len(tags))
		for _, detected := range tags {
			seen[detected.Key] = struct{}{}
			if _, ok := present[detected.Key]; ok {
				continue
			}
			sink.OnTagDiscovered(detected.Tag)
		}
		present = seen
	}
}
