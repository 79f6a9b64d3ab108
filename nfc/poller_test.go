package nfc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns one scan result per call, repeating the last one.
type scripted struct {
	mu    sync.Mutex
	steps [][]DetectedTag
	errs  []error
	calls int
}

func (s *scripted) scan(ctx context.Context) ([]DetectedTag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	return s.steps[i], nil
}

func (s *scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func tagWithKey(key string) DetectedTag {
	return DetectedTag{Key: key, Tag: NewStaticTag([]byte(key))}
}

func TestPoller_OncePerPresentation(t *testing.T) {
	script := &scripted{steps: [][]DetectedTag{
		{tagWithKey("A")},
		{tagWithKey("A")},
		{},
		{tagWithKey("A"), tagWithKey("B")},
		{tagWithKey("B")},
	}}
	clock := NewFakeClock(time.Unix(0, 0))
	p := NewPoller(script.scan, WithClock(clock), WithPollerLogger(zerolog.Nop()))

	var mu sync.Mutex
	var got []string
	p.Start(DiscoverySinkFunc(func(tag Tag) {
		id, _ := tag.ID()
		mu.Lock()
		got = append(got, string(id))
		mu.Unlock()
	}))
	defer p.Stop()
	require.Eventually(t, func() bool { return clock.Tickers() == 1 }, time.Second, time.Millisecond)

	for i := 1; i <= 5; i++ {
		clock.Advance(DefaultPollingInterval)
		want := i
		require.Eventually(t, func() bool { return script.Calls() >= want }, time.Second, time.Millisecond)
	}
	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"A", "A", "B"}, got)
}

func TestPoller_ScanErrorKeepsPolling(t *testing.T) {
	script := &scripted{
		steps: [][]DetectedTag{{}, {tagWithKey("A")}},
		errs:  []error{errors.New("i/o"), nil},
	}
	clock := NewFakeClock(time.Unix(0, 0))
	p := NewPoller(script.scan, WithClock(clock), WithPollerLogger(zerolog.Nop()))

	found := make(chan Tag, 1)
	p.Start(DiscoverySinkFunc(func(tag Tag) { found <- tag }))
	defer p.Stop()
	require.Eventually(t, func() bool { return clock.Tickers() == 1 }, time.Second, time.Millisecond)

	clock.Advance(DefaultPollingInterval)
	require.Eventually(t, func() bool { return script.Calls() >= 1 }, time.Second, time.Millisecond)
	clock.Advance(DefaultPollingInterval)

	select {
	case <-found:
	case <-time.After(time.Second):
		t.Fatal("poller stopped after a scan error")
	}
}

func TestPoller_StopWaitsForLoop(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	p := NewPoller(func(context.Context) ([]DetectedTag, error) { return nil, nil },
		WithClock(clock), WithInterval(time.Second), WithPollerLogger(zerolog.Nop()))

	assert.False(t, p.Running())
	p.Stop()

	p.Start(DiscoverySinkFunc(func(Tag) {}))
	assert.True(t, p.Running())
	p.Stop()

	assert.False(t, p.Running())
	assert.Equal(t, 0, clock.Tickers())
}

func TestPoller_StartReplacesSink(t *testing.T) {
	script := &scripted{steps: [][]DetectedTag{{tagWithKey("A")}}}
	clock := NewFakeClock(time.Unix(0, 0))
	p := NewPoller(script.scan, WithClock(clock), WithPollerLogger(zerolog.Nop()))

	first := make(chan Tag, 1)
	second := make(chan Tag, 1)
	p.Start(DiscoverySinkFunc(func(tag Tag) { first <- tag }))
	p.Start(DiscoverySinkFunc(func(tag Tag) { second <- tag }))
	defer p.Stop()

	require.Eventually(t, func() bool { return clock.Tickers() == 1 }, time.Second, time.Millisecond)
	clock.Advance(DefaultPollingInterval)

	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("replacement sink not called")
	}
	assert.Empty(t, first)
}
