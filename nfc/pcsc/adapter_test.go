package pcsc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ebfe/scard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotside-studios/nfc-bridge/nfc"
)

type fakeCard struct {
	resp         []byte
	err          error
	disconnected bool
}

func (c *fakeCard) Transmit(cmd []byte) ([]byte, error) {
	return c.resp, c.err
}

func (c *fakeCard) Disconnect() error {
	c.disconnected = true
	return nil
}

type fakeContext struct {
	mu       sync.Mutex
	readers  []string
	state    scard.StateFlag
	card     *fakeCard
	released bool
}

func (f *fakeContext) ListReaders() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readers, nil
}

func (f *fakeContext) GetStatusChange(states []scard.ReaderState, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range states {
		states[i].EventState = f.state
	}
	return nil
}

func (f *fakeContext) Connect(reader string) (Card, error) {
	if f.card == nil {
		return nil, errors.New("no card")
	}
	return f.card, nil
}

func (f *fakeContext) Release() error {
	f.released = true
	return nil
}

func (f *fakeContext) setState(s scard.StateFlag) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func TestFilterContactlessReaders(t *testing.T) {
	got := FilterContactlessReaders([]string{"ACS ACR1252 PICC 0", "ACS ACR1252 SAM 0"})
	assert.Equal(t, []string{"ACS ACR1252 PICC 0"}, got)
}

func TestNew_PicksFirstReader(t *testing.T) {
	ctx := &fakeContext{readers: []string{"Reader SAM", "Reader PICC"}}
	a, err := New(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "pcsc:Reader PICC", a.String())
	assert.True(t, a.Enabled())
}

func TestNew_NoReaders(t *testing.T) {
	_, err := New(&fakeContext{}, "")
	assert.Error(t, err)
}

func TestAdapter_EnabledFollowsReaderList(t *testing.T) {
	ctx := &fakeContext{readers: []string{"A"}}
	a, err := New(ctx, "B")
	require.NoError(t, err)
	assert.False(t, a.Enabled())
	assert.ErrorIs(t, a.EnableReaderMode(nfc.DiscoverySinkFunc(func(nfc.Tag) {}), nfc.DefaultReaderFlags), nfc.ErrRadioDisabled)
}

func TestAdapter_ScanKeysByEventCounter(t *testing.T) {
	ctx := &fakeContext{readers: []string{"R"}}
	a, err := New(ctx, "R")
	require.NoError(t, err)

	found, err := a.scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, found)

	ctx.setState(scard.StatePresent | scard.StateFlag(3<<16))
	found, err = a.scan(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "R#3", found[0].Key)

	ctx.setState(scard.StatePresent | scard.StateMute)
	found, err = a.scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestTag_ID(t *testing.T) {
	card := &fakeCard{resp: []byte{0x04, 0xA3, 0xF1, 0x90, 0x00}}
	tag := &Tag{ctx: &fakeContext{card: card}, reader: "R"}

	id, err := tag.ID()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0xA3, 0xF1}, id)
	assert.True(t, card.disconnected)
	assert.Equal(t, nfc.TechnologyNfcA, tag.Technology())
}

func TestTag_IDWithoutDataIsAbsent(t *testing.T) {
	card := &fakeCard{resp: []byte{0x90, 0x00}}
	tag := &Tag{ctx: &fakeContext{card: card}, reader: "R"}

	id, err := tag.ID()
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestTag_IDStatusError(t *testing.T) {
	card := &fakeCard{resp: []byte{0x6A, 0x81}}
	tag := &Tag{ctx: &fakeContext{card: card}, reader: "R"}

	_, err := tag.ID()
	assert.Error(t, err)
	assert.True(t, card.disconnected)
}

func TestTag_IDConnectError(t *testing.T) {
	tag := &Tag{ctx: &fakeContext{}, reader: "R"}
	_, err := tag.ID()
	assert.Error(t, err)
}

func TestAdapter_CloseReleases(t *testing.T) {
	ctx := &fakeContext{readers: []string{"R"}}
	a, err := New(ctx, "R")
	require.NoError(t, err)
	require.NoError(t, a.Close())
	assert.True(t, ctx.released)
	assert.False(t, a.Enabled())
	assert.NoError(t, a.Close())

	err = a.EnableReaderMode(nfc.DiscoverySinkFunc(func(nfc.Tag) {}), nfc.DefaultReaderFlags)
	assert.ErrorIs(t, err, nfc.ErrAdapterClosed)
}
