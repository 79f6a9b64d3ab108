package nfc

import "strings"

// ReaderFlag selects the technologies an adapter polls for in reader mode.
type ReaderFlag uint32

const (
	FlagReaderNfcA ReaderFlag = 1 << iota
	FlagReaderNfcB
	FlagReaderNfcF
	FlagReaderNfcV
	// FlagReaderSkipNdefCheck skips NDEF detection after discovery so the
	// identifier is reported as soon as the tag is selected.
	FlagReaderSkipNdefCheck
)

// DefaultReaderFlags is the fixed technology filter used by TagReader.Start.
const DefaultReaderFlags = FlagReaderNfcA | FlagReaderSkipNdefCheck

// Has reports whether all bits of other are set in f.
func (f ReaderFlag) Has(other ReaderFlag) bool {
	return f&other == other
}

func (f ReaderFlag) String() string {
	names := []string{}
	for _, entry := range []struct {
		flag ReaderFlag
		name string
	}{
		{FlagReaderNfcA, "nfca"},
		{FlagReaderNfcB, "nfcb"},
		{FlagReaderNfcF, "nfcf"},
		{FlagReaderNfcV, "nfcv"},
		{FlagReaderSkipNdefCheck, "skip-ndef"},
	} {
		if f.Has(entry.flag) {
			names = append(names, entry.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Tag is a tag as seen at discovery time.
//
// ID returns the hardware identifier. A nil identifier means the tag did
// not expose one; an error means it could not be read. Drivers return nil,
// not an empty slice, when there is no identifier.
type Tag interface {
	ID() ([]byte, error)
	Technology() string
}

// DiscoverySink receives discovery callbacks from an adapter.
//
// OnTagDiscovered is called on the adapter's own goroutine and must not block.
type DiscoverySink interface {
	OnTagDiscovered(tag Tag)
}

// DiscoverySinkFunc adapts a function to the DiscoverySink interface.
type DiscoverySinkFunc func(tag Tag)

func (f DiscoverySinkFunc) OnTagDiscovered(tag Tag) {
	f(tag)
}

// Adapter is the hardware binding of a reader.
//
// Example:
//
//	adapter, err := pcsc.Open("")
//	if err != nil {
//	    adapter = nil // unsupported
//	}
//	reader := nfc.NewTagReader(adapter, looper, emitter)
type Adapter interface {
	// Enabled reports whether the radio is currently powered and usable.
	Enabled() bool

	// EnableReaderMode registers sink as the exclusive discovery callback.
	// Registering again replaces the previous sink.
	EnableReaderMode(sink DiscoverySink, flags ReaderFlag) error

	// DisableReaderMode unregisters the discovery callback. No callback is
	// delivered after it returns. Calling it while not registered is a no-op.
	DisableReaderMode()

	String() string
}

// AdapterCloser is optionally implemented by adapters holding OS resources.
type AdapterCloser interface {
	Close() error
}

// StaticTag is a Tag with an identifier known at discovery time.
type StaticTag struct {
	UID  []byte
	Tech string
}

// NewStaticTag creates a type A tag with the given identifier.
func NewStaticTag(uid []byte) *StaticTag {
	return &StaticTag{UID: uid, Tech: TechnologyNfcA}
}

func (t *StaticTag) ID() ([]byte, error) {
	if t.UID == nil {
		return nil, nil
	}
	id := make([]byte, len(t.UID))
	copy(id, t.UID)
	return id, nil
}

func (t *StaticTag) Technology() string {
	return t.Tech
}

// Technology names reported by Tag.Technology.
const (
	TechnologyNfcA = "ISO14443A"
	TechnologyNfcB = "ISO14443B"
)
