package nfc

import (
	"sync"
)

// MockAdapter is a simulated reader driver for tests.
//
// It honours the registration contract of a real driver: Inject only
// reaches the sink while reader mode is enabled.
//
// Example:
//
//	adapter := nfc.NewMockAdapter()
//	reader := nfc.NewTagReader(adapter, looper, emitter)
//	reader.Start()
//	adapter.Inject(nfc.NewStaticTag([]byte{0x01, 0x02, 0x03, 0x04}))
type MockAdapter struct {
	// Name is returned by String()
	Name string

	// RadioOn is returned by Enabled()
	RadioOn bool

	// EnableError, if set, will be returned by EnableReaderMode()
	EnableError error

	// CallLog tracks all method calls for verification in tests
	CallLog []string

	sink  DiscoverySink
	flags ReaderFlag
	mu    sync.Mutex
}

// NewMockAdapter creates a MockAdapter with the radio on.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		Name:    "Mock NFC Adapter",
		RadioOn: true,
		CallLog: make([]string, 0),
	}
}

func (m *MockAdapter) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RadioOn
}

// SetRadio switches the simulated radio on or off.
func (m *MockAdapter) SetRadio(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RadioOn = on
}

func (m *MockAdapter) EnableReaderMode(sink DiscoverySink, flags ReaderFlag) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallLog = append(m.CallLog, "EnableReaderMode")

	if m.EnableError != nil {
		return m.EnableError
	}
	m.sink = sink
	m.flags = flags
	return nil
}

func (m *MockAdapter) DisableReaderMode() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallLog = append(m.CallLog, "DisableReaderMode")
	m.sink = nil
	m.flags = 0
}

func (m *MockAdapter) String() string {
	return m.Name
}

// Registered reports whether a sink is currently registered.
func (m *MockAdapter) Registered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sink != nil
}

// Flags returns the flags passed to the last successful EnableReaderMode.
func (m *MockAdapter) Flags() ReaderFlag {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flags
}

// Inject simulates a tag entering the field. It reports whether a sink
// received the callback.
func (m *MockAdapter) Inject(tag Tag) bool {
	m.mu.Lock()
	sink := m.sink
	m.mu.Unlock()

	if sink == nil {
		return false
	}
	sink.OnTagDiscovered(tag)
	return true
}

// Calls returns a copy of the call log.
func (m *MockAdapter) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]string, len(m.CallLog))
	copy(calls, m.CallLog)
	return calls
}

// MockTag is a Tag whose ID behaviour is scripted.
type MockTag struct {
	UID   []byte
	Err   error
	Panic any
}

func (t *MockTag) ID() ([]byte, error) {
	if t.Panic != nil {
		panic(t.Panic)
	}
	return t.UID, t.Err
}

func (t *MockTag) Technology() string {
	return TechnologyNfcA
}
