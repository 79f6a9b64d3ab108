package bridge

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotside-studios/nfc-bridge/nfc"
	"github.com/dotside-studios/nfc-bridge/server"
)

// fakeResult records the reply to one method call.
type fakeResult struct {
	status string
	value  any
	calls  int
}

func (r *fakeResult) Success(result any) {
	r.calls++
	r.status, r.value = "success", result
}

func (r *fakeResult) Error(code, message string, details any) {
	r.calls++
	r.status, r.value = "error", message
}

func (r *fakeResult) NotImplemented() {
	r.calls++
	r.status = "notImplemented"
}

// inline runs posted tasks immediately.
type inline struct{}

func (inline) Post(task func()) bool {
	task()
	return true
}

func newController(adapter nfc.Adapter) (*Controller, *nfc.TagReader) {
	reader := nfc.NewTagReader(adapter, inline{}, nfc.EventEmitterFunc(func(string, any) {}), nfc.WithLogger(zerolog.Nop()))
	return NewController(reader), reader
}

func invoke(c *Controller, method string) *fakeResult {
	r := &fakeResult{}
	c.OnMethodCall(server.MethodCall{Method: method}, r)
	return r
}

func TestController_IsNfcSupported(t *testing.T) {
	adapter := nfc.NewMockAdapter()
	c, _ := newController(adapter)

	r := invoke(c, MethodIsSupported)
	assert.Equal(t, "success", r.status)
	assert.Equal(t, true, r.value)

	adapter.SetRadio(false)
	r = invoke(c, MethodIsSupported)
	assert.Equal(t, true, r.value, "supported does not depend on the radio")
	assert.False(t, c.Status().Enabled)
}

func TestController_NoAdapter(t *testing.T) {
	c, _ := newController(nil)
	assert.Equal(t, false, invoke(c, MethodIsSupported).value)
	assert.False(t, c.Status().Enabled)

	r := invoke(c, MethodStartScan)
	assert.Equal(t, "success", r.status)
	assert.Nil(t, r.value)
}

func TestController_NoReader(t *testing.T) {
	c := NewController(nil)

	assert.Equal(t, false, invoke(c, MethodIsSupported).value)
	assert.Equal(t, "success", invoke(c, MethodStartScan).status)
	assert.Equal(t, "success", invoke(c, MethodStopScan).status)
	assert.Equal(t, server.ReaderStatus{}, c.Status())

	c.OnResume()
	c.OnPause()
}

func TestController_StartStop(t *testing.T) {
	adapter := nfc.NewMockAdapter()
	c, reader := newController(adapter)

	r := invoke(c, MethodStartScan)
	require.Equal(t, "success", r.status)
	assert.True(t, reader.Active())
	assert.True(t, adapter.Registered())
	assert.Equal(t, server.ReaderStatus{Supported: true, Enabled: true, Active: true}, c.Status())

	r = invoke(c, MethodStopScan)
	require.Equal(t, "success", r.status)
	assert.False(t, reader.Active())
	assert.False(t, adapter.Registered())
}

func TestController_StartWithRadioOff(t *testing.T) {
	adapter := nfc.NewMockAdapter()
	adapter.SetRadio(false)
	c, reader := newController(adapter)

	r := invoke(c, MethodStartScan)
	assert.Equal(t, "success", r.status)
	assert.False(t, reader.Active())
}

func TestController_Lifecycle(t *testing.T) {
	adapter := nfc.NewMockAdapter()
	c, reader := newController(adapter)

	c.OnResume()
	assert.True(t, reader.Active())

	c.OnPause()
	assert.False(t, reader.Active())
	assert.False(t, adapter.Inject(nfc.NewStaticTag([]byte{1, 2, 3, 4})))

	c.OnPause()
	assert.False(t, reader.Active())
}

func TestController_UnknownCommand(t *testing.T) {
	c, _ := newController(nfc.NewMockAdapter())

	for _, method := range []string{"isNfcEnabled", "readNdef", "", "IsNfcSupported"} {
		r := invoke(c, method)
		assert.Equal(t, "notImplemented", r.status, method)
		assert.Equal(t, 1, r.calls)
	}
}
