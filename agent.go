package main

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dotside-studios/nfc-bridge/bridge"
	"github.com/dotside-studios/nfc-bridge/nfc"
	"github.com/dotside-studios/nfc-bridge/nfc/libnfc"
	"github.com/dotside-studios/nfc-bridge/nfc/pcsc"
	"github.com/dotside-studios/nfc-bridge/nfc/pn532"
	"github.com/dotside-studios/nfc-bridge/server"
)

const shutdownTimeout = 5 * time.Second

// AdapterOpener opens the hardware binding selected by the config. A nil
// adapter with a nil error means the host has no reader.
type AdapterOpener func(cfg *Config) (nfc.Adapter, error)

// Agent owns the running bridge: the UI looper, the reader, its controller
// and the method channel server.
type Agent struct {
	Config     *Config
	Looper     *nfc.Looper
	Adapter    nfc.Adapter // nil when no reader is available
	Reader     *nfc.TagReader
	Controller *bridge.Controller
	Server     *server.Server

	logger zerolog.Logger
	cancel context.CancelFunc

	mu      sync.Mutex // serializes Start and Stop
	running bool

	uidMu   sync.RWMutex
	lastUID string
}

// NewAgent opens the adapter and wires the bridge together. Failing to open
// the adapter is not fatal: the bridge then reports the reader as
// unsupported.
func NewAgent(cfg *Config, open AdapterOpener) *Agent {
	a := &Agent{
		Config: cfg,
		logger: log.With().Str("component", "agent").Logger(),
	}
	if open == nil {
		open = OpenAdapter
	}

	adapter, err := open(cfg)
	if err != nil {
		a.logger.Warn().Err(err).Str("backend", cfg.Backend).Msg("no NFC reader available")
		adapter = nil
	}
	a.Adapter = adapter

	a.Looper = nfc.NewLooper(cfg.QueueSize, log.Logger)
	a.Reader = nfc.NewTagReader(a.Adapter, a.Looper, nfc.EventEmitterFunc(a.emit))
	a.Controller = bridge.NewController(a.Reader)
	a.Server = server.New(server.Config{
		Addr:      cfg.Listen,
		Port:      cfg.Port,
		APISecret: cfg.APISecret,
		MDNS:      cfg.MDNS,
		Executor:  a.Looper,
		Methods:   a.Controller,
		Lifecycle: a.Controller,
		Status:    a.Controller.Status,
	})
	return a
}

// emit runs on the looper and forwards reader events to the client.
func (a *Agent) emit(method string, arguments any) {
	if detected, ok := arguments.(nfc.TagDetected); ok {
		a.uidMu.Lock()
		a.lastUID = detected.UUID
		a.uidMu.Unlock()
	}
	a.Server.InvokeMethod(method, arguments)
}

// Start runs the looper and opens the method channel.
func (a *Agent) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return errors.New("agent is already running")
	}
	select {
	case <-a.Looper.Done():
		return errors.New("agent was stopped and cannot be restarted")
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	go a.Looper.Run(ctx)

	if err := a.Server.Start(); err != nil {
		cancel()
		return err
	}

	a.cancel = cancel
	a.running = true
	adapterName := "none"
	if a.Adapter != nil {
		adapterName = a.Adapter.String()
	}
	a.logger.Info().Str("adapter", adapterName).Str("url", a.ChannelURL()).Msg("bridge started")
	return nil
}

// Stop stops scanning, closes the channel and releases the reader.
func (a *Agent) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		a.logger.Debug().Msg("agent is not running")
		return
	}
	a.running = false

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Server.Stop(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("server did not stop cleanly")
	}

	// The looper goes first so no queued resume can restart the reader
	// after it has been stopped.
	a.cancel()
	select {
	case <-a.Looper.Done():
	case <-ctx.Done():
		a.logger.Warn().Msg("looper did not stop in time")
	}

	a.Reader.Stop()

	if closer, ok := a.Adapter.(nfc.AdapterCloser); ok {
		if err := closer.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close adapter")
		}
	}
	a.logger.Info().Msg("bridge stopped")
}

// Pause and Resume drive the reader from the host, the same way a UI
// lifecycle transition would.
func (a *Agent) Pause() bool {
	return a.Looper.Post(a.Controller.OnPause)
}

func (a *Agent) Resume() bool {
	return a.Looper.Post(a.Controller.OnResume)
}

// LastUID returns the identifier of the most recently detected tag.
func (a *Agent) LastUID() string {
	a.uidMu.RLock()
	defer a.uidMu.RUnlock()
	return a.lastUID
}

// ChannelURL is the WebSocket URL clients connect to, using the first
// non-loopback address when listening on all interfaces.
func (a *Agent) ChannelURL() string {
	host := a.Config.Listen
	if host == "" {
		host = "localhost"
		if ips := getLocalIPs(); len(ips) > 0 {
			host = ips[0]
		}
	}

	port := a.Config.Port
	if tcp, ok := a.Server.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}
	return fmt.Sprintf("ws://%s/ws", net.JoinHostPort(host, fmt.Sprint(port)))
}

// OpenAdapter opens the backend named by cfg.Backend. "auto" tries PC/SC
// first and falls back to libnfc; a PN532 on a serial port must be named
// explicitly.
func OpenAdapter(cfg *Config) (nfc.Adapter, error) {
	opts := []nfc.PollerOption{nfc.WithInterval(cfg.PollInterval)}

	switch cfg.Backend {
	case BackendNone:
		return nil, nil
	case BackendPCSC:
		adapter, err := pcsc.Open(cfg.Device, opts...)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	case BackendLibNFC:
		adapter, err := libnfc.Open(cfg.Device, opts...)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	case BackendPN532:
		adapter, err := pn532.Open(cfg.Device, opts...)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	case BackendAuto:
		adapter, err := pcsc.Open(cfg.Device, opts...)
		if err == nil {
			return adapter, nil
		}
		log.Debug().Err(err).Msg("PC/SC unavailable, trying libnfc")

		devices, lerr := libnfc.ListDevices()
		if lerr != nil || len(devices) == 0 {
			return nil, errors.Wrap(err, "no reader found")
		}
		nfcAdapter, err := libnfc.Open(devices[0], opts...)
		if err != nil {
			return nil, err
		}
		return nfcAdapter, nil
	default:
		return nil, errors.Errorf("unknown backend %q", cfg.Backend)
	}
}
