package main

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"fyne.io/systray"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dotside-studios/nfc-bridge/buildinfo"
	"github.com/dotside-studios/nfc-bridge/server"
)

// getLocalIPs returns a list of local IP addresses (excluding loopback)
func getLocalIPs() []string {
	var ips []string
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ips
	}

	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() {
			if ipNet.IP.To4() != nil {
				ips = append(ips, ipNet.IP.String())
			}
		}
	}
	return ips
}

// trayState is what the tray shows, sampled from the agent.
type trayState struct {
	reader server.ReaderStatus
	client bool
	uid    string
}

// SystrayApp is the tray host. Its pause and resume items act as the UI's
// background and foreground transitions.
type SystrayApp struct {
	agent  *Agent
	logger zerolog.Logger

	mStatus  *systray.MenuItem
	mReader  *systray.MenuItem
	mClient  *systray.MenuItem
	mCardUID *systray.MenuItem

	mURL     *systray.MenuItem
	mCopyURL *systray.MenuItem

	mResume *systray.MenuItem
	mPause  *systray.MenuItem
	mQuit   *systray.MenuItem

	failed bool
}

// NewSystrayApp creates a new systray application
func NewSystrayApp(agent *Agent) *SystrayApp {
	return &SystrayApp{
		agent:  agent,
		logger: log.With().Str("component", "systray").Logger(),
	}
}

// Run blocks until the tray is quit or the process is signalled.
func (s *SystrayApp) Run() {
	stop := quitOnSignal()
	defer stop()
	systray.Run(s.onReady, s.onExit)
}

func (s *SystrayApp) onReady() {
	s.setupUI()

	if err := s.agent.Start(); err != nil {
		s.logger.Error().Err(err).Msg("failed to start bridge")
		s.failed = true
		s.updateStatus("Failed to Start")
	} else {
		s.updateStatus("Running")
		s.mURL.SetTitle("URL: " + s.agent.ChannelURL())
		s.mCopyURL.Enable()
	}

	go s.handleMenuEvents()
	go s.refreshLoop()
}

func (s *SystrayApp) onExit() {
	s.agent.Stop()
}

func (s *SystrayApp) setupUI() {
	systray.SetIcon(iconData)
	systray.SetTitle(buildinfo.DisplayName)
	systray.SetTooltip(buildinfo.Description)

	s.mStatus = systray.AddMenuItem("Starting...", "Bridge status")
	s.mStatus.Disable()

	s.mReader = systray.AddMenuItem(readerTitle(s.agent), "Reader backend")
	s.mReader.Disable()

	s.mClient = systray.AddMenuItem("Client: Disconnected", "UI client")
	s.mClient.Disable()

	systray.AddSeparator()

	s.mCardUID = systray.AddMenuItem("Card UID: None", "Last detected tag")
	s.mCardUID.Disable()

	systray.AddSeparator()

	s.mURL = systray.AddMenuItem("URL: Not running", "Method channel URL")
	s.mURL.Disable()
	s.mCopyURL = systray.AddMenuItem("Copy URL", "Copy the method channel URL to clipboard")
	s.mCopyURL.Disable()

	systray.AddSeparator()

	s.mResume = systray.AddMenuItem("Resume Scanning", "Start scanning for tags")
	s.mPause = systray.AddMenuItem("Pause Scanning", "Stop scanning for tags")

	systray.AddSeparator()
	s.mQuit = systray.AddMenuItem("Quit", "Quit the application")
}

func readerTitle(agent *Agent) string {
	if agent.Adapter == nil {
		return "Reader: None"
	}
	return "Reader: " + agent.Adapter.String()
}

func (s *SystrayApp) handleMenuEvents() {
	for {
		select {
		case <-s.mResume.ClickedCh:
			if !s.agent.Resume() {
				s.logger.Warn().Msg("bridge busy, resume dropped")
			}
		case <-s.mPause.ClickedCh:
			if !s.agent.Pause() {
				s.logger.Warn().Msg("bridge busy, pause dropped")
			}
		case <-s.mCopyURL.ClickedCh:
			if err := copyToClipboard(s.agent.ChannelURL()); err != nil {
				s.logger.Warn().Err(err).Msg("failed to copy to clipboard")
			} else {
				s.logger.Info().Msg("copied channel URL to clipboard")
			}
		case <-s.mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

// refreshLoop polls the agent and updates the menu when something changed.
func (s *SystrayApp) refreshLoop() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var last trayState
	first := true
	for range ticker.C {
		state := trayState{
			reader: s.agent.Controller.Status(),
			client: s.agent.Server.ClientConnected(),
			uid:    s.agent.LastUID(),
		}
		if !first && state == last {
			continue
		}
		first = false
		last = state
		s.render(state)
	}
}

func (s *SystrayApp) render(state trayState) {
	if state.client {
		s.mClient.SetTitle("Client: Connected")
	} else {
		s.mClient.SetTitle("Client: Disconnected")
	}

	if state.uid == "" {
		s.mCardUID.SetTitle("Card UID: None")
	} else {
		s.mCardUID.SetTitle("Card UID: " + state.uid)
	}

	if state.reader.Active {
		s.mResume.Disable()
		s.mPause.Enable()
	} else {
		s.mPause.Disable()
		if state.reader.Enabled {
			s.mResume.Enable()
		} else {
			s.mResume.Disable()
		}
	}

	if s.failed {
		return
	}
	switch {
	case !state.reader.Supported:
		s.updateStatus("No Reader")
	case !state.reader.Enabled:
		s.updateStatus("Reader Disabled")
	case state.reader.Active:
		s.updateStatus("Scanning")
	default:
		s.updateStatus("Paused")
	}
}

// updateStatus updates the status menu item and icon
func (s *SystrayApp) updateStatus(status string) {
	s.mStatus.SetTitle(status)

	switch status {
	case "Scanning":
		systray.SetIcon(iconDataScanning)
	case "Paused":
		systray.SetIcon(iconDataPaused)
	case "Failed to Start", "Reader Disabled":
		systray.SetIcon(iconDataError)
	default:
		systray.SetIcon(iconData)
	}
}

// copyToClipboard copies text to the system clipboard
func copyToClipboard(text string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbcopy")
	case "linux":
		cmd = exec.Command("xclip", "-selection", "clipboard")
	case "windows":
		cmd = exec.Command("clip")
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	if _, err := stdin.Write([]byte(text)); err != nil {
		return err
	}

	stdin.Close()
	return cmd.Wait()
}

// quitOnSignal quits the tray on SIGINT or SIGTERM. The returned func stops
// listening.
func quitOnSignal() func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigChan:
			log.Info().Msg("shutdown signal received")
			systray.Quit()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}
