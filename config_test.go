package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, BackendAuto, cfg.Backend)
	assert.Equal(t, 18080, cfg.Port)
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 64, cfg.QueueSize)
	assert.True(t, cfg.MDNS)
	assert.True(t, cfg.Tray)
	assert.False(t, cfg.Debug)
	assert.Equal(t, logFormatConsole, cfg.LogFormat)
}

func TestLoadConfig_Flags(t *testing.T) {
	cfg, err := LoadConfig([]string{
		"--backend", "pcsc",
		"-d", "ACS ACR122U",
		"-p", "9000",
		"--api-secret", "s3cret",
		"--poll-interval", "250ms",
		"--no-mdns", "--cli", "--debug", "--log-json",
	})
	require.NoError(t, err)

	assert.Equal(t, BackendPCSC, cfg.Backend)
	assert.Equal(t, "ACS ACR122U", cfg.Device)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "s3cret", cfg.APISecret)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.False(t, cfg.MDNS)
	assert.False(t, cfg.Tray)
	assert.True(t, cfg.Debug)
	assert.Equal(t, logFormatJSON, cfg.LogFormat)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
backend: libnfc
device: "pn532_uart:/dev/ttyUSB0"
port: 19000
poll_interval: 50ms
queue_size: 8
mdns: false
tray: false
log_format: json
`)

	cfg, err := LoadConfig([]string{"-c", path})
	require.NoError(t, err)

	assert.Equal(t, BackendLibNFC, cfg.Backend)
	assert.Equal(t, "pn532_uart:/dev/ttyUSB0", cfg.Device)
	assert.Equal(t, 19000, cfg.Port)
	assert.Equal(t, 50*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 8, cfg.QueueSize)
	assert.False(t, cfg.MDNS)
	assert.False(t, cfg.Tray)
	assert.Equal(t, logFormatJSON, cfg.LogFormat)
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "backend: libnfc\nport: 19000\napi_secret: fromfile\n")

	cfg, err := LoadConfig([]string{"--config", path, "--backend", "none", "--port", "19001"})
	require.NoError(t, err)

	assert.Equal(t, BackendNone, cfg.Backend)
	assert.Equal(t, 19001, cfg.Port)
	assert.Equal(t, "fromfile", cfg.APISecret)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		args []string
	}{
		{name: "unknown flag", args: []string{"--bogus"}},
		{name: "backend choice", args: []string{"--backend", "usb"}},
		{name: "pn532 without device", args: []string{"--backend", "pn532"}},
		{name: "negative port", args: []string{"--port", "-1"}},
		{name: "file backend", file: "backend: usb\n"},
		{name: "file poll interval", file: "poll_interval: soon\n"},
		{name: "file log format", file: "log_format: xml\n"},
		{name: "file syntax", file: "port: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.args
			if tt.file != "" {
				args = append([]string{"-c", writeConfig(t, tt.file)}, args...)
			}
			_, err := LoadConfig(args)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestLoadConfig_Help(t *testing.T) {
	_, err := LoadConfig([]string{"--help"})
	require.Error(t, err)
	assert.True(t, isHelp(err))
}

func TestLoadConfig_VersionSkipsValidation(t *testing.T) {
	cfg, err := LoadConfig([]string{"--backend", "pn532", "-v"})
	require.NoError(t, err)
	assert.True(t, cfg.ShowVersion)
}
