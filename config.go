package main

import (
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dotside-studios/nfc-bridge/nfc"
	"github.com/dotside-studios/nfc-bridge/server"
)

// Backends selectable with --backend.
const (
	BackendAuto   = "auto"
	BackendLibNFC = "libnfc"
	BackendPCSC   = "pcsc"
	BackendPN532  = "pn532"
	BackendNone   = "none"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultQueueSize    = nfc.DefaultLooperQueueSize

	logFormatConsole = "console"
	logFormatJSON    = "json"
)

// Options are the command line flags. Zero values mean "not given" so the
// config file can fill them in.
type Options struct {
	ConfigFile   string        `short:"c" long:"config" description:"YAML config file"`
	Backend      string        `short:"b" long:"backend" choice:"auto" choice:"libnfc" choice:"pcsc" choice:"pn532" choice:"none" description:"Reader backend"`
	Device       string        `short:"d" long:"device" description:"Device connection string, reader name or serial port"`
	Listen       string        `long:"listen" description:"Listen host, empty for all interfaces"`
	Port         int           `short:"p" long:"port" description:"Method channel port (default 18080)"`
	APISecret    string        `long:"api-secret" description:"Secret the UI client must pass as ?secret="`
	PollInterval time.Duration `long:"poll-interval" description:"Reader poll interval (default 100ms)"`
	QueueSize    int           `long:"queue-size" description:"UI task queue size (default 64)"`
	NoMDNS       bool          `long:"no-mdns" description:"Do not advertise the channel over mDNS"`
	CLI          bool          `long:"cli" description:"Run without the system tray"`
	Debug        bool          `long:"debug" description:"Enable debug logging"`
	LogJSON      bool          `long:"log-json" description:"Log JSON instead of console output"`
	ShowVersion  bool          `short:"v" long:"version" description:"Show version and exit"`
}

// FileConfig is the YAML config file layout.
type FileConfig struct {
	Backend      string `yaml:"backend,omitempty"`
	Device       string `yaml:"device,omitempty"`
	Listen       string `yaml:"listen,omitempty"`
	Port         int    `yaml:"port,omitempty"`
	APISecret    string `yaml:"api_secret,omitempty"`
	PollInterval string `yaml:"poll_interval,omitempty"`
	QueueSize    int    `yaml:"queue_size,omitempty"`
	MDNS         *bool  `yaml:"mdns,omitempty"`
	Tray         *bool  `yaml:"tray,omitempty"`
	Debug        bool   `yaml:"debug,omitempty"`
	LogFormat    string `yaml:"log_format,omitempty"`
}

// Config is the resolved configuration of the bridge process.
type Config struct {
	Backend      string
	Device       string
	Listen       string
	Port         int
	APISecret    string
	PollInterval time.Duration
	QueueSize    int
	MDNS         bool
	Tray         bool
	Debug        bool
	LogFormat    string
	ShowVersion  bool
}

// LoadConfig parses args, reads the config file if one is named and merges
// both. Flags win over the file.
func LoadConfig(args []string) (*Config, error) {
	var opts Options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	if opts.ShowVersion {
		return &Config{ShowVersion: true}, nil
	}

	var file FileConfig
	if opts.ConfigFile != "" {
		loaded, err := ReadFileConfig(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		file = *loaded
	}

	cfg, err := mergeConfig(opts, file)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadFileConfig reads a YAML config file.
func ReadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	var file FileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return &file, nil
}

func mergeConfig(opts Options, file FileConfig) (*Config, error) {
	cfg := &Config{
		Backend:   file.Backend,
		Device:    file.Device,
		Listen:    file.Listen,
		Port:      file.Port,
		APISecret: file.APISecret,
		QueueSize: file.QueueSize,
		MDNS:      file.MDNS == nil || *file.MDNS,
		Tray:      file.Tray == nil || *file.Tray,
		Debug:     file.Debug,
		LogFormat: file.LogFormat,
	}
	if file.PollInterval != "" {
		d, err := time.ParseDuration(file.PollInterval)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid poll_interval %q", file.PollInterval)
		}
		cfg.PollInterval = d
	}

	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}
	if opts.Device != "" {
		cfg.Device = opts.Device
	}
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}
	if opts.APISecret != "" {
		cfg.APISecret = opts.APISecret
	}
	if opts.PollInterval != 0 {
		cfg.PollInterval = opts.PollInterval
	}
	if opts.QueueSize != 0 {
		cfg.QueueSize = opts.QueueSize
	}
	if opts.NoMDNS {
		cfg.MDNS = false
	}
	if opts.CLI {
		cfg.Tray = false
	}
	if opts.Debug {
		cfg.Debug = true
	}
	if opts.LogJSON {
		cfg.LogFormat = logFormatJSON
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendAuto
	}
	if c.Port == 0 {
		c.Port = server.DefaultPort
	}
	if c.PollInterval == 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.LogFormat == "" {
		c.LogFormat = logFormatConsole
	}
}

// Validate checks values the flag parser cannot check.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendLibNFC, BackendPCSC, BackendPN532, BackendNone:
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	if c.Backend == BackendPN532 && c.Device == "" {
		return errors.New("backend pn532 needs --device with the serial port")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("port %d out of range", c.Port)
	}
	if c.PollInterval < 0 {
		return errors.Errorf("poll interval %s must be positive", c.PollInterval)
	}
	if c.QueueSize < 0 {
		return errors.Errorf("queue size %d must be positive", c.QueueSize)
	}
	switch c.LogFormat {
	case logFormatConsole, logFormatJSON:
	default:
		return errors.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// isHelp reports whether err is the parser's --help output.
func isHelp(err error) bool {
	var flagsErr *flags.Error
	return errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp
}
