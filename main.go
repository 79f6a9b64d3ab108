// Command nfc-bridge reads NFC tag identifiers from a local reader and
// forwards them to a UI client over a WebSocket method channel.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dotside-studios/nfc-bridge/buildinfo"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			evt := log.Error()

			switch v := r.(type) {
			case string:
				evt.Str("error", v)
			case error:
				evt.Err(v)
			default:
				evt.Str("error", fmt.Sprintf("%v", v))
			}

			evt.Msg("panicked")
		}
	}()

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    true,
		TimeFormat: "2006/01/02 15:04:05",
	})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		if isHelp(err) {
			fmt.Println(err)
			os.Exit(0)
		}
		log.Fatal().Err(err).Msg("cannot load configuration")
	}

	if cfg.ShowVersion {
		fmt.Println(buildinfo.BuildInfo())
		os.Exit(0)
	}

	setupLogging(cfg)

	agent := NewAgent(cfg, OpenAdapter)

	if !cfg.Tray {
		runCLI(agent)
		return
	}
	NewSystrayApp(agent).Run()
}

func setupLogging(cfg *Config) {
	if cfg.LogFormat == logFormatJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Debug().Interface("config", redacted(cfg)).Msg("configuration loaded")
}

// redacted returns a copy of cfg that is safe to log.
func redacted(cfg *Config) Config {
	c := *cfg
	if c.APISecret != "" {
		c.APISecret = "***"
	}
	return c
}

func runCLI(agent *Agent) {
	if err := agent.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start bridge")
	}
	defer agent.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")
}
