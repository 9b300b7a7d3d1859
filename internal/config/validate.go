package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/leonardotrapani/streamscribe/internal/language"
	"github.com/leonardotrapani/streamscribe/internal/output"
)

func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("invalid server.url: empty (set it in the config file or %s)", EnvURL)
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("invalid server.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid server.url: scheme %q (must be ws or wss)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid server.url: missing host")
	}
	if c.Server.APIKey == "" {
		return fmt.Errorf("API key required: not found in config (server.api_key) or environment variable (%s)", EnvAPIKey)
	}
	if c.Server.HandshakeTimeout < 0 {
		return fmt.Errorf("invalid server.handshake_timeout: %v", c.Server.HandshakeTimeout)
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("invalid server.write_timeout: %v", c.Server.WriteTimeout)
	}

	if !language.IsSupported(c.Session.Language) {
		return fmt.Errorf("invalid session.language: %s is not supported (must be one of %s)", language.Label(c.Session.Language), strings.Join(language.Codes(), ", "))
	}
	if c.Session.DrainTimeout <= 0 {
		return fmt.Errorf("invalid session.drain_timeout: %v", c.Session.DrainTimeout)
	}
	if c.Session.PollInterval <= 0 {
		return fmt.Errorf("invalid session.poll_interval: %v", c.Session.PollInterval)
	}
	if c.Session.PollInterval > c.Session.DrainTimeout {
		return fmt.Errorf("invalid session.poll_interval: %v exceeds drain_timeout %v", c.Session.PollInterval, c.Session.DrainTimeout)
	}
	if c.Session.PollInterval >= time.Second {
		return fmt.Errorf("invalid session.poll_interval: %v (must be below 1s)", c.Session.PollInterval)
	}

	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.FrameSamples <= 0 {
		return fmt.Errorf("invalid recording.frame_samples: %d", c.Recording.FrameSamples)
	}
	if c.Recording.Timeout < 0 {
		return fmt.Errorf("invalid recording.timeout: %v", c.Recording.Timeout)
	}

	switch c.Display.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid display.color: %q (must be auto, always, or never)", c.Display.Color)
	}

	switch c.Notifications.Type {
	case "desktop", "log", "none":
	default:
		return fmt.Errorf("invalid notifications.type: %q (must be desktop, log, or none)", c.Notifications.Type)
	}

	if !slices.Contains(output.Modes(), c.Output.Mode) {
		return fmt.Errorf("invalid output.mode: %q (must be one of %s)", c.Output.Mode, strings.Join(output.Modes(), ", "))
	}
	if c.Output.Timeout <= 0 {
		return fmt.Errorf("invalid output.timeout: %v", c.Output.Timeout)
	}

	return nil
}
