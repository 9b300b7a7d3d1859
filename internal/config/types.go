package config

import "time"

type Config struct {
	Server        ServerConfig        `toml:"server"`
	Session       SessionConfig       `toml:"session"`
	Recording     RecordingConfig     `toml:"recording"`
	Display       DisplayConfig       `toml:"display"`
	Notifications NotificationsConfig `toml:"notifications"`
	Output        OutputConfig        `toml:"output"`
}

// ServerConfig locates and authenticates against the transcription service
type ServerConfig struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
	// UserID is the uid of every audio message and the X-End-UserID header
	UserID             string        `toml:"user_id"`
	InsecureSkipVerify bool          `toml:"insecure_skip_verify"`
	HandshakeTimeout   time.Duration `toml:"handshake_timeout"`
	// WriteTimeout bounds every outbound message
	WriteTimeout time.Duration `toml:"write_timeout"`
}

type SessionConfig struct {
	Language          string        `toml:"language"`
	Hotwords          string        `toml:"hotwords"`
	ManualPunctuation bool          `toml:"manual_punctuation"`
	DrainTimeout      time.Duration `toml:"drain_timeout"`
	PollInterval      time.Duration `toml:"poll_interval"`
	OrderedStop       bool          `toml:"ordered_stop"`
}

type RecordingConfig struct {
	SampleRate   int    `toml:"sample_rate"`
	FrameSamples int    `toml:"frame_samples"`
	Device       string `toml:"device"`
	// Timeout stops capture automatically; zero disables it
	Timeout time.Duration `toml:"timeout"`
}

type DisplayConfig struct {
	Color   string `toml:"color"` // "auto", "always", "never"
	ShowRaw bool   `toml:"show_raw"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

// OutputConfig decides what happens to the transcript after the session
type OutputConfig struct {
	Mode    string        `toml:"mode"` // "none", "clipboard", "type", "fallback"
	Timeout time.Duration `toml:"timeout"`
}
