package config

import "time"

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:              "",
			UserID:           "1234567890",
			HandshakeTimeout: 10 * time.Second,
			WriteTimeout:     10 * time.Second,
		},
		Session: SessionConfig{
			Language:     "en",
			DrainTimeout: 20 * time.Second,
			PollInterval: 500 * time.Millisecond,
		},
		Recording: RecordingConfig{
			SampleRate:   16000,
			FrameSamples: 16000,
			Device:       "",
			Timeout:      0,
		},
		Display: DisplayConfig{
			Color:   "auto",
			ShowRaw: true,
		},
		Notifications: NotificationsConfig{
			Enabled: false,
			Type:    "log",
		},
		Output: OutputConfig{
			Mode:    "none",
			Timeout: 3 * time.Second,
		},
	}
}
