package config

import (
	"github.com/leonardotrapani/streamscribe/internal/output"
	"github.com/leonardotrapani/streamscribe/internal/protocol"
	"github.com/leonardotrapani/streamscribe/internal/recording"
	"github.com/leonardotrapani/streamscribe/internal/session"
	"github.com/leonardotrapani/streamscribe/internal/transport"
	"github.com/leonardotrapani/streamscribe/internal/wav"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate:   c.Recording.SampleRate,
		FrameSamples: c.Recording.FrameSamples,
		Device:       c.Recording.Device,
	}
}

func (c *Config) ToSessionConfig() session.Config {
	return session.Config{
		UID: c.Server.UserID,
		Handshake: protocol.Handshake{
			Language:          c.Session.Language,
			Hotwords:          c.Session.Hotwords,
			ManualPunctuation: c.Session.ManualPunctuation,
		},
		Format:       wav.Mono16(c.Recording.SampleRate),
		DrainTimeout: c.Session.DrainTimeout,
		PollInterval: c.Session.PollInterval,
		OrderedStop:  c.Session.OrderedStop,
	}
}

func (c *Config) ToDialOptions() transport.Options {
	return transport.Options{
		URL:                c.Server.URL,
		APIKey:             c.Server.APIKey,
		UserID:             c.Server.UserID,
		InsecureSkipVerify: c.Server.InsecureSkipVerify,
		HandshakeTimeout:   c.Server.HandshakeTimeout,
		WriteTimeout:       c.Server.WriteTimeout,
	}
}

func (c *Config) ToOutputConfig() output.Config {
	return output.Config{
		Mode:    c.Output.Mode,
		Timeout: c.Output.Timeout,
	}
}
