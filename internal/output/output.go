package output

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Where the final transcript goes once a session is over.
const (
	ModeNone      = "none"
	ModeClipboard = "clipboard"
	ModeType      = "type"
	// ModeFallback types the transcript and copies it to the clipboard when typing fails
	ModeFallback = "fallback"
)

var ErrEmptyTranscript = errors.New("empty transcript")

// Modes lists the accepted values of Config.Mode.
func Modes() []string {
	return []string{ModeNone, ModeClipboard, ModeType, ModeFallback}
}

// Deliverer hands a finished transcript to the desktop.
type Deliverer interface {
	Deliver(ctx context.Context, text string) error
}

type Config struct {
	Mode string
	// Timeout bounds each wl-copy or wtype invocation
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{Mode: ModeNone, Timeout: 3 * time.Second}
}

type deliverer struct {
	config Config
}

func New(config Config) Deliverer {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &deliverer{config: config}
}

func (d *deliverer) Deliver(ctx context.Context, text string) error {
	if d.config.Mode == "" || d.config.Mode == ModeNone {
		return nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyTranscript
	}

	switch d.config.Mode {
	case ModeClipboard:
		return copyText(ctx, text, d.config.Timeout)

	case ModeType:
		return typeText(ctx, text, d.config.Timeout)

	case ModeFallback:
		err := typeText(ctx, text, d.config.Timeout)
		if err == nil {
			return nil
		}
		log.Warn("output: typing failed, copying to clipboard instead", "err", err)
		if cerr := copyText(ctx, text, d.config.Timeout); cerr != nil {
			return errors.Join(err, cerr)
		}
		return nil

	default:
		return fmt.Errorf("unsupported output mode: %s", d.config.Mode)
	}
}
