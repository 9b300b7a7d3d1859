package output

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

func copyText(ctx context.Context, text string, timeout time.Duration) error {
	if _, err := exec.LookPath("wl-copy"); err != nil {
		return fmt.Errorf("wl-copy not found: %w (install wl-clipboard)", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "wl-copy")
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("wl-copy failed: %w", err)
	}

	log.Info("output: transcript copied to clipboard", "chars", len(text))
	return nil
}

func typeText(ctx context.Context, text string, timeout time.Duration) error {
	if _, err := exec.LookPath("wtype"); err != nil {
		return fmt.Errorf("wtype not found: %w (install wtype package)", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// "--" keeps a transcript starting with a dash from being read as a flag
	if err := exec.CommandContext(ctx, "wtype", "--", text).Run(); err != nil {
		return fmt.Errorf("wtype failed: %w", err)
	}

	log.Info("output: transcript typed", "chars", len(text))
	return nil
}
