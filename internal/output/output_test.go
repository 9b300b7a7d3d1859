package output

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeDesktop puts wl-copy and wtype stand-ins on PATH that record what
// they were given under the returned directory.
func fakeDesktop(t *testing.T, wtypeFails bool) string {
	t.Helper()
	dir := t.TempDir()
	out := t.TempDir()

	wlCopy := "#!/bin/sh\ncat > \"$FAKE_OUT/clipboard\"\n"
	wtype := "#!/bin/sh\nshift\nprintf '%s' \"$1\" > \"$FAKE_OUT/typed\"\n"
	if wtypeFails {
		wtype = "#!/bin/sh\necho 'compositor does not support virtual keyboard' >&2\nexit 1\n"
	}

	for name, content := range map[string]string{"wl-copy": wlCopy, "wtype": wtype} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0755); err != nil {
			t.Fatal(err)
		}
	}

	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("FAKE_OUT", out)
	return out
}

func readOutput(t *testing.T, dir, name string) (string, bool) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return "", false
	}
	if err != nil {
		t.Fatal(err)
	}
	return string(data), true
}

func TestDeliver(t *testing.T) {
	tests := []struct {
		name          string
		mode          string
		wtypeFails    bool
		wantErr       bool
		wantClipboard bool
		wantTyped     bool
	}{
		{name: "clipboard", mode: ModeClipboard, wantClipboard: true},
		{name: "type", mode: ModeType, wantTyped: true},
		{name: "type fails", mode: ModeType, wtypeFails: true, wantErr: true},
		{name: "fallback types", mode: ModeFallback, wantTyped: true},
		{name: "fallback copies", mode: ModeFallback, wtypeFails: true, wantClipboard: true},
		{name: "none", mode: ModeNone},
		{name: "unknown mode", mode: "paste", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := fakeDesktop(t, tt.wtypeFails)
			d := New(Config{Mode: tt.mode, Timeout: 5 * time.Second})

			err := d.Deliver(context.Background(), "  -hello world \n")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Deliver() error = %v, wantErr %v", err, tt.wantErr)
			}

			clip, copied := readOutput(t, out, "clipboard")
			if copied != tt.wantClipboard {
				t.Errorf("clipboard written = %v, want %v", copied, tt.wantClipboard)
			}
			if copied && clip != "-hello world" {
				t.Errorf("clipboard = %q", clip)
			}

			typed, ok := readOutput(t, out, "typed")
			if ok != tt.wantTyped {
				t.Errorf("typed = %v, want %v", ok, tt.wantTyped)
			}
			if ok && typed != "-hello world" {
				t.Errorf("typed text = %q", typed)
			}
		})
	}
}

func TestDeliver_EmptyTranscript(t *testing.T) {
	fakeDesktop(t, false)
	err := New(Config{Mode: ModeClipboard}).Deliver(context.Background(), "   ")
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Errorf("Deliver() error = %v, want ErrEmptyTranscript", err)
	}
}

func TestDeliver_MissingTools(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	err := New(Config{Mode: ModeFallback}).Deliver(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected an error without wtype or wl-copy")
	}
	for _, want := range []string{"wtype not found", "wl-copy not found"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
}

func TestNew_DefaultTimeout(t *testing.T) {
	d := New(Config{Mode: ModeClipboard}).(*deliverer)
	if d.config.Timeout != DefaultConfig().Timeout {
		t.Errorf("Timeout = %v, want %v", d.config.Timeout, DefaultConfig().Timeout)
	}
}
