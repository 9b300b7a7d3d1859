package notify

import (
	"fmt"
	"os/exec"

	"github.com/charmbracelet/log"
)

const appName = "streamscribe"

// Notifier reports session lifecycle events to the user.
type Notifier interface {
	SessionStarted()
	CaptureStopped()
	SessionFinished(outcome string, fragments int)
	Error(msg string)
}

// New returns the notifier for a notifications.type value. Unknown types and
// disabled notifications get Nop.
func New(kind string, enabled bool) Notifier {
	if !enabled {
		return Nop{}
	}
	switch kind {
	case "desktop":
		return Desktop{}
	case "log":
		return Log{}
	default:
		return Nop{}
	}
}

// runCommand is replaced in tests.
var runCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

type Desktop struct{}

func (Desktop) SessionStarted() {
	send("normal", "Streamscribe: Recording", "Streaming audio to the transcription service")
}

func (Desktop) CaptureStopped() {
	send("normal", "Streamscribe: Finished recording", "Waiting for the remaining transcript")
}

func (Desktop) SessionFinished(outcome string, fragments int) {
	send("normal", "Streamscribe: Over and out", summary(outcome, fragments))
}

func (Desktop) Error(msg string) {
	send("critical", "Streamscribe: Error", msg)
}

func send(urgency, title, body string) {
	if err := runCommand("notify-send", "-a", appName, "-u", urgency, title, body); err != nil {
		log.Warn("notify: failed to send notification", "title", title, "err", err)
	}
}

func summary(outcome string, fragments int) string {
	return fmt.Sprintf("%s, %d transcript fragments", outcome, fragments)
}

// Log writes notifications to the logger instead of the desktop.
type Log struct{}

func (Log) SessionStarted() { log.Info("notify: recording") }
func (Log) CaptureStopped() { log.Info("notify: finished recording") }

func (Log) SessionFinished(outcome string, fragments int) {
	log.Info("notify: over and out", "outcome", outcome, "fragments", fragments)
}

func (Log) Error(msg string) { log.Error("notify: " + msg) }

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) SessionStarted()             {}
func (Nop) CaptureStopped()             {}
func (Nop) SessionFinished(string, int) {}
func (Nop) Error(msg string)            {}
