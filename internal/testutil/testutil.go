package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/streamscribe/internal/transport"
)

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	return configPath
}

// MockFrame creates a test frame of n bytes with a recognizable pattern.
func MockFrame(n int, seed byte) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = seed + byte(i%251)
	}
	return data
}

// MessageKind classifies an outbound payload.
type MessageKind string

const (
	KindHandshake MessageKind = "handshake"
	KindAudio     MessageKind = "audio"
	KindStop      MessageKind = "stop"
	KindUnknown   MessageKind = "unknown"
)

func Classify(payload []byte) MessageKind {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return KindUnknown
	}
	switch {
	case fields["audio"] != nil:
		return KindAudio
	case fields["stoppedRecording"] != nil:
		return KindStop
	case fields["language"] != nil:
		return KindHandshake
	}
	return KindUnknown
}

// FakeChannel implements transport.Channel in memory.
type FakeChannel struct {
	// OnSend runs for every Send after the payload is recorded. A non-nil
	// return value is reported as the send error.
	OnSend func(kind MessageKind, payload []byte) error
	// ReceiveErr, when set, is returned by every Receive.
	ReceiveErr error

	mu     sync.Mutex
	sent   [][]byte
	closed int

	inbox chan []byte
}

func NewFakeChannel() *FakeChannel {
	return &FakeChannel{inbox: make(chan []byte, 64)}
}

// Push queues an inbound message.
func (c *FakeChannel) Push(msg string) {
	c.inbox <- []byte(msg)
}

func (c *FakeChannel) Send(payload []byte) error {
	c.mu.Lock()
	c.sent = append(c.sent, append([]byte(nil), payload...))
	hook := c.OnSend
	c.mu.Unlock()

	if hook != nil {
		return hook(Classify(payload), payload)
	}
	return nil
}

func (c *FakeChannel) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if c.ReceiveErr != nil {
		return nil, c.ReceiveErr
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-c.inbox:
		return msg, nil
	case <-timer.C:
		return nil, transport.ErrReceiveTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *FakeChannel) Close() error {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
	return nil
}

// Sent returns every payload sent so far, in order.
func (c *FakeChannel) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

// Count returns how many payloads of the given kind were sent.
func (c *FakeChannel) Count(kind MessageKind) int {
	n := 0
	for _, p := range c.Sent() {
		if Classify(p) == kind {
			n++
		}
	}
	return n
}

func (c *FakeChannel) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// FakeSource implements recording.FrameSource from a fixed list of frames.
type FakeSource struct {
	Frames [][]byte
	// Endless repeats the last frame forever instead of reporting io.EOF.
	Endless bool
	// Hold blocks after the listed frames until ctx ends instead of io.EOF.
	Hold bool
	// FrameDelay simulates capture time per frame.
	FrameDelay time.Duration
	OpenErr    error
	FrameErr   error

	mu     sync.Mutex
	next   int
	opened int
	closed int
}

func (s *FakeSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened++
	return s.OpenErr
}

func (s *FakeSource) NextFrame(ctx context.Context) ([]byte, error) {
	if s.FrameDelay > 0 {
		select {
		case <-time.After(s.FrameDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	if s.FrameErr != nil {
		s.mu.Unlock()
		return nil, s.FrameErr
	}
	if s.next < len(s.Frames) {
		f := s.Frames[s.next]
		s.next++
		s.mu.Unlock()
		return f, nil
	}
	if s.Endless && len(s.Frames) > 0 {
		s.next++
		f := s.Frames[len(s.Frames)-1]
		s.mu.Unlock()
		return f, nil
	}
	s.mu.Unlock()

	if s.Hold {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, io.EOF
}

func (s *FakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// Pulled returns how many frames were handed out.
func (s *FakeSource) Pulled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

func (s *FakeSource) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// CaptureLog returns what the package-level logger wrote while fn ran.
func CaptureLog(t *testing.T, fn func()) string {
	t.Helper()

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	fn()
	return buf.String()
}
