package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// ErrRecorderExited is returned by Recorder.NextFrame when pw-record stops
// producing audio on its own. A live capture never runs out, so this is a
// failure and not the end of the stream.
var ErrRecorderExited = errors.New("pw-record exited")

// FrameSource yields fixed-size blocks of raw PCM.
type FrameSource interface {
	// Open acquires the underlying device. ctx bounds the lifetime of the capture.
	Open(ctx context.Context) error

	// NextFrame blocks until one full frame is available. It returns io.EOF
	// when the source is exhausted.
	NextFrame(ctx context.Context) ([]byte, error)

	// Close releases the device. Safe to call more than once and without Open.
	Close() error
}

type Config struct {
	SampleRate int
	// FrameSamples is the number of samples per frame (per channel).
	FrameSamples int
	Device       string
}

func DefaultConfig() Config {
	return Config{
		SampleRate:   16000,
		FrameSamples: 16000,
		Device:       "",
	}
}

// FrameBytes is the size of one mono s16le frame.
func (c Config) FrameBytes() int {
	return c.FrameSamples * 2
}

// FrameDuration is the wall-clock length of one frame.
func (c Config) FrameDuration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.FrameSamples) * time.Second / time.Duration(c.SampleRate)
}

func (c Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", c.SampleRate)
	}
	if c.FrameSamples <= 0 {
		return fmt.Errorf("invalid FrameSamples: %d", c.FrameSamples)
	}
	return nil
}

// Recorder captures mono s16le audio from PipeWire through pw-record.
type Recorder struct {
	config Config
	open   atomic.Bool

	mu     sync.Mutex // guards cmd, stdout and cancel
	cmd    *exec.Cmd
	stdout io.ReadCloser
	cancel context.CancelFunc

	frames int
}

func NewRecorder(config Config) *Recorder {
	return &Recorder{config: config}
}

func NewDefaultRecorder() *Recorder { return NewRecorder(DefaultConfig()) }

func (r *Recorder) IsRecording() bool {
	return r.open.Load()
}

func (r *Recorder) Open(ctx context.Context) error {
	if r.open.Load() {
		return fmt.Errorf("already recording")
	}
	if err := r.config.validate(); err != nil {
		return err
	}
	if err := CheckPipeWireAvailable(ctx); err != nil {
		return fmt.Errorf("PipeWire not available: %w", err)
	}

	recordingCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(recordingCtx, "pw-record", r.buildPwRecordArgs()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start pw-record: %w", err)
	}

	// Log stderr lines to aid diagnostics.
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Debug("recording: pw-record stderr", "line", scanner.Text())
		}
	}()

	r.mu.Lock()
	r.cmd = cmd
	r.stdout = stdout
	r.cancel = cancel
	r.frames = 0
	r.mu.Unlock()

	r.open.Store(true)
	log.Info("recording: started", "rate", r.config.SampleRate, "frame", r.config.FrameDuration())
	return nil
}

func (r *Recorder) NextFrame(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	stdout := r.stdout
	r.mu.Unlock()

	if stdout == nil {
		return nil, fmt.Errorf("recorder not open")
	}

	frame := make([]byte, r.config.FrameBytes())
	_, err := io.ReadFull(stdout, frame)
	if err != nil {
		// a cancelled capture kills pw-record, which surfaces as a short read
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.mu.Lock()
		frames := r.frames
		r.mu.Unlock()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// io.EOF must not leak into the chain, capture treats it as exhaustion
			return nil, fmt.Errorf("%w after %d frames: %v", ErrRecorderExited, frames, err)
		}
		return nil, fmt.Errorf("read audio: %w", err)
	}

	r.mu.Lock()
	r.frames++
	r.mu.Unlock()
	return frame, nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	cmd := r.cmd
	cancel := r.cancel
	frames := r.frames
	r.cmd = nil
	r.stdout = nil
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if cmd != nil {
		// Ensure the child process is reaped.
		_ = cmd.Wait()
		log.Info("recording: finished", "frames", frames)
	}
	r.open.Store(false)
	return nil
}

func (r *Recorder) buildPwRecordArgs() []string {
	args := []string{
		"--format", "s16",
		"--rate", strconv.Itoa(r.config.SampleRate),
		"--channels", "1",
		"-", // stdout
	}
	if r.config.Device != "" {
		args = append(args, "--target", r.config.Device)
	}
	return args
}

func CheckPipeWireAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	// Use a short timeout to avoid hangs on misconfigured systems.
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(checkCtx, "pw-cli", "info")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}
