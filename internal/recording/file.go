package recording

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/streamscribe/internal/wav"
)

// FileSource replays a mono 16-bit WAV file frame by frame. With Realtime
// set, frames are released no faster than they would be captured live.
type FileSource struct {
	path     string
	config   Config
	realtime bool

	mu      sync.Mutex
	pcm     []byte
	offset  int
	next    time.Time
	done    chan struct{}
	doneOne sync.Once
}

func NewFileSource(path string, config Config, realtime bool) *FileSource {
	return &FileSource{
		path:     path,
		config:   config,
		realtime: realtime,
		done:     make(chan struct{}),
	}
}

func (s *FileSource) Open(ctx context.Context) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	f, pcm, err := wav.Decode(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}
	if f.Channels != 1 {
		return fmt.Errorf("%s: expected mono audio, got %d channels", s.path, f.Channels)
	}
	if f.SampleRate != s.config.SampleRate {
		return fmt.Errorf("%s: sample rate %d does not match configured %d (resampling is not supported)",
			s.path, f.SampleRate, s.config.SampleRate)
	}

	s.mu.Lock()
	s.pcm = pcm
	s.offset = 0
	s.next = time.Now()
	s.mu.Unlock()

	log.Info("recording: replaying file", "path", s.path, "duration", time.Duration(len(pcm)/2)*time.Second/time.Duration(f.SampleRate))
	return nil
}

func (s *FileSource) NextFrame(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.offset >= len(s.pcm) {
		s.mu.Unlock()
		s.markDone()
		return nil, io.EOF
	}

	size := s.config.FrameBytes()
	frame := make([]byte, size)
	// the last frame is zero padded to full length
	n := copy(frame, s.pcm[s.offset:])
	s.offset += n
	last := s.offset >= len(s.pcm)
	wait := time.Until(s.next)
	s.next = s.next.Add(s.config.FrameDuration())
	s.mu.Unlock()

	if s.realtime && wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if last {
		s.markDone()
	}
	return frame, nil
}

// Done is closed once the final frame has been handed out.
func (s *FileSource) Done() <-chan struct{} {
	return s.done
}

func (s *FileSource) markDone() {
	s.doneOne.Do(func() { close(s.done) })
}

func (s *FileSource) Close() error {
	s.mu.Lock()
	s.pcm = nil
	s.mu.Unlock()
	return nil
}
