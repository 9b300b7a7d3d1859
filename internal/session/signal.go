package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Signal is a write-once event. Any number of goroutines may observe it;
// once fired it stays fired.
type Signal struct {
	once sync.Once
	ch   chan struct{}
	at   atomic.Int64
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Fire sets the signal and reports whether this call was the one that set it.
func (s *Signal) Fire() bool {
	fired := false
	s.once.Do(func() {
		// the timestamp must be visible before the channel closes
		s.at.Store(time.Now().UnixNano())
		close(s.ch)
		fired = true
	})
	return fired
}

func (s *Signal) Fired() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// FiredAt returns when the signal fired, or the zero time if it has not.
func (s *Signal) FiredAt() time.Time {
	if !s.Fired() {
		return time.Time{}
	}
	return time.Unix(0, s.at.Load())
}
