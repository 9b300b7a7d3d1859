package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/streamscribe/internal/protocol"
	"github.com/leonardotrapani/streamscribe/internal/recording"
	"github.com/leonardotrapani/streamscribe/internal/transport"
	"github.com/leonardotrapani/streamscribe/internal/trigger"
	"github.com/leonardotrapani/streamscribe/internal/wav"
	"golang.org/x/sync/errgroup"
)

// DefaultUID is the session identifier used when none is configured.
const DefaultUID = "1234567890"

type Config struct {
	// UID is copied into every audio message.
	UID       string
	Handshake protocol.Handshake
	Format    wav.Format
	// DrainTimeout bounds how long the session waits for "finished" after
	// capture has been stopped.
	DrainTimeout time.Duration
	// PollInterval bounds each receive attempt.
	PollInterval time.Duration
	// OrderedStop holds the stop message back until the last audio frame
	// has been sent.
	OrderedStop bool
}

func DefaultConfig() Config {
	return Config{
		UID:          DefaultUID,
		Handshake:    protocol.Handshake{Language: "en"},
		Format:       wav.Mono16(16000),
		DrainTimeout: 20 * time.Second,
		PollInterval: 500 * time.Millisecond,
	}
}

// Outcome tells how a session ended.
type Outcome string

const (
	// OutcomeFinished means the service sent its completion marker.
	OutcomeFinished Outcome = "finished"
	// OutcomeDrainTimeout means the drain interval ran out after capture stopped.
	OutcomeDrainTimeout Outcome = "drain_timeout"
	// OutcomeAborted means a failure or cancellation ended the session.
	OutcomeAborted Outcome = "aborted"
)

type State string

const (
	StateConnecting State = "connecting"
	StateStreaming  State = "streaming"
	StateDraining   State = "draining"
	StateDone       State = "done"
)

// Observer sees every inbound message before the session acts on it.
// msg is nil when raw could not be parsed.
type Observer interface {
	MessageReceived(raw []byte, msg *protocol.Inbound)
}

type ObserverFunc func(raw []byte, msg *protocol.Inbound)

func (f ObserverFunc) MessageReceived(raw []byte, msg *protocol.Inbound) { f(raw, msg) }

// Result is returned by Run, also when Run fails.
type Result struct {
	Outcome    Outcome
	Transcript []string
	FramesSent int
	StopSent   bool
	// StoppedAt is zero when capture was never stopped by the trigger.
	StoppedAt time.Time
	Duration  time.Duration
}

// Text is the transcript as one line.
func (r *Result) Text() string {
	return joinFragments(r.Transcript)
}

// Status is a point-in-time snapshot of a running session.
type Status struct {
	State      State
	FramesSent int
	Fragments  int
	StopSent   bool
	// LastFragment is the most recent transcript fragment, empty before any.
	LastFragment string
}

type Option func(*Session)

func WithObserver(o Observer) Option {
	return func(s *Session) { s.observer = o }
}

// Session drives one streaming run: handshake, then capture, receive and the
// stop trigger concurrently until the service finishes or the drain runs out.
type Session struct {
	channel transport.Channel
	source  recording.FrameSource
	trigger trigger.Trigger
	config  Config

	observer Observer

	stop        *Signal
	transcript  *Transcript
	captureDone chan struct{}

	sendMu     sync.Mutex
	closeOnce  sync.Once
	framesSent atomic.Int64
	stopSent   atomic.Bool
	state      atomic.Value
	ran        atomic.Bool
}

// New builds a session. The session takes ownership of channel and closes it
// when Run returns.
func New(channel transport.Channel, source recording.FrameSource, stop trigger.Trigger, config Config, opts ...Option) *Session {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = DefaultConfig().DrainTimeout
	}

	s := &Session{
		channel:     channel,
		source:      source,
		trigger:     stop,
		config:      config,
		stop:        NewSignal(),
		transcript:  &Transcript{},
		captureDone: make(chan struct{}),
	}
	s.state.Store(StateConnecting)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Status() Status {
	last, _ := s.transcript.Last()
	return Status{
		State:        s.state.Load().(State),
		FramesSent:   int(s.framesSent.Load()),
		Fragments:    s.transcript.Len(),
		StopSent:     s.stopSent.Load(),
		LastFragment: last,
	}
}

// Transcript exposes the accumulated transcript for read-only use.
func (s *Session) Transcript() *Transcript {
	return s.transcript
}

// Run executes the session. It returns the first fatal error together with
// whatever transcript had accumulated by then. A Session runs only once.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	if !s.ran.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("session already ran")
	}

	defer s.closeChannel()

	if err := s.handshake(); err != nil {
		s.state.Store(StateDone)
		return s.result(OutcomeAborted, start), err
	}
	s.state.Store(StateStreaming)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	g, gctx := errgroup.WithContext(runCtx)

	// a send stuck on a stalled connection only returns once the
	// connection is gone, so closing must not wait for the loops
	stopClosing := context.AfterFunc(gctx, s.closeChannel)
	defer stopClosing()

	outcome := OutcomeAborted

	g.Go(func() error {
		return s.capture(gctx)
	})
	g.Go(func() error {
		o, err := s.receive(gctx)
		outcome = o
		if err == nil {
			// the session is over; unwind capture and the trigger
			cancelRun()
		}
		return err
	})
	g.Go(func() error {
		return s.awaitStop(gctx)
	})

	err := g.Wait()
	s.state.Store(StateDone)

	if err == nil && outcome == OutcomeAborted {
		err = ctx.Err()
	}

	res := s.result(outcome, start)
	if err != nil {
		log.Error("session: aborted", "err", err, "fragments", len(res.Transcript))
		return res, err
	}

	log.Info("session: over and out", "outcome", res.Outcome, "frames", res.FramesSent, "fragments", len(res.Transcript))
	return res, nil
}

func (s *Session) closeChannel() {
	s.closeOnce.Do(func() {
		if err := s.channel.Close(); err != nil {
			log.Debug("session: closing channel", "err", err)
		}
	})
}

func (s *Session) handshake() error {
	payload, err := s.config.Handshake.Marshal()
	if err != nil {
		return fmt.Errorf("encode handshake: %w", err)
	}
	if err := s.send(payload); err != nil {
		return transport.NewTransportError("send", err)
	}
	log.Debug("session: handshake sent",
		"language", s.config.Handshake.Language,
		"hotwords", s.config.Handshake.Hotwords,
		"manual_punctuation", s.config.Handshake.ManualPunctuation)
	return nil
}

// send serializes writers on the channel.
func (s *Session) send(payload []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.channel.Send(payload)
}

// capture pulls, encodes and sends frames until the stop signal is seen.
// The signal is checked before each pull, so one frame already in flight
// is still sent.
func (s *Session) capture(ctx context.Context) error {
	defer close(s.captureDone)
	defer func() {
		if err := s.source.Close(); err != nil {
			log.Warn("session: releasing frame source", "err", err)
		}
	}()

	if err := s.source.Open(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("open frame source: %w", err)
	}

	log.Info("session: recording...")
	for {
		if s.stop.Fired() {
			break
		}
		if ctx.Err() != nil {
			return nil
		}

		frame, err := s.source.NextFrame(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Info("session: frame source exhausted", "frames", s.framesSent.Load())
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("capture frame: %w", err)
		}

		payload, err := protocol.EncodeFrame(frame, s.config.Format, s.config.UID)
		if err != nil {
			return err
		}

		if err := s.send(payload); err != nil {
			if ctx.Err() != nil {
				// the session ended and closed the channel under us
				return nil
			}
			return transport.NewTransportError("send", err)
		}
		s.framesSent.Add(1)
	}

	log.Info("session: finished recording", "frames", s.framesSent.Load())
	return nil
}

// awaitStop is the only writer of the stop signal.
func (s *Session) awaitStop(ctx context.Context) error {
	if err := s.trigger.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("stop trigger: %w", err)
	}

	if !s.stop.Fire() {
		return nil
	}
	s.state.Store(StateDraining)
	log.Info("session: capture stop requested", "drain", s.config.DrainTimeout)

	if s.config.OrderedStop {
		select {
		case <-s.captureDone:
		case <-ctx.Done():
			return nil
		}
	}

	if err := s.send(protocol.NewStopMessage()); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return transport.NewTransportError("send", err)
	}
	s.stopSent.Store(true)
	return nil
}

// receive consumes inbound messages until the service reports completion or
// the drain interval after the stop signal runs out.
func (s *Session) receive(ctx context.Context) (Outcome, error) {
	for {
		wait := s.config.PollInterval

		if s.stop.Fired() {
			remaining := s.config.DrainTimeout - time.Since(s.stop.FiredAt())
			if remaining < 0 {
				log.Warn("session: no completion from service within drain timeout", "drain", s.config.DrainTimeout)
				return OutcomeDrainTimeout, nil
			}
			// wake up right after the deadline instead of up to one poll late
			if remaining < wait {
				wait = remaining + time.Millisecond
			}
		}

		raw, err := s.channel.Receive(ctx, wait)
		if errors.Is(err, transport.ErrReceiveTimeout) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return OutcomeAborted, nil
			}
			return OutcomeAborted, transport.NewTransportError("receive", err)
		}

		msg, err := protocol.ParseInbound(raw)
		if s.observer != nil {
			s.observer.MessageReceived(raw, msg)
		}
		if err != nil {
			return OutcomeAborted, err
		}

		if msg.HasTranscript {
			s.transcript.Append(msg.Transcript)
		}
		if msg.Finished {
			log.Info("session: service finished")
			return OutcomeFinished, nil
		}
	}
}

func (s *Session) result(outcome Outcome, start time.Time) *Result {
	return &Result{
		Outcome:    outcome,
		Transcript: s.transcript.Fragments(),
		FramesSent: int(s.framesSent.Load()),
		StopSent:   s.stopSent.Load(),
		StoppedAt:  s.stop.FiredAt(),
		Duration:   time.Since(start),
	}
}
