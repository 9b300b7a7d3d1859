package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leonardotrapani/streamscribe/internal/protocol"
	"github.com/leonardotrapani/streamscribe/internal/recording"
	"github.com/leonardotrapani/streamscribe/internal/testutil"
	"github.com/leonardotrapani/streamscribe/internal/transport"
	"github.com/leonardotrapani/streamscribe/internal/trigger"
)

func testConfig() Config {
	c := DefaultConfig()
	c.DrainTimeout = 300 * time.Millisecond
	c.PollInterval = 10 * time.Millisecond
	return c
}

// 100ms of 16kHz mono audio
func testFrames(n int) [][]byte {
	frames := make([][]byte, n)
	for i := range frames {
		frames[i] = testutil.MockFrame(3200, byte(i))
	}
	return frames
}

func never() trigger.Trigger {
	return trigger.Channel(make(chan struct{}))
}

func immediately() trigger.Trigger {
	return trigger.Func(func(ctx context.Context) error { return nil })
}

// stopAfterAudio returns a trigger that fires once n audio frames were sent
// through ch, and installs the counting hook on ch.
func stopAfterAudio(ch *testutil.FakeChannel, n int64, onStop func()) trigger.Trigger {
	fire := make(chan struct{})
	var audio atomic.Int64
	var once sync.Once
	ch.OnSend = func(kind testutil.MessageKind, payload []byte) error {
		switch kind {
		case testutil.KindAudio:
			if audio.Add(1) == n {
				once.Do(func() { close(fire) })
			}
		case testutil.KindStop:
			if onStop != nil {
				onStop()
			}
		}
		return nil
	}
	return trigger.Channel(fire)
}

func run(t *testing.T, s *Session) (*Result, error) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	return s.Run(ctx)
}

func TestRun_NormalCompletion(t *testing.T) {
	ch := testutil.NewFakeChannel()
	src := &testutil.FakeSource{Frames: testFrames(2), Endless: true, FrameDelay: 5 * time.Millisecond}

	stop := stopAfterAudio(ch, 2, func() {
		ch.Push(`{"transcript":"hello"}`)
		ch.Push(`{"transcript":"world"}`)
		ch.Push(`{"finished":true}`)
	})

	res, err := run(t, New(ch, src, stop, testConfig()))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if res.Outcome != OutcomeFinished {
		t.Errorf("Outcome = %s, want %s", res.Outcome, OutcomeFinished)
	}
	if got := strings.Join(res.Transcript, "|"); got != "hello|world" {
		t.Errorf("Transcript = %q, want hello|world", got)
	}
	if !res.StopSent {
		t.Error("stop message was not sent")
	}
	if res.StoppedAt.IsZero() {
		t.Error("StoppedAt not set")
	}
	if res.FramesSent < 2 {
		t.Errorf("FramesSent = %d, want at least 2", res.FramesSent)
	}

	sent := ch.Sent()
	if testutil.Classify(sent[0]) != testutil.KindHandshake {
		t.Errorf("first message = %s, want handshake", sent[0])
	}
	if ch.Count(testutil.KindStop) != 1 {
		t.Errorf("stop messages = %d, want 1", ch.Count(testutil.KindStop))
	}
	if ch.Count(testutil.KindAudio) != res.FramesSent {
		t.Errorf("audio messages = %d, FramesSent = %d", ch.Count(testutil.KindAudio), res.FramesSent)
	}
	if ch.Closed() != 1 {
		t.Errorf("channel closed %d times, want 1", ch.Closed())
	}
	if src.Closed() != 1 {
		t.Errorf("source closed %d times, want 1", src.Closed())
	}
}

func TestRun_DrainTimeout(t *testing.T) {
	ch := testutil.NewFakeChannel()
	src := &testutil.FakeSource{Frames: testFrames(1), Endless: true, FrameDelay: 5 * time.Millisecond}
	cfg := testConfig()
	cfg.DrainTimeout = 100 * time.Millisecond

	start := time.Now()
	res, err := run(t, New(ch, src, immediately(), cfg))
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if res.Outcome != OutcomeDrainTimeout {
		t.Errorf("Outcome = %s, want %s", res.Outcome, OutcomeDrainTimeout)
	}
	if len(res.Transcript) != 0 {
		t.Errorf("Transcript = %v, want empty", res.Transcript)
	}
	if res.FramesSent > 1 {
		t.Errorf("FramesSent = %d, want at most 1", res.FramesSent)
	}
	if !res.StopSent {
		t.Error("stop message was not sent")
	}
	if elapsed < cfg.DrainTimeout {
		t.Errorf("returned after %v, before the drain interval", elapsed)
	}
	if elapsed > cfg.DrainTimeout+time.Second {
		t.Errorf("returned after %v, drain interval not honoured", elapsed)
	}
}

func TestRun_SendFailureKeepsPartialTranscript(t *testing.T) {
	ch := testutil.NewFakeChannel()
	src := &testutil.FakeSource{Frames: testFrames(5)}
	ch.Push(`{"transcript":"partial"}`)

	var s *Session
	var audio atomic.Int64
	ch.OnSend = func(kind testutil.MessageKind, payload []byte) error {
		if kind != testutil.KindAudio || audio.Add(1) != 2 {
			return nil
		}
		deadline := time.Now().Add(2 * time.Second)
		for s.Transcript().Len() == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		return errors.New("broken pipe")
	}

	s = New(ch, src, never(), testConfig())
	res, err := run(t, s)

	if !transport.IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if res == nil {
		t.Fatal("expected a partial result")
	}
	if res.Outcome != OutcomeAborted {
		t.Errorf("Outcome = %s, want %s", res.Outcome, OutcomeAborted)
	}
	if len(res.Transcript) != 1 || res.Transcript[0] != "partial" {
		t.Errorf("Transcript = %v, want [partial]", res.Transcript)
	}
	if res.FramesSent != 1 {
		t.Errorf("FramesSent = %d, want 1", res.FramesSent)
	}
	if src.Closed() != 1 {
		t.Errorf("source closed %d times, want 1", src.Closed())
	}
	if ch.Closed() != 1 {
		t.Errorf("channel closed %d times, want 1", ch.Closed())
	}
}

func TestRun_FinishedBeforeStop(t *testing.T) {
	ch := testutil.NewFakeChannel()
	src := &testutil.FakeSource{Frames: testFrames(1), Endless: true, FrameDelay: 5 * time.Millisecond}
	ch.Push(`{"transcript":"a"}`)
	ch.Push(`{"finished":true}`)

	start := time.Now()
	res, err := run(t, New(ch, src, never(), testConfig()))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("Run() took %v, capture was not released", time.Since(start))
	}

	if res.Outcome != OutcomeFinished {
		t.Errorf("Outcome = %s, want %s", res.Outcome, OutcomeFinished)
	}
	if len(res.Transcript) != 1 || res.Transcript[0] != "a" {
		t.Errorf("Transcript = %v, want [a]", res.Transcript)
	}
	if res.StopSent || ch.Count(testutil.KindStop) != 0 {
		t.Error("stop message sent without a stop trigger")
	}
	if !res.StoppedAt.IsZero() {
		t.Error("StoppedAt set without a stop trigger")
	}
	if src.Closed() != 1 {
		t.Errorf("source closed %d times, want 1", src.Closed())
	}
}

func TestRun_AtMostOneFrameAfterStop(t *testing.T) {
	for i := 0; i < 20; i++ {
		ch := testutil.NewFakeChannel()
		src := &testutil.FakeSource{Frames: testFrames(1), Endless: true}

		var s *Session
		var audio, late atomic.Int64
		fire := make(chan struct{})
		ch.OnSend = func(kind testutil.MessageKind, payload []byte) error {
			switch kind {
			case testutil.KindAudio:
				if s.stop.Fired() {
					late.Add(1)
				}
				if audio.Add(1) == 3 {
					close(fire)
				}
			case testutil.KindStop:
				ch.Push(`{"finished":true}`)
			}
			return nil
		}

		s = New(ch, src, trigger.Channel(fire), testConfig())
		if _, err := run(t, s); err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		if n := late.Load(); n > 1 {
			t.Fatalf("iteration %d: %d frames sent after stop, want at most 1", i, n)
		}
	}
}

func TestRun_TranscriptOrder(t *testing.T) {
	ch := testutil.NewFakeChannel()
	src := &testutil.FakeSource{Frames: testFrames(1), Hold: true}
	for _, m := range []string{
		`{"transcript":"one"}`,
		`{"transcript":""}`,
		`{"transcript":"two","confidence":0.9}`,
		`{"status":"processing"}`,
		`{"transcript":"three"}`,
		`{"finished":true}`,
	} {
		ch.Push(m)
	}

	s := New(ch, src, never(), testConfig())
	res, err := run(t, s)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := []string{"one", "", "two", "three"}
	if len(res.Transcript) != len(want) {
		t.Fatalf("Transcript = %q, want %q", res.Transcript, want)
	}
	for i := range want {
		if res.Transcript[i] != want[i] {
			t.Errorf("Transcript[%d] = %q, want %q", i, res.Transcript[i], want[i])
		}
	}
	if got := s.Transcript().Text(); got != "one two three" {
		t.Errorf("Text() = %q, want %q", got, "one two three")
	}
}

func TestRun_ObserverSeesEveryMessage(t *testing.T) {
	ch := testutil.NewFakeChannel()
	src := &testutil.FakeSource{Hold: true}
	ch.Push(`{"transcript":"x"}`)
	ch.Push(`{"info":"ignored"}`)
	ch.Push(`{"finished":true}`)

	var mu sync.Mutex
	var seen []string
	obs := ObserverFunc(func(raw []byte, msg *protocol.Inbound) {
		mu.Lock()
		seen = append(seen, string(raw))
		mu.Unlock()
	})

	if _, err := run(t, New(ch, src, never(), testConfig(), WithObserver(obs))); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("observer saw %d messages, want 3: %v", len(seen), seen)
	}
	if seen[1] != `{"info":"ignored"}` {
		t.Errorf("seen[1] = %s", seen[1])
	}
}

func TestRun_MalformedMessage(t *testing.T) {
	ch := testutil.NewFakeChannel()
	src := &testutil.FakeSource{Hold: true}
	ch.Push(`{"transcript":"before"}`)
	ch.Push(`not json`)

	var gotNil atomic.Bool
	obs := ObserverFunc(func(raw []byte, msg *protocol.Inbound) {
		if string(raw) == "not json" && msg == nil {
			gotNil.Store(true)
		}
	})

	res, err := run(t, New(ch, src, never(), testConfig(), WithObserver(obs)))
	if !protocol.IsProtocolError(err) {
		t.Fatalf("expected protocol error, got %v", err)
	}
	if !gotNil.Load() {
		t.Error("observer did not see the malformed message")
	}
	if res.Outcome != OutcomeAborted {
		t.Errorf("Outcome = %s, want %s", res.Outcome, OutcomeAborted)
	}
	if len(res.Transcript) != 1 {
		t.Errorf("Transcript = %v, want [before]", res.Transcript)
	}
}

func TestRun_EncodingError(t *testing.T) {
	ch := testutil.NewFakeChannel()
	src := &testutil.FakeSource{Frames: [][]byte{{1, 2, 3}}}

	res, err := run(t, New(ch, src, never(), testConfig()))
	if !protocol.IsEncodingError(err) {
		t.Fatalf("expected encoding error, got %v", err)
	}
	if res.FramesSent != 0 {
		t.Errorf("FramesSent = %d, want 0", res.FramesSent)
	}
	if src.Closed() != 1 {
		t.Errorf("source closed %d times, want 1", src.Closed())
	}
}

func TestRun_HandshakeFailure(t *testing.T) {
	ch := testutil.NewFakeChannel()
	ch.OnSend = func(kind testutil.MessageKind, payload []byte) error {
		if kind == testutil.KindHandshake {
			return errors.New("connection reset")
		}
		return nil
	}
	src := &testutil.FakeSource{Frames: testFrames(1)}

	res, err := run(t, New(ch, src, never(), testConfig()))
	if !transport.IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if res.Outcome != OutcomeAborted || res.FramesSent != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if src.Pulled() != 0 {
		t.Error("frames were captured after a failed handshake")
	}
	if ch.Closed() != 1 {
		t.Errorf("channel closed %d times, want 1", ch.Closed())
	}
}

func TestRun_HandshakeContent(t *testing.T) {
	ch := testutil.NewFakeChannel()
	ch.Push(`{"finished":true}`)
	cfg := testConfig()
	cfg.Handshake = protocol.Handshake{Language: "fr", Hotwords: "Paris", ManualPunctuation: true}

	if _, err := run(t, New(ch, &testutil.FakeSource{Hold: true}, never(), cfg)); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := `{"language":"fr","hotwords":"Paris","manual_punctuation":true}`
	if got := string(ch.Sent()[0]); got != want {
		t.Errorf("handshake = %s, want %s", got, want)
	}
}

func TestRun_ReceiveFailure(t *testing.T) {
	ch := testutil.NewFakeChannel()
	ch.ReceiveErr = errors.New("connection reset by peer")

	res, err := run(t, New(ch, &testutil.FakeSource{Hold: true}, never(), testConfig()))
	if !transport.IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if res.Outcome != OutcomeAborted {
		t.Errorf("Outcome = %s, want %s", res.Outcome, OutcomeAborted)
	}
}

func TestRun_SourceOpenFailure(t *testing.T) {
	ch := testutil.NewFakeChannel()
	src := &testutil.FakeSource{OpenErr: errors.New("no such device")}

	_, err := run(t, New(ch, src, never(), testConfig()))
	if err == nil || !strings.Contains(err.Error(), "open frame source") {
		t.Fatalf("expected open error, got %v", err)
	}
	if src.Closed() != 1 {
		t.Errorf("source closed %d times, want 1", src.Closed())
	}
}

func TestRun_TriggerFailure(t *testing.T) {
	ch := testutil.NewFakeChannel()
	failing := trigger.Func(func(ctx context.Context) error { return errors.New("boom") })

	_, err := run(t, New(ch, &testutil.FakeSource{Hold: true}, failing, testConfig()))
	if err == nil || !strings.Contains(err.Error(), "stop trigger") {
		t.Fatalf("expected trigger error, got %v", err)
	}
}

func TestRun_OrderedStop(t *testing.T) {
	ch := testutil.NewFakeChannel()
	src := &testutil.FakeSource{Frames: testFrames(1), Endless: true, FrameDelay: 5 * time.Millisecond}
	cfg := testConfig()
	cfg.OrderedStop = true

	stop := stopAfterAudio(ch, 2, func() { ch.Push(`{"finished":true}`) })

	if _, err := run(t, New(ch, src, stop, cfg)); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	sent := ch.Sent()
	last := testutil.Classify(sent[len(sent)-1])
	if last != testutil.KindStop {
		t.Errorf("last message = %s, want stop", last)
	}
}

func TestRun_ExternalCancel(t *testing.T) {
	ch := testutil.NewFakeChannel()
	src := &testutil.FakeSource{Frames: testFrames(1), Endless: true, FrameDelay: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	res, err := New(ch, src, never(), testConfig()).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.Outcome != OutcomeAborted {
		t.Errorf("Outcome = %s, want %s", res.Outcome, OutcomeAborted)
	}
	if src.Closed() != 1 || ch.Closed() != 1 {
		t.Errorf("resources not released: source=%d channel=%d", src.Closed(), ch.Closed())
	}
}

func TestRun_RecorderExitIsAFailure(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"pw-record", "pw-cli"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	ch := testutil.NewFakeChannel()
	recorder := recording.NewRecorder(recording.Config{SampleRate: 16000, FrameSamples: 1600})

	done := make(chan error, 1)
	go func() {
		_, err := run(t, New(ch, recorder, never(), testConfig()))
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, recording.ErrRecorderExited) {
			t.Fatalf("expected ErrRecorderExited, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run kept waiting after pw-record exited")
	}
	if recorder.IsRecording() {
		t.Error("recorder was not closed")
	}
	if ch.Closed() != 1 {
		t.Errorf("channel closed %d times, want 1", ch.Closed())
	}
}

func TestRun_StalledServiceEndsOnDrainTimeout(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	releaseServer := func() { once.Do(func() { close(release) }) }

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// accept the connection and never read from it
		<-release
	}))
	defer server.Close()
	defer releaseServer()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := transport.Dial(ctx, transport.Options{
		URL:          "ws" + strings.TrimPrefix(server.URL, "http"),
		WriteTimeout: time.Minute,
	})
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}

	src := &testutil.FakeSource{Frames: [][]byte{testutil.MockFrame(320*1024, 0)}, Endless: true}
	cfg := testConfig()
	cfg.DrainTimeout = 300 * time.Millisecond

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := New(ch, src, trigger.After(200*time.Millisecond), cfg).Run(ctx)
		done <- outcome{res, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			t.Fatalf("Run() error: %v", out.err)
		}
		if out.res.Outcome != OutcomeDrainTimeout {
			t.Errorf("Outcome = %s, want %s", out.res.Outcome, OutcomeDrainTimeout)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after the drain interval while a send was blocked")
	}
	if src.Closed() != 1 {
		t.Errorf("source closed %d times, want 1", src.Closed())
	}
}

func TestRun_OnlyOnce(t *testing.T) {
	ch := testutil.NewFakeChannel()
	ch.Push(`{"finished":true}`)
	s := New(ch, &testutil.FakeSource{Hold: true}, never(), testConfig())

	if _, err := run(t, s); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	if _, err := run(t, s); err == nil {
		t.Error("second Run() should fail")
	}
}

func TestStatus(t *testing.T) {
	ch := testutil.NewFakeChannel()
	src := &testutil.FakeSource{Frames: testFrames(1), Endless: true, FrameDelay: 5 * time.Millisecond}
	fire := make(chan struct{})
	s := New(ch, src, trigger.Channel(fire), testConfig())

	if got := s.Status().State; got != StateConnecting {
		t.Errorf("initial State = %s, want %s", got, StateConnecting)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		run(t, s)
	}()

	testutil.WaitForCondition(t, func() bool {
		st := s.Status()
		return st.State == StateStreaming && st.FramesSent > 0
	}, 2*time.Second)

	close(fire)
	testutil.WaitForCondition(t, func() bool { return s.Status().StopSent }, 2*time.Second)
	ch.Push(`{"transcript":"done"}`)
	ch.Push(`{"finished":true}`)
	<-done

	st := s.Status()
	if st.State != StateDone || st.Fragments != 1 || st.LastFragment != "done" {
		t.Errorf("final Status = %+v", st)
	}
}

func TestNew_FillsDefaults(t *testing.T) {
	s := New(testutil.NewFakeChannel(), &testutil.FakeSource{}, never(), Config{})
	if s.config.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", s.config.PollInterval)
	}
	if s.config.DrainTimeout != 20*time.Second {
		t.Errorf("DrainTimeout = %v, want 20s", s.config.DrainTimeout)
	}
}
