// Package trigger provides single-shot events that end the capture phase of a
// streaming session.
package trigger

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
)

// Trigger waits for one external event. Wait returns nil when the event
// happened and ctx.Err() when ctx ended first.
type Trigger interface {
	Wait(ctx context.Context) error
}

// Func adapts an ordinary function to Trigger.
type Func func(ctx context.Context) error

func (f Func) Wait(ctx context.Context) error { return f(ctx) }

// Channel fires when ch is closed or receives a value.
func Channel(ch <-chan struct{}) Trigger {
	return Func(func(ctx context.Context) error {
		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// After fires once d has elapsed. A non-positive d never fires.
func After(d time.Duration) Trigger {
	return Func(func(ctx context.Context) error {
		if d <= 0 {
			<-ctx.Done()
			return ctx.Err()
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			log.Info("trigger: maximum recording duration reached", "after", d)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// Signal fires on the first of the given OS signals.
func Signal(sigs ...os.Signal) Trigger {
	return Func(func(ctx context.Context) error {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, sigs...)
		defer signal.Stop(ch)

		select {
		case sig := <-ch:
			log.Info("trigger: received signal", "signal", sig)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// Enter prints prompt to w (when non-nil) and fires once a line is read
// from r. End of input also fires it. The read cannot be interrupted, so a
// cancelled Wait leaves the reading goroutine parked until r yields.
func Enter(r io.Reader, w io.Writer, prompt string) Trigger {
	return Func(func(ctx context.Context) error {
		if w != nil && prompt != "" {
			fmt.Fprintln(w, prompt)
		}

		line := make(chan struct{})
		go func() {
			_, err := bufio.NewReader(r).ReadString('\n')
			if err != nil && err != io.EOF {
				log.Warn("trigger: reading input", "err", err)
			}
			close(line)
		}()

		select {
		case <-line:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// Any fires as soon as one of triggers fires. The others are cancelled.
func Any(triggers ...Trigger) Trigger {
	return Func(func(ctx context.Context) error {
		if len(triggers) == 0 {
			<-ctx.Done()
			return ctx.Err()
		}

		anyCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		fired := make(chan struct{}, len(triggers))
		for _, t := range triggers {
			go func(t Trigger) {
				err := t.Wait(anyCtx)
				if err == nil {
					fired <- struct{}{}
					return
				}
				if anyCtx.Err() == nil {
					log.Warn("trigger: source failed", "err", err)
				}
			}(t)
		}

		select {
		case <-fired:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
