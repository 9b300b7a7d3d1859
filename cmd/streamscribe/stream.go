package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/streamscribe/internal/bus"
	"github.com/leonardotrapani/streamscribe/internal/config"
	"github.com/leonardotrapani/streamscribe/internal/control"
	"github.com/leonardotrapani/streamscribe/internal/display"
	"github.com/leonardotrapani/streamscribe/internal/notify"
	"github.com/leonardotrapani/streamscribe/internal/output"
	"github.com/leonardotrapani/streamscribe/internal/recording"
	"github.com/leonardotrapani/streamscribe/internal/session"
	"github.com/leonardotrapani/streamscribe/internal/transport"
	"github.com/leonardotrapani/streamscribe/internal/trigger"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const stopPrompt = "Press Enter to stop...\n"

type streamOptions struct {
	configPath        string
	url               string
	apiKey            string
	language          string
	hotwords          string
	manualPunctuation bool
	insecure          bool
	drainTimeout      time.Duration
	maxDuration       time.Duration
	orderedStop       bool
	input             string
	realtime          bool
	stopFile          string
	output            string
}

func streamCmd() *cobra.Command {
	var opts streamOptions

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Record and stream audio until stopped, printing the transcript",
		Long: `Connects to the transcription service, streams one-second audio frames and
prints every message the service sends back. Recording stops on Enter, SIGINT/SIGTERM,
"streamscribe stop", the --stop-file appearing, --max-duration, or the end of --input.
The session then waits for the service to finish, bounded by the drain timeout, and
the transcript is optionally copied to the clipboard or typed (--output).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			applyOverrides(cfg, opts, cmd.Flags().Changed)
			if noColor {
				cfg.Display.Color = "never"
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runStream(cmd.Context(), cfg, opts, os.Stdin, os.Stdout)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "Config file path (default: user config dir)")
	f.StringVar(&opts.url, "url", "", "Service websocket URL")
	f.StringVar(&opts.apiKey, "key", "", "API key (default: config or "+config.EnvAPIKey+")")
	f.StringVarP(&opts.language, "language", "l", "", "Speech language (en, fr, it)")
	f.StringVar(&opts.hotwords, "hotwords", "", "Words the service should favour")
	f.BoolVar(&opts.manualPunctuation, "manual-punctuation", false, "Punctuation is dictated")
	f.BoolVar(&opts.insecure, "insecure", false, "Skip TLS certificate verification")
	f.DurationVar(&opts.drainTimeout, "drain-timeout", 0, "Wait this long for the service after recording stops")
	f.DurationVar(&opts.maxDuration, "max-duration", 0, "Stop recording automatically after this long")
	f.BoolVar(&opts.orderedStop, "ordered-stop", false, "Send the stop message only after the last frame")
	f.StringVarP(&opts.input, "input", "i", "", "Stream a 16-bit mono WAV file instead of the microphone")
	f.BoolVar(&opts.realtime, "realtime", true, "Pace --input frames at recording speed")
	f.StringVar(&opts.stopFile, "stop-file", "", "Stop recording when this file is created or written")
	f.StringVarP(&opts.output, "output", "o", "", "Hand the transcript to the desktop: none, clipboard, type, fallback")

	return cmd
}

// applyOverrides copies explicitly set flags over the file configuration.
func applyOverrides(cfg *config.Config, opts streamOptions, changed func(string) bool) {
	if changed("url") {
		cfg.Server.URL = opts.url
	}
	if changed("key") {
		cfg.Server.APIKey = opts.apiKey
	}
	if changed("insecure") {
		cfg.Server.InsecureSkipVerify = opts.insecure
	}
	if changed("language") {
		cfg.Session.Language = opts.language
	}
	if changed("hotwords") {
		cfg.Session.Hotwords = opts.hotwords
	}
	if changed("manual-punctuation") {
		cfg.Session.ManualPunctuation = opts.manualPunctuation
	}
	if changed("drain-timeout") {
		cfg.Session.DrainTimeout = opts.drainTimeout
	}
	if changed("ordered-stop") {
		cfg.Session.OrderedStop = opts.orderedStop
	}
	if changed("max-duration") {
		cfg.Recording.Timeout = opts.maxDuration
	}
	if changed("output") {
		cfg.Output.Mode = opts.output
	}
}

func runStream(ctx context.Context, cfg *config.Config, opts streamOptions, stdin io.Reader, stdout io.Writer) error {
	notifier := notify.New(cfg.Notifications.Type, cfg.Notifications.Enabled)
	printer := display.NewPrinter(stdout, cfg.Display.Color, cfg.Display.ShowRaw)

	var current atomic.Pointer[session.Session]

	paths, err := bus.DefaultPaths()
	if err != nil {
		return err
	}
	ctl := control.New(paths, func() session.Status {
		if s := current.Load(); s != nil {
			return s.Status()
		}
		return session.Status{State: session.StateConnecting}
	})
	if err := ctl.Start(); err != nil {
		return err
	}
	defer ctl.Close()

	source, triggers, err := buildSource(ctx, cfg, opts, stdin)
	if err != nil {
		return err
	}
	triggers = append(triggers,
		trigger.Signal(os.Interrupt, syscall.SIGTERM),
		trigger.Channel(ctl.StopRequested()),
	)
	if opts.stopFile != "" {
		triggers = append(triggers, trigger.File(opts.stopFile))
	}
	if cfg.Recording.Timeout > 0 {
		triggers = append(triggers, trigger.After(cfg.Recording.Timeout))
	}

	stop := trigger.Any(triggers...)
	announced := trigger.Func(func(ctx context.Context) error {
		if err := stop.Wait(ctx); err != nil {
			return err
		}
		notifier.CaptureStopped()
		return nil
	})

	log.Info("stream: connecting", "url", cfg.Server.URL, "language", cfg.Session.Language)
	ch, err := transport.Dial(ctx, cfg.ToDialOptions())
	if err != nil {
		_ = source.Close()
		notifier.Error(err.Error())
		return err
	}

	s := session.New(ch, source, announced, cfg.ToSessionConfig(), session.WithObserver(printer))
	current.Store(s)

	notifier.SessionStarted()
	res, err := s.Run(ctx)
	printer.Summary(res)
	if err != nil {
		notifier.Error(err.Error())
		return err
	}

	notifier.SessionFinished(string(res.Outcome), len(res.Transcript))

	if text := res.Text(); text != "" {
		if err := output.New(cfg.ToOutputConfig()).Deliver(ctx, text); err != nil {
			log.Warn("stream: transcript not delivered", "mode", cfg.Output.Mode, "err", err)
			notifier.Error(err.Error())
		}
	}
	return nil
}

// buildSource picks the microphone or a WAV file, along with the stop
// triggers that belong to that source.
func buildSource(ctx context.Context, cfg *config.Config, opts streamOptions, stdin io.Reader) (recording.FrameSource, []trigger.Trigger, error) {
	recCfg := cfg.ToRecordingConfig()

	var triggers []trigger.Trigger
	if isTerminal(stdin) {
		triggers = append(triggers, trigger.Enter(stdin, os.Stderr, stopPrompt))
	}

	if opts.input != "" {
		fs := recording.NewFileSource(opts.input, recCfg, opts.realtime)
		return fs, append(triggers, trigger.Channel(fs.Done())), nil
	}

	if err := recording.CheckPipeWireAvailable(ctx); err != nil {
		return nil, nil, err
	}
	if len(triggers) == 0 {
		log.Warn("stream: stdin is not a terminal, stop with SIGINT or streamscribe stop")
	}
	return recording.NewRecorder(recCfg), triggers, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
