package tui

import (
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/streamscribe/internal/config"
	"github.com/leonardotrapani/streamscribe/internal/language"
	"github.com/leonardotrapani/streamscribe/internal/output"
)

func editServer(cfg *config.Config) error {
	url := cfg.Server.URL
	apiKey := cfg.Server.APIKey
	userID := cfg.Server.UserID
	insecure := cfg.Server.InsecureSkipVerify

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Service URL").
				Description("Websocket endpoint of the transcription service (ws:// or wss://)").
				Placeholder("wss://asr.example.com/stream").
				Value(&url).
				Validate(validateServiceURL),
			huh.NewInput().
				Title("API Key").
				Description("Sent as a bearer token. Leave empty to use " + config.EnvAPIKey + ".").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
			huh.NewInput().
				Title("User ID").
				Description("Session identifier sent with every frame. Empty generates a random one.").
				Value(&userID),
			huh.NewConfirm().
				Title("Skip TLS certificate verification?").
				Description("Only for self-signed test deployments.").
				Affirmative("Skip").
				Negative("Verify").
				Value(&insecure),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Server.URL = url
	cfg.Server.APIKey = apiKey
	cfg.Server.UserID = userID
	cfg.Server.InsecureSkipVerify = insecure
	return nil
}

func editSession(cfg *config.Config) error {
	lang := cfg.Session.Language
	if !language.IsSupported(lang) {
		lang = language.Default.Code
	}
	hotwords := cfg.Session.Hotwords
	manualPunctuation := cfg.Session.ManualPunctuation
	drain := cfg.Session.DrainTimeout.String()
	orderedStop := cfg.Session.OrderedStop

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Language").
				Description("Language of the speech").
				Options(getLanguageOptions()...).
				Value(&lang),
			huh.NewInput().
				Title("Hotwords").
				Description("Words the service should favour, comma separated").
				Value(&hotwords),
			huh.NewConfirm().
				Title("Manual punctuation?").
				Description("Punctuation is dictated instead of inferred").
				Value(&manualPunctuation),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Drain Timeout").
				Description("How long to wait for the last transcript after recording stops").
				Placeholder("20s").
				Value(&drain).
				Validate(positiveDuration),
			huh.NewConfirm().
				Title("Send the stop message after the last frame?").
				Description("Otherwise the stop message may overtake one frame in flight").
				Value(&orderedStop),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Session.Language = lang
	cfg.Session.Hotwords = hotwords
	cfg.Session.ManualPunctuation = manualPunctuation
	cfg.Session.DrainTimeout, _ = time.ParseDuration(drain)
	cfg.Session.OrderedStop = orderedStop
	return nil
}

func editRecording(cfg *config.Config) error {
	device := cfg.Recording.Device
	sampleRate := strconv.Itoa(cfg.Recording.SampleRate)
	frameSamples := strconv.Itoa(cfg.Recording.FrameSamples)
	timeout := cfg.Recording.Timeout.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Device").
				Description("PipeWire target (empty = default microphone)").
				Value(&device),
			huh.NewInput().
				Title("Sample Rate (Hz)").
				Description("16000 is what the service expects").
				Placeholder("16000").
				Value(&sampleRate).
				Validate(positiveInt),
			huh.NewInput().
				Title("Frame Size (samples)").
				Description("Samples per audio message. 16000 at 16kHz is one second.").
				Placeholder("16000").
				Value(&frameSamples).
				Validate(positiveInt),
			huh.NewInput().
				Title("Maximum Recording Time").
				Description("Stop automatically after this long (0s = never)").
				Placeholder("0s").
				Value(&timeout).
				Validate(nonNegativeDuration),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Recording.Device = device
	cfg.Recording.SampleRate, _ = strconv.Atoi(sampleRate)
	cfg.Recording.FrameSamples, _ = strconv.Atoi(frameSamples)
	cfg.Recording.Timeout, _ = time.ParseDuration(timeout)
	return nil
}

func editDisplay(cfg *config.Config) error {
	color := cfg.Display.Color
	showRaw := cfg.Display.ShowRaw
	mode := cfg.Output.Mode

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color").
				Options(
					huh.NewOption("Auto-detect terminal", "auto"),
					huh.NewOption("Always", "always"),
					huh.NewOption("Never", "never"),
				).
				Value(&color),
			huh.NewConfirm().
				Title("Print raw service messages?").
				Value(&showRaw),
			huh.NewSelect[string]().
				Title("After the session").
				Description("Where the final transcript goes").
				Options(
					huh.NewOption("Print only", output.ModeNone),
					huh.NewOption("Copy to clipboard (wl-copy)", output.ModeClipboard),
					huh.NewOption("Type into focused window (wtype)", output.ModeType),
					huh.NewOption("Type, or copy if typing fails", output.ModeFallback),
				).
				Value(&mode),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Display.Color = color
	cfg.Display.ShowRaw = showRaw
	cfg.Output.Mode = mode
	return nil
}

func editNotifications(cfg *config.Config) error {
	enabled := cfg.Notifications.Enabled
	kind := cfg.Notifications.Type
	if kind == "" || kind == "none" {
		kind = "desktop"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Description("Announce when recording starts and the transcript is complete").
				Value(&enabled),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Notification Type").
				Options(
					huh.NewOption("Desktop (notify-send)", "desktop"),
					huh.NewOption("Log only", "log"),
				).
				Value(&kind),
		).WithHideFunc(func() bool { return !enabled }),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Notifications.Enabled = enabled
	if enabled {
		cfg.Notifications.Type = kind
	} else {
		cfg.Notifications.Type = "none"
	}
	return nil
}
