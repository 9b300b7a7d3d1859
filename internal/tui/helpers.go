package tui

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/streamscribe/internal/config"
	"github.com/leonardotrapani/streamscribe/internal/language"
)

func getLanguageOptions() []huh.Option[string] {
	var options []huh.Option[string]
	for _, lang := range language.List() {
		label := fmt.Sprintf("%s (%s)", lang.Name, lang.NativeName)
		if lang.Name == lang.NativeName {
			label = lang.Name
		}
		options = append(options, huh.NewOption(label, lang.Code))
	}
	return options
}

func validateServiceURL(s string) error {
	if s == "" {
		return errors.New("required")
	}
	u, err := url.Parse(s)
	if err != nil {
		return errors.New("not a valid URL")
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.New("must start with ws:// or wss://")
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return errors.New("must be a number")
	}
	if n <= 0 {
		return errors.New("must be greater than zero")
	}
	return nil
}

func positiveDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return errors.New("use a duration like 20s or 1m")
	}
	if d <= 0 {
		return errors.New("must be greater than zero")
	}
	return nil
}

func nonNegativeDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return errors.New("use a duration like 30s or 5m")
	}
	if d < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

func formatServerLabel(cfg *config.Config) string {
	if cfg.Server.URL == "" {
		return "Server (not configured)"
	}
	return fmt.Sprintf("Server (%s)", cfg.Server.URL)
}

func formatSessionLabel(cfg *config.Config) string {
	name := cfg.Session.Language
	if lang, ok := language.FromCode(cfg.Session.Language); ok {
		name = lang.Name
	}
	return fmt.Sprintf("Session (%s, drain %s)", name, cfg.Session.DrainTimeout)
}

func formatRecordingLabel(cfg *config.Config) string {
	device := cfg.Recording.Device
	if device == "" {
		device = "default device"
	}
	return fmt.Sprintf("Recording (%s, %d Hz)", device, cfg.Recording.SampleRate)
}

func formatDisplayLabel(cfg *config.Config) string {
	return fmt.Sprintf("Display & output (color %s, transcript %s)", cfg.Display.Color, cfg.Output.Mode)
}

func formatNotificationsLabel(cfg *config.Config) string {
	if !cfg.Notifications.Enabled {
		return "Notifications (off)"
	}
	return fmt.Sprintf("Notifications (%s)", cfg.Notifications.Type)
}

func maskKey(key string) string {
	if key == "" {
		return "(from " + config.EnvAPIKey + ")"
	}
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "…" + key[len(key)-4:]
}

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(StyleHeader.Render("Configuration Summary"))

	fmt.Printf("  %s %s\n", StyleLabel.Render("Server:"), cfg.Server.URL)
	fmt.Printf("  %s %s\n", StyleLabel.Render("API key:"), maskKey(cfg.Server.APIKey))
	if cfg.Server.InsecureSkipVerify {
		fmt.Printf("  %s\n", StyleWarning.Render("TLS verification disabled"))
	}
	fmt.Printf("  %s %s\n", StyleLabel.Render("Language:"), cfg.Session.Language)
	if cfg.Session.Hotwords != "" {
		fmt.Printf("  %s %s\n", StyleLabel.Render("Hotwords:"), cfg.Session.Hotwords)
	}
	fmt.Printf("  %s %s\n", StyleLabel.Render("Drain timeout:"), cfg.Session.DrainTimeout)
	if cfg.Recording.Timeout > 0 {
		fmt.Printf("  %s %s\n", StyleLabel.Render("Max recording:"), cfg.Recording.Timeout)
	}
	fmt.Printf("  %s %s\n", StyleLabel.Render("Notifications:"), formatNotificationsLabel(cfg))
	if cfg.Output.Mode != "" && cfg.Output.Mode != "none" {
		fmt.Printf("  %s %s\n", StyleLabel.Render("Transcript:"), cfg.Output.Mode)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Println()
		fmt.Println(StyleWarning.Render("Warning: " + err.Error()))
	} else {
		fmt.Println(StyleMuted.Render("  configuration is valid"))
	}
	fmt.Println()

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}

	return confirmed, nil
}
