package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/streamscribe/internal/bus"
	"github.com/leonardotrapani/streamscribe/internal/config"
	"github.com/leonardotrapani/streamscribe/internal/deps"
	"github.com/leonardotrapani/streamscribe/internal/recording"
	"github.com/leonardotrapani/streamscribe/internal/tui"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	noColor bool
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "streamscribe",
	Short: "Stream microphone audio to a live transcription service",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(verbose, noColor)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		streamCmd(),
		stopCmd(),
		statusCmd(),
		versionCmd(),
		configureCmd(),
		doctorCmd(),
		configCmd(),
	)
}

func setupLogging(verbose, noColor bool) {
	log.SetReportTimestamp(true)
	log.SetTimeFormat(time.TimeOnly)
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
	if noColor {
		log.SetColorProfile(termenv.Ascii)
	}
}

func sendControl(cmd byte, action string) error {
	resp, err := bus.SendCommand(cmd)
	if errors.Is(err, bus.ErrNoSession) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	fmt.Print(resp)
	return nil
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop recording in the running session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendControl('q', "stop recording")
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the running session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendControl('s', "get status")
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get control protocol version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendControl('v', "get version")
		},
	}
}

func configureCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration wizard for streamscribe.
This will guide you through setting up:
- The transcription service URL and API key
- Language, hotwords and punctuation
- Recording device and limits
- Display and notification preferences`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default: user config dir)")

	return cmd
}

func runConfigure(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration wizard error: %w", err)
	}

	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Println(tui.StyleWarning.Render(fmt.Sprintf("Saving an incomplete configuration: %v", err)))
	}

	if err := config.Save(configPath, result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(tui.StyleSuccess.Render("Configuration saved successfully!"))
	fmt.Println()
	fmt.Println("Next Steps:")
	fmt.Println("1. Check your system: streamscribe doctor")
	fmt.Println("2. Start dictating: streamscribe stream")
	fmt.Println()

	if configPath == "" {
		configPath, _ = config.GetConfigPath()
	}
	fmt.Printf("Config file location: %s\n", configPath)
	return nil
}

func doctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external programs and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default: user config dir)")

	return cmd
}

func runDoctor(ctx context.Context, configPath string) error {
	ok := tui.StyleSuccess.Render("ok")
	missing := tui.StyleWarning.Render("missing")

	fmt.Println(tui.StyleHeader.Render("Programs"))
	statuses := deps.CheckAll()
	for _, s := range statuses {
		state := missing
		detail := s.Purpose
		if s.Installed {
			state = ok
			detail = s.Path
			if s.Version != "" {
				detail += " (" + s.Version + ")"
			}
		}
		fmt.Printf("  %-12s %s  %s\n", s.Name, state, tui.StyleMuted.Render(detail))
	}

	fmt.Println()
	fmt.Println(tui.StyleHeader.Render("Audio"))
	if err := recording.CheckPipeWireAvailable(ctx); err != nil {
		fmt.Printf("  pipewire     %s  %s\n", missing, tui.StyleMuted.Render(err.Error()))
	} else {
		fmt.Printf("  pipewire     %s\n", ok)
	}

	fmt.Println()
	fmt.Println(tui.StyleHeader.Render("Configuration"))
	cfg, err := config.LoadExisting(configPath)
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		fmt.Printf("  %s %v\n", missing, err)
	case err != nil:
		fmt.Printf("  %s %v\n", tui.StyleWarning.Render("unreadable:"), err)
		return err
	default:
		if err := cfg.Validate(); err != nil {
			fmt.Printf("  %s %v\n", tui.StyleWarning.Render("invalid:"), err)
		} else {
			fmt.Printf("  %s %s (%s)\n", ok, cfg.Server.URL, cfg.Session.Language)
		}
	}

	if names := deps.MissingRequired(statuses); len(names) > 0 {
		return fmt.Errorf("missing required programs: %v (file input with --input still works)", names)
	}
	return nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	})

	return cmd
}
