package cmd

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/spf13/cobra"

	"github.com/bugVanisher/srs-session/config"
)

var rootCmd = &cobra.Command{
	Use:          "srs-session",
	Short:        "Per-connection RTMP session server",
	Version:      "v1.0.0",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Flags-only bootstrap; serve re-applies once the config file's
		// logging section is loaded.
		applyLogging(config.Logging{})
	},
}

var (
	logLevel    string
	logFormat   string
	gracePeriod time.Duration
)

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (trace..panic)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override the configured log format (console or json)")
	rootCmd.PersistentFlags().DurationVar(&gracePeriod, "grace-period", 10*time.Second, "shutdown grace period for in-flight sessions")

	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// applyLogging configures the global zerolog logger from the config
// file's logging section, with the persistent flags taking precedence
// when set. Called once before any command runs and again by serve after
// the config store is loaded.
func applyLogging(cfg config.Logging) {
	if logLevel != "" {
		cfg.Level = logLevel
	}
	if logFormat != "" {
		cfg.Format = logFormat
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.DurationFieldUnit = time.Millisecond

	var w io.Writer = os.Stderr
	if !strings.EqualFold(cfg.Format, "json") {
		// Sub-second timestamps so interleaved per-session lines keep
		// their ordering when read by a human.
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if err != nil {
		log.Warn().Str("log_level", cfg.Level).Msg("unknown log level, using info")
	}
}
