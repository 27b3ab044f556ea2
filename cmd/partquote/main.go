package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/philipparndt/partquote/internal/config"
	"github.com/philipparndt/partquote/version"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "partquote",
	Short: "Estimate CNC machining costs for STL and STEP parts",
	Long: `partquote reads part files, derives manufacturing metrics and estimates
the cost of CNC machining them. Binary and ASCII STL files are decoded,
STEP files receive surrogate metrics, and OpenSCAD sources are rendered
with the openscad tool first.

Estimates come from a language model when an API key is configured and
fall back to a deterministic cost model otherwise.`,
	Version:       version.GetFullVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
			Level(level).
			With().Timestamp().Logger()
		log.Logger = logger

		var err error
		cfg, err = config.Load(configPath)
		return err
	},
}

// componentLogger tags the root logger with a component name
func componentLogger(name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.partquote/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
