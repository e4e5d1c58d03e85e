package cmd

import (
	"io"
	"os"
	"time"

	"github.com/kerbaras/comics/pkg/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	settings config.Settings
	logger   zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "comics",
	Short: "Download comics and manga into CBZ, PDF or EPUB archives",
	Long:  "Download every issue of a comic from a supported site and package each one into its own archive",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		settings = loaded
		logger = newLogger(os.Stderr)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every page")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(historyCmd)
}

func newLogger(out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
