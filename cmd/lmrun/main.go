package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"lmrun/internal/config"
	"lmrun/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	// cfg and log are filled by the root PersistentPreRunE.
	cfg config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "lmrun",
	Short:         "Run local GGUF language models",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c := config.Default()
		if cfgFile != "" {
			loaded, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			c = loaded
		}
		if cmd.Flags().Changed("log-level") {
			c.Log.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			c.Log.Format = logFormat
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c
		log = logging.Setup(cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", os.Getenv("LMRUN_CONFIG"), "config file (.yaml, .json or .toml)")
	pf.StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error, off")
	pf.StringVar(&logFormat, "log-format", "console", "log format: console or json")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}
