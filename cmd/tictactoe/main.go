// Command tictactoe serves, plays and solves tic-tac-toe with a perfect
// minimax opponent.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	cfgPath string
	cfg     *config.Config

	rootCmd = &cobra.Command{
		Use:           "tictactoe",
		Short:         "Play tic-tac-toe against a solver that never loses",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(cfgPath, cmd.Flags())
			if err != nil {
				return err
			}
			cfg = c
			setupLogging(cfg.Level())
			if cfg.File != "" {
				log.Debug().Str("file", cfg.File).Msg("loaded config")
			}
			return nil
		},
	}
)

func setupLogging(level zerolog.Level) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default $XDG_CONFIG_HOME/tictactoe/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().Int("workers", 1, "root moves searched in parallel (0 = one per CPU)")
	rootCmd.PersistentFlags().String("selection", "minimax", "move selection policy: minimax or ascending")

	rootCmd.AddCommand(serveCmd, playCmd, solveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
