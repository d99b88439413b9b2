// Package cmd is the networked command line: the API server plus the
// maintenance commands around it.
package cmd

import (
	"fmt"
	"os"

	"networked/config"
	"networked/logger"

	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "networked",
	Short:         "Professional networking backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load before the environment")
	rootCmd.AddCommand(serveCmd, seedCmd, vapidCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads the configuration and installs the process logger. The
// returned func flushes the logger.
func setup() (*config.Config, func(), error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	flush, err := logger.Init(cfg.GinMode)
	if err != nil {
		return nil, nil, err
	}
	return cfg, flush, nil
}
