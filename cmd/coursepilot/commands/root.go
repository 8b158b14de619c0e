package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"coursepilot/internal/components/telemetry"
	"coursepilot/internal/config"

	"github.com/spf13/cobra"
)

const (
	exitFailure = 1
	exitConfig  = 2
)

// exitError carries the process exit code of a failed command.
type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string {
	return e.err.Error()
}

func (e exitError) Unwrap() error {
	return e.err
}

func configError(err error) error {
	return exitError{code: exitConfig, err: err}
}

func failure(err error) error {
	return exitError{code: exitFailure, err: err}
}

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "coursepilot",
	Short:         "coursepilot logs into a university portal to enroll in courses and fill in course evaluations.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(os.Stderr, verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the portal config (yaml or json5).")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Print debug output, including every http request.")
}

// loadConfig reads the config given with -c, without the flag the default
// name is searched for from the working directory upwards.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if cmd.Flags().Changed("config") {
		return config.Load(configPath)
	}
	return config.LoadNearest(configPath)
}

// ExecuteContext runs the cli and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, err)

	var exit exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	// flag parsing and unknown commands
	return exitConfig
}
