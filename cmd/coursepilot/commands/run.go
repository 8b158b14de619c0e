package commands

import (
	"context"
	"log/slog"
	"time"

	"coursepilot/internal/components/chrono"
	"coursepilot/internal/components/telemetry"
	"coursepilot/internal/config"
	"coursepilot/internal/notify"
	"coursepilot/internal/runner"

	"github.com/spf13/cobra"
)

var (
	startAt string
	dumpDir string
)

func init() {
	for _, cmd := range []*cobra.Command{runCmd, enrollCmd, evaluateCmd} {
		cmd.Flags().StringVar(&startAt, "at", "", `Wait until this local time before starting, "YYYY-MM-DD HH:MM:SS".`)
		cmd.Flags().StringVar(&dumpDir, "dump", "", "Write every http exchange of the run into this directory.")
		rootCmd.AddCommand(cmd)
	}
}

var runCmd = &cobra.Command{
	Use:   "run [-c config.yaml] [--at <time>]",
	Short: "Logs in, enrolls in the configured courses and then fills in every pending evaluation.",
	Args:  cobra.NoArgs,
	RunE:  runMode(runner.ModeAll),
}

var enrollCmd = &cobra.Command{
	Use:   "enroll [-c config.yaml] [--at <time>]",
	Short: "Logs in and enrolls in the configured courses.",
	Args:  cobra.NoArgs,
	RunE:  runMode(runner.ModeEnroll),
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [-c config.yaml] [--at <time>]",
	Short: "Logs in and fills in every pending course evaluation.",
	Args:  cobra.NoArgs,
	RunE:  runMode(runner.ModeEvaluate),
}

// setupTelemetry returns the api every component reports to and a function
// flushing any exporters.
func setupTelemetry(ctx context.Context, cfg config.Config) (telemetry.API, bool, func()) {
	var tel telemetry.API = telemetry.SlogAPI{}
	if !cfg.Telemetry.Enabled() {
		return tel, false, func() {}
	}

	providers, err := telemetry.Setup(ctx, "coursepilot", cfg.Telemetry)
	if err != nil {
		slog.Warn("failed to setup otel, continuing without it", "err", err)
		return tel, false, func() {}
	}
	telemetry.InstrumentPerfStats(ctx)

	otelTel, err := telemetry.NewOtelAPI(tel)
	if err == nil {
		tel = otelTel
	}
	return tel, true, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := providers.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}
}

func newNotifier(cfg config.Config, tel telemetry.API) notify.Notifier {
	email := cfg.Notify.Email
	if email == nil {
		return nil
	}
	return notify.NewEmail(notify.EmailConfig{
		Server:   email.SmtpServer,
		Port:     email.SmtpPort,
		Address:  email.Address,
		Password: email.Password,
		To:       email.To,
	}, tel)
}

func waitForStart(ctx context.Context, at string) error {
	if at == "" {
		return nil
	}
	target, err := chrono.ParseWallClock(at)
	if err != nil {
		return configError(err)
	}
	clock := chrono.NewStandardTime()
	remaining := chrono.Until(clock, target)
	if remaining > 0 {
		slog.Info("waiting for start time", "at", target.Format(time.DateTime), "remaining", remaining.Round(time.Second).String())
	}
	err = chrono.WaitUntil(ctx, clock, target)
	if err != nil {
		return failure(err)
	}
	return nil
}

func runMode(mode runner.Mode) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return configError(err)
		}

		tel, traced, flush := setupTelemetry(ctx, cfg)
		defer flush()

		err = waitForStart(ctx, startAt)
		if err != nil {
			return err
		}

		r := runner.New(cfg, runner.Options{
			Mode:     mode,
			DumpDir:  dumpDir,
			Trace:    traced,
			Notifier: newNotifier(cfg, tel),
		}, tel)
		report, err := r.Run(ctx)
		runner.Render(cmd.OutOrStdout(), report)
		if err != nil {
			return failure(err)
		}
		return nil
	}
}
