// Package runner wires one run of the tool together: it opens the portal
// session, logs in and then runs the selected flows in order.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"coursepilot/internal/components/assert"
	"coursepilot/internal/components/chrono"
	"coursepilot/internal/components/telemetry"
	"coursepilot/internal/config"
	"coursepilot/internal/enroll"
	"coursepilot/internal/evaluate"
	"coursepilot/internal/login"
	"coursepilot/internal/notify"
	"coursepilot/internal/portal"
	"coursepilot/internal/success"

	"github.com/mazen160/go-random"
)

const (
	report_runner_run    = "runner.run"
	report_runner_notify = "runner.notify"
)

// ErrLogin means the run stopped before any flow because login failed.
var ErrLogin = errors.New("login failed")

type Mode int

const (
	ModeAll Mode = iota
	ModeEnroll
	ModeEvaluate
)

func (m Mode) String() string {
	switch m {
	case ModeEnroll:
		return "enroll"
	case ModeEvaluate:
		return "evaluate"
	}
	return "all"
}

func (m Mode) enroll() bool {
	return m == ModeAll || m == ModeEnroll
}

func (m Mode) evaluate() bool {
	return m == ModeAll || m == ModeEvaluate
}

type Options struct {
	Mode Mode
	// DumpDir receives every http exchange of the run under a directory named
	// after the run id, empty disables dumping.
	DumpDir string
	// Trace creates an otel span for every request.
	Trace bool
	// Notifier receives the run report, nil disables it.
	Notifier notify.Notifier
	// Time defaults to the system clock.
	Time chrono.TimeAPI
}

// Report is everything a run did.
type Report struct {
	RunId    string
	Mode     Mode
	Started  time.Time
	Finished time.Time
	// Enroll and Evaluate are nil when the flow did not run.
	Enroll   *success.Summary
	Evaluate *success.Summary
	Errors   []error
}

func (r Report) Failed() bool {
	return len(r.Errors) > 0
}

type Runner struct {
	cfg  config.Config
	opts Options
	time chrono.TimeAPI
	tel  telemetry.API
}

func New(cfg config.Config, opts Options, tel telemetry.API) Runner {
	assert.NotNil(tel)
	t := opts.Time
	if t == nil {
		t = chrono.NewStandardTime()
	}
	return Runner{
		cfg:  cfg,
		opts: opts,
		time: t,
		tel:  telemetry.NewScopedAPI("runner", tel),
	}
}

func newRunId() string {
	id, err := random.String(8)
	if err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return id
}

// NewSession opens the portal session described by cfg.
func NewSession(cfg config.Config, dumpDir string, trace bool, tel telemetry.API) (*portal.Session, error) {
	opts := cfg.PortalOptions()
	opts.Trace = trace
	if dumpDir != "" {
		output, err := telemetry.NewFilesystemOutput(dumpDir)
		if err != nil {
			return nil, fmt.Errorf("create dump directory: %w", err)
		}
		opts.Dump = output
	}
	return portal.NewSession(opts, tel)
}

// Run executes the flows selected by the mode. The returned error is ErrLogin
// (wrapped) when nothing ran, or the joined flow errors otherwise.
func (r Runner) Run(ctx context.Context) (Report, error) {
	report := Report{
		RunId:   newRunId(),
		Mode:    r.opts.Mode,
		Started: r.time.Now(),
	}
	r.tel.ReportInfo("starting run", "run_id", report.RunId, "mode", report.Mode.String())

	dumpDir := ""
	if r.opts.DumpDir != "" {
		dumpDir = filepath.Join(r.opts.DumpDir, report.RunId)
	}
	session, err := NewSession(r.cfg, dumpDir, r.opts.Trace, r.tel)
	if err != nil {
		r.tel.ReportBroken(report_runner_run, fmt.Errorf("open session: %w", err))
		return report, err
	}

	loginFlow := login.NewFlow(r.cfg.Site.Login.LoginConfig(), r.cfg.LoginCredentials(), session, r.tel)
	err = loginFlow.Login(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrLogin, err)
		report.Errors = append(report.Errors, err)
		report.Finished = r.time.Now()
		r.notify(ctx, report)
		return report, err
	}

	pacer := chrono.NewRandomPacer(r.time, r.cfg.Pacing.Min.Std(), r.cfg.Pacing.Max.Std())

	if r.opts.Mode.enroll() && ctx.Err() == nil {
		flow := enroll.NewFlow(r.cfg.Site.Enroll.EnrollConfig(), session, pacer, r.tel)
		summary, err := flow.Run(ctx)
		report.Enroll = &summary
		if err != nil {
			report.Errors = append(report.Errors, err)
		}
	}
	if r.opts.Mode.evaluate() && ctx.Err() == nil {
		flow := evaluate.NewFlow(r.cfg.Site.Evaluate.EvaluateConfig(), session, pacer, r.tel)
		summary, err := flow.Run(ctx)
		report.Evaluate = &summary
		if err != nil {
			report.Errors = append(report.Errors, err)
		}
	}

	report.Finished = r.time.Now()
	r.tel.ReportInfo("run finished", "run_id", report.RunId, "took", report.Finished.Sub(report.Started).Round(time.Millisecond).String())
	r.notify(ctx, report)
	return report, errors.Join(report.Errors...)
}

func (r Runner) notify(ctx context.Context, report Report) {
	if r.opts.Notifier == nil {
		return
	}
	subject := fmt.Sprintf("coursepilot %s run %s", report.Mode, report.RunId)
	if report.Failed() {
		subject += " (failed)"
	}
	err := r.opts.Notifier.Notify(ctx, subject, RenderText(report))
	if err != nil {
		r.tel.ReportWarning(report_runner_notify, err)
	}
}
