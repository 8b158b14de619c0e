// Package evaluate fills in and submits every pending course evaluation form
// listed on the portal.
package evaluate

import (
	"context"
	"errors"
	"fmt"

	"coursepilot/internal/components/assert"
	"coursepilot/internal/components/chrono"
	"coursepilot/internal/components/telemetry"
	"coursepilot/internal/extract"
	"coursepilot/internal/form"
	"coursepilot/internal/portal"
	"coursepilot/internal/success"
)

const (
	report_flow_list   = "flow.list"
	report_flow_detail = "flow.detail"
	report_flow_submit = "flow.submit"

	report_count_listed    = "evaluate.listed"
	report_count_succeeded = "evaluate.succeeded"
)

// ErrListPage is returned when the evaluation listing cannot be loaded.
var ErrListPage = errors.New("evaluation listing unavailable")

type Config struct {
	Enabled      bool
	ListPath     string
	ItemSelector string
	Parse        []extract.FieldRule
	// FormSelector locates the form on the detail page, defaults to "form".
	FormSelector string
	Strategy     form.FillStrategy
	// Keywords are looked for in the submission response.
	Keywords []string
}

type Flow struct {
	cfg    Config
	client portal.Client
	pacer  chrono.Pacer
	tel    telemetry.API
}

func NewFlow(cfg Config, client portal.Client, pacer chrono.Pacer, tel telemetry.API) Flow {
	assert.NotNil(client)
	assert.NotNil(pacer)
	assert.NotNil(tel)
	return Flow{
		cfg:    cfg,
		client: client,
		pacer:  pacer,
		tel:    telemetry.NewScopedAPI("evaluate", tel),
	}
}

func (f Flow) Run(ctx context.Context) (success.Summary, error) {
	var summary success.Summary
	if !f.cfg.Enabled {
		f.tel.ReportInfo("evaluation disabled, skipping")
		return summary, nil
	}

	f.tel.ReportInfo("open evaluation listing", "url", f.client.Resolve(f.cfg.ListPath))
	res, doc, err := f.client.Fetch(ctx, f.cfg.ListPath, "GET")
	if err != nil {
		f.tel.ReportBroken(report_flow_list, fmt.Errorf("fetch listing: %w", err))
		return summary, fmt.Errorf("evaluate: %w: %w", ErrListPage, err)
	}
	if res.Failed() {
		err := fmt.Errorf("%w: status %d", ErrListPage, res.Status)
		f.tel.ReportBroken(report_flow_list, err, "url", res.Url)
		return summary, fmt.Errorf("evaluate: %w", err)
	}

	items := extract.ExtractAll(doc.Selection, f.cfg.ItemSelector, f.cfg.Parse, f.client.Resolve)
	summary.Listed = len(items)
	f.tel.ReportCount(report_count_listed, int64(len(items)))
	f.tel.ReportInfo("evaluations found", "count", len(items))

	for i, item := range items {
		f.tel.ReportInfo(
			"evaluate",
			"progress", fmt.Sprintf("%d/%d", i+1, len(items)),
			"id", item.Id(),
			"name", item.Name(),
		)

		summary.Attempts = append(summary.Attempts, f.evaluate(ctx, item))

		err := f.pacer.Pause(ctx)
		if err != nil {
			return summary, err
		}
	}

	f.tel.ReportCount(report_count_succeeded, int64(summary.Count(success.OutcomeSucceeded)))
	return summary, nil
}

func (f Flow) evaluate(ctx context.Context, item extract.Record) success.Attempt {
	skip := func(reason string) success.Attempt {
		f.tel.ReportWarning(report_flow_detail, fmt.Errorf("%s, skipping", reason), "id", item.Id(), "name", item.Name())
		return success.Attempt{Record: item, Outcome: success.OutcomeSkipped, Reason: reason}
	}

	link := item.Link()
	if link == "" {
		return skip("missing link")
	}

	res, doc, err := f.client.Fetch(ctx, link, "GET")
	if err != nil {
		return skip(fmt.Sprintf("fetch detail page: %v", err))
	}
	if res.Failed() {
		return skip(fmt.Sprintf("detail page status %d", res.Status))
	}

	located, ok := form.Locate(doc, f.cfg.FormSelector)
	if !ok {
		return skip("no evaluation form")
	}

	payload := located.Build(f.cfg.Strategy)
	target := located.Target(res.Url)
	f.tel.ReportDebug("submit evaluation", "url", target, "method", located.Method, "fields", len(payload))

	if located.Method == "GET" {
		res, err = f.client.Get(ctx, target, payload, nil)
	} else {
		res, err = f.client.Post(ctx, target, payload, nil)
	}
	if err != nil {
		f.tel.ReportWarning(report_flow_submit, fmt.Errorf("submit %q: %w", item.Id(), err))
		return success.Attempt{Record: item, Outcome: success.OutcomeFailed, Reason: err.Error()}
	}
	if res.Failed() {
		f.tel.ReportWarning(report_flow_submit, fmt.Errorf("submit %q: status %d", item.Id(), res.Status))
		return success.Attempt{Record: item, Outcome: success.OutcomeFailed, Reason: fmt.Sprintf("status %d", res.Status)}
	}

	if !success.MatchKeywords(res.Body, f.cfg.Keywords) {
		f.tel.ReportWarning(report_flow_submit, fmt.Errorf("submission of %q not confirmed, check it manually", item.Id()))
		return success.Attempt{Record: item, Outcome: success.OutcomeUnconfirmed, Reason: "no success keyword in response"}
	}
	f.tel.ReportInfo("evaluation submitted", "id", item.Id(), "name", item.Name())
	return success.Attempt{Record: item, Outcome: success.OutcomeSucceeded}
}
