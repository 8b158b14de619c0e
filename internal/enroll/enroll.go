// Package enroll picks courses off the portal's course listing and submits an
// enrollment request for each of them.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coursepilot/internal/components/assert"
	"coursepilot/internal/components/chrono"
	"coursepilot/internal/components/telemetry"
	"coursepilot/internal/extract"
	"coursepilot/internal/portal"
	"coursepilot/internal/success"

	"github.com/antzucaro/matchr"
)

const (
	report_flow_list    = "flow.list"
	report_flow_filter  = "flow.filter"
	report_flow_submit  = "flow.submit"
	report_flow_confirm = "flow.confirm"

	report_count_listed    = "enroll.listed"
	report_count_targeted  = "enroll.targeted"
	report_count_succeeded = "enroll.succeeded"
)

// ErrListPage is returned when the course listing cannot be loaded, no
// submission is attempted in that case.
var ErrListPage = errors.New("course listing unavailable")

// hintThreshold is the minimum Jaro-Winkler similarity for an id to be
// suggested as a typo fix.
const hintThreshold = 0.8

// Submit describes the enrollment request.
type Submit struct {
	// Method defaults to GET.
	Method string
	// Path is where the fields are submitted to. With GET and no Path the
	// record's link is requested instead.
	Path   string
	Fields map[string]string
}

func (s Submit) method() string {
	method := strings.ToUpper(strings.TrimSpace(s.Method))
	if method == "" {
		return "GET"
	}
	return method
}

type Config struct {
	Enabled      bool
	ListPath     string
	ItemSelector string
	Parse        []extract.FieldRule
	Filter       FilterRule
	Submit       Submit
	// Keywords are looked for on the listing page after every submission.
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
		tel:    telemetry.NewScopedAPI("enroll", tel),
	}
}

// Run enrolls in every course selected by the filter, one at a time. Per
// course problems end up in the summary, only a listing failure or a
// cancelled context is returned as an error.
func (f Flow) Run(ctx context.Context) (success.Summary, error) {
	var summary success.Summary
	if !f.cfg.Enabled {
		f.tel.ReportInfo("enrollment disabled, skipping")
		return summary, nil
	}

	f.tel.ReportInfo("open course listing", "url", f.client.Resolve(f.cfg.ListPath))
	res, doc, err := f.client.Fetch(ctx, f.cfg.ListPath, "GET")
	if err != nil {
		f.tel.ReportBroken(report_flow_list, fmt.Errorf("fetch listing: %w", err))
		return summary, fmt.Errorf("enroll: %w: %w", ErrListPage, err)
	}
	if res.Failed() {
		err := fmt.Errorf("%w: status %d", ErrListPage, res.Status)
		f.tel.ReportBroken(report_flow_list, err, "url", res.Url)
		return summary, fmt.Errorf("enroll: %w", err)
	}

	records := extract.ExtractAll(doc.Selection, f.cfg.ItemSelector, f.cfg.Parse, f.client.Resolve)
	summary.Listed = len(records)
	f.tel.ReportCount(report_count_listed, int64(len(records)))
	f.reportMissingIds(records)

	targets := f.cfg.Filter.Select(records)
	f.tel.ReportCount(report_count_targeted, int64(len(targets)))
	f.tel.ReportInfo("courses selected", "listed", len(records), "targeted", len(targets))

	for i, record := range targets {
		f.tel.ReportInfo(
			"enroll",
			"progress", fmt.Sprintf("%d/%d", i+1, len(targets)),
			"id", record.Id(),
			"name", record.Name(),
		)

		attempt := f.attempt(ctx, record)

		err := f.pacer.Pause(ctx)
		if err != nil {
			summary.Attempts = append(summary.Attempts, attempt)
			return summary, err
		}

		if attempt.Outcome == success.OutcomeUnconfirmed {
			attempt = f.confirm(ctx, attempt)
		}
		summary.Attempts = append(summary.Attempts, attempt)
	}

	f.tel.ReportCount(report_count_succeeded, int64(summary.Count(success.OutcomeSucceeded)))
	return summary, nil
}

// attempt submits the enrollment request, a submission that went through is
// returned as unconfirmed.
func (f Flow) attempt(ctx context.Context, record extract.Record) success.Attempt {
	method := f.cfg.Submit.method()

	var res portal.Response
	var err error
	switch {
	case method == "GET" && f.cfg.Submit.Path == "":
		link := record.Link()
		if link == "" {
			f.tel.ReportWarning(report_flow_submit, fmt.Errorf("course %q has no link, skipping", record.Id()))
			return success.Attempt{Record: record, Outcome: success.OutcomeSkipped, Reason: "missing link"}
		}
		res, err = f.client.Get(ctx, link, nil, nil)
	case method == "GET":
		res, err = f.client.Get(ctx, f.cfg.Submit.Path, RenderFields(f.cfg.Submit.Fields, record), nil)
	default:
		res, err = f.client.Post(ctx, f.cfg.Submit.Path, RenderFields(f.cfg.Submit.Fields, record), nil)
	}

	if err != nil {
		f.tel.ReportWarning(report_flow_submit, fmt.Errorf("course %q: %w", record.Id(), err))
		return success.Attempt{Record: record, Outcome: success.OutcomeFailed, Reason: err.Error()}
	}
	if res.Failed() {
		f.tel.ReportWarning(report_flow_submit, fmt.Errorf("course %q: status %d", record.Id(), res.Status))
		return success.Attempt{Record: record, Outcome: success.OutcomeFailed, Reason: fmt.Sprintf("status %d", res.Status)}
	}
	return success.Attempt{Record: record, Outcome: success.OutcomeUnconfirmed}
}

// confirm reloads the course listing and looks for a success keyword.
func (f Flow) confirm(ctx context.Context, attempt success.Attempt) success.Attempt {
	res, err := f.client.Get(ctx, f.cfg.ListPath, nil, nil)
	if err != nil {
		f.tel.ReportWarning(report_flow_confirm, fmt.Errorf("reload listing: %w", err))
		attempt.Reason = "could not reload listing"
		return attempt
	}
	if !success.MatchKeywords(res.Body, f.cfg.Keywords) {
		f.tel.ReportWarning(report_flow_confirm, fmt.Errorf("course %q may not be enrolled, check the portal", attempt.Record.Id()))
		attempt.Reason = "no success keyword on listing"
		return attempt
	}
	f.tel.ReportInfo("enrolled", "id", attempt.Record.Id(), "name", attempt.Record.Name())
	attempt.Outcome = success.OutcomeSucceeded
	return attempt
}

// reportMissingIds warns about configured ids that are not on the listing
// and suggests the most similar listed id.
func (f Flow) reportMissingIds(records []extract.Record) {
	listed := make(map[string]bool, len(records))
	for _, record := range records {
		listed[record.Id()] = true
	}

	for _, id := range f.cfg.Filter.Ids {
		if listed[id] {
			continue
		}
		closest, ok := ClosestId(id, records)
		if ok {
			f.tel.ReportWarning(report_flow_filter, fmt.Errorf("course id %q is not listed", id), "did_you_mean", closest)
			continue
		}
		f.tel.ReportWarning(report_flow_filter, fmt.Errorf("course id %q is not listed", id))
	}
}

// ClosestId returns the listed id most similar to id, if any is similar
// enough.
func ClosestId(id string, records []extract.Record) (string, bool) {
	best := ""
	bestScore := 0.0
	for _, record := range records {
		candidate := record.Id()
		if candidate == "" {
			continue
		}
		score := matchr.JaroWinkler(id, candidate, false)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	if bestScore < hintThreshold {
		return "", false
	}
	return best, true
}
