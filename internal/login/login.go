// Package login authenticates the portal session before any other flow runs.
package login

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coursepilot/internal/components/assert"
	"coursepilot/internal/components/telemetry"
	"coursepilot/internal/extract"
	"coursepilot/internal/portal"
	"coursepilot/internal/success"
)

const (
	report_flow_login     = "flow.login"
	report_flow_extract   = "flow.extract"
	report_flow_classify  = "flow.classify"
	report_flow_load_page = "flow.load-page"
)

var (
	// ErrLoginPage is returned when the login page answers with an http error.
	ErrLoginPage = errors.New("login page unavailable")
	// ErrLoginFailed is returned when the submission response does not look
	// like a logged in page.
	ErrLoginFailed = errors.New("login rejected")
)

const (
	DefaultUsernameField = "username"
	DefaultPasswordField = "password"
)

type Credentials struct {
	Username string
	Password string
}

// Config describes the login form of a portal.
type Config struct {
	// PagePath is fetched first to pick up dynamic tokens, optional.
	PagePath string
	// SubmitPath defaults to PagePath, then to "/".
	SubmitPath string
	// SubmitMethod is GET or POST (default).
	SubmitMethod string
	Headers      map[string]string

	UsernameField string
	PasswordField string
	Static        map[string]string

	// Extract is run over the whole login page, each rule takes the first
	// match in the document.
	Extract []extract.FieldRule

	// Success decides whether the submission response is a logged in page,
	// Keywords are ignored.
	Success success.Rule
}

func (c Config) submitPath() string {
	if c.SubmitPath != "" {
		return c.SubmitPath
	}
	if c.PagePath != "" {
		return c.PagePath
	}
	return "/"
}

func (c Config) submitMethod() string {
	method := strings.ToUpper(strings.TrimSpace(c.SubmitMethod))
	if method == "" {
		return "POST"
	}
	return method
}

func (c Config) usernameField() string {
	if c.UsernameField == "" {
		return DefaultUsernameField
	}
	return c.UsernameField
}

func (c Config) passwordField() string {
	if c.PasswordField == "" {
		return DefaultPasswordField
	}
	return c.PasswordField
}

type Flow struct {
	cfg    *Config
	creds  Credentials
	client portal.Client
	tel    telemetry.API
}

// NewFlow creates a login flow, a nil cfg means the portal needs no login.
func NewFlow(cfg *Config, creds Credentials, client portal.Client, tel telemetry.API) Flow {
	assert.NotNil(client)
	assert.NotNil(tel)
	return Flow{
		cfg:    cfg,
		creds:  creds,
		client: client,
		tel:    telemetry.NewScopedAPI("login", tel),
	}
}

// Login authenticates the session, it returns nil once the portal accepted
// the credentials.
func (f Flow) Login(ctx context.Context) error {
	if f.cfg == nil {
		f.tel.ReportDebug("no login configured, skipping")
		return nil
	}
	cfg := *f.cfg

	var tokens map[string]string
	if cfg.PagePath != "" {
		f.tel.ReportInfo("open login page", "url", f.client.Resolve(cfg.PagePath))
		res, doc, err := f.client.Fetch(ctx, cfg.PagePath, "GET")
		if err != nil {
			f.tel.ReportBroken(report_flow_load_page, fmt.Errorf("fetch login page: %w", err))
			return fmt.Errorf("login: %w", err)
		}
		if res.Failed() {
			err := fmt.Errorf("%w: status %d", ErrLoginPage, res.Status)
			f.tel.ReportBroken(report_flow_load_page, err, "url", res.Url)
			return fmt.Errorf("login: %w", err)
		}
		tokens = extract.ExtractFirst(doc, cfg.Extract)
		for _, rule := range cfg.Extract {
			if rule.Name != "" && tokens[rule.Name] == "" {
				f.tel.ReportWarning(report_flow_extract, fmt.Errorf("token %q not found on login page", rule.Name), "selector", rule.Selector)
			}
		}
	}

	payload, err := MergeFields(
		map[string]string{
			cfg.usernameField(): f.creds.Username,
			cfg.passwordField(): f.creds.Password,
		},
		cfg.Static,
		tokens,
	)
	if err != nil {
		f.tel.ReportBroken(report_flow_login, fmt.Errorf("merge fields: %w", err))
		return fmt.Errorf("login: %w", err)
	}

	submitPath := cfg.submitPath()
	f.tel.ReportInfo("submit login", "url", f.client.Resolve(submitPath), "method", cfg.submitMethod())

	var res portal.Response
	if cfg.submitMethod() == "POST" {
		res, err = f.client.Post(ctx, submitPath, payload, cfg.Headers)
	} else {
		res, err = f.client.Get(ctx, submitPath, payload, cfg.Headers)
	}
	if err != nil {
		f.tel.ReportBroken(report_flow_login, fmt.Errorf("submit: %w", err))
		return fmt.Errorf("login: %w", err)
	}

	doc, err := portal.ParseDocument(res)
	if err != nil {
		f.tel.ReportBroken(report_flow_classify, fmt.Errorf("parse response: %w", err))
	}

	rule := cfg.Success
	rule.Keywords = nil
	if !rule.Configured() {
		f.tel.ReportWarning(report_flow_classify, errors.New("no success check configured, assuming the login worked"), "url", res.Url, "status", res.Status)
	}
	verdict := rule.Classify(success.Response{
		Url:      res.Url,
		Body:     res.Body,
		Document: doc,
	})
	if !verdict.Ok {
		f.tel.ReportWarning(report_flow_classify, fmt.Errorf("%w: %s", ErrLoginFailed, verdict.Reason), "url", res.Url, "status", res.Status)
		return fmt.Errorf("login: %w: %s", ErrLoginFailed, verdict.Reason)
	}

	f.tel.ReportInfo("login succeeded", "url", res.Url)
	return nil
}
