package config

import (
	"strings"

	"coursepilot/internal/enroll"
	"coursepilot/internal/evaluate"
	"coursepilot/internal/extract"
	"coursepilot/internal/form"
	"coursepilot/internal/login"
	"coursepilot/internal/portal"
	"coursepilot/internal/success"
)

func (e *Enroll) enabled() bool {
	return e != nil && (e.Enabled == nil || *e.Enabled)
}

func (e *Evaluate) enabled() bool {
	return e != nil && (e.Enabled == nil || *e.Enabled)
}

// FieldRules converts the parse mapping, attributes default to "text".
func (p ParseRules) FieldRules() []extract.FieldRule {
	rules := make([]extract.FieldRule, 0, len(p))
	for _, rule := range p {
		rules = append(rules, extract.FieldRule{
			Name:     rule.Name,
			Selector: strings.TrimSpace(rule.Selector),
			Source:   extract.ParseSource(rule.Attr),
		})
	}
	return rules
}

func (c Config) PortalOptions() portal.Options {
	return portal.Options{
		BaseUrl:          c.Site.BaseUrl,
		UserAgent:        c.Site.Http.UserAgent,
		Headers:          c.Site.Http.Headers,
		Timeout:          c.Site.Http.Timeout.Std(),
		RateLimit:        c.Site.Http.RateLimit,
		CloudflareBypass: c.Site.Http.CloudflareBypass,
	}
}

func (c Config) LoginCredentials() login.Credentials {
	return login.Credentials{
		Username: c.Credentials.Username,
		Password: c.Credentials.Password,
	}
}

// LoginConfig returns nil when the portal needs no login.
func (l *Login) LoginConfig() *login.Config {
	if l == nil {
		return nil
	}

	var rules []extract.FieldRule
	for _, rule := range l.Extract {
		attr := rule.Attr
		if strings.TrimSpace(attr) == "" {
			attr = "value"
		}
		rules = append(rules, extract.FieldRule{
			Name:     rule.Name,
			Selector: strings.TrimSpace(rule.Selector),
			Source:   extract.ParseSource(attr),
		})
	}

	return &login.Config{
		PagePath:      l.PagePath,
		SubmitPath:    l.SubmitPath,
		SubmitMethod:  l.SubmitMethod,
		Headers:       l.Headers,
		UsernameField: l.Fields.UsernameField,
		PasswordField: l.Fields.PasswordField,
		Static:        l.Fields.Static,
		Extract:       rules,
		Success: success.Rule{
			Selector:     strings.TrimSpace(l.Success.CssSelector),
			RedirectPath: l.Success.RedirectPath,
			FailureText:  l.Failure.TextContains,
		},
	}
}

// EnrollConfig converts the section, a missing section is disabled and a
// missing submit section means GET on every course link.
func (e *Enroll) EnrollConfig() enroll.Config {
	if !e.enabled() {
		return enroll.Config{}
	}
	submit := enroll.Submit{Method: "GET"}
	if e.Submit != nil {
		submit = enroll.Submit{
			Method: e.Submit.Method,
			Path:   e.Submit.Path,
			Fields: e.Submit.Fields,
		}
	}
	return enroll.Config{
		Enabled:      true,
		ListPath:     e.ListPath,
		ItemSelector: strings.TrimSpace(e.ItemSelector),
		Parse:        e.Parse.FieldRules(),
		Filter: enroll.FilterRule{
			Ids:             e.Filter.Ids,
			IncludeKeywords: e.Filter.IncludeKeywords,
			ExcludeKeywords: e.Filter.ExcludeKeywords,
		},
		Submit:   submit,
		Keywords: e.Success.TextContains,
	}
}

func (e *Evaluate) EvaluateConfig() evaluate.Config {
	if !e.enabled() {
		return evaluate.Config{}
	}
	return evaluate.Config{
		Enabled:      true,
		ListPath:     e.ListPath,
		ItemSelector: strings.TrimSpace(e.ItemSelector),
		Parse:        e.Parse.FieldRules(),
		FormSelector: strings.TrimSpace(e.FormSelector),
		Strategy:     e.FillStrategy(),
		Keywords:     e.Success.TextContains,
	}
}

// FillStrategy is the configured strategy even when evaluation is disabled,
// without an evaluate section it is the default one.
func (e *Evaluate) FillStrategy() form.FillStrategy {
	if e == nil {
		return form.DefaultStrategy()
	}
	return form.FillStrategy{
		Radio:     e.Strategy.Radio,
		Checkbox:  e.Strategy.Checkbox,
		Select:    e.Strategy.Select,
		Textarea:  e.Strategy.Textarea,
		Overrides: e.Strategy.Overrides,
	}
}
