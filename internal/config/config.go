// Package config is the declarative description of a portal: where its pages
// are, how to read them and how to submit its forms.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"coursepilot/internal/components/telemetry"
	"coursepilot/pkg/configutil"
)

type Credentials struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

type Pacing struct {
	Min Duration `json:"min" yaml:"min"`
	Max Duration `json:"max" yaml:"max"`
}

type Http struct {
	Timeout   Duration          `json:"timeout" yaml:"timeout"`
	UserAgent string            `json:"user_agent" yaml:"user_agent"`
	Headers   map[string]string `json:"headers" yaml:"headers"`
	// RateLimit is the max number of requests per second, 0 is unlimited.
	RateLimit        float64 `json:"rate_limit" yaml:"rate_limit"`
	CloudflareBypass bool    `json:"cloudflare_bypass" yaml:"cloudflare_bypass"`
}

type LoginFields struct {
	UsernameField string            `json:"username_field" yaml:"username_field"`
	PasswordField string            `json:"password_field" yaml:"password_field"`
	Static        map[string]string `json:"static" yaml:"static"`
}

type ExtractRule struct {
	Name     string `json:"name" yaml:"name"`
	Selector string `json:"selector" yaml:"selector"`
	// Attr defaults to "value".
	Attr string `json:"attr" yaml:"attr"`
}

type LoginSuccess struct {
	CssSelector  string `json:"css_selector" yaml:"css_selector"`
	RedirectPath string `json:"redirect_path" yaml:"redirect_path"`
}

type LoginFailure struct {
	TextContains string `json:"text_contains" yaml:"text_contains"`
}

type Login struct {
	PagePath     string            `json:"page_path" yaml:"page_path"`
	SubmitPath   string            `json:"submit_path" yaml:"submit_path"`
	SubmitMethod string            `json:"submit_method" yaml:"submit_method"`
	Headers      map[string]string `json:"headers" yaml:"headers"`
	Fields       LoginFields       `json:"fields" yaml:"fields"`
	Extract      []ExtractRule     `json:"extract" yaml:"extract"`
	Success      LoginSuccess      `json:"success" yaml:"success"`
	Failure      LoginFailure      `json:"failure" yaml:"failure"`
}

type Keywords struct {
	TextContains []string `json:"text_contains" yaml:"text_contains"`
}

type Filter struct {
	Ids             []string `json:"ids" yaml:"ids"`
	IncludeKeywords []string `json:"include_keywords" yaml:"include_keywords"`
	ExcludeKeywords []string `json:"exclude_keywords" yaml:"exclude_keywords"`
}

type Submit struct {
	Method string            `json:"method" yaml:"method"`
	Path   string            `json:"path" yaml:"path"`
	Fields map[string]string `json:"fields" yaml:"fields"`
}

type Enroll struct {
	// Enabled defaults to true when the section is present.
	Enabled      *bool      `json:"enabled" yaml:"enabled"`
	ListPath     string     `json:"list_path" yaml:"list_path"`
	ItemSelector string     `json:"item_selector" yaml:"item_selector"`
	Parse        ParseRules `json:"parse" yaml:"parse"`
	Filter       Filter     `json:"filter" yaml:"filter"`
	Submit       *Submit    `json:"submit" yaml:"submit"`
	Success      Keywords   `json:"success" yaml:"success"`
}

type Strategy struct {
	Radio     string            `json:"radio" yaml:"radio"`
	Checkbox  string            `json:"checkbox" yaml:"checkbox"`
	Select    string            `json:"select" yaml:"select"`
	Textarea  string            `json:"textarea" yaml:"textarea"`
	Overrides map[string]string `json:"overrides" yaml:"overrides"`
}

type Evaluate struct {
	Enabled      *bool      `json:"enabled" yaml:"enabled"`
	ListPath     string     `json:"list_path" yaml:"list_path"`
	ItemSelector string     `json:"item_selector" yaml:"item_selector"`
	Parse        ParseRules `json:"parse" yaml:"parse"`
	FormSelector string     `json:"form_selector" yaml:"form_selector"`
	Strategy     Strategy   `json:"strategy" yaml:"strategy"`
	Success      Keywords   `json:"success" yaml:"success"`
}

type Site struct {
	BaseUrl  string    `json:"base_url" yaml:"base_url"`
	Http     Http      `json:"http" yaml:"http"`
	Login    *Login    `json:"login" yaml:"login"`
	Enroll   *Enroll   `json:"enroll" yaml:"enroll"`
	Evaluate *Evaluate `json:"evaluate" yaml:"evaluate"`
}

type Email struct {
	SmtpServer string   `json:"smtp_server" yaml:"smtp_server"`
	SmtpPort   int      `json:"smtp_port" yaml:"smtp_port"`
	Address    string   `json:"address" yaml:"address"`
	Password   string   `json:"password" yaml:"password"`
	To         []string `json:"to" yaml:"to"`
}

type Notify struct {
	Email *Email `json:"email" yaml:"email"`
}

type Config struct {
	Credentials Credentials      `json:"credentials" yaml:"credentials"`
	Pacing      Pacing           `json:"pacing" yaml:"pacing"`
	Site        Site             `json:"site" yaml:"site"`
	Telemetry   telemetry.Config `json:"telemetry" yaml:"telemetry"`
	Notify      Notify           `json:"notify" yaml:"notify"`
}

// Load reads path and its `<name>.local.<ext>` override and validates the
// result.
func Load(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil {
		return Config{}, err
	}
	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadNearest is Load for a bare file name, it looks for name in the working
// directory and then in every parent directory up to the root.
func LoadNearest(name string) (Config, error) {
	cfg, err := configutil.ReadRecursively[Config](name)
	if err != nil {
		return Config{}, err
	}
	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func oneOf(field, value string, allowed ...string) error {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: %q is not one of %s", field, value, strings.Join(allowed, ", "))
}

// Validate returns every problem found in the config joined together.
func (c Config) Validate() error {
	var errs []error

	if c.Site.BaseUrl == "" {
		errs = append(errs, errors.New("site.base_url is required"))
	} else if parsed, err := url.Parse(c.Site.BaseUrl); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("site.base_url %q must be an absolute url", c.Site.BaseUrl))
	}
	if c.Site.Http.RateLimit < 0 {
		errs = append(errs, errors.New("site.http.rate_limit must not be negative"))
	}
	if c.Pacing.Min < 0 || c.Pacing.Max < 0 {
		errs = append(errs, errors.New("pacing durations must not be negative"))
	}

	if login := c.Site.Login; login != nil {
		if c.Credentials.Username == "" || c.Credentials.Password == "" {
			errs = append(errs, errors.New("credentials.username and credentials.password are required by site.login"))
		}
		errs = append(errs, oneOf("site.login.submit_method", login.SubmitMethod, "get", "post"))
	}
	if enroll := c.Site.Enroll; enroll.enabled() {
		if enroll.ItemSelector == "" {
			errs = append(errs, errors.New("site.enroll.item_selector is required"))
		}
		if enroll.Submit != nil {
			errs = append(errs, oneOf("site.enroll.submit.method", enroll.Submit.Method, "get", "post"))
		}
	}
	if evaluate := c.Site.Evaluate; evaluate.enabled() {
		if evaluate.ItemSelector == "" {
			errs = append(errs, errors.New("site.evaluate.item_selector is required"))
		}
		errs = append(errs,
			oneOf("site.evaluate.strategy.radio", evaluate.Strategy.Radio, "first", "last", "max"),
			oneOf("site.evaluate.strategy.checkbox", evaluate.Strategy.Checkbox, "none", "all"),
			oneOf("site.evaluate.strategy.select", evaluate.Strategy.Select, "first", "last"),
		)
	}
	if email := c.Notify.Email; email != nil {
		if email.SmtpServer == "" || email.Address == "" || len(email.To) == 0 {
			errs = append(errs, errors.New("notify.email needs smtp_server, address and to"))
		}
	}

	return errors.Join(errs...)
}
