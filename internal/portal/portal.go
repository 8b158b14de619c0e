// Package portal is the http session every flow talks to the university portal
// through. It owns the cookie jar for the whole run.
package portal

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"coursepilot/internal/components/assert"
	"coursepilot/internal/components/telemetry"
	"coursepilot/pkg/htmlutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"
)

const (
	report_session_get   = "session.get"
	report_session_post  = "session.post"
	report_session_fetch = "session.fetch"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Response is the part of an http response the flows care about.
type Response struct {
	Status int
	// Url is the final url after following redirects.
	Url  string
	Body string
}

// Failed reports whether the status code is an http error.
func (r Response) Failed() bool {
	return r.Status >= 400
}

// Client is what the flows need from an http session.
type Client interface {
	Get(ctx context.Context, target string, params, headers map[string]string) (Response, error)
	Post(ctx context.Context, target string, data, headers map[string]string) (Response, error)
	// Fetch requests target with method and parses the body as html.
	Fetch(ctx context.Context, target, method string) (Response, *goquery.Document, error)
	// Resolve turns a path into an absolute url against the base url.
	Resolve(target string) string
}

type Options struct {
	BaseUrl   string
	UserAgent string
	Headers   map[string]string
	Timeout   time.Duration
	// RateLimit is the max number of requests per second, 0 disables it.
	RateLimit float64
	// CloudflareBypass wraps the transport to look like a regular browser.
	CloudflareBypass bool
	// Dump receives every http exchange, can be nil.
	Dump telemetry.InstrumentOutput
	// Trace starts an otel span for every request.
	Trace bool
}

// Session implements Client with resty and a cookie jar.
type Session struct {
	baseUrl string
	http    *resty.Client
	tel     telemetry.API
}

func NewSession(opts Options, tel telemetry.API) (*Session, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.BaseUrl)

	tel = telemetry.NewScopedAPI("portal", tel)

	baseUrl := strings.TrimRight(opts.BaseUrl, "/")
	parsedBaseUrl, err := url.Parse(baseUrl)
	if err != nil {
		return nil, err
	}
	if parsedBaseUrl.Scheme == "" || parsedBaseUrl.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseUrl)
	}

	httpClient := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetHeaders(opts.Headers)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient.SetTimeout(timeout)

	if opts.RateLimit > 0 {
		// max burst of 1 keeps requests evenly spread
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	if opts.Trace {
		telemetry.TraceResty(httpClient, "coursepilot/portal")
	}
	telemetry.InstrumentResty(httpClient, tel, opts.Dump)

	return &Session{
		baseUrl: baseUrl,
		http:    httpClient,
		tel:     tel,
	}, nil
}

// BaseUrl returns the base url without a trailing slash.
func (s *Session) BaseUrl() string {
	return s.baseUrl
}

func (s *Session) Resolve(target string) string {
	if target == "" {
		return s.baseUrl + "/"
	}
	return htmlutil.JoinBase(s.baseUrl, target)
}

func (s *Session) Get(ctx context.Context, target string, params, headers map[string]string) (Response, error) {
	endpoint := s.Resolve(target)

	res, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetHeaders(headers).
		Get(endpoint)
	if err != nil {
		s.tel.ReportBroken(report_session_get, fmt.Errorf("fetch: %w", err), endpoint)
		return Response{}, err
	}
	return toResponse(res), nil
}

func (s *Session) Post(ctx context.Context, target string, data, headers map[string]string) (Response, error) {
	endpoint := s.Resolve(target)

	res, err := s.http.R().
		SetContext(ctx).
		SetFormData(data).
		SetHeaders(headers).
		Post(endpoint)
	if err != nil {
		s.tel.ReportBroken(report_session_post, fmt.Errorf("fetch: %w", err), endpoint)
		return Response{}, err
	}
	return toResponse(res), nil
}

func (s *Session) Fetch(ctx context.Context, target, method string) (Response, *goquery.Document, error) {
	var res Response
	var err error
	if strings.EqualFold(method, "POST") {
		res, err = s.Post(ctx, target, nil, nil)
	} else {
		res, err = s.Get(ctx, target, nil, nil)
	}
	if err != nil {
		return Response{}, nil, err
	}

	doc, err := ParseDocument(res)
	if err != nil {
		s.tel.ReportBroken(report_session_fetch, fmt.Errorf("parse: %w", err), res.Url)
		return res, nil, err
	}
	return res, doc, nil
}

// ParseDocument parses the body of res, with the document url set to the
// final response url.
func ParseDocument(res Response) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Body))
	if err != nil {
		return nil, err
	}
	if parsed, err := url.Parse(res.Url); err == nil {
		doc.Url = parsed
	}
	return doc, nil
}

func toResponse(res *resty.Response) Response {
	finalUrl := res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil && res.RawResponse.Request.URL != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}
	return Response{
		Status: res.StatusCode(),
		Url:    finalUrl,
		Body:   decodeBody(res.Body(), res.Header().Get("content-type")),
	}
}

// decodeBody converts body into utf-8 according to the content type header or
// the <meta charset> of the document.
func decodeBody(body []byte, contentType string) string {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if enc == nil || name == "utf-8" || (!certain && utf8.Valid(body)) {
		return string(body)
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return string(bytes.ToValidUTF8(body, []byte("�")))
	}
	return string(decoded)
}
