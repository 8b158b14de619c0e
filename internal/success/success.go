// Package success classifies portal responses as success or failure using
// configurable heuristics.
package success

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Rule combines heuristic checks with AND semantics, a zero value check is
// not performed.
type Rule struct {
	// Selector must match at least one element of the response document.
	Selector string
	// RedirectPath must be a substring of the final response url.
	RedirectPath string
	// FailureText found in the body forces a failure.
	FailureText string
	// Keywords requires at least one of them in the body.
	Keywords []string
}

// Configured reports whether any check would run.
func (r Rule) Configured() bool {
	return r.Selector != "" || r.RedirectPath != "" || r.FailureText != "" || len(nonEmpty(r.Keywords)) > 0
}

// Response is what Classify inspects.
type Response struct {
	Url      string
	Body     string
	Document *goquery.Document
}

// Verdict explains a classification.
type Verdict struct {
	Ok bool
	// Reason names the check that failed, empty when Ok.
	Reason string
}

// Classify runs every configured check against res.
func (r Rule) Classify(res Response) Verdict {
	if r.FailureText != "" && strings.Contains(res.Body, r.FailureText) {
		return Verdict{Reason: "failure text present"}
	}
	if r.Selector != "" {
		if res.Document == nil || res.Document.Find(r.Selector).Length() == 0 {
			return Verdict{Reason: "success selector not found"}
		}
	}
	if r.RedirectPath != "" && !strings.Contains(res.Url, r.RedirectPath) {
		return Verdict{Reason: "redirect path not reached"}
	}
	if len(nonEmpty(r.Keywords)) > 0 && !MatchKeywords(res.Body, r.Keywords) {
		return Verdict{Reason: "no success keyword in response"}
	}
	return Verdict{Ok: true}
}

// MatchKeywords reports whether any non-empty keyword appears in body. An
// empty keyword list always matches.
func MatchKeywords(body string, keywords []string) bool {
	keywords = nonEmpty(keywords)
	if len(keywords) == 0 {
		return true
	}
	for _, k := range keywords {
		if strings.Contains(body, k) {
			return true
		}
	}
	return false
}

func nonEmpty(keywords []string) []string {
	var out []string
	for _, k := range keywords {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
