// Package form rebuilds the field set a browser would submit for an html form,
// choosing values for radios, checkboxes, selects and textareas according to a
// FillStrategy.
package form

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const DefaultSelector = "form"

// Form is a located <form> element.
type Form struct {
	Selection *goquery.Selection
	// Action is the raw action attribute.
	Action string
	// Method is the upper case method, POST when unspecified.
	Method string
}

// Locate finds the first element matching selector (DefaultSelector when
// empty) in doc.
func Locate(doc *goquery.Document, selector string) (Form, bool) {
	if selector == "" {
		selector = DefaultSelector
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return Form{}, false
	}
	return FromSelection(sel), true
}

// FromSelection reads the action and method of a form element.
func FromSelection(sel *goquery.Selection) Form {
	method := strings.ToUpper(strings.TrimSpace(sel.AttrOr("method", "")))
	if method == "" {
		method = "POST"
	}
	return Form{
		Selection: sel,
		Action:    strings.TrimSpace(sel.AttrOr("action", "")),
		Method:    method,
	}
}

// Target resolves the action against the url of the page the form was found
// on, an empty action submits back to that page.
func (f Form) Target(pageUrl string) string {
	if f.Action == "" {
		return pageUrl
	}
	base, err := url.Parse(pageUrl)
	if err != nil || pageUrl == "" {
		return f.Action
	}
	action, err := url.Parse(f.Action)
	if err != nil {
		return f.Action
	}
	return base.ResolveReference(action).String()
}

// Build is BuildSubmission on the located form.
func (f Form) Build(strategy FillStrategy) map[string]string {
	return BuildSubmission(f.Selection, strategy)
}

var numericLiteral = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// inputType is the lowercased type attribute, an input without one is a
// text input.
func inputType(input *goquery.Selection) string {
	kind := strings.ToLower(strings.TrimSpace(input.AttrOr("type", "")))
	if kind == "" {
		return "text"
	}
	return kind
}

// BuildSubmission returns the name -> value pairs to submit for form. The
// steps run in order and later ones overwrite earlier ones:
//  1. hidden, text and password inputs verbatim
//  2. one value per radio group
//  3. checkboxes, only if strategy.Checkbox is "all"
//  4. one value per named select, ignoring blank options
//  5. strategy.Textarea for every named textarea
//  6. strategy.Overrides
//
// The document is never modified.
func BuildSubmission(form *goquery.Selection, strategy FillStrategy) map[string]string {
	strategy = strategy.WithDefaults()
	data := map[string]string{}

	inputs := form.Find("input")

	inputs.Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" {
			return
		}
		switch inputType(input) {
		case "hidden", "text", "password":
			data[name] = input.AttrOr("value", "")
		}
	})

	var radioOrder []string
	radioGroups := map[string][]string{}
	inputs.Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" || inputType(input) != "radio" {
			return
		}
		if _, seen := radioGroups[name]; !seen {
			radioOrder = append(radioOrder, name)
		}
		radioGroups[name] = append(radioGroups[name], input.AttrOr("value", ""))
	})
	for _, name := range radioOrder {
		value, ok := ChooseRadio(radioGroups[name], strategy.Radio)
		if ok {
			data[name] = value
		}
	}

	if strategy.Checkbox == CheckboxAll {
		inputs.Each(func(_ int, input *goquery.Selection) {
			name := input.AttrOr("name", "")
			if name == "" || inputType(input) != "checkbox" {
				return
			}
			if _, exists := data[name]; !exists {
				data[name] = input.AttrOr("value", "on")
			}
		})
	}

	form.Find("select").Each(func(_ int, sel *goquery.Selection) {
		name := sel.AttrOr("name", "")
		if name == "" {
			return
		}
		var options []string
		sel.Find("option").Each(func(_ int, option *goquery.Selection) {
			options = append(options, option.AttrOr("value", ""))
		})
		value, ok := ChooseSelect(options, strategy.Select)
		if ok {
			data[name] = value
		}
	})

	form.Find("textarea").Each(func(_ int, textarea *goquery.Selection) {
		name := textarea.AttrOr("name", "")
		if name == "" {
			return
		}
		data[name] = strategy.Textarea
	})

	for name, value := range strategy.Overrides {
		data[name] = value
	}

	return data
}

// ChooseRadio picks one of the option values of a radio group. "max" picks
// the greatest numeric value, the last one on ties, and behaves like "last"
// when no value is numeric. Unknown strategies behave like "max".
func ChooseRadio(values []string, strategy string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	switch strategy {
	case RadioFirst:
		return values[0], true
	case RadioLast:
		return values[len(values)-1], true
	}

	best := ""
	bestValue := 0.0
	found := false
	for _, v := range values {
		if !numericLiteral.MatchString(v) {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		if !found || parsed >= bestValue {
			best = v
			bestValue = parsed
			found = true
		}
	}
	if found {
		return best, true
	}
	return values[len(values)-1], true
}

// ChooseSelect picks the first or last (default) option value that is not
// blank.
func ChooseSelect(values []string, strategy string) (string, bool) {
	var candidates []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	if strategy == SelectFirst {
		return candidates[0], true
	}
	return candidates[len(candidates)-1], true
}
