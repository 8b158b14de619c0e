package form

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Control is a single named input of a form, as shown to someone writing a
// fill strategy.
type Control struct {
	Name string
	// Kind is the input type, "select" or "textarea".
	Kind string
	// Values are the candidate values in document order.
	Values []string
}

// Controls lists the named controls of form in document order, radios and
// checkboxes sharing a name are grouped into one control.
func Controls(form *goquery.Selection) []Control {
	var out []Control
	index := map[string]int{}

	form.Find("input, select, textarea").Each(func(_ int, el *goquery.Selection) {
		name := el.AttrOr("name", "")
		if name == "" {
			return
		}

		kind := goquery.NodeName(el)
		var values []string
		switch kind {
		case "input":
			kind = inputType(el)
			values = []string{el.AttrOr("value", "")}
		case "select":
			el.Find("option").Each(func(_ int, option *goquery.Selection) {
				values = append(values, option.AttrOr("value", ""))
			})
		case "textarea":
			values = []string{strings.TrimSpace(el.Text())}
		}

		key := kind + "\x00" + name
		if i, ok := index[key]; ok && (kind == "radio" || kind == "checkbox") {
			out[i].Values = append(out[i].Values, values...)
			return
		}
		index[key] = len(out)
		out = append(out, Control{Name: name, Kind: kind, Values: values})
	})

	return out
}
