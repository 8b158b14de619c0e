// Package extract pulls named string fields out of html elements according
// to declarative selector rules.
package extract

import (
	"strings"

	"coursepilot/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// LinkField is the field name whose attribute value gets resolved into an
// absolute url.
const LinkField = "link"

type SourceKind int

const (
	// SourceText takes the whitespace normalized visible text.
	SourceText SourceKind = iota
	// SourceAttr takes the value of an html attribute.
	SourceAttr
)

// Source describes where a value is read from on a matched element.
type Source struct {
	Kind SourceKind
	Attr string
}

func Text() Source {
	return Source{Kind: SourceText}
}

func Attr(name string) Source {
	return Source{Kind: SourceAttr, Attr: name}
}

// ParseSource maps the config notation ("text", "" or an attribute name) into
// a Source.
func ParseSource(attr string) Source {
	attr = strings.TrimSpace(attr)
	if attr == "" || attr == "text" {
		return Text()
	}
	return Attr(attr)
}

// FieldRule locates one named value. An empty Selector means the root
// element itself.
type FieldRule struct {
	Name     string
	Selector string
	Source   Source
}

// Resolver turns a possibly relative link into an absolute url.
type Resolver func(link string) string

// Extract applies rules to root and returns one value per rule. A rule that
// does not match yields an empty string.
func Extract(root *goquery.Selection, rules []FieldRule, resolve Resolver) Record {
	record := Record{
		keys:   make([]string, 0, len(rules)),
		values: make(map[string]string, len(rules)),
	}
	for _, rule := range rules {
		el := root
		if rule.Selector != "" {
			el = root.Find(rule.Selector).First()
		}
		record.set(rule.Name, readValue(el, rule, resolve))
	}
	return record
}

// ExtractAll applies rules to every element matching itemSelector under root,
// in document order.
func ExtractAll(root *goquery.Selection, itemSelector string, rules []FieldRule, resolve Resolver) []Record {
	if itemSelector == "" {
		return nil
	}
	var records []Record
	root.Find(itemSelector).Each(func(_ int, item *goquery.Selection) {
		records = append(records, Extract(item, rules, resolve))
	})
	return records
}

// ExtractFirst evaluates each rule independently against the whole document,
// taking its first match. Rules without a name or selector are ignored.
func ExtractFirst(doc *goquery.Document, rules []FieldRule) map[string]string {
	out := map[string]string{}
	for _, rule := range rules {
		if rule.Name == "" || rule.Selector == "" {
			continue
		}
		el := doc.Find(rule.Selector).First()
		out[rule.Name] = readValue(el, rule, nil)
	}
	return out
}

func readValue(el *goquery.Selection, rule FieldRule, resolve Resolver) string {
	if el.Length() == 0 {
		return ""
	}
	switch rule.Source.Kind {
	case SourceText:
		return htmlutil.VisibleText(el.Get(0))
	case SourceAttr:
		value := el.AttrOr(rule.Source.Attr, "")
		if rule.Name == LinkField && resolve != nil && value != "" {
			value = resolve(value)
		}
		return value
	}
	return ""
}
