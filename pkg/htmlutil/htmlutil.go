package htmlutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// VisibleText joins the trimmed text nodes under node with single spaces,
// skipping script, style and template contents.
func VisibleText(node *html.Node) string {
	var parts []string
	collectVisible(node, &parts)
	return NormalizeSpace(strings.Join(parts, " "))
}

func collectVisible(node *html.Node, out *[]string) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		text := strings.TrimSpace(node.Data)
		if text != "" {
			*out = append(*out, text)
		}
		return
	case html.ElementNode:
		switch node.DataAtom {
		case atom.Script, atom.Style, atom.Template, atom.Noscript:
			return
		}
	case html.CommentNode:
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectVisible(child, out)
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

// NormalizeSpace trims s and collapses every whitespace run into one space.
func NormalizeSpace(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// IsAbsolute reports whether link already carries an http(s) scheme.
func IsAbsolute(link string) bool {
	return strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://")
}

// JoinBase prefixes a relative path with base. Paths without a leading slash
// are treated as rooted at base, so "a/b" and "/a/b" resolve the same way.
// Absolute links and empty strings are returned untouched.
func JoinBase(base, link string) string {
	if link == "" || IsAbsolute(link) {
		return link
	}
	if !strings.HasPrefix(link, "/") {
		link = "/" + link
	}
	return strings.TrimRight(base, "/") + link
}
