package form

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const evaluationPage = `<html><body>
<form id="search" action="/search"><input name="q" type="text"></form>
<form id="pj" action="saveEvaluation.do" method="post">
  <input type="hidden" name="token" value="t-1">
  <input type="hidden" name="kcdm">
  <input type="text" name="comment" value="ok">
  <input type="password" name="pin" value="0000">
  <input type="submit" name="go" value="提交">
  <input name="untyped" value="plain">
  <input type="radio" name="q1" value="10">
  <input type="radio" name="q1" value="5">
  <input type="radio" name="q1" value="20">
  <input type="radio" name="q2" value="good">
  <input type="radio" name="q2" value="bad">
  <input type="checkbox" name="agree">
  <input type="checkbox" name="topics" value="a">
  <input type="checkbox" name="topics" value="b">
  <select name="grade">
    <option value="">请选择</option>
    <option value="A">A</option>
    <option value="B">B</option>
    <option value="  ">blank</option>
  </select>
  <select name="empty"><option value="">--</option></select>
  <select><option value="x">nameless</option></select>
  <textarea name="advice">old text</textarea>
  <textarea>nameless</textarea>
</form>
</body></html>`

func parse(t *testing.T, src string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestBuildSubmission(t *testing.T) {
	doc := parse(t, evaluationPage)
	form := doc.Find("#pj")

	testCases := []struct {
		name     string
		strategy FillStrategy
		expected map[string]string
	}{
		{
			name:     "defaults",
			strategy: FillStrategy{},
			expected: map[string]string{
				"token": "t-1", "kcdm": "", "comment": "ok", "pin": "0000", "untyped": "plain",
				"q1": "20", "q2": "bad",
				"grade":  "B",
				"advice": DefaultTextarea,
			},
		},
		{
			name: "first everything",
			strategy: FillStrategy{
				Radio:    "first",
				Checkbox: "all",
				Select:   "first",
				Textarea: "很好",
			},
			expected: map[string]string{
				"token": "t-1", "kcdm": "", "comment": "ok", "pin": "0000", "untyped": "plain",
				"q1": "10", "q2": "good",
				"agree": "on", "topics": "a",
				"grade":  "A",
				"advice": "很好",
			},
		},
		{
			name: "overrides win",
			strategy: FillStrategy{
				Radio:     "LAST",
				Overrides: map[string]string{"q1": "5", "advice": "custom", "extra": "1"},
			},
			expected: map[string]string{
				"token": "t-1", "kcdm": "", "comment": "ok", "pin": "0000", "untyped": "plain",
				"q1": "5", "q2": "bad",
				"grade":  "B",
				"advice": "custom",
				"extra":  "1",
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			payload := BuildSubmission(form, test.strategy)
			if diff := cmp.Diff(test.expected, payload); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestBuildSubmissionIsPure(t *testing.T) {
	doc := parse(t, evaluationPage)
	before, err := doc.Html()
	require.NoError(t, err)

	form := doc.Find("#pj")
	strategy := FillStrategy{Checkbox: "all"}
	first := BuildSubmission(form, strategy)
	second := BuildSubmission(form, strategy)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatal(diff)
	}

	after, err := doc.Html()
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestBuildSubmissionHiddenOnly(t *testing.T) {
	doc := parse(t, `<form><input type="hidden" name="a" value="1"><input type="text" name="b"></form>`)
	payload := BuildSubmission(doc.Find("form"), DefaultStrategy())
	require.Equal(t, map[string]string{"a": "1", "b": ""}, payload)
}

func TestBuildSubmissionCheckboxKeepsEarlierValue(t *testing.T) {
	doc := parse(t, `<form>
<input type="hidden" name="flag" value="preset">
<input type="checkbox" name="flag" value="checked">
</form>`)
	payload := BuildSubmission(doc.Find("form"), FillStrategy{Checkbox: "all"})
	require.Equal(t, "preset", payload["flag"])
}

func TestChooseRadio(t *testing.T) {
	testCases := []struct {
		values   []string
		strategy string
		expected string
	}{
		{[]string{"10", "5", "20"}, RadioMax, "20"},
		{[]string{"10", "5", "20"}, RadioFirst, "10"},
		{[]string{"10", "5", "20"}, RadioLast, "20"},
		{[]string{"1.5", "-3", "1.25"}, RadioMax, "1.5"},
		{[]string{"5", "x", "5.0", "2"}, RadioMax, "5.0"},
		{[]string{"a", "b", "c"}, RadioMax, "c"},
		{[]string{"a", "b", "c"}, "unknown", "c"},
		{[]string{"1e3", "+4", "3"}, RadioMax, "3"},
		{[]string{"", "2"}, RadioFirst, ""},
	}

	for _, test := range testCases {
		actual, ok := ChooseRadio(test.values, test.strategy)
		require.True(t, ok)
		require.Equal(t, test.expected, actual, "%v %s", test.values, test.strategy)
	}

	_, ok := ChooseRadio(nil, RadioMax)
	require.False(t, ok)
}

func TestChooseRadioMaxWithoutNumbersIsLast(t *testing.T) {
	groups := [][]string{
		{"good", "bad"},
		{"A"},
		{"", "x", "y "},
	}
	for _, values := range groups {
		maxValue, _ := ChooseRadio(values, RadioMax)
		lastValue, _ := ChooseRadio(values, RadioLast)
		require.Equal(t, lastValue, maxValue)
	}
}

func TestChooseSelect(t *testing.T) {
	value, ok := ChooseSelect([]string{"", "A", " ", "B"}, SelectFirst)
	require.True(t, ok)
	require.Equal(t, "A", value)

	value, ok = ChooseSelect([]string{"", "A", " ", "B"}, "")
	require.True(t, ok)
	require.Equal(t, "B", value)

	_, ok = ChooseSelect([]string{"", "   "}, SelectLast)
	require.False(t, ok)
}

func TestLocate(t *testing.T) {
	doc := parse(t, evaluationPage)

	form, ok := Locate(doc, "")
	require.True(t, ok)
	require.Equal(t, "/search", form.Action)
	require.Equal(t, "POST", form.Method)

	form, ok = Locate(doc, "#pj")
	require.True(t, ok)
	require.Equal(t, "saveEvaluation.do", form.Action)
	require.Equal(t, "POST", form.Method)
	require.Equal(t, "20", form.Build(DefaultStrategy())["q1"])

	_, ok = Locate(doc, "form.missing")
	require.False(t, ok)

	doc = parse(t, `<form method="get" action=" ?x=1 "></form>`)
	form, ok = Locate(doc, "form")
	require.True(t, ok)
	require.Equal(t, "GET", form.Method)
	require.Equal(t, "?x=1", form.Action)
}

func TestFormTarget(t *testing.T) {
	page := "https://jw.example.edu/pj/detail.do?id=7"
	testCases := []struct {
		action   string
		expected string
	}{
		{"", page},
		{"saveEvaluation.do", "https://jw.example.edu/pj/saveEvaluation.do"},
		{"/pj/save", "https://jw.example.edu/pj/save"},
		{"https://other.example.edu/x", "https://other.example.edu/x"},
		{"?step=2", "https://jw.example.edu/pj/detail.do?step=2"},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, Form{Action: test.action}.Target(page), test.action)
	}
}

func TestControls(t *testing.T) {
	doc := parse(t, `<form>
<input type="hidden" name="token" value="t">
<input name="plain" value="p">
<input type="radio" name="q1" value="1"><input type="radio" name="q1" value="2">
<select name="grade"><option value="">-</option><option value="A">A</option></select>
<textarea name="advice"> hi </textarea>
<input type="submit" value="go">
</form>`)

	expected := []Control{
		{Name: "token", Kind: "hidden", Values: []string{"t"}},
		{Name: "plain", Kind: "text", Values: []string{"p"}},
		{Name: "q1", Kind: "radio", Values: []string{"1", "2"}},
		{Name: "grade", Kind: "select", Values: []string{"", "A"}},
		{Name: "advice", Kind: "textarea", Values: []string{"hi"}},
	}
	if diff := cmp.Diff(expected, Controls(doc.Find("form"))); diff != "" {
		t.Fatal(diff)
	}
}
