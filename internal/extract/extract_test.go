package extract

import (
	"strings"
	"testing"

	"coursepilot/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const courseListing = `<html><body>
<table id="courses">
  <tr class="course">
    <td class="cid">A1</td>
    <td class="cname">  Math
        101 </td>
    <td><a class="pick" href="/xsxk/choose?id=A1">选课</a></td>
  </tr>
  <tr class="course">
    <td class="cid">A2</td>
    <td class="cname">History <b>200</b></td>
    <td><span class="full">已满</span></td>
  </tr>
</table>
<form><input type="hidden" name="csrf" value="tok-123"><span class="nonce">n-9</span></form>
</body></html>`

func parse(t *testing.T, src string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func resolver(link string) string {
	return htmlutil.JoinBase("https://jw.example.edu", link)
}

var courseRules = []FieldRule{
	{Name: "id", Selector: "td.cid", Source: Text()},
	{Name: "name", Selector: "td.cname", Source: Text()},
	{Name: "link", Selector: "a.pick", Source: Attr("href")},
}

func TestExtractAll(t *testing.T) {
	doc := parse(t, courseListing)
	records := ExtractAll(doc.Selection, "tr.course", courseRules, resolver)
	require.Len(t, records, 2)

	expected := []map[string]string{
		{"id": "A1", "name": "Math 101", "link": "https://jw.example.edu/xsxk/choose?id=A1"},
		{"id": "A2", "name": "History 200", "link": ""},
	}
	for i, record := range records {
		if diff := cmp.Diff(expected[i], record.Map()); diff != "" {
			t.Fatal(diff)
		}
		require.Equal(t, []string{"id", "name", "link"}, record.Keys())
	}
	require.Equal(t, "A1", records[0].Id())
	require.Equal(t, "Math 101", records[0].Name())
	require.Equal(t, "", records[1].Link())
}

func TestExtractMissingNeverFails(t *testing.T) {
	doc := parse(t, courseListing)
	record := Extract(doc.Find("tr.course").First(), []FieldRule{
		{Name: "teacher", Selector: "td.teacher", Source: Text()},
		{Name: "credits", Selector: "td.cid", Source: Attr("data-credits")},
		{Name: "nothing", Selector: "td.nothing", Source: Attr("href")},
	}, resolver)

	for _, key := range []string{"teacher", "credits", "nothing"} {
		value, ok := record.Lookup(key)
		require.True(t, ok, key)
		require.Equal(t, "", value, key)
	}
}

func TestExtractEmptySelectorUsesRoot(t *testing.T) {
	doc := parse(t, courseListing)
	link := doc.Find("a.pick")
	record := Extract(link, []FieldRule{
		{Name: "label", Source: Text()},
		{Name: "link", Source: Attr("href")},
	}, resolver)

	require.Equal(t, "选课", record.Get("label"))
	require.Equal(t, "https://jw.example.edu/xsxk/choose?id=A1", record.Get("link"))
}

func TestExtractAllWithoutItemSelector(t *testing.T) {
	doc := parse(t, courseListing)
	require.Nil(t, ExtractAll(doc.Selection, "", courseRules, resolver))
	require.Empty(t, ExtractAll(doc.Selection, "li.none", courseRules, resolver))
}

func TestExtractFirst(t *testing.T) {
	doc := parse(t, courseListing)
	tokens := ExtractFirst(doc, []FieldRule{
		{Name: "csrf", Selector: "input[name=csrf]", Source: Attr("value")},
		{Name: "nonce", Selector: "span.nonce", Source: Text()},
		{Name: "missing", Selector: "input[name=missing]", Source: Attr("value")},
		{Name: "", Selector: "span.nonce", Source: Text()},
		{Name: "noselector", Source: Text()},
	})

	require.Equal(t, map[string]string{
		"csrf":    "tok-123",
		"nonce":   "n-9",
		"missing": "",
	}, tokens)
}

func TestParseSource(t *testing.T) {
	require.Equal(t, Text(), ParseSource(""))
	require.Equal(t, Text(), ParseSource("text"))
	require.Equal(t, Attr("href"), ParseSource("href"))
	require.Equal(t, Attr("data-id"), ParseSource(" data-id "))
}

func TestNewRecord(t *testing.T) {
	record := NewRecord("id", "A1", "name", "Math 101", "dangling")
	require.Equal(t, []string{"id", "name"}, record.Keys())
	require.Equal(t, "Math 101", record.Name())
}
