package enroll

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"coursepilot/internal/components/chrono"
	"coursepilot/internal/components/telemetry"
	"coursepilot/internal/extract"
	"coursepilot/internal/portal"
	"coursepilot/internal/success"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const courseListing = `<html><body><table>
<tr class="course"><td class="cid">A1</td><td class="cname">Math 101</td><td><a href="/xk/choose?id=A1">选</a></td></tr>
<tr class="course"><td class="cid">A2</td><td class="cname">History 200</td><td><a href="/xk/choose?id=A2">选</a></td></tr>
<tr class="course"><td class="cid">B7</td><td class="cname">Math Lab</td></tr>
</table>%s</body></html>`

var courseRules = []extract.FieldRule{
	{Name: "id", Selector: "td.cid", Source: extract.Text()},
	{Name: "name", Selector: "td.cname", Source: extract.Text()},
	{Name: "link", Selector: "a", Source: extract.Attr("href")},
}

func record(id, name string) extract.Record {
	return extract.NewRecord("id", id, "name", name)
}

func ids(records []extract.Record) []string {
	var out []string
	for _, r := range records {
		out = append(out, r.Id())
	}
	return out
}

func TestFilterRule(t *testing.T) {
	records := []extract.Record{
		record("A1", "Math 101"),
		record("A2", "History 200"),
		record("B7", "Math Lab"),
		record("C3", "Physics"),
	}

	testCases := []struct {
		name     string
		rule     FilterRule
		expected []string
	}{
		{"include keyword", FilterRule{IncludeKeywords: []string{"Math"}}, []string{"A1", "B7"}},
		{"empty rule", FilterRule{}, nil},
		{"excludes only", FilterRule{ExcludeKeywords: []string{"Math"}}, nil},
		{"explicit id beats exclude", FilterRule{Ids: []string{"A1"}, ExcludeKeywords: []string{"Math"}}, []string{"A1", "A2", "C3"}},
		{"include beats exclude", FilterRule{IncludeKeywords: []string{"Lab"}, ExcludeKeywords: []string{"Math"}}, []string{"B7"}},
		{"keyword on id", FilterRule{IncludeKeywords: []string{"C"}}, []string{"C3"}},
		{"ids and keywords keep order", FilterRule{Ids: []string{"C3", "A2"}, IncludeKeywords: []string{"Lab"}}, []string{"A2", "B7", "C3"}},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			actual := ids(test.rule.Select(records))
			if diff := cmp.Diff(test.expected, actual); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestFilterRuleIdsOnly(t *testing.T) {
	rule := FilterRule{Ids: []string{"A2"}}
	require.True(t, rule.Wants(record("A2", "History 200")))
	// with ids configured anything not excluded is selected
	require.True(t, rule.Wants(record("Z9", "Anything")))
}

func TestRenderFields(t *testing.T) {
	rec := extract.NewRecord("id", "A1", "name", "Math 101")
	rendered := RenderFields(map[string]string{
		"kcdm":    "{{id}}",
		"kcmc":    "{{ name }}",
		"xkfs":    "1",
		"teacher": "{{teacher}}",
		"mixed":   "id={{id}}",
	}, rec)

	expected := map[string]string{
		"kcdm":    "A1",
		"kcmc":    "Math 101",
		"xkfs":    "1",
		"teacher": "",
		"mixed":   "id={{id}}",
	}
	if diff := cmp.Diff(expected, rendered); diff != "" {
		t.Fatal(diff)
	}
}

func TestClosestId(t *testing.T) {
	records := []extract.Record{record("CS101", ""), record("MA2001", ""), record("", "")}

	closest, ok := ClosestId("CS1O1", records)
	require.True(t, ok)
	require.Equal(t, "CS101", closest)

	_, ok = ClosestId("ZZZZ", records)
	require.False(t, ok)
}

type portalServer struct {
	listingStatus int
	listingExtra  string

	lock     sync.Mutex
	requests []string
	forms    []map[string]string
	enrolled map[string]bool
}

func (p *portalServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/xk/list", func(w http.ResponseWriter, r *http.Request) {
		if p.listingStatus != 0 {
			w.WriteHeader(p.listingStatus)
			return
		}
		p.lock.Lock()
		extra := p.listingExtra
		if len(p.enrolled) > 0 {
			extra += "<p>选课成功</p>"
		}
		p.lock.Unlock()
		w.Write([]byte(fmt.Sprintf(courseListing, extra)))
	})
	mux.HandleFunc("/xk/choose", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form := map[string]string{}
		for key := range r.Form {
			form[key] = r.Form.Get(key)
		}

		p.lock.Lock()
		defer p.lock.Unlock()
		p.requests = append(p.requests, r.Method+" "+r.URL.Path)
		p.forms = append(p.forms, form)

		id := form["id"]
		if id == "" {
			id = form["kcdm"]
		}
		if id == "A2" {
			w.WriteHeader(http.StatusConflict)
			return
		}
		if p.enrolled == nil {
			p.enrolled = map[string]bool{}
		}
		p.enrolled[id] = true
		w.Write([]byte("ok"))
	})
	return mux
}

func (p *portalServer) submissions() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.requests)
}

func newFlow(t *testing.T, p *portalServer, cfg Config) (Flow, *telemetry.Recorder) {
	server := httptest.NewServer(p.handler(t))
	t.Cleanup(server.Close)

	recorder := telemetry.NewRecorder()
	session, err := portal.NewSession(portal.Options{BaseUrl: server.URL}, recorder)
	require.NoError(t, err)
	return NewFlow(cfg, session, chrono.NoPacer{}, recorder), recorder
}

func baseConfig() Config {
	return Config{
		Enabled:      true,
		ListPath:     "/xk/list",
		ItemSelector: "tr.course",
		Parse:        courseRules,
		Keywords:     []string{"成功"},
	}
}

func TestRunDisabled(t *testing.T) {
	p := &portalServer{}
	cfg := baseConfig()
	cfg.Enabled = false
	flow, _ := newFlow(t, p, cfg)

	summary, err := flow.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, summary.Attempts)
	require.Equal(t, 0, summary.Listed)
}

func TestRunListingFailure(t *testing.T) {
	p := &portalServer{listingStatus: http.StatusInternalServerError}
	cfg := baseConfig()
	cfg.Filter = FilterRule{IncludeKeywords: []string{"Math"}}
	flow, recorder := newFlow(t, p, cfg)

	summary, err := flow.Run(context.Background())
	require.ErrorIs(t, err, ErrListPage)
	require.Empty(t, summary.Attempts)
	require.Equal(t, 0, p.submissions())
	require.Len(t, recorder.Filter(telemetry.LevelBroken, report_flow_list), 1)
}

func TestRunFollowsLinks(t *testing.T) {
	p := &portalServer{}
	cfg := baseConfig()
	cfg.Filter = FilterRule{IncludeKeywords: []string{"Math"}}
	flow, recorder := newFlow(t, p, cfg)

	summary, err := flow.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, summary.Listed)
	require.Equal(t, []string{"A1", "B7"}, ids(recordsOf(summary)))
	require.Equal(t, []success.Outcome{success.OutcomeSucceeded, success.OutcomeSkipped}, summary.Outcomes())
	require.Equal(t, []string{"GET /xk/choose"}, p.requests)
	require.Len(t, recorder.Filter(telemetry.LevelWarning, report_flow_submit), 1)
}

func TestRunIncludeKeywordTargetsOnlyMatches(t *testing.T) {
	p := &portalServer{}
	cfg := baseConfig()
	cfg.Parse = courseRules[:2]
	cfg.ItemSelector = "tr.course:has(a)"
	cfg.Filter = FilterRule{IncludeKeywords: []string{"Math"}}
	cfg.Submit = Submit{Method: "post", Path: "/xk/choose", Fields: map[string]string{"kcdm": "{{id}}", "xkfs": "1"}}
	flow, _ := newFlow(t, p, cfg)

	summary, err := flow.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Listed)
	require.Equal(t, []string{"A1"}, ids(recordsOf(summary)))
	require.Equal(t, []string{"POST /xk/choose"}, p.requests)
	require.Equal(t, map[string]string{"kcdm": "A1", "xkfs": "1"}, p.forms[0])
}

func TestRunContinuesAfterFailure(t *testing.T) {
	p := &portalServer{}
	cfg := baseConfig()
	cfg.Filter = FilterRule{Ids: []string{"A2", "A1"}, ExcludeKeywords: []string{"Lab"}}
	cfg.Submit = Submit{Method: "GET", Path: "/xk/choose", Fields: map[string]string{"kcdm": "{{id}}"}}
	flow, _ := newFlow(t, p, cfg)

	summary, err := flow.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []success.Outcome{success.OutcomeSucceeded, success.OutcomeFailed}, summary.Outcomes())
	require.Equal(t, []string{"GET /xk/choose", "GET /xk/choose"}, p.requests)
	require.Equal(t, "status 409", summary.Attempts[1].Reason)
}

func TestRunUnconfirmed(t *testing.T) {
	p := &portalServer{}
	cfg := baseConfig()
	cfg.Keywords = []string{"已选上"}
	cfg.Filter = FilterRule{Ids: []string{"A1"}, ExcludeKeywords: []string{"History", "Lab"}}
	flow, _ := newFlow(t, p, cfg)

	summary, err := flow.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []success.Outcome{success.OutcomeUnconfirmed}, summary.Outcomes())

	cfg.Keywords = nil
	flow, _ = newFlow(t, &portalServer{}, cfg)
	summary, err = flow.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []success.Outcome{success.OutcomeSucceeded}, summary.Outcomes())
}

func TestRunReportsUnknownIds(t *testing.T) {
	p := &portalServer{
		listingExtra: `<table><tr class="course"><td class="cid">CS2001</td><td class="cname">Compilers</td></tr></table>`,
	}
	cfg := baseConfig()
	cfg.Filter = FilterRule{Ids: []string{"CS2010"}, ExcludeKeywords: []string{"1", "2", "Lab"}}
	flow, recorder := newFlow(t, p, cfg)

	summary, err := flow.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, summary.Attempts)

	warnings := recorder.Filter(telemetry.LevelWarning, report_flow_filter)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Params, "did_you_mean")
	require.Contains(t, warnings[0].Params, "CS2001")
}

type countingPacer struct {
	pauses int
}

func (p *countingPacer) Pause(ctx context.Context) error {
	p.pauses++
	return ctx.Err()
}

func TestRunPacesEveryAttempt(t *testing.T) {
	p := &portalServer{}
	server := httptest.NewServer(p.handler(t))
	t.Cleanup(server.Close)
	session, err := portal.NewSession(portal.Options{BaseUrl: server.URL}, telemetry.NewRecorder())
	require.NoError(t, err)

	cfg := baseConfig()
	cfg.Filter = FilterRule{IncludeKeywords: []string{"1", "2", "Lab"}}
	pacer := &countingPacer{}
	flow := NewFlow(cfg, session, pacer, telemetry.NewRecorder())

	summary, err := flow.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Attempts, 3)
	require.Equal(t, 3, pacer.pauses)
}

func recordsOf(summary success.Summary) []extract.Record {
	var out []extract.Record
	for _, a := range summary.Attempts {
		out = append(out, a.Record)
	}
	return out
}
