package runner

import (
	"fmt"
	"io"
	"strings"

	"coursepilot/internal/success"

	"github.com/jedib0t/go-pretty/v6/table"
)

func summaryTable(title string, summary success.Summary) table.Writer {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%s (%d listed)", title, summary.Listed))
	t.AppendHeader(table.Row{"#", "Id", "Name", "Outcome", "Reason"})
	for i, attempt := range summary.Attempts {
		t.AppendRow(table.Row{
			i + 1,
			attempt.Record.Id(),
			attempt.Record.Name(),
			attempt.Outcome.String(),
			attempt.Reason,
		})
	}
	t.AppendFooter(table.Row{
		"", "", "",
		fmt.Sprintf("%d/%d succeeded", summary.Count(success.OutcomeSucceeded), len(summary.Attempts)),
		"",
	})
	return t
}

func (r Report) tables() []table.Writer {
	var out []table.Writer
	if r.Enroll != nil {
		out = append(out, summaryTable("Enrollment", *r.Enroll))
	}
	if r.Evaluate != nil {
		out = append(out, summaryTable("Evaluation", *r.Evaluate))
	}
	return out
}

// Render writes the report as rounded tables for a terminal.
func Render(w io.Writer, report Report) {
	for _, t := range report.tables() {
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(w)
		t.Render()
	}
	for _, err := range report.Errors {
		fmt.Fprintln(w, "error:", err)
	}
}

// RenderText renders the report as plain ascii, for mail bodies.
func RenderText(report Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s (%s)\n", report.RunId, report.Mode)
	fmt.Fprintf(&sb, "started  %s\n", report.Started.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "finished %s\n\n", report.Finished.Format("2006-01-02 15:04:05"))
	for _, t := range report.tables() {
		t.SetStyle(table.StyleDefault)
		sb.WriteString(t.Render())
		sb.WriteString("\n\n")
	}
	for _, err := range report.Errors {
		fmt.Fprintln(&sb, "error:", err)
	}
	return sb.String()
}
