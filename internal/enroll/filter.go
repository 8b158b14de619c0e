package enroll

import (
	"strings"

	"coursepilot/internal/extract"
)

// FilterRule picks the courses to enroll in.
//
// A course listed in Ids is always selected. Otherwise a course whose name or
// id contains an include keyword is selected, one containing an exclude
// keyword is not. Include keywords are an allowlist: when there are none but
// Ids is set, every course that is not excluded is selected. An empty rule
// selects nothing.
type FilterRule struct {
	Ids             []string
	IncludeKeywords []string
	ExcludeKeywords []string
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func (r FilterRule) Wants(record extract.Record) bool {
	id := record.Id()
	name := record.Name()

	for _, wanted := range r.Ids {
		if wanted == id {
			return true
		}
	}
	if containsAny(name, r.IncludeKeywords) || containsAny(id, r.IncludeKeywords) {
		return true
	}
	if containsAny(name, r.ExcludeKeywords) || containsAny(id, r.ExcludeKeywords) {
		return false
	}
	return len(r.Ids) > 0 && len(r.IncludeKeywords) == 0
}

// Select returns the wanted records in their original order.
func (r FilterRule) Select(records []extract.Record) []extract.Record {
	var out []extract.Record
	for _, record := range records {
		if r.Wants(record) {
			out = append(out, record)
		}
	}
	return out
}
