package enroll

import (
	"regexp"

	"coursepilot/internal/extract"
)

var fieldTemplate = regexp.MustCompile(`^\{\{\s*([^{}]*?)\s*\}\}$`)

// RenderFields builds a submission payload, a value of the form "{{name}}"
// is replaced by the field of the same name in record (empty if the record
// has no such field) and any other value is sent as is.
func RenderFields(fields map[string]string, record extract.Record) map[string]string {
	out := make(map[string]string, len(fields))
	for key, value := range fields {
		groups := fieldTemplate.FindStringSubmatch(value)
		if groups == nil {
			out[key] = value
			continue
		}
		out[key] = record.Get(groups[1])
	}
	return out
}
