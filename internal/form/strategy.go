package form

import "strings"

const (
	RadioFirst = "first"
	RadioLast  = "last"
	RadioMax   = "max"

	CheckboxNone = "none"
	CheckboxAll  = "all"

	SelectFirst = "first"
	SelectLast  = "last"

	DefaultTextarea = "老师讲课认真负责。"
)

// FillStrategy decides the value of form controls that offer more than one
// choice.
type FillStrategy struct {
	// Radio is one of "first", "last" or "max".
	Radio string
	// Checkbox is one of "none" or "all".
	Checkbox string
	// Select is one of "first" or "last".
	Select string
	// Textarea is the text put into every textarea.
	Textarea string
	// Overrides pins a field to a fixed value, applied after everything else.
	Overrides map[string]string
}

// DefaultStrategy picks the highest score on every radio group, leaves
// checkboxes alone and picks the last select option.
func DefaultStrategy() FillStrategy {
	return FillStrategy{
		Radio:    RadioMax,
		Checkbox: CheckboxNone,
		Select:   SelectLast,
		Textarea: DefaultTextarea,
	}
}

// WithDefaults fills every unset option from DefaultStrategy.
func (s FillStrategy) WithDefaults() FillStrategy {
	defaults := DefaultStrategy()
	s.Radio = strings.ToLower(strings.TrimSpace(s.Radio))
	s.Checkbox = strings.ToLower(strings.TrimSpace(s.Checkbox))
	s.Select = strings.ToLower(strings.TrimSpace(s.Select))
	if s.Radio == "" {
		s.Radio = defaults.Radio
	}
	if s.Checkbox == "" {
		s.Checkbox = defaults.Checkbox
	}
	if s.Select == "" {
		s.Select = defaults.Select
	}
	if s.Textarea == "" {
		s.Textarea = defaults.Textarea
	}
	return s
}
