package success

import "coursepilot/internal/extract"

type Outcome int

const (
	// OutcomeSkipped means no request was made for the record.
	OutcomeSkipped Outcome = iota
	// OutcomeFailed means the submission request errored or got an http error.
	OutcomeFailed
	// OutcomeUnconfirmed means the submission went through but no success
	// keyword was found.
	OutcomeUnconfirmed
	OutcomeSucceeded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	case OutcomeUnconfirmed:
		return "unconfirmed"
	case OutcomeSucceeded:
		return "succeeded"
	}
	return "unknown"
}

// Attempt is what happened to a single record.
type Attempt struct {
	Record  extract.Record
	Outcome Outcome
	Reason  string
}

// Summary is the result of one flow run.
type Summary struct {
	// Listed is the number of records found on the listing page.
	Listed   int
	Attempts []Attempt
}

// Count returns the number of attempts with outcome o.
func (s Summary) Count(o Outcome) int {
	count := 0
	for _, a := range s.Attempts {
		if a.Outcome == o {
			count++
		}
	}
	return count
}

// Outcomes lists the outcome of every attempt in order.
func (s Summary) Outcomes() []Outcome {
	out := make([]Outcome, len(s.Attempts))
	for i, a := range s.Attempts {
		out[i] = a.Outcome
	}
	return out
}
