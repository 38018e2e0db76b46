package model

import (
	"fmt"
	"strings"
)

// Outcome classifies a test result. Stored as an integer; the numeric
// values are part of the data contract and must not be reordered.
type Outcome int

const (
	OutcomePass Outcome = iota
	OutcomeSkip
	OutcomeError
	OutcomeFail
	OutcomeXPass
	OutcomeXFail
)

var outcomeNames = [...]string{"pass", "skip", "error", "fail", "xpass", "xfail"}

// Outcomes returns all outcomes in their stored order.
func Outcomes() []Outcome {
	return []Outcome{OutcomePass, OutcomeSkip, OutcomeError, OutcomeFail, OutcomeXPass, OutcomeXFail}
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// Valid reports whether o is one of the declared outcomes.
func (o Outcome) Valid() bool {
	return o >= 0 && int(o) < len(outcomeNames)
}

// ParseOutcome converts a case-insensitive outcome name ("pass",
// "xfail", ...) to its Outcome value.
func ParseOutcome(s string) (Outcome, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range outcomeNames {
		if n == name {
			return Outcome(i), nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}
