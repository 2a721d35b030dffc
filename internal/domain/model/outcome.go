package model

import "fmt"

// Outcome is the period in which a completed game was decided.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeRegulation
	OutcomeOvertime
	OutcomeShootout
)

var outcomeNames = [...]string{
	OutcomeUnknown:    "Unknown",
	OutcomeRegulation: "Regulation",
	OutcomeOvertime:   "Overtime",
	OutcomeShootout:   "Shootout",
}

var outcomeCodes = map[string]Outcome{
	"REG": OutcomeRegulation,
	"OT":  OutcomeOvertime,
	"SO":  OutcomeShootout,
}

// Outcomes lists the closed set of outcomes.
func Outcomes() []Outcome {
	return []Outcome{OutcomeRegulation, OutcomeOvertime, OutcomeShootout}
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return outcomeNames[OutcomeUnknown]
	}
	return outcomeNames[o]
}

// Valid reports whether o is one of the closed set.
func (o Outcome) Valid() bool {
	return o >= OutcomeRegulation && o <= OutcomeShootout
}

// Code returns the feed's last-period code for o.
func (o Outcome) Code() string {
	for code, out := range outcomeCodes {
		if out == o {
			return code
		}
	}
	return ""
}

// ParseOutcomeName maps a persisted outcome type name onto an Outcome.
func ParseOutcomeName(name string) (Outcome, error) {
	for i, n := range outcomeNames {
		if Outcome(i).Valid() && n == name {
			return Outcome(i), nil
		}
	}
	return OutcomeUnknown, fmt.Errorf("%w: name %q", ErrUnknownOutcome, name)
}

// ParseOutcomeCode maps a feed last-period code (REG, OT, SO) onto an Outcome.
func ParseOutcomeCode(code string) (Outcome, error) {
	if o, ok := outcomeCodes[code]; ok {
		return o, nil
	}
	return OutcomeUnknown, fmt.Errorf("%w: code %q", ErrUnknownOutcome, code)
}

// FeedCodes lists the feed codes in a stable order.
func FeedCodes() []string {
	return []string{"REG", "OT", "SO"}
}

// OutcomeTypeID is the ledger's identifier for an outcome definition row.
type OutcomeTypeID int64

// OutcomeType is a persisted outcome definition.
type OutcomeType struct {
	ID   OutcomeTypeID
	Name string
}
