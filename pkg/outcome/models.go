package outcome

import (
	"fmt"
	"time"
)

// State is the terminal state of a ballot box
type State string

const (
	Verified    State = "verified"
	Quarantined State = "quarantined"
)

// ParseState validates a state name
func ParseState(s string) (State, error) {
	switch State(s) {
	case Verified, Quarantined:
		return State(s), nil
	default:
		return "", fmt.Errorf("unknown outcome state %q", s)
	}
}

// Record is the stored outcome of one ballot box
type Record struct {
	ID            string
	State         State
	Counts        map[string]int
	DeclaredTotal *int
	Sum           int
	Tables        int    // Number of tables that contributed counts
	Strategy      string // Matching strategy name
	Reason        string // Why reconciliation failed; empty when verified
	RunID         string
	UpdatedAt     time.Time
}
