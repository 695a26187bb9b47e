package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DecisionKind is the outcome of a swipe. Values match the backend's
// integer encoding.
type DecisionKind int

const (
	Reject      DecisionKind = 0
	Accept      DecisionKind = 1
	SuperAccept DecisionKind = 2
)

func (k DecisionKind) String() string {
	switch k {
	case Reject:
		return "reject"
	case Accept:
		return "accept"
	case SuperAccept:
		return "superAccept"
	default:
		return fmt.Sprintf("DecisionKind(%d)", int(k))
	}
}

// Valid reports whether k is one of the known kinds
func (k DecisionKind) Valid() bool {
	return k == Reject || k == Accept || k == SuperAccept
}

// ParseDecisionKind accepts the kind names plus the original app's
// action names (pass, interested, super).
func ParseDecisionKind(s string) (DecisionKind, error) {
	switch s {
	case "reject", "pass", "left":
		return Reject, nil
	case "accept", "interested", "right":
		return Accept, nil
	case "superAccept", "super", "up":
		return SuperAccept, nil
	default:
		return 0, fmt.Errorf("unknown decision %q", s)
	}
}

// Decision is a committed swipe against a candidate
type Decision struct {
	ID          string       `json:"id"`
	Kind        DecisionKind `json:"decision"`
	CandidateID string       `json:"candidate_id"`
	Committed   bool         `json:"committed"`
	At          time.Time    `json:"at"`
}

// NewDecision creates a committed decision with a fresh id
func NewDecision(kind DecisionKind, candidateID string) Decision {
	return Decision{
		ID:          uuid.NewString(),
		Kind:        kind,
		CandidateID: candidateID,
		Committed:   true,
		At:          time.Now(),
	}
}

// DecisionKey generates a deterministic UUID identifying "userID acted on
// targetID". Redelivery of the same decision maps to the same key.
func DecisionKey(userID, targetID string) string {
	data := fmt.Sprintf("%s->%s", userID, targetID)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(data)).String()
}

// SwipeRecord is one row of the backend's swipe history
type SwipeRecord struct {
	TargetUserID string       `json:"target_user_id"`
	Decision     DecisionKind `json:"decision"`
	Timestamp    string       `json:"timestamp"`
}
