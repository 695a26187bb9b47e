package models

// BrowseSummary tallies what happened during one discovery session
type BrowseSummary struct {
	Shown         int `json:"shown"`
	Rejected      int `json:"rejected"`
	Accepted      int `json:"accepted"`
	SuperAccepted int `json:"super_accepted"`
	SubmitFailed  int `json:"submit_failed"`
	Queued        int `json:"queued"`
}

// Record counts a committed decision
func (s *BrowseSummary) Record(kind DecisionKind) {
	switch kind {
	case Reject:
		s.Rejected++
	case Accept:
		s.Accepted++
	case SuperAccept:
		s.SuperAccepted++
	}
}

// Total returns the number of committed decisions
func (s *BrowseSummary) Total() int {
	return s.Rejected + s.Accepted + s.SuperAccepted
}
