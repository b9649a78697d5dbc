package models

import (
	"encoding/json"
	"time"
)

// Vote is one ballot. Only IsValid changes after insert.
type Vote struct {
	ID          string
	ElectionID  string
	VoterID     string
	CandidateID string
	VoteHash    string
	IPAddress   *string
	IsValid     bool
	VerifiedAt  *time.Time
	CreatedAt   time.Time
}

// VoteReceipt is handed back to the voter. It never carries the chosen
// candidate.
type VoteReceipt struct {
	VoteID        string
	ElectionID    string
	ElectionTitle string
	VoteHash      string
	Timestamp     time.Time
	Verified      bool
}

type VotingStatistics struct {
	TotalVotes     int64
	ValidVotes     int64
	InvalidVotes   int64
	VotingStarted  time.Time
	VotingEnds     time.Time
	HoursRemaining float64
}

// CandidateResult is one row of the final tally.
type CandidateResult struct {
	CandidateID      string
	CandidateName    string
	PartyAffiliation PartyAffiliation
	Votes            int64
	Percentage       float64
}

type ElectionResults struct {
	Election        *Election
	TotalValidVotes int64
	Results         []CandidateResult
}

// Eligibility is the outcome of the voter eligibility gate. Reasons is
// empty iff Eligible is true.
type Eligibility struct {
	Eligible bool
	Reasons  []string
}

type AuditLog struct {
	ID             string
	ActionByUserID string
	ActionType     string
	ResourceType   string
	ResourceID     string
	OldValue       json.RawMessage
	NewValue       json.RawMessage
	CreatedAt      time.Time
}
