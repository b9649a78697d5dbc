package models

import "time"

type PartyAffiliation string

const (
	PartyIndependent PartyAffiliation = "independent"
	PartyDemocratic  PartyAffiliation = "democratic"
	PartyRepublican  PartyAffiliation = "republican"
	PartyGreen       PartyAffiliation = "green"
	PartyLibertarian PartyAffiliation = "libertarian"
	PartyOther       PartyAffiliation = "other"
)

func (p PartyAffiliation) Valid() bool {
	switch p {
	case PartyIndependent, PartyDemocratic, PartyRepublican, PartyGreen, PartyLibertarian, PartyOther:
		return true
	}
	return false
}

type Candidate struct {
	ID               string
	UserID           string
	ElectionID       string
	CandidateName    string
	PartyAffiliation PartyAffiliation
	Bio              *string
	Platform         *string
	Website          *string
	IsActive         bool
	IsVerified       bool
	VerifiedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
