package models

import "time"

// Role is the authorization role carried by every user and access token.
type Role string

const (
	RoleVoter            Role = "voter"
	RoleVolunteer        Role = "volunteer"
	RoleCampaignStaff    Role = "campaign_staff"
	RoleElectionOfficial Role = "election_official"
	RoleAdmin            Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleVoter, RoleVolunteer, RoleCampaignStaff, RoleElectionOfficial, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
}

// VoterRegistration records whether a user may vote. VoterIDNumber is
// optional and globally unique when present.
type VoterRegistration struct {
	UserID                string
	VoterIDNumber         *string
	RegistrationDate      time.Time
	IsEligible            bool
	EligibilityVerifiedAt *time.Time
}
