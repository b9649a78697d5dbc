package models

import "time"

type ElectionType string

const (
	ElectionNational   ElectionType = "national"
	ElectionState      ElectionType = "state"
	ElectionLocal      ElectionType = "local"
	ElectionReferendum ElectionType = "referendum"
	ElectionPrimary    ElectionType = "primary"
)

func (t ElectionType) Valid() bool {
	switch t {
	case ElectionNational, ElectionState, ElectionLocal, ElectionReferendum, ElectionPrimary:
		return true
	}
	return false
}

// ElectionStatus is the lifecycle state of an election.
//
//	draft -> published -> active -> completed
//
// Any state except completed may move to cancelled.
type ElectionStatus string

const (
	StatusDraft     ElectionStatus = "draft"
	StatusPublished ElectionStatus = "published"
	StatusActive    ElectionStatus = "active"
	StatusCompleted ElectionStatus = "completed"
	StatusCancelled ElectionStatus = "cancelled"
)

type Election struct {
	ID                   string
	Title                string
	Description          string
	Type                 ElectionType
	Status               ElectionStatus
	StartDate            time.Time
	EndDate              time.Time
	Jurisdiction         string
	RequiresVerification bool
	AllowsAbsenteeVoting bool
	CreatedByUserID      string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// InWindow reports whether t falls inside [StartDate, EndDate].
func (e *Election) InWindow(t time.Time) bool {
	return !t.Before(e.StartDate) && !t.After(e.EndDate)
}

// ElectionFilter narrows List results. Zero values are ignored.
type ElectionFilter struct {
	Status       ElectionStatus
	Type         ElectionType
	Jurisdiction string
	StartFrom    *time.Time
	StartTo      *time.Time
}
