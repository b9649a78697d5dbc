package services

import (
	"time"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/server/models"
)

// Eligibility reasons, in the order the gate reports them.
const (
	ReasonAccountInactive  = "User account is not active"
	ReasonNotRegistered    = "User is not registered as a voter"
	ReasonElectionNotFound = "Election not found"
	ReasonNotEligible      = "User is not eligible to vote"
	ReasonNotActive        = "Election is not currently active"
	ReasonNotStarted       = "Voting has not started yet"
	ReasonEnded            = "Voting period has ended"
	ReasonNotVerified      = "Voter eligibility must be verified for this election"
	ReasonAlreadyVoted     = "User has already voted in this election"
)

// Each rule returns its reason when violated and "" otherwise. CheckEligibility
// and CastVote compose the same rules, so the advisory check and enforcement
// cannot drift apart.

func ruleEligibleFlag(reg *models.VoterRegistration) string {
	if !reg.IsEligible {
		return ReasonNotEligible
	}
	return ""
}

func ruleStatusActive(e *models.Election) string {
	if e.Status != models.StatusActive {
		return ReasonNotActive
	}
	return ""
}

func ruleNotBeforeStart(e *models.Election, now time.Time) string {
	if now.Before(e.StartDate) {
		return ReasonNotStarted
	}
	return ""
}

func ruleNotAfterEnd(e *models.Election, now time.Time) string {
	if now.After(e.EndDate) {
		return ReasonEnded
	}
	return ""
}

func ruleVerified(reg *models.VoterRegistration, e *models.Election) string {
	if e.RequiresVerification && reg.EligibilityVerifiedAt == nil {
		return ReasonNotVerified
	}
	return ""
}

func ruleNotVoted(hasVoted bool) string {
	if hasVoted {
		return ReasonAlreadyVoted
	}
	return ""
}

// CheckEligibility is the voter eligibility gate. A missing registration
// (or election) short-circuits; every other rule is evaluated and all
// failures are reported in a fixed order.
func CheckEligibility(reg *models.VoterRegistration, e *models.Election, hasVoted bool, now time.Time) models.Eligibility {
	if reg == nil {
		return models.Eligibility{Reasons: []string{ReasonNotRegistered}}
	}
	if e == nil {
		return models.Eligibility{Reasons: []string{ReasonElectionNotFound}}
	}

	reasons := []string{}
	for _, r := range []string{
		ruleEligibleFlag(reg),
		ruleStatusActive(e),
		ruleNotBeforeStart(e, now),
		ruleNotAfterEnd(e, now),
		ruleVerified(reg, e),
		ruleNotVoted(hasVoted),
	} {
		if r != "" {
			reasons = append(reasons, r)
		}
	}

	return models.Eligibility{Eligible: len(reasons) == 0, Reasons: reasons}
}

// reasonKind maps a gate reason to the error kind CastVote reports for it.
func reasonKind(reason string) error {
	switch reason {
	case ReasonAccountInactive:
		return common.ErrUnauthorized
	case ReasonNotActive, ReasonNotStarted, ReasonEnded:
		return common.ErrStateConflict
	case ReasonAlreadyVoted:
		return common.ErrConflict
	case ReasonElectionNotFound:
		return common.ErrorNotFound
	default:
		return common.ErrForbidden
	}
}
