package grpc

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/server/models"
)

// request reads typed fields out of a Struct message. Absent keys and
// JSON nulls read as zero values.
type request struct {
	fields map[string]*structpb.Value
}

func newRequest(s *structpb.Struct) request {
	return request{fields: s.GetFields()}
}

func (r request) present(key string) bool {
	v, ok := r.fields[key]
	if !ok || v == nil {
		return false
	}
	_, null := v.GetKind().(*structpb.Value_NullValue)
	return !null
}

func (r request) str(key string) string {
	return r.fields[key].GetStringValue()
}

func (r request) optStr(key string) *string {
	if !r.present(key) {
		return nil
	}
	s := r.str(key)
	return &s
}

func (r request) boolean(key string) bool {
	return r.fields[key].GetBoolValue()
}

func (r request) optBool(key string) *bool {
	if !r.present(key) {
		return nil
	}
	b := r.boolean(key)
	return &b
}

func (r request) require(keys ...string) error {
	for _, k := range keys {
		if r.str(k) == "" {
			return fmt.Errorf("%w: %s is required", common.ErrValidation, k)
		}
	}
	return nil
}

func (r request) optTime(key string) (*time.Time, error) {
	if !r.present(key) {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, r.str(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an RFC 3339 timestamp", common.ErrValidation, key)
	}
	return &t, nil
}

func (r request) timestamp(key string) (time.Time, error) {
	t, err := r.optTime(key)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return time.Time{}, fmt.Errorf("%w: %s is required", common.ErrValidation, key)
	}
	return *t, nil
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func optTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return ts(*t)
}

func optString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func list[T any](items []T, enc func(T) map[string]any) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, enc(it))
	}
	return out
}

func encodeUser(u *models.User) map[string]any {
	return map[string]any{
		"id":        u.ID,
		"email":     u.Email,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"role":      string(u.Role),
		"isActive":  u.IsActive,
		"createdAt": ts(u.CreatedAt),
	}
}

func encodeElection(e *models.Election) map[string]any {
	return map[string]any{
		"id":                   e.ID,
		"title":                e.Title,
		"description":          e.Description,
		"type":                 string(e.Type),
		"status":               string(e.Status),
		"startDate":            ts(e.StartDate),
		"endDate":              ts(e.EndDate),
		"jurisdiction":         e.Jurisdiction,
		"requiresVerification": e.RequiresVerification,
		"allowsAbsenteeVoting": e.AllowsAbsenteeVoting,
		"createdByUserId":      e.CreatedByUserID,
		"createdAt":            ts(e.CreatedAt),
		"updatedAt":            ts(e.UpdatedAt),
	}
}

func encodeCandidate(c *models.Candidate) map[string]any {
	return map[string]any{
		"id":               c.ID,
		"userId":           c.UserID,
		"electionId":       c.ElectionID,
		"candidateName":    c.CandidateName,
		"partyAffiliation": string(c.PartyAffiliation),
		"bio":              optString(c.Bio),
		"platform":         optString(c.Platform),
		"website":          optString(c.Website),
		"isActive":         c.IsActive,
		"isVerified":       c.IsVerified,
		"verifiedAt":       optTS(c.VerifiedAt),
		"createdAt":        ts(c.CreatedAt),
	}
}

func encodeRegistration(r *models.VoterRegistration) map[string]any {
	return map[string]any{
		"userId":                r.UserID,
		"voterIdNumber":         optString(r.VoterIDNumber),
		"registrationDate":      ts(r.RegistrationDate),
		"isEligible":            r.IsEligible,
		"eligibilityVerifiedAt": optTS(r.EligibilityVerifiedAt),
	}
}

func encodeReceipt(r *models.VoteReceipt) map[string]any {
	return map[string]any{
		"voteId":        r.VoteID,
		"electionId":    r.ElectionID,
		"electionTitle": r.ElectionTitle,
		"voteHash":      r.VoteHash,
		"timestamp":     ts(r.Timestamp),
		"verified":      r.Verified,
	}
}

func encodeVote(v *models.Vote) map[string]any {
	return map[string]any{
		"id":          v.ID,
		"electionId":  v.ElectionID,
		"voterId":     v.VoterID,
		"candidateId": v.CandidateID,
		"voteHash":    v.VoteHash,
		"ipAddress":   optString(v.IPAddress),
		"isValid":     v.IsValid,
		"verifiedAt":  optTS(v.VerifiedAt),
		"createdAt":   ts(v.CreatedAt),
	}
}

func encodeEligibility(e models.Eligibility) map[string]any {
	reasons := make([]any, 0, len(e.Reasons))
	for _, r := range e.Reasons {
		reasons = append(reasons, r)
	}
	return map[string]any{"eligible": e.Eligible, "reasons": reasons}
}

func encodeStatistics(s *models.VotingStatistics) map[string]any {
	return map[string]any{
		"totalVotes":     s.TotalVotes,
		"validVotes":     s.ValidVotes,
		"invalidVotes":   s.InvalidVotes,
		"votingStarted":  ts(s.VotingStarted),
		"votingEnds":     ts(s.VotingEnds),
		"hoursRemaining": s.HoursRemaining,
	}
}

func encodeResults(r *models.ElectionResults) map[string]any {
	rows := make([]any, 0, len(r.Results))
	for _, row := range r.Results {
		rows = append(rows, map[string]any{
			"candidateId":      row.CandidateID,
			"candidateName":    row.CandidateName,
			"partyAffiliation": string(row.PartyAffiliation),
			"votes":            row.Votes,
			"percentage":       row.Percentage,
		})
	}
	return map[string]any{
		"election":        encodeElection(r.Election),
		"totalValidVotes": r.TotalValidVotes,
		"results":         rows,
	}
}
