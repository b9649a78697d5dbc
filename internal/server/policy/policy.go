// Package policy is the single table deciding which roles may perform which
// privileged operations.
package policy

import (
	"fmt"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/server/identity"
	"github.com/dmitrijs2005/voternet/internal/server/models"
)

type Operation string

const (
	ElectionCreate     Operation = "election.create"
	ElectionUpdate     Operation = "election.update"
	ElectionPublish    Operation = "election.publish"
	ElectionActivate   Operation = "election.activate"
	ElectionComplete   Operation = "election.complete"
	ElectionCancel     Operation = "election.cancel"
	CandidateVerify    Operation = "candidate.verify"
	CandidateManageAny Operation = "candidate.manage_any"
	VoteInvalidate     Operation = "vote.invalidate"
	VoteAudit          Operation = "vote.audit"
	VoterVerify        Operation = "voter.verify"
	UserAssignRole     Operation = "user.assign_role"
)

type rule struct {
	roles   []models.Role
	message string
}

var officials = []models.Role{models.RoleAdmin, models.RoleElectionOfficial}

var table = map[Operation]rule{
	ElectionCreate:     {officials, "only admins and election officials can create elections"},
	ElectionUpdate:     {officials, "only admins and election officials can update elections"},
	ElectionPublish:    {officials, "only admins and election officials can publish elections"},
	ElectionActivate:   {officials, "only admins and election officials can activate elections"},
	ElectionComplete:   {officials, "only admins and election officials can complete elections"},
	ElectionCancel:     {officials, "only admins and election officials can cancel elections"},
	CandidateVerify:    {officials, "only admins and election officials can verify candidates"},
	CandidateManageAny: {[]models.Role{models.RoleAdmin}, "not authorized to manage this candidate"},
	VoteInvalidate:     {officials, "only admins and election officials can invalidate votes"},
	VoteAudit:          {officials, "only admins and election officials can access vote records"},
	VoterVerify:        {officials, "only admins and election officials can manage voter eligibility"},
	UserAssignRole:     {[]models.Role{models.RoleAdmin}, "only admins can assign roles"},
}

// Allowed reports whether role may perform op. Unknown operations are denied.
func Allowed(op Operation, role models.Role) bool {
	r, ok := table[op]
	if !ok {
		return false
	}
	for _, allowed := range r.roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// RequireActive fails with common.ErrUnauthorized for deactivated accounts.
func RequireActive(id identity.Identity) error {
	if !id.IsActive || id.UserID == "" {
		return fmt.Errorf("%w: account is not active", common.ErrUnauthorized)
	}
	return nil
}

// Authorize checks that id is active and its role may perform op.
func Authorize(op Operation, id identity.Identity) error {
	if err := RequireActive(id); err != nil {
		return err
	}
	if !Allowed(op, id.Role) {
		msg := "operation not permitted"
		if r, ok := table[op]; ok {
			msg = r.message
		}
		return fmt.Errorf("%w: %s", common.ErrUnauthorized, msg)
	}
	return nil
}

// AuthorizeOwnerOr lets the owner of a resource through, otherwise defers
// to Authorize for op.
func AuthorizeOwnerOr(op Operation, id identity.Identity, ownerID string) error {
	if err := RequireActive(id); err != nil {
		return err
	}
	if id.UserID == ownerID {
		return nil
	}
	return Authorize(op, id)
}
