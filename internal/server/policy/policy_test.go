package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/server/identity"
	"github.com/dmitrijs2005/voternet/internal/server/models"
)

func TestAllowed_Table(t *testing.T) {
	roles := []models.Role{models.RoleVoter, models.RoleVolunteer, models.RoleCampaignStaff, models.RoleElectionOfficial, models.RoleAdmin}

	for op := range table {
		for _, role := range roles {
			want := role == models.RoleAdmin ||
				(role == models.RoleElectionOfficial && op != CandidateManageAny && op != UserAssignRole)
			assert.Equal(t, want, Allowed(op, role), "%s/%s", op, role)
		}
	}

	assert.False(t, Allowed(Operation("unknown"), models.RoleAdmin))
}

func TestAuthorize(t *testing.T) {
	official := identity.Identity{UserID: "u-1", Role: models.RoleElectionOfficial, IsActive: true}
	voter := identity.Identity{UserID: "u-2", Role: models.RoleVoter, IsActive: true}
	inactive := identity.Identity{UserID: "u-3", Role: models.RoleAdmin}

	require.NoError(t, Authorize(ElectionCreate, official))

	err := Authorize(ElectionCreate, voter)
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
	assert.Contains(t, err.Error(), "create elections")

	assert.ErrorIs(t, Authorize(ElectionCreate, inactive), common.ErrUnauthorized)
}

func TestAuthorizeOwnerOr(t *testing.T) {
	owner := identity.Identity{UserID: "u-1", Role: models.RoleVoter, IsActive: true}
	admin := identity.Identity{UserID: "u-9", Role: models.RoleAdmin, IsActive: true}
	other := identity.Identity{UserID: "u-2", Role: models.RoleElectionOfficial, IsActive: true}

	assert.NoError(t, AuthorizeOwnerOr(CandidateManageAny, owner, "u-1"))
	assert.NoError(t, AuthorizeOwnerOr(CandidateManageAny, admin, "u-1"))
	assert.ErrorIs(t, AuthorizeOwnerOr(CandidateManageAny, other, "u-1"), common.ErrUnauthorized)

	owner.IsActive = false
	assert.ErrorIs(t, AuthorizeOwnerOr(CandidateManageAny, owner, "u-1"), common.ErrUnauthorized)
}
