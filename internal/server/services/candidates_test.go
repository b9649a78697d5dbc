package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/server/models"
)

func TestCandidateService_Register(t *testing.T) {
	h := newHarness(t)
	e := h.draftElection()

	_, err := h.candidates.Register(h.ctx, voter("nobody"), CandidateInput{ElectionID: e.ID, CandidateName: "Nobody"})
	assert.ErrorIs(t, err, common.ErrForbidden, "not a registered voter")

	c := h.addCandidate(e.ID, "c-1", "Alice")
	assert.Equal(t, models.PartyIndependent, c.PartyAffiliation)
	assert.True(t, c.IsActive)
	assert.False(t, c.IsVerified)

	_, err = h.candidates.Register(h.ctx, voter("c-1"), CandidateInput{ElectionID: e.ID, CandidateName: "Alice again"})
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = h.candidates.Register(h.ctx, voter("c-1"), CandidateInput{ElectionID: "missing", CandidateName: "Alice"})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	h.registerVoter("c-2", false)
	_, err = h.candidates.Register(h.ctx, voter("c-2"), CandidateInput{ElectionID: e.ID, CandidateName: " "})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = h.candidates.Register(h.ctx, voter("c-2"), CandidateInput{ElectionID: e.ID, CandidateName: "Bob", PartyAffiliation: "whig"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = h.voters.SetEligible(h.ctx, official, "c-2", false)
	require.NoError(t, err)
	_, err = h.candidates.Register(h.ctx, voter("c-2"), CandidateInput{ElectionID: e.ID, CandidateName: "Bob"})
	assert.ErrorIs(t, err, common.ErrForbidden)

	ok, err := h.candidates.IsCandidate(h.ctx, "c-1", e.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = h.candidates.IsCandidate(h.ctx, "c-2", e.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCandidateService_RegisterClosedElection(t *testing.T) {
	h := newHarness(t)
	e, _ := h.activeElection("Alice")

	h.registerVoter("late", false)
	_, err := h.candidates.Register(h.ctx, voter("late"), CandidateInput{ElectionID: e.ID, CandidateName: "Late"})
	assert.ErrorIs(t, err, common.ErrStateConflict)

	published := h.draftElection()
	h.addCandidate(published.ID, "c-9", "Zed")
	_, err = h.elections.Publish(h.ctx, official, published.ID)
	require.NoError(t, err)

	h.clock.Set(published.StartDate)
	_, err = h.candidates.Register(h.ctx, voter("late"), CandidateInput{ElectionID: published.ID, CandidateName: "Late"})
	assert.ErrorIs(t, err, common.ErrStateConflict, "registration closes at start date")
}

func TestCandidateService_UpdateAndVerify(t *testing.T) {
	h := newHarness(t)
	e := h.draftElection()
	c := h.addCandidate(e.ID, "c-1", "Alice")

	bio := "Teacher"
	got, err := h.candidates.Update(h.ctx, voter("c-1"), c.ID, CandidateUpdate{Bio: &bio})
	require.NoError(t, err)
	require.NotNil(t, got.Bio)
	assert.Equal(t, "Teacher", *got.Bio)

	_, err = h.candidates.Update(h.ctx, voter("someone"), c.ID, CandidateUpdate{Bio: &bio})
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = h.candidates.Update(h.ctx, admin, c.ID, CandidateUpdate{Bio: &bio})
	assert.NoError(t, err)

	_, err = h.candidates.Verify(h.ctx, voter("c-1"), c.ID)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	got, err = h.candidates.Verify(h.ctx, official, c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	assert.NotNil(t, got.VerifiedAt)
	assert.Equal(t, []string{"candidate.verify"}, h.rm.auditActions(c.ID))

	_, err = h.elections.Publish(h.ctx, official, e.ID)
	require.NoError(t, err)
	h.advance(time.Hour)
	_, err = h.elections.Activate(h.ctx, official, e.ID)
	require.NoError(t, err)

	_, err = h.candidates.Update(h.ctx, voter("c-1"), c.ID, CandidateUpdate{Bio: &bio})
	assert.ErrorIs(t, err, common.ErrStateConflict)
}

func TestCandidateService_DeactivateReactivate(t *testing.T) {
	h := newHarness(t)
	e := h.draftElection()
	c := h.addCandidate(e.ID, "c-1", "Alice")

	got, err := h.candidates.Deactivate(h.ctx, voter("c-1"), c.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	// idempotent
	_, err = h.candidates.Deactivate(h.ctx, voter("c-1"), c.ID)
	require.NoError(t, err)

	list, err := h.candidates.List(h.ctx, e.ID, false)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = h.candidates.List(h.ctx, e.ID, true)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	second, err := h.candidates.Register(h.ctx, voter("c-1"), CandidateInput{ElectionID: e.ID, CandidateName: "Alice B."})
	require.NoError(t, err)

	_, err = h.candidates.Reactivate(h.ctx, voter("c-1"), c.ID)
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = h.candidates.Deactivate(h.ctx, admin, second.ID)
	require.NoError(t, err)

	got, err = h.candidates.Reactivate(h.ctx, voter("c-1"), c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	mine, err := h.candidates.ForUser(h.ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID, "newest first")

	_, err = h.elections.Publish(h.ctx, official, e.ID)
	require.NoError(t, err)
	h.advance(time.Hour)
	_, err = h.elections.Activate(h.ctx, official, e.ID)
	require.NoError(t, err)

	_, err = h.candidates.Deactivate(h.ctx, voter("c-1"), c.ID)
	assert.ErrorIs(t, err, common.ErrStateConflict)
	_, err = h.candidates.Reactivate(h.ctx, voter("c-1"), second.ID)
	assert.ErrorIs(t, err, common.ErrStateConflict)

	// two registrations, two withdrawals, one reactivation
	assert.Equal(t, 5.0, h.counter("voternet_candidate_events_total"))
}
