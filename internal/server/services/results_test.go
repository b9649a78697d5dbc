package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/server/models"
)

type fakeArchiver struct {
	archived []*models.ElectionResults
	err      error
}

func (f *fakeArchiver) Archive(_ context.Context, r *models.ElectionResults) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.archived = append(f.archived, r)
	return "results/" + r.Election.ID + ".json", nil
}

func (f *fakeArchiver) DownloadURL(_ context.Context, electionID string) (string, error) {
	return "https://archive.example/results/" + electionID + ".json", nil
}

func TestTabulate(t *testing.T) {
	t0 := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	e := &models.Election{ID: "e-1"}
	cs := []*models.Candidate{
		{ID: "c-b", CandidateName: "Bob", CreatedAt: t0.Add(time.Minute)},
		{ID: "c-a", CandidateName: "Alice", CreatedAt: t0},
		{ID: "c-z", CandidateName: "Zed", CreatedAt: t0},
		{ID: "c-y", CandidateName: "Yan", CreatedAt: t0.Add(time.Hour), IsActive: false},
	}

	t.Run("sorted with tie-breaks", func(t *testing.T) {
		r := tabulate(e, cs, map[string]int64{"c-a": 2, "c-b": 2, "c-z": 2, "c-y": 4})

		var order []string
		var sum float64
		for _, row := range r.Results {
			order = append(order, row.CandidateID)
			sum += row.Percentage
		}
		assert.Equal(t, []string{"c-y", "c-a", "c-z", "c-b"}, order)
		assert.Equal(t, int64(10), r.TotalValidVotes)
		assert.InDelta(t, 40.0, r.Results[0].Percentage, 1e-9)
		assert.InDelta(t, 100.0, sum, 1e-9)
	})

	t.Run("no votes", func(t *testing.T) {
		r := tabulate(e, cs, map[string]int64{})
		require.Len(t, r.Results, 4)
		assert.Zero(t, r.TotalValidVotes)
		for _, row := range r.Results {
			assert.Zero(t, row.Votes)
			assert.Zero(t, row.Percentage)
		}
		assert.Equal(t, "c-a", r.Results[0].CandidateID)
	})

	t.Run("input untouched", func(t *testing.T) {
		tabulate(e, cs, map[string]int64{"c-y": 1})
		assert.Equal(t, "c-b", cs[0].ID)
	})
}

func TestResultsService_Results(t *testing.T) {
	h := newHarness(t)
	e, cs := h.activeElection("Alice", "Bob")

	for i, id := range []string{"v-1", "v-2", "v-3"} {
		h.registerVoter(id, true)
		pick := cs[0]
		if i == 2 {
			pick = cs[1]
		}
		_, err := h.voting.CastVote(h.ctx, voter(id), CastVoteInput{ElectionID: e.ID, CandidateID: pick.ID, VoterID: id})
		require.NoError(t, err)
	}

	_, err := h.results.Results(h.ctx, e.ID)
	assert.ErrorIs(t, err, common.ErrStateConflict)

	_, err = h.results.Results(h.ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = h.results.ArchiveURL(h.ctx, e.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound, "archive disabled")

	h.clock.Set(e.EndDate)
	_, err = h.elections.Complete(h.ctx, official, e.ID)
	require.NoError(t, err)

	r, err := h.results.Results(h.ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.TotalValidVotes)
	require.Len(t, r.Results, 2)
	assert.Equal(t, cs[0].ID, r.Results[0].CandidateID)
	assert.Equal(t, int64(2), r.Results[0].Votes)
	assert.InDelta(t, 66.67, r.Results[0].Percentage, 0.01)
	assert.InDelta(t, 33.33, r.Results[1].Percentage, 0.01)
}

func TestResultsService_Archive(t *testing.T) {
	h := newHarness(t)
	arch := &fakeArchiver{}
	h.results.archiver = arch
	h.elections.OnComplete(h.results.ArchiveOnComplete)

	e, cs := h.activeElection("Alice")
	h.registerVoter("v-1", true)
	_, err := h.voting.CastVote(h.ctx, voter("v-1"), CastVoteInput{ElectionID: e.ID, CandidateID: cs[0].ID, VoterID: "v-1"})
	require.NoError(t, err)

	_, err = h.results.ArchiveURL(h.ctx, e.ID)
	assert.ErrorIs(t, err, common.ErrStateConflict)

	h.clock.Set(e.EndDate)
	_, err = h.elections.Complete(h.ctx, official, e.ID)
	require.NoError(t, err)

	require.Len(t, arch.archived, 1)
	assert.Equal(t, int64(1), arch.archived[0].TotalValidVotes)
	assert.Equal(t, 1.0, h.counter("voternet_results_archived_total"))

	url, err := h.results.ArchiveURL(h.ctx, e.ID)
	require.NoError(t, err)
	assert.Contains(t, url, e.ID)
}

func TestResultsService_ArchiveFailureDoesNotFailCompletion(t *testing.T) {
	h := newHarness(t)
	h.results.archiver = &fakeArchiver{err: errors.New("bucket unavailable")}
	h.elections.OnComplete(h.results.ArchiveOnComplete)

	e, _ := h.activeElection("Alice")
	h.clock.Set(e.EndDate)

	got, err := h.elections.Complete(h.ctx, official, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, 1.0, h.counter("voternet_results_archived_total"))
}
