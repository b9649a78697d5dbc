package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/logging"
	"github.com/dmitrijs2005/voternet/internal/server/metrics"
	"github.com/dmitrijs2005/voternet/internal/server/models"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/repomanager"
)

// Archiver stores computed results outside the database.
type Archiver interface {
	Archive(ctx context.Context, r *models.ElectionResults) (string, error)
	DownloadURL(ctx context.Context, electionID string) (string, error)
}

type ResultsService struct {
	base
	archiver Archiver
}

// NewResultsService builds the tabulator. archiver may be nil, in which case
// archival is disabled.
func NewResultsService(db *sql.DB, rm repomanager.RepositoryManager, archiver Archiver, logger logging.Logger, m *metrics.Metrics) *ResultsService {
	return &ResultsService{base: newBase(db, rm, logger, m, "results"), archiver: archiver}
}

// Results tabulates valid votes of a completed election. Every candidate of
// the election is listed, including inactive ones with their counts.
func (s *ResultsService) Results(ctx context.Context, electionID string) (*models.ElectionResults, error) {
	e, err := s.repomanager.Elections(s.db).GetByID(ctx, electionID)
	if err != nil {
		return nil, notFound(err, "election")
	}
	if e.Status != models.StatusCompleted {
		return nil, stateConflict("results are only available for completed elections")
	}

	candidates, err := s.repomanager.Candidates(s.db).ListByElection(ctx, electionID, true)
	if err != nil {
		return nil, err
	}
	tally, err := s.repomanager.Votes(s.db).TallyByCandidate(ctx, electionID)
	if err != nil {
		return nil, err
	}

	return tabulate(e, candidates, tally), nil
}

func tabulate(e *models.Election, candidates []*models.Candidate, tally map[string]int64) *models.ElectionResults {
	var total int64
	for _, n := range tally {
		total += n
	}

	sorted := make([]*models.Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if tally[a.ID] != tally[b.ID] {
			return tally[a.ID] > tally[b.ID]
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	rows := make([]models.CandidateResult, 0, len(sorted))
	for _, c := range sorted {
		n := tally[c.ID]
		var pct float64
		if total > 0 {
			pct = float64(n) / float64(total) * 100
		}
		rows = append(rows, models.CandidateResult{
			CandidateID:      c.ID,
			CandidateName:    c.CandidateName,
			PartyAffiliation: c.PartyAffiliation,
			Votes:            n,
			Percentage:       pct,
		})
	}

	return &models.ElectionResults{Election: e, TotalValidVotes: total, Results: rows}
}

// ArchiveOnComplete is registered as an ElectionService completion hook.
// Archival is best effort: failures are logged and counted, never returned.
func (s *ResultsService) ArchiveOnComplete(ctx context.Context, e *models.Election) {
	if s.archiver == nil {
		return
	}

	r, err := s.Results(ctx, e.ID)
	if err != nil {
		s.metrics.Archived(false)
		s.logger.Error(ctx, "results tabulation for archive failed", "election_id", e.ID, "error", err)
		return
	}

	key, err := s.archiver.Archive(ctx, r)
	if err != nil {
		s.metrics.Archived(false)
		s.logger.Error(ctx, "results archive failed", "election_id", e.ID, "error", err)
		return
	}

	s.metrics.Archived(true)
	s.logger.Info(ctx, "results archived", "election_id", e.ID, "key", key)
}

// ArchiveURL returns a temporary download link for archived results.
func (s *ResultsService) ArchiveURL(ctx context.Context, electionID string) (string, error) {
	if s.archiver == nil {
		return "", fmt.Errorf("%w: results archive is not configured", common.ErrorNotFound)
	}

	e, err := s.repomanager.Elections(s.db).GetByID(ctx, electionID)
	if err != nil {
		return "", notFound(err, "election")
	}
	if e.Status != models.StatusCompleted {
		return "", stateConflict("results are only available for completed elections")
	}

	return s.archiver.DownloadURL(ctx, electionID)
}
