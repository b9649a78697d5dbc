package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/dbx"
	"github.com/dmitrijs2005/voternet/internal/server/models"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/auditlogs"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/candidates"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/elections"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/users"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/voters"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/votes"
)

// memStore backs every fake repository. It enforces the same uniqueness
// rules as the SQL schema but does not roll back on transaction failure.
type memStore struct {
	mu         sync.Mutex
	seq        int
	users      map[string]*models.User
	voters     map[string]*models.VoterRegistration
	elections  map[string]*models.Election
	candidates map[string]*models.Candidate
	votes      map[string]*models.Vote
	audit      []*models.AuditLog
}

var storeEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// tick returns a strictly increasing creation time. Callers hold mu.
func (m *memStore) tick() time.Time {
	m.seq++
	return storeEpoch.Add(time.Duration(m.seq) * time.Second)
}

type fakeRepoManager struct {
	store *memStore
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{store: &memStore{
		users:      map[string]*models.User{},
		voters:     map[string]*models.VoterRegistration{},
		elections:  map[string]*models.Election{},
		candidates: map[string]*models.Candidate{},
		votes:      map[string]*models.Vote{},
	}}
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository         { return fakeUsers{f.store} }
func (f *fakeRepoManager) Voters(dbx.DBTX) voters.Repository       { return fakeVoters{f.store} }
func (f *fakeRepoManager) Elections(dbx.DBTX) elections.Repository { return fakeElections{f.store} }
func (f *fakeRepoManager) Candidates(dbx.DBTX) candidates.Repository {
	return fakeCandidates{f.store}
}
func (f *fakeRepoManager) Votes(dbx.DBTX) votes.Repository         { return fakeVotes{f.store} }
func (f *fakeRepoManager) AuditLogs(dbx.DBTX) auditlogs.Repository { return fakeAudit{f.store} }

func (f *fakeRepoManager) auditActions(resourceID string) []string {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []string
	for _, l := range f.store.audit {
		if l.ResourceID == resourceID {
			out = append(out, l.ActionType)
		}
	}
	return out
}

// newTestDB opens an in-memory SQLite database. The fakes ignore it; it only
// gives dbx.WithTx real BEGIN/COMMIT semantics.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fakeUsers struct{ s *memStore }

func (r fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.users {
		if other.Email == u.Email {
			return nil, common.ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = r.s.tick()
	cp := *u
	r.s.users[u.ID] = &cp
	return u, nil
}

func (r fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r fakeUsers) UpdateProfile(_ context.Context, id, firstName, lastName string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.FirstName, u.LastName = firstName, lastName
	return nil
}

func (r fakeUsers) SetRole(_ context.Context, id string, role models.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Role = role
	return nil
}

type fakeVoters struct{ s *memStore }

func (r fakeVoters) Create(_ context.Context, reg *models.VoterRegistration) (*models.VoterRegistration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.voters[reg.UserID]; ok {
		return nil, common.ErrConflict
	}
	if reg.VoterIDNumber != nil {
		for _, other := range r.s.voters {
			if other.VoterIDNumber != nil && *other.VoterIDNumber == *reg.VoterIDNumber {
				return nil, common.ErrConflict
			}
		}
	}
	cp := *reg
	r.s.voters[reg.UserID] = &cp
	return reg, nil
}

func (r fakeVoters) Get(_ context.Context, userID string) (*models.VoterRegistration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.voters[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *reg
	return &cp, nil
}

func (r fakeVoters) SetEligible(_ context.Context, userID string, eligible bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.voters[userID]
	if !ok {
		return common.ErrorNotFound
	}
	reg.IsEligible = eligible
	return nil
}

func (r fakeVoters) MarkVerified(_ context.Context, userID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.voters[userID]
	if !ok {
		return common.ErrorNotFound
	}
	reg.EligibilityVerifiedAt = &at
	return nil
}

type fakeElections struct{ s *memStore }

func (r fakeElections) Create(_ context.Context, e *models.Election) (*models.Election, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = r.s.tick()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	r.s.elections[e.ID] = &cp
	return e, nil
}

func (r fakeElections) GetByID(_ context.Context, id string) (*models.Election, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.elections[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *e
	return &cp, nil
}

func (r fakeElections) UpdateDraft(_ context.Context, e *models.Election) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.elections[e.ID]
	if !ok || cur.Status != models.StatusDraft {
		return common.ErrStateConflict
	}
	cp := *e
	cp.Status = cur.Status
	r.s.elections[e.ID] = &cp
	return nil
}

func (r fakeElections) TransitionStatus(_ context.Context, id string, from, to models.ElectionStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.elections[id]
	if !ok || cur.Status != from {
		return common.ErrStateConflict
	}
	cur.Status = to
	cur.UpdatedAt = at
	return nil
}

func (r fakeElections) sorted(keep func(*models.Election) bool) []*models.Election {
	var out []*models.Election
	for _, e := range r.s.elections {
		if keep(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

func (r fakeElections) List(_ context.Context, f models.ElectionFilter) ([]*models.Election, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(e *models.Election) bool {
		switch {
		case f.Status != "" && e.Status != f.Status:
			return false
		case f.Type != "" && e.Type != f.Type:
			return false
		case f.Jurisdiction != "" && e.Jurisdiction != f.Jurisdiction:
			return false
		case f.StartFrom != nil && e.StartDate.Before(*f.StartFrom):
			return false
		case f.StartTo != nil && e.StartDate.After(*f.StartTo):
			return false
		}
		return true
	}), nil
}

func (r fakeElections) ListActive(_ context.Context, now time.Time) ([]*models.Election, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(e *models.Election) bool {
		return e.Status == models.StatusActive && e.InWindow(now)
	}), nil
}

func (r fakeElections) ListUpcoming(_ context.Context, now time.Time) ([]*models.Election, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(e *models.Election) bool {
		return (e.Status == models.StatusPublished || e.Status == models.StatusActive) && e.StartDate.After(now)
	}), nil
}

type fakeCandidates struct{ s *memStore }

// activeTaken mirrors the partial unique index on (user_id, election_id).
func (r fakeCandidates) activeTaken(userID, electionID, exceptID string) bool {
	for _, c := range r.s.candidates {
		if c.ID != exceptID && c.IsActive && c.UserID == userID && c.ElectionID == electionID {
			return true
		}
	}
	return false
}

func (r fakeCandidates) Create(_ context.Context, c *models.Candidate) (*models.Candidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.IsActive && r.activeTaken(c.UserID, c.ElectionID, "") {
		return nil, common.ErrConflict
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = r.s.tick()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	r.s.candidates[c.ID] = &cp
	return c, nil
}

func (r fakeCandidates) GetByID(_ context.Context, id string) (*models.Candidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.candidates[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (r fakeCandidates) GetInElection(ctx context.Context, id, electionID string) (*models.Candidate, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.ElectionID != electionID {
		return nil, common.ErrorNotFound
	}
	return c, nil
}

func (r fakeCandidates) FindActive(_ context.Context, userID, electionID string) (*models.Candidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.candidates {
		if c.IsActive && c.UserID == userID && c.ElectionID == electionID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r fakeCandidates) UpdateProfile(_ context.Context, c *models.Candidate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.candidates[c.ID]
	if !ok {
		return common.ErrorNotFound
	}
	cur.CandidateName = c.CandidateName
	cur.PartyAffiliation = c.PartyAffiliation
	cur.Bio, cur.Platform, cur.Website = c.Bio, c.Platform, c.Website
	cur.UpdatedAt = c.UpdatedAt
	return nil
}

func (r fakeCandidates) SetVerified(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.candidates[id]
	if !ok {
		return common.ErrorNotFound
	}
	cur.IsVerified = true
	cur.VerifiedAt = &at
	cur.UpdatedAt = at
	return nil
}

func (r fakeCandidates) SetActive(_ context.Context, id string, active bool, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.candidates[id]
	if !ok {
		return common.ErrorNotFound
	}
	if active && r.activeTaken(cur.UserID, cur.ElectionID, id) {
		return common.ErrConflict
	}
	cur.IsActive = active
	cur.UpdatedAt = at
	return nil
}

func (r fakeCandidates) list(keep func(*models.Candidate) bool, less func(a, b *models.Candidate) bool) []*models.Candidate {
	var out []*models.Candidate
	for _, c := range r.s.candidates {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (r fakeCandidates) ListByElection(_ context.Context, electionID string, includeInactive bool) ([]*models.Candidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(
		func(c *models.Candidate) bool { return c.ElectionID == electionID && (includeInactive || c.IsActive) },
		func(a, b *models.Candidate) bool {
			if a.CandidateName != b.CandidateName {
				return a.CandidateName < b.CandidateName
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}), nil
}

func (r fakeCandidates) ListByUser(_ context.Context, userID string) ([]*models.Candidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(
		func(c *models.Candidate) bool { return c.UserID == userID },
		func(a, b *models.Candidate) bool { return a.CreatedAt.After(b.CreatedAt) }), nil
}

func (r fakeCandidates) CountActive(_ context.Context, electionID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, c := range r.s.candidates {
		if c.ElectionID == electionID && c.IsActive {
			n++
		}
	}
	return n, nil
}

type fakeVotes struct{ s *memStore }

// Create mirrors UNIQUE (election_id, voter_id).
func (r fakeVotes) Create(_ context.Context, v *models.Vote) (*models.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.votes {
		if other.ElectionID == v.ElectionID && other.VoterID == v.VoterID {
			return nil, common.ErrConflict
		}
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	cp := *v
	// TIMESTAMPTZ keeps microseconds.
	cp.CreatedAt = cp.CreatedAt.Truncate(time.Microsecond)
	if cp.VerifiedAt != nil {
		at := cp.VerifiedAt.Truncate(time.Microsecond)
		cp.VerifiedAt = &at
	}
	r.s.votes[v.ID] = &cp
	return v, nil
}

func (r fakeVotes) GetByID(_ context.Context, id string) (*models.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.votes[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *v
	return &cp, nil
}

func (r fakeVotes) GetByVoter(_ context.Context, electionID, voterID string) (*models.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.votes {
		if v.ElectionID == electionID && v.VoterID == voterID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r fakeVotes) Exists(ctx context.Context, electionID, voterID string) (bool, error) {
	_, err := r.GetByVoter(ctx, electionID, voterID)
	return err == nil, nil
}

func (r fakeVotes) Invalidate(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.votes[id]
	if !ok {
		return common.ErrorNotFound
	}
	v.IsValid = false
	return nil
}

func (r fakeVotes) CountByElection(_ context.Context, electionID string, validOnly bool) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, v := range r.s.votes {
		if v.ElectionID == electionID && (!validOnly || v.IsValid) {
			n++
		}
	}
	return n, nil
}

func (r fakeVotes) CountByCandidate(_ context.Context, candidateID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, v := range r.s.votes {
		if v.CandidateID == candidateID && v.IsValid {
			n++
		}
	}
	return n, nil
}

func (r fakeVotes) TallyByCandidate(_ context.Context, electionID string) (map[string]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[string]int64{}
	for _, v := range r.s.votes {
		if v.ElectionID == electionID && v.IsValid {
			out[v.CandidateID]++
		}
	}
	return out, nil
}

func (r fakeVotes) ListByElection(_ context.Context, electionID string) ([]*models.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Vote
	for _, v := range r.s.votes {
		if v.ElectionID == electionID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type fakeAudit struct{ s *memStore }

func (r fakeAudit) Create(_ context.Context, l *models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	cp := *l
	r.s.audit = append(r.s.audit, &cp)
	return nil
}

func (r fakeAudit) ListByResource(_ context.Context, resourceType, resourceID string) ([]*models.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.AuditLog
	for _, l := range r.s.audit {
		if l.ResourceType == resourceType && l.ResourceID == resourceID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}
