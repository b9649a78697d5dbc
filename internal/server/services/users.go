package services

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/dbx"
	"github.com/dmitrijs2005/voternet/internal/logging"
	"github.com/dmitrijs2005/voternet/internal/server/auth"
	"github.com/dmitrijs2005/voternet/internal/server/config"
	"github.com/dmitrijs2005/voternet/internal/server/identity"
	"github.com/dmitrijs2005/voternet/internal/server/metrics"
	"github.com/dmitrijs2005/voternet/internal/server/models"
	"github.com/dmitrijs2005/voternet/internal/server/policy"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/repomanager"
)

const (
	minPasswordLength = 8
	maxNameLength     = 100
)

// ProfileUpdate changes the caller's name. Nil fields are left alone.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
}

// UserService handles accounts: registration, login, access tokens,
// profiles and role assignment.
type UserService struct {
	base
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	hashCost                    int
}

func NewUserService(db *sql.DB, rm repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger, m *metrics.Metrics) *UserService {
	return &UserService{
		base:                        newBase(db, rm, logger, m, "users"),
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		hashCost:                    bcrypt.DefaultCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) create(ctx context.Context, email, password string, role models.Role) (*models.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, validation("invalid email address")
	}
	if len(password) < minPasswordLength {
		return nil, validation("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, err
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
		CreatedAt:    s.now(),
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, conflict("email is already registered")
		}
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID, "role", string(u.Role))
	return u, nil
}

// Register creates a voter account.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	return s.create(ctx, email, password, models.RoleVoter)
}

// EnsureAdmin creates the bootstrap admin unless a user with that email
// already exists.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	_, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return err
	}

	_, err = s.create(ctx, email, password, models.RoleAdmin)
	if errors.Is(err, common.ErrConflict) {
		return nil
	}
	return err
}

// Login verifies credentials and returns a signed access token. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", common.ErrorUnauthorized
	}
	if !u.IsActive {
		return "", common.ErrorUnauthorized
	}

	return auth.GenerateToken(u.ID, u.Role, s.jwtSecret, s.accessTokenValidityDuration)
}

// Identity resolves an access token to the caller. Role and active flag are read
// from storage so role changes and deactivation apply to tokens already issued.
func (s *UserService) Identity(ctx context.Context, token string) (identity.Identity, error) {
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return identity.Identity{}, err
	}

	u, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return identity.Identity{}, common.ErrInvalidToken
		}
		return identity.Identity{}, err
	}

	return identity.Identity{UserID: u.ID, Role: u.Role, IsActive: u.IsActive}, nil
}

// Profile returns the caller's own account.
func (s *UserService) Profile(ctx context.Context, actor identity.Identity) (*models.User, error) {
	if err := policy.RequireActive(actor); err != nil {
		return nil, err
	}
	u, err := s.repomanager.Users(s.db).GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

type profileAudit struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func cleanName(v *string, current string) (string, error) {
	if v == nil {
		return current, nil
	}
	name := strings.TrimSpace(*v)
	if len(name) > maxNameLength {
		return "", validation("names must be at most 100 characters")
	}
	return name, nil
}

// UpdateProfile changes the caller's name and records a profile_updated
// audit row in the same transaction.
func (s *UserService) UpdateProfile(ctx context.Context, actor identity.Identity, in ProfileUpdate) (*models.User, error) {
	if err := policy.RequireActive(actor); err != nil {
		return nil, err
	}

	var u *models.User
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		cur, err := repo.GetByID(ctx, actor.UserID)
		if err != nil {
			return notFound(err, "user")
		}

		first, err := cleanName(in.FirstName, cur.FirstName)
		if err != nil {
			return err
		}
		last, err := cleanName(in.LastName, cur.LastName)
		if err != nil {
			return err
		}

		if err := repo.UpdateProfile(ctx, cur.ID, first, last); err != nil {
			return err
		}
		old := profileAudit{FirstName: cur.FirstName, LastName: cur.LastName}
		cur.FirstName, cur.LastName = first, last
		if err := s.audit(ctx, tx, actor, "profile_updated", "user", cur.ID, old, profileAudit{first, last}); err != nil {
			return err
		}
		u = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// AssignRole changes another user's role. Admins cannot change their own role.
func (s *UserService) AssignRole(ctx context.Context, actor identity.Identity, userID string, role models.Role) (*models.User, error) {
	if err := policy.Authorize(policy.UserAssignRole, actor); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, validation("unknown role")
	}
	if userID == actor.UserID {
		return nil, forbidden("cannot change your own role")
	}

	var u *models.User
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		cur, err := repo.GetByID(ctx, userID)
		if err != nil {
			return notFound(err, "user")
		}
		if cur.Role == role {
			u = cur
			return nil
		}

		if err := repo.SetRole(ctx, cur.ID, role); err != nil {
			return err
		}
		old := map[string]string{"role": string(cur.Role)}
		cur.Role = role
		if err := s.audit(ctx, tx, actor, "role_changed", "user", cur.ID, old, map[string]string{"role": string(role)}); err != nil {
			return err
		}
		u = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "role assigned", "user_id", u.ID, "role", string(u.Role), "by", actor.UserID)
	return u, nil
}
