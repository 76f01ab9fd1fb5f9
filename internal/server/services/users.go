// Package services contains the server-side business logic shared by the
// HTTP and gRPC transports.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dmitrijs2005/vaultdrop/internal/cryptox"
	"github.com/dmitrijs2005/vaultdrop/internal/dbx"
	"github.com/dmitrijs2005/vaultdrop/internal/server/auth"
	"github.com/dmitrijs2005/vaultdrop/internal/server/config"
	"github.com/dmitrijs2005/vaultdrop/internal/server/models"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type RegisterInput struct {
	Name     string `validate:"required,min=2,max=100"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8,max=512"`
}

type profileUpdate struct {
	Name string `validate:"required,min=2,max=100"`
}

// Profile is a user together with the plan allowance.
type Profile struct {
	User  *models.User
	Quota int64
}

type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	isAdmin                      func(email string) bool
	validate                     *validator.Validate
	now                          func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		isAdmin:                      cfg.IsAdmin,
		validate:                     validator.New(),
		now:                          time.Now,
	}
}

func (s *UserService) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on %s", common.ErrValidation, strings.ToLower(fe.Field()), fe.Tag())
		}
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return nil
}

// Register creates an account on the free plan.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.check(in); err != nil {
		return nil, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	user := &models.User{Name: in.Name, Email: in.Email, PasswordHash: hash, Plan: models.PlanFree}
	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnPasswordCheck spends the same work as a real verification so unknown
// emails are not told apart by response time.
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = cryptox.HashPassword("vaultdrop-dummy")
	})
	_, _ = cryptox.VerifyPassword(dummyHash, password)
}

// Login verifies credentials and issues a TokenPair.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			burnPasswordCheck(password)
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	ok, err := cryptox.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	if user.IsBlocked {
		return nil, common.ErrUserBlocked
	}

	return s.generateTokenPair(ctx, user, s.db)
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(s.now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	if user.IsBlocked {
		return nil, common.ErrUserBlocked
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				// consumed concurrently
				return common.ErrInvalidToken
			}
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *UserService) Profile(ctx context.Context, caller *auth.Identity) (*Profile, error) {
	if caller == nil {
		return nil, common.ErrorUnauthorized
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Quota: user.Plan.Quota()}, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, caller *auth.Identity, name string) (*Profile, error) {
	if caller == nil {
		return nil, common.ErrorUnauthorized
	}
	upd := profileUpdate{Name: strings.TrimSpace(name)}
	if err := s.check(upd); err != nil {
		return nil, err
	}
	if err := s.repomanager.Users(s.db).UpdateName(ctx, caller.UserID, upd.Name); err != nil {
		return nil, err
	}
	return s.Profile(ctx, caller)
}

func (s *UserService) ListUsers(ctx context.Context, caller *auth.Identity) ([]*models.User, error) {
	if caller == nil || !caller.IsAdmin {
		return nil, common.ErrorForbidden
	}
	return s.repomanager.Users(s.db).List(ctx)
}

// SetBlocked blocks or unblocks an account. Admins cannot block themselves.
func (s *UserService) SetBlocked(ctx context.Context, caller *auth.Identity, userID string, blocked bool) error {
	if caller == nil || !caller.IsAdmin {
		return common.ErrorForbidden
	}
	if blocked && userID == caller.UserID {
		return fmt.Errorf("%w: cannot block yourself", common.ErrValidation)
	}
	return s.repomanager.Users(s.db).SetBlocked(ctx, userID, blocked)
}

// PurgeRefreshTokens drops refresh tokens that can no longer be used.
func (s *UserService) PurgeRefreshTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.now())
}

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	id := auth.Identity{UserID: user.ID, Email: user.Email, IsAdmin: s.isAdmin(user.Email)}
	access, err := auth.GenerateToken(id, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	expires := s.now().Add(s.refreshTokenValidityDuration)
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, refresh, expires); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
