// Package services contains server-side business logic. AuthService handles
// registration, login, refresh-token rotation and logout; OnboardingService
// moves creators through their status progression; AvatarService hands out
// presigned object storage URLs.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/pulse/internal/access"
	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/dbx"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/server/auth"
	"github.com/dmitrijs2005/pulse/internal/server/config"
	"github.com/dmitrijs2005/pulse/internal/server/models"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/repomanager"
)

// RegisterInput is the public signup payload. Admin accounts cannot be
// created through it.
type RegisterInput struct {
	Email          string      `json:"email" validate:"required,email,max=255"`
	Password       string      `json:"password" validate:"required,min=6,max=72"`
	FirstName      string      `json:"firstName" validate:"required,max=100"`
	LastName       string      `json:"lastName" validate:"required,max=100"`
	Role           models.Role `json:"role" validate:"required,oneof=creator subscriber"`
	NewsletterName string      `json:"newsletterName" validate:"omitempty,max=200"`
}

func (in *RegisterInput) normalize() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.NewsletterName = strings.TrimSpace(in.NewsletterName)
	if in.Role == "" {
		in.Role = models.RoleCreator
	}
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User   *models.User
	Tokens *auth.TokenPair
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	hasher      *auth.PasswordHasher
	logger      logging.Logger
	now         func() time.Time
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		issuer: auth.NewIssuer(cfg.SecretKey, cfg.JWTIssuer,
			cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration),
		hasher: auth.NewPasswordHasher(cfg.BcryptCost),
		logger: logger,
		now:    time.Now,
	}
}

// Issuer exposes the token issuer so transport middleware can verify access
// tokens with the same key and issuer.
func (s *AuthService) Issuer() *auth.Issuer { return s.issuer }

// Register creates a user in draft status and signs them in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.normalize()
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Users(s.db).GetByEmail(ctx, in.Email); err == nil {
		return nil, common.ErrEmailTaken
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error checking email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if auth.IsTooLong(err) {
			return nil, common.NewValidationError("password", "must be at most 72 bytes")
		}
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Email:         in.Email,
		PasswordHash:  hash,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Role:          in.Role,
		CreatorStatus: access.StatusDraft,
	}
	if in.NewsletterName != "" {
		user.NewsletterName = &in.NewsletterName
	}

	var res *AuthResult
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.ErrEmailTaken
			}
			return fmt.Errorf("error creating user: %w", err)
		}

		// The inserted row stays locked by this transaction, so the token
		// write below cannot race another session of the same user.
		pair, err := s.rotate(ctx, tx, created)
		if err != nil {
			return err
		}
		res = &AuthResult{User: created, Tokens: pair}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", res.User.ID, "role", res.User.Role)
	return res, nil
}

// Login checks credentials and issues a fresh pair, replacing any refresh
// token the user held. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.CompareDummy(in.Password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !s.hasher.Compare(user.PasswordHash, in.Password) {
		return nil, common.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, common.ErrAccountDeactivated
	}

	var pair *auth.TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		locked, err := s.repomanager.Users(tx).LockByID(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("error locking user: %w", err)
		}
		user = locked
		pair, err = s.rotate(ctx, tx, locked)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Tokens: pair}, nil
}

// RefreshTokens exchanges a valid refresh token for a new pair. The presented
// token must be the one currently stored for its user; after a successful
// call it no longer is. Every failure wraps common.ErrInvalidRefreshToken.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, common.NewValidationError("refreshToken", "is required")
	}

	claims, err := s.issuer.Parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		s.logger.Debug(ctx, "refresh token rejected", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidRefreshToken, err)
	}

	var (
		pair    *auth.TokenPair
		failure error
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).LockByID(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidRefreshToken
			}
			return fmt.Errorf("error locking user: %w", err)
		}
		if !user.IsActive {
			return fmt.Errorf("%w: %w", common.ErrInvalidRefreshToken, common.ErrAccountDeactivated)
		}

		tokens := s.repomanager.RefreshTokens(tx)
		stored, err := tokens.FindByUser(ctx, user.ID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidRefreshToken
			}
			return fmt.Errorf("error searching refresh token: %w", err)
		}
		if !auth.TokenMatches(refreshToken, stored.TokenHash) {
			return common.ErrInvalidRefreshToken
		}

		// An expired record is removed and the removal committed, while the
		// caller still gets an error.
		if stored.Expired(s.now()) {
			if err := tokens.DeleteByUser(ctx, user.ID); err != nil {
				return fmt.Errorf("error deleting refresh token: %w", err)
			}
			failure = fmt.Errorf("%w: %w", common.ErrInvalidRefreshToken, common.ErrRefreshTokenExpired)
			return nil
		}

		pair, err = s.rotate(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, failure
	}
	return pair, nil
}

// Logout revokes every refresh token of userID. Access tokens stay valid
// until they expire.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.repomanager.RefreshTokens(s.db).DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("error deleting refresh tokens: %w", err)
	}
	return nil
}

// ValidateUser loads the user behind an access token.
func (s *AuthService) ValidateUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	if !user.IsActive {
		return nil, common.ErrAccountDeactivated
	}
	return user, nil
}

// PurgeExpiredTokens deletes refresh records that are past their expiry.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.now())
}

// rotate replaces the user's stored refresh token with a newly issued one.
// It must run inside a transaction that holds the user's row lock.
func (s *AuthService) rotate(ctx context.Context, tx dbx.DBTX, user *models.User) (*auth.TokenPair, error) {
	pair, err := s.issuer.Issue(auth.Subject{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	})
	if err != nil {
		return nil, fmt.Errorf("error issuing tokens: %w", err)
	}

	tokens := s.repomanager.RefreshTokens(tx)
	if err := tokens.DeleteByUser(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("error deleting refresh token: %w", err)
	}
	if err := tokens.Create(ctx, user.ID, auth.HashToken(pair.RefreshToken), pair.RefreshExpiresAt); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}
	return pair, nil
}
