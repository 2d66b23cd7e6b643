package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/pulse/internal/access"
	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/dbx"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/server/models"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/repomanager"
)

const (
	verificationCodeLength  = 6
	verificationCodeTTL     = 15 * time.Minute
	maxVerificationAttempts = 5

	// Subscription prices are in KES cents.
	MinSubscriptionPrice int64 = 10_000
	MaxSubscriptionPrice int64 = 1_000_000
)

// CodeSender delivers email verification codes.
type CodeSender interface {
	SendVerificationCode(ctx context.Context, user *models.User, code string) error
}

// LogCodeSender only records that a code was issued. It is the default when
// no mail transport is configured.
type LogCodeSender struct {
	Logger logging.Logger
}

func (l LogCodeSender) SendVerificationCode(ctx context.Context, user *models.User, code string) error {
	l.Logger.Info(ctx, "verification code issued", "user_id", user.ID, "email", user.Email)
	l.Logger.Debug(ctx, "verification code", "user_id", user.ID, "code", code)
	return nil
}

type VerifyEmailInput struct {
	Code string `json:"code" validate:"required,len=6,number"`
}

type ProfileInput struct {
	NewsletterName string `json:"newsletterName" validate:"required,min=3,max=200"`
	SenderName     string `json:"senderName" validate:"omitempty,max=100"`
}

type PricingInput struct {
	SubscriptionPrice int64 `json:"subscriptionPrice" validate:"min=10000,max=1000000"`
}

type PayoutInput struct {
	PayoutPhone string `json:"payoutPhone" validate:"required,len=12,number,startswith=254"`
}

// OnboardingService advances a creator's status one step at a time. Every
// change runs in a transaction holding the user's row lock.
type OnboardingService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sender      CodeSender
	logger      logging.Logger
	now         func() time.Time
}

func NewOnboardingService(db *sql.DB, m repomanager.RepositoryManager, sender CodeSender, logger logging.Logger) *OnboardingService {
	return &OnboardingService{
		db:          db,
		repomanager: m,
		sender:      sender,
		logger:      logger,
		now:         time.Now,
	}
}

// SendEmailVerification replaces any outstanding code of the user with a new
// one and hands it to the CodeSender.
func (s *OnboardingService) SendEmailVerification(ctx context.Context, userID string) error {
	var (
		user *models.User
		code string
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.lockCreator(ctx, tx, userID)
		if err != nil {
			return err
		}
		if u.EmailVerified || !access.CanTransition(u.CreatorStatus, access.StatusEmailVerified) {
			return fmt.Errorf("%w: email already verified", common.ErrInvalidTransition)
		}

		code, err = common.RandomDigits(verificationCodeLength)
		if err != nil {
			return fmt.Errorf("error generating code: %w", err)
		}

		codes := s.repomanager.Verifications(tx)
		if err := codes.DeleteByUser(ctx, u.ID); err != nil {
			return fmt.Errorf("error deleting codes: %w", err)
		}
		if err := codes.Create(ctx, &models.EmailVerification{
			UserID:    u.ID,
			Code:      code,
			ExpiresAt: s.now().Add(verificationCodeTTL),
		}); err != nil {
			return fmt.Errorf("error storing code: %w", err)
		}
		user = u
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.sender.SendVerificationCode(ctx, user, code); err != nil {
		return fmt.Errorf("error sending code: %w", err)
	}
	return nil
}

// VerifyEmail checks code against the latest outstanding one and moves the
// creator from draft to email_verified. Wrong guesses are counted even
// though the call fails.
func (s *OnboardingService) VerifyEmail(ctx context.Context, userID string, in VerifyEmailInput) (*models.User, error) {
	in.Code = strings.TrimSpace(in.Code)
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	var (
		user    *models.User
		failure error
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.lockCreator(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !access.CanTransition(u.CreatorStatus, access.StatusEmailVerified) {
			return fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, u.CreatorStatus, access.StatusEmailVerified)
		}

		codes := s.repomanager.Verifications(tx)
		v, err := codes.Latest(ctx, u.ID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrNoPendingVerification
			}
			return fmt.Errorf("error loading code: %w", err)
		}

		switch {
		case !s.now().Before(v.ExpiresAt):
			return common.ErrVerificationExpired
		case v.Attempts >= maxVerificationAttempts:
			return common.ErrVerificationAttempts
		case subtle.ConstantTimeCompare([]byte(v.Code), []byte(in.Code)) != 1:
			if err := codes.IncrementAttempts(ctx, v.ID); err != nil {
				return fmt.Errorf("error counting attempt: %w", err)
			}
			failure = common.ErrVerificationCode
			return nil
		}

		if err := codes.MarkVerified(ctx, v.ID); err != nil {
			return fmt.Errorf("error marking code: %w", err)
		}
		users := s.repomanager.Users(tx)
		if err := users.MarkEmailVerified(ctx, u.ID); err != nil {
			return fmt.Errorf("error marking email: %w", err)
		}
		if err := users.UpdateStatus(ctx, u.ID, access.StatusEmailVerified, nil); err != nil {
			return fmt.Errorf("error updating status: %w", err)
		}
		u.EmailVerified = true
		u.CreatorStatus = access.StatusEmailVerified
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, failure
	}
	return user, nil
}

func (s *OnboardingService) SetupProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	in.NewsletterName = strings.TrimSpace(in.NewsletterName)
	in.SenderName = strings.TrimSpace(in.SenderName)
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	if in.SenderName == "" {
		in.SenderName = in.NewsletterName
	}

	return s.advance(ctx, userID, access.StatusProfileCreated, func(ctx context.Context, tx dbx.DBTX, u *models.User) error {
		if err := s.repomanager.Users(tx).UpdateProfile(ctx, u.ID, in.NewsletterName, in.SenderName); err != nil {
			return fmt.Errorf("error updating profile: %w", err)
		}
		u.NewsletterName = &in.NewsletterName
		u.SenderName = &in.SenderName
		return nil
	})
}

func (s *OnboardingService) SetPricing(ctx context.Context, userID string, in PricingInput) (*models.User, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	return s.advance(ctx, userID, access.StatusPricingSet, func(ctx context.Context, tx dbx.DBTX, u *models.User) error {
		if err := s.repomanager.Users(tx).UpdatePricing(ctx, u.ID, in.SubscriptionPrice); err != nil {
			return fmt.Errorf("error updating pricing: %w", err)
		}
		u.SubscriptionPrice = &in.SubscriptionPrice
		return nil
	})
}

// SubmitPayout records an M-Pesa number (254XXXXXXXXX) and puts the creator
// into payout review.
func (s *OnboardingService) SubmitPayout(ctx context.Context, userID string, in PayoutInput) (*models.User, error) {
	in.PayoutPhone = normalizePhone(in.PayoutPhone)
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	return s.advance(ctx, userID, access.StatusPayoutPendingReview, func(ctx context.Context, tx dbx.DBTX, u *models.User) error {
		if err := s.repomanager.Users(tx).UpdatePayout(ctx, u.ID, in.PayoutPhone); err != nil {
			return fmt.Errorf("error updating payout: %w", err)
		}
		u.PayoutPhone = &in.PayoutPhone
		return nil
	})
}

// ApprovePayout is the admin review step: payout_pending_review -> active_earning.
func (s *OnboardingService) ApprovePayout(ctx context.Context, creatorID string) (*models.User, error) {
	return s.advance(ctx, creatorID, access.StatusActiveEarning, nil)
}

// EnableFullPayouts lifts the payout caps: active_earning -> payouts_enabled.
func (s *OnboardingService) EnableFullPayouts(ctx context.Context, creatorID string) (*models.User, error) {
	return s.advance(ctx, creatorID, access.StatusPayoutsEnabled, nil)
}

// Suspend freezes a creator in any state and remembers where they were.
func (s *OnboardingService) Suspend(ctx context.Context, creatorID string) (*models.User, error) {
	var user *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.lockCreator(ctx, tx, creatorID)
		if err != nil {
			return err
		}
		if !access.CanSuspend(u.CreatorStatus) {
			return fmt.Errorf("%w: cannot suspend from %s", common.ErrInvalidTransition, u.CreatorStatus)
		}

		prior := u.CreatorStatus
		if err := s.repomanager.Users(tx).UpdateStatus(ctx, u.ID, access.StatusSuspended, &prior); err != nil {
			return fmt.Errorf("error updating status: %w", err)
		}
		u.CreatorStatus = access.StatusSuspended
		u.StatusBeforeSuspension = &prior
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "creator suspended", "user_id", user.ID, "prior_status", *user.StatusBeforeSuspension)
	return user, nil
}

// Reinstate lifts a suspension, restoring the status held before it.
func (s *OnboardingService) Reinstate(ctx context.Context, creatorID string) (*models.User, error) {
	var user *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.lockCreator(ctx, tx, creatorID)
		if err != nil {
			return err
		}
		if u.StatusBeforeSuspension == nil || !access.CanReinstate(u.CreatorStatus, *u.StatusBeforeSuspension) {
			return fmt.Errorf("%w: creator is not suspended", common.ErrInvalidTransition)
		}

		restored := *u.StatusBeforeSuspension
		if err := s.repomanager.Users(tx).UpdateStatus(ctx, u.ID, restored, nil); err != nil {
			return fmt.Errorf("error updating status: %w", err)
		}
		u.CreatorStatus = restored
		u.StatusBeforeSuspension = nil
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "creator reinstated", "user_id", user.ID, "status", user.CreatorStatus)
	return user, nil
}

type stepFunc func(ctx context.Context, tx dbx.DBTX, u *models.User) error

// advance moves the creator to status to, running apply first. It refuses
// anything but a single forward step.
func (s *OnboardingService) advance(ctx context.Context, userID string, to access.CreatorStatus, apply stepFunc) (*models.User, error) {
	var user *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.lockCreator(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !access.CanTransition(u.CreatorStatus, to) {
			return fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, u.CreatorStatus, to)
		}

		if apply != nil {
			if err := apply(ctx, tx, u); err != nil {
				return err
			}
		}
		if err := s.repomanager.Users(tx).UpdateStatus(ctx, u.ID, to, nil); err != nil {
			return fmt.Errorf("error updating status: %w", err)
		}
		u.CreatorStatus = to
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *OnboardingService) lockCreator(ctx context.Context, tx dbx.DBTX, userID string) (*models.User, error) {
	u, err := s.repomanager.Users(tx).LockByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error locking user: %w", err)
	}
	if u.Role != models.RoleCreator {
		return nil, fmt.Errorf("%w: user is not a creator", common.ErrForbidden)
	}
	return u, nil
}

func normalizePhone(raw string) string {
	p := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
	p = strings.TrimPrefix(p, "+")
	if strings.HasPrefix(p, "0") && len(p) == 10 {
		p = "254" + p[1:]
	}
	return p
}
