package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/pulse/internal/access"
	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/dbx"
	"github.com/dmitrijs2005/pulse/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, first_name, last_name, role, is_active,
	email_verified, creator_status, status_before_suspension, newsletter_name,
	sender_name, subscription_price, payout_phone, avatar_key, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.IsActive,
		&u.EmailVerified, &u.CreatorStatus, &u.StatusBeforeSuspension, &u.NewsletterName,
		&u.SenderName, &u.SubscriptionPrice, &u.PayoutPhone, &u.AvatarKey, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `INSERT INTO users (email, password_hash, first_name, last_name, role, creator_status, newsletter_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	created, err := scanUser(r.db.QueryRowContext(ctx, query,
		strings.ToLower(user.Email), user.PasswordHash, user.FirstName, user.LastName,
		user.Role, user.CreatorStatus, user.NewsletterName))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, err
	}
	return created, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) LockByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// exec runs an UPDATE touching one user and reports ErrorNotFound when no
// row matched.
func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status access.CreatorStatus, prior *access.CreatorStatus) error {
	return r.exec(ctx,
		`UPDATE users SET creator_status = $2, status_before_suspension = $3, updated_at = now() WHERE id = $1`,
		id, status, prior)
}

func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE users SET email_verified = TRUE, updated_at = now() WHERE id = $1`, id)
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id, newsletterName, senderName string) error {
	return r.exec(ctx,
		`UPDATE users SET newsletter_name = $2, sender_name = $3, updated_at = now() WHERE id = $1`,
		id, newsletterName, senderName)
}

func (r *PostgresRepository) UpdatePricing(ctx context.Context, id string, priceCents int64) error {
	return r.exec(ctx, `UPDATE users SET subscription_price = $2, updated_at = now() WHERE id = $1`, id, priceCents)
}

func (r *PostgresRepository) UpdatePayout(ctx context.Context, id, phone string) error {
	return r.exec(ctx, `UPDATE users SET payout_phone = $2, updated_at = now() WHERE id = $1`, id, phone)
}

func (r *PostgresRepository) SetAvatarKey(ctx context.Context, id, key string) error {
	return r.exec(ctx, `UPDATE users SET avatar_key = $2, updated_at = now() WHERE id = $1`, id, key)
}
