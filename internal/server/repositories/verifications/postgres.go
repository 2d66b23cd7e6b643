package verifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/dbx"
	"github.com/dmitrijs2005/pulse/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, v *models.EmailVerification) error {
	query := `INSERT INTO email_verifications (user_id, code, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	if err := r.db.QueryRowContext(ctx, query, v.UserID, v.Code, v.ExpiresAt).Scan(&v.ID, &v.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Latest(ctx context.Context, userID string) (*models.EmailVerification, error) {
	query := `SELECT id, user_id, code, attempts, verified, expires_at, created_at
		FROM email_verifications
		WHERE user_id = $1 AND verified = FALSE
		ORDER BY created_at DESC
		LIMIT 1`

	v := &models.EmailVerification{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&v.ID, &v.UserID, &v.Code, &v.Attempts, &v.Verified, &v.ExpiresAt, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) IncrementAttempts(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE email_verifications SET attempts = attempts + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE email_verifications SET verified = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM email_verifications WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
