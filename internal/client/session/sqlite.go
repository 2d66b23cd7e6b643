package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/pulse/internal/client/migrations"
	"github.com/dmitrijs2005/pulse/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/pulse/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// OpenDatabase opens the local sqlite file at dsn and applies the embedded
// migrations.
func OpenDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite has a single writer; one connection also keeps :memory: usable.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dsn, err)
	}
	return db, nil
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// SQLiteStore persists tokens in the metadata table.
type SQLiteStore struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// SetTokens writes both tokens in one transaction and drops any expired
// leftovers.
func (s *SQLiteStore) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, AccessTokenName, []byte(accessToken), now.Add(AccessTokenTTL)); err != nil {
			return err
		}
		if err := repo.Set(ctx, RefreshTokenName, []byte(refreshToken), now.Add(RefreshTokenTTL)); err != nil {
			return err
		}
		_, err := repo.DeleteExpired(ctx, now)
		return err
	})
}

func (s *SQLiteStore) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, AccessTokenName)
}

func (s *SQLiteStore) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, RefreshTokenName)
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, AccessTokenName); err != nil {
			return err
		}
		return repo.Delete(ctx, RefreshTokenName)
	})
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := metadata.NewSQLiteRepository(s.db).Get(ctx, key, s.now())
	if err != nil {
		return "", err
	}
	return string(v), nil
}
