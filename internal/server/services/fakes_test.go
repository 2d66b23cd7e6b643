package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/pulse/internal/access"
	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/dbx"
	"github.com/dmitrijs2005/pulse/internal/server/models"
	refreshtokensrepo "github.com/dmitrijs2005/pulse/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/pulse/internal/server/repositories/users"
	verificationsrepo "github.com/dmitrijs2005/pulse/internal/server/repositories/verifications"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// fakeUsersRepo is an in-memory users.Repository. Errors set in fail are
// returned by the method of the same name.
type fakeUsersRepo struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	nextID int
	fail   map[string]error
	locks  int
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}, fail: map[string]error{}}
}

func (f *fakeUsersRepo) put(u models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		f.nextID++
		u.ID = fmt.Sprintf("u-%d", f.nextID)
	}
	cp := u
	f.byID[u.ID] = &cp
	return &cp
}

func (f *fakeUsersRepo) get(id string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.byID[id]
	return &cp
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if err := f.fail["Create"]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			f.mu.Unlock()
			return nil, common.ErrorAlreadyExists
		}
	}
	f.mu.Unlock()

	cp := *u
	cp.IsActive = true
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	return f.put(cp), nil
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if err := f.fail["GetByEmail"]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if err := f.fail["GetByID"]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) LockByID(ctx context.Context, id string) (*models.User, error) {
	if err := f.fail["LockByID"]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.locks++
	f.mu.Unlock()
	return f.GetByID(ctx, id)
}

func (f *fakeUsersRepo) update(method, id string, fn func(u *models.User)) error {
	if err := f.fail[method]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}

func (f *fakeUsersRepo) UpdateStatus(_ context.Context, id string, status access.CreatorStatus, prior *access.CreatorStatus) error {
	return f.update("UpdateStatus", id, func(u *models.User) {
		u.CreatorStatus = status
		u.StatusBeforeSuspension = prior
	})
}

func (f *fakeUsersRepo) MarkEmailVerified(_ context.Context, id string) error {
	return f.update("MarkEmailVerified", id, func(u *models.User) { u.EmailVerified = true })
}

func (f *fakeUsersRepo) UpdateProfile(_ context.Context, id, newsletterName, senderName string) error {
	return f.update("UpdateProfile", id, func(u *models.User) {
		u.NewsletterName = &newsletterName
		u.SenderName = &senderName
	})
}

func (f *fakeUsersRepo) UpdatePricing(_ context.Context, id string, priceCents int64) error {
	return f.update("UpdatePricing", id, func(u *models.User) { u.SubscriptionPrice = &priceCents })
}

func (f *fakeUsersRepo) UpdatePayout(_ context.Context, id, phone string) error {
	return f.update("UpdatePayout", id, func(u *models.User) { u.PayoutPhone = &phone })
}

func (f *fakeUsersRepo) SetAvatarKey(_ context.Context, id, key string) error {
	return f.update("SetAvatarKey", id, func(u *models.User) { u.AvatarKey = &key })
}

// fakeRefreshRepo keeps refresh token rows keyed by user.
type fakeRefreshRepo struct {
	mu   sync.Mutex
	rows map[string]*models.RefreshToken
	fail map[string]error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{rows: map[string]*models.RefreshToken{}, fail: map[string]error{}}
}

func (f *fakeRefreshRepo) Create(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	if err := f.fail["Create"]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[userID]; ok {
		return common.ErrorAlreadyExists
	}
	f.rows[userID] = &models.RefreshToken{ID: "rt-" + userID, UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeRefreshRepo) FindByUser(_ context.Context, userID string) (*models.RefreshToken, error) {
	if err := f.fail["FindByUser"]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.rows[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rt
	return &cp, nil
}

func (f *fakeRefreshRepo) DeleteByUser(_ context.Context, userID string) error {
	if err := f.fail["DeleteByUser"]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, userID)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, rt := range f.rows {
		if rt.Expired(now) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeRefreshRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeVerificationsRepo struct {
	mu     sync.Mutex
	rows   []*models.EmailVerification
	nextID int
}

func (f *fakeVerificationsRepo) Create(_ context.Context, v *models.EmailVerification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	v.ID = fmt.Sprintf("ev-%d", f.nextID)
	v.CreatedAt = time.Now()
	cp := *v
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeVerificationsRepo) Latest(_ context.Context, userID string) (*models.EmailVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.rows) - 1; i >= 0; i-- {
		if v := f.rows[i]; v.UserID == userID && !v.Verified {
			cp := *v
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeVerificationsRepo) find(id string) *models.EmailVerification {
	for _, v := range f.rows {
		if v.ID == id {
			return v
		}
	}
	return nil
}

func (f *fakeVerificationsRepo) IncrementAttempts(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v := f.find(id); v != nil {
		v.Attempts++
	}
	return nil
}

func (f *fakeVerificationsRepo) MarkVerified(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v := f.find(id); v != nil {
		v.Verified = true
	}
	return nil
}

func (f *fakeVerificationsRepo) DeleteByUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	for _, v := range f.rows {
		if v.UserID != userID {
			kept = append(kept, v)
		}
	}
	f.rows = kept
	return nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	v *fakeVerificationsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), r: newFakeRefreshRepo(), v: &fakeVerificationsRepo{}}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error        { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Verifications(dbx.DBTX) verificationsrepo.Repository { return m.v }
