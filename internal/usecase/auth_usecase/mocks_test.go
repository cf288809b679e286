package auth

import (
	"context"
	"sync"
	"time"

	"teamflow/internal/config"
	"teamflow/internal/domain/event"
	"teamflow/internal/domain/model"
	repo "teamflow/internal/repository"

	"github.com/stretchr/testify/mock"
)

const testSecret = "test-secret-key-with-at-least-32-characters!!"

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:     testSecret,
		Issuer:     "TeamProjectManagement",
		Audience:   "TeamProjectManagement",
		AccessTTL:  time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

// =====================
// Clock / ID
// =====================

// 秒単位で固定した時計（JWTのexpは秒精度）
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// =====================
// Password
// =====================

// "hashed:"を付けるだけ（bcryptの遅さを避ける）
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }
func (plainHasher) Verify(p, h string) bool       { return h == "hashed:"+p }

// =====================
// Repository mocks
// =====================

type UserRepoMock struct{ mock.Mock }

var _ repo.UserRepository = (*UserRepoMock)(nil)

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil && user.ID == 0 {
		user.ID = 1
	}
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindActiveByLogin(ctx context.Context, email string, username string) (*model.User, error) {
	args := m.Called(ctx, email, username)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	args := m.Called(ctx, email, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepoMock) UsernameExists(ctx context.Context, username string, excludeID int64) (bool, error) {
	args := m.Called(ctx, username, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepoMock) List(ctx context.Context, filter repo.UserListFilter) ([]model.User, error) {
	panic("not used in auth tests")
}

func (m *UserRepoMock) FindByIDs(ctx context.Context, ids []int64) ([]model.User, error) {
	panic("not used in auth tests")
}

func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	panic("not used in auth tests")
}

func (m *UserRepoMock) UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error {
	args := m.Called(ctx, userID, at)
	return args.Error(0)
}

func (m *UserRepoMock) Delete(ctx context.Context, userID int64) error {
	panic("not used in auth tests")
}

func (m *UserRepoMock) Count(ctx context.Context) (int64, error) {
	panic("not used in auth tests")
}

type RefreshTokenRepoMock struct{ mock.Mock }

var _ repo.RefreshTokenRepository = (*RefreshTokenRepoMock)(nil)

func (m *RefreshTokenRepoMock) Create(ctx context.Context, token *model.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *RefreshTokenRepoMock) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	t, _ := args.Get(0).(*model.RefreshToken)
	return t, args.Error(1)
}

func (m *RefreshTokenRepoMock) RevokeActive(ctx context.Context, tokenID string, info repo.RevokeInfo) error {
	args := m.Called(ctx, tokenID, info)
	return args.Error(0)
}

func (m *RefreshTokenRepoMock) RevokeByTokenHash(ctx context.Context, tokenHash string, info repo.RevokeInfo) error {
	args := m.Called(ctx, tokenHash, info)
	return args.Error(0)
}

func (m *RefreshTokenRepoMock) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// =====================
// TxManager / TxRepos mocks
// =====================

type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	users  repo.UserRepository
	tokens repo.RefreshTokenRepository
}

func (r *TxReposMock) Users() repo.UserRepository                 { return r.users }
func (r *TxReposMock) RefreshTokens() repo.RefreshTokenRepository { return r.tokens }
func (r *TxReposMock) Tasks() repo.TaskRepository                 { return nil }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository         { return nil }

// =====================
// Events
// =====================

type PublisherMock struct{ mock.Mock }

var _ event.Publisher = (*PublisherMock)(nil)

func (m *PublisherMock) Publish(ctx context.Context, t event.Type, key string, payload any) error {
	args := m.Called(ctx, t, key, payload)
	return args.Error(0)
}
