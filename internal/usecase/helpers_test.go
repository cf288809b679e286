package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"teamflow/internal/domain/event"
	"teamflow/internal/domain/model"
	infraRepo "teamflow/internal/infra/repository"
	repo "teamflow/internal/repository"
	"teamflow/internal/testutil"
	"teamflow/internal/usecase"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }

// 発行したイベントを記録するだけ
type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Type
}

func (p *recordingPublisher) Publish(_ context.Context, t event.Type, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, t)
	return nil
}

func (p *recordingPublisher) Types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.Type(nil), p.events...)
}

// メモリ上の検索インデックス。failを立てると全部エラー
type fakeIndex struct {
	mu      sync.Mutex
	docs    map[int64]repo.TaskDocument
	hits    []int64
	fail    bool
	deleted []int64
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: map[int64]repo.TaskDocument{}}
}

var errIndexDown = errors.New("index unavailable")

func (f *fakeIndex) Index(_ context.Context, doc repo.TaskDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errIndexDown
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errIndexDown
	}
	delete(f.docs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ string, _ int, _ int) ([]int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, 0, errIndexDown
	}
	return f.hits, int64(len(f.hits)), nil
}

func (f *fakeIndex) Doc(id int64) (repo.TaskDocument, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	return d, ok
}

type env struct {
	db     *gorm.DB
	clock  *fixedClock
	events *recordingPublisher
	index  *fakeIndex

	users  repo.UserRepository
	epics  repo.EpicRepository
	tasks  repo.TaskRepository
	audits repo.AuditLogRepository

	userUC  *usecase.UserUsecase
	epicUC  *usecase.EpicUsecase
	taskUC  *usecase.TaskUsecase
	auditUC *usecase.AuditLogUsecase
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := testutil.NewTestDB(t)
	e := &env{
		db:     db,
		clock:  newFixedClock(),
		events: &recordingPublisher{},
		index:  newFakeIndex(),
		users:  infraRepo.NewUserGormRepository(db),
		epics:  infraRepo.NewEpicGormRepository(db),
		tasks:  infraRepo.NewTaskGormRepository(db),
		audits: infraRepo.NewAuditLogGormRepository(db),
	}
	tx := infraRepo.NewTxManagerGorm(db)

	indexSync := usecase.NewTaskIndexSync(e.tasks, e.index)
	e.userUC = usecase.NewUserUsecase(e.users, tx, plainHasher{}, e.clock).WithTaskIndex(indexSync)
	e.epicUC = usecase.NewEpicUsecase(e.epics, e.events, e.clock).WithTaskIndex(indexSync)
	e.taskUC = usecase.NewTaskUsecase(e.tasks, e.epics, tx, e.index, e.events, e.clock)
	e.auditUC = usecase.NewAuditLogUsecase(e.audits)
	return e
}

func (e *env) seedUser(t *testing.T, username string, role model.Role) int64 {
	t.Helper()
	u := &model.User{
		FirstName:    "First" + username,
		LastName:     "Last",
		Email:        username + "@x.com",
		Username:     username,
		PasswordHash: "hashed:password123",
		Role:         role,
		IsActive:     true,
		CreatedAt:    e.clock.Now(),
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u.ID
}

func (e *env) auditActions(t *testing.T) []model.AuditAction {
	t.Helper()
	logs, err := e.audits.List(context.Background(), repo.AuditLogFilter{Limit: 200})
	require.NoError(t, err)

	out := make([]model.AuditAction, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.Action)
	}
	return out
}

func ptr[T any](v T) *T { return &v }
