package usecase_test

import (
	"context"
	"testing"
	"time"

	"teamflow/internal/domain/event"
	"teamflow/internal/domain/model"
	repo "teamflow/internal/repository"
	"teamflow/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskUsecase_CreateDefaults(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pm := e.seedUser(t, "pm", model.RoleProjectManager)

	got, err := e.taskUC.Create(ctx, pm, usecase.CreateTaskInput{Title: "  Write docs  "})
	require.NoError(t, err)

	assert.Equal(t, "Write docs", got.Title)
	assert.Equal(t, model.StatusToDo, got.Status)
	assert.Equal(t, model.PriorityMedium, got.Priority)
	assert.Equal(t, model.MinEffort, got.Effort)
	assert.Equal(t, pm, got.CreatedByID)
	assert.Equal(t, "Firstpm Last", got.CreatedByName)
	assert.Nil(t, got.AssignedToID)
	assert.Nil(t, got.Epic)
	assert.Nil(t, got.StartedAt)
	assert.Zero(t, got.CommentCount)

	doc, ok := e.index.Doc(got.ID)
	require.True(t, ok)
	assert.Equal(t, "ToDo", doc.Status)
	assert.Equal(t, []event.Type{event.TaskCreated}, e.events.Types())
}

func TestTaskUsecase_CreateWithReferences(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pm := e.seedUser(t, "pm", model.RoleProjectManager)
	dev := e.seedUser(t, "dev", model.RoleDeveloper)

	epic, err := e.epicUC.Create(ctx, pm, usecase.CreateEpicInput{Title: "Login"})
	require.NoError(t, err)

	got, err := e.taskUC.Create(ctx, pm, usecase.CreateTaskInput{
		Title:        "Form",
		Status:       ptr(model.StatusInProgress),
		Priority:     ptr(model.PriorityHigh),
		Effort:       ptr(8),
		AssignedToID: &dev,
		EpicID:       &epic.ID,
	})
	require.NoError(t, err)

	require.NotNil(t, got.Epic)
	assert.Equal(t, "Login", got.Epic.Title)
	assert.Equal(t, "Firstdev Last", got.AssignedToName)
	assert.Equal(t, 8, got.Effort)
	require.NotNil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)

	types := e.events.Types()
	assert.Contains(t, types, event.TaskCreated)
	assert.Contains(t, types, event.TaskAssigned)
}

func TestTaskUsecase_CreateRejectsBadInput(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pm := e.seedUser(t, "pm", model.RoleProjectManager)

	cases := map[string]usecase.CreateTaskInput{
		"empty title":      {Title: "  "},
		"effort too big":   {Title: "x", Effort: ptr(model.MaxEffort + 1)},
		"effort zero":      {Title: "x", Effort: ptr(0)},
		"bad status":       {Title: "x", Status: ptr(model.WorkItemStatus(9))},
		"bad priority":     {Title: "x", Priority: ptr(model.TaskPriority(0))},
		"missing epic":     {Title: "x", EpicID: ptr(int64(999))},
		"missing assignee": {Title: "x", AssignedToID: ptr(int64(999))},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.taskUC.Create(ctx, pm, in)
			assert.ErrorIs(t, err, usecase.ErrValidation)
		})
	}

	all, err := e.taskUC.List(ctx, repo.TaskListFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

// Doneを2回入れても完了時刻は最初のまま
func TestTaskUsecase_UpdateStatus_TimestampsOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pm := e.seedUser(t, "pm", model.RoleProjectManager)

	task, err := e.taskUC.Create(ctx, pm, usecase.CreateTaskInput{Title: "Ship"})
	require.NoError(t, err)

	require.NoError(t, e.taskUC.UpdateStatus(ctx, pm, task.ID, model.StatusInProgress))
	started := e.clock.Now()

	e.clock.Advance(time.Hour)
	require.NoError(t, e.taskUC.UpdateStatus(ctx, pm, task.ID, model.StatusDone))
	completed := e.clock.Now()

	e.clock.Advance(time.Hour)
	require.NoError(t, e.taskUC.UpdateStatus(ctx, pm, task.ID, model.StatusReview))
	e.clock.Advance(time.Hour)
	require.NoError(t, e.taskUC.UpdateStatus(ctx, pm, task.ID, model.StatusDone))

	got, err := e.taskUC.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, got.Status)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.CompletedAt)
	assert.WithinDuration(t, started, *got.StartedAt, time.Second)
	assert.WithinDuration(t, completed, *got.CompletedAt, time.Second)

	assert.Equal(t, []model.AuditAction{
		model.AuditActionChangeTaskStatus,
		model.AuditActionChangeTaskStatus,
		model.AuditActionChangeTaskStatus,
		model.AuditActionChangeTaskStatus,
	}, e.auditActions(t))
}

func TestTaskUsecase_UpdateStatus_SameStatusIsNoop(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pm := e.seedUser(t, "pm", model.RoleProjectManager)

	task, err := e.taskUC.Create(ctx, pm, usecase.CreateTaskInput{Title: "Idle"})
	require.NoError(t, err)

	require.NoError(t, e.taskUC.UpdateStatus(ctx, pm, task.ID, model.StatusToDo))
	assert.Empty(t, e.auditActions(t))
	assert.Equal(t, []event.Type{event.TaskCreated}, e.events.Types())

	err = e.taskUC.UpdateStatus(ctx, pm, 999, model.StatusDone)
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	err = e.taskUC.UpdateStatus(ctx, pm, task.ID, model.WorkItemStatus(42))
	assert.ErrorIs(t, err, usecase.ErrValidation)
}

func TestTaskUsecase_Assign(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pm := e.seedUser(t, "pm", model.RoleProjectManager)
	dev := e.seedUser(t, "dev", model.RoleDeveloper)

	task, err := e.taskUC.Create(ctx, pm, usecase.CreateTaskInput{Title: "Assign me"})
	require.NoError(t, err)

	require.NoError(t, e.taskUC.Assign(ctx, pm, task.ID, dev))
	// 同じ担当者なら記録しない
	require.NoError(t, e.taskUC.Assign(ctx, pm, task.ID, dev))

	got, err := e.taskUC.Get(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AssignedToID)
	assert.Equal(t, dev, *got.AssignedToID)

	assert.Equal(t, []model.AuditAction{model.AuditActionAssignTask}, e.auditActions(t))
	assert.Equal(t, []event.Type{event.TaskCreated, event.TaskAssigned}, e.events.Types())

	doc, ok := e.index.Doc(task.ID)
	require.True(t, ok)
	require.NotNil(t, doc.AssignedToID)
	assert.Equal(t, dev, *doc.AssignedToID)

	assert.ErrorIs(t, e.taskUC.Assign(ctx, pm, task.ID, 999), usecase.ErrNotFound)
	assert.ErrorIs(t, e.taskUC.Assign(ctx, pm, 999, dev), usecase.ErrNotFound)
}

func TestTaskUsecase_AssignInactiveUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pm := e.seedUser(t, "pm", model.RoleProjectManager)
	dev := e.seedUser(t, "dev", model.RoleDeveloper)
	require.NoError(t, e.userUC.SetActive(ctx, pm, dev, false))

	task, err := e.taskUC.Create(ctx, pm, usecase.CreateTaskInput{Title: "Nobody"})
	require.NoError(t, err)

	assert.ErrorIs(t, e.taskUC.Assign(ctx, pm, task.ID, dev), usecase.ErrNotFound)
}

func TestTaskUsecase_UpdateRecordsStatusAndAssignee(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pm := e.seedUser(t, "pm", model.RoleProjectManager)
	dev := e.seedUser(t, "dev", model.RoleDeveloper)

	task, err := e.taskUC.Create(ctx, pm, usecase.CreateTaskInput{Title: "Old", Notes: "keep"})
	require.NoError(t, err)

	got, err := e.taskUC.Update(ctx, pm, task.ID, usecase.UpdateTaskInput{
		Title:        ptr("New"),
		Status:       ptr(model.StatusDone),
		AssignedToID: &dev,
	})
	require.NoError(t, err)

	assert.Equal(t, "New", got.Title)
	assert.Equal(t, "keep", got.Notes)
	assert.Equal(t, model.StatusDone, got.Status)
	require.NotNil(t, got.CompletedAt)

	assert.ElementsMatch(t, []model.AuditAction{
		model.AuditActionChangeTaskStatus,
		model.AuditActionAssignTask,
	}, e.auditActions(t))
	assert.ElementsMatch(t, []event.Type{
		event.TaskCreated, event.TaskStatusChanged, event.TaskAssigned,
	}, e.events.Types())

	_, err = e.taskUC.Update(ctx, pm, 999, usecase.UpdateTaskInput{Title: ptr("x")})
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	_, err = e.taskUC.Update(ctx, pm, task.ID, usecase.UpdateTaskInput{Title: ptr("")})
	assert.ErrorIs(t, err, usecase.ErrValidation)
}

func TestTaskUsecase_Delete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pm := e.seedUser(t, "pm", model.RoleProjectManager)

	task, err := e.taskUC.Create(ctx, pm, usecase.CreateTaskInput{Title: "Bye"})
	require.NoError(t, err)

	require.NoError(t, e.taskUC.Delete(ctx, task.ID))
	_, ok := e.index.Doc(task.ID)
	assert.False(t, ok)

	_, err = e.taskUC.Get(ctx, task.ID)
	assert.ErrorIs(t, err, usecase.ErrNotFound)
	assert.ErrorIs(t, e.taskUC.Delete(ctx, task.ID), usecase.ErrNotFound)
}

func TestTaskUsecase_SearchUsesIndexOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pm := e.seedUser(t, "pm", model.RoleProjectManager)

	a, err := e.taskUC.Create(ctx, pm, usecase.CreateTaskInput{Title: "alpha"})
	require.NoError(t, err)
	b, err := e.taskUC.Create(ctx, pm, usecase.CreateTaskInput{Title: "beta"})
	require.NoError(t, err)

	// インデックスにだけ残っている999は落とす
	e.index.hits = []int64{b.ID, 999, a.ID}

	res, err := e.taskUC.Search(ctx, "anything", 0, 0)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, b.ID, res.Items[0].ID)
	assert.Equal(t, a.ID, res.Items[1].ID)
	assert.Equal(t, 20, res.Limit)
}

func TestTaskUsecase_SearchNoHits(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pm := e.seedUser(t, "pm", model.RoleProjectManager)

	_, err := e.taskUC.Create(ctx, pm, usecase.CreateTaskInput{Title: "alpha"})
	require.NoError(t, err)

	res, err := e.taskUC.Search(ctx, "zzz", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Zero(t, res.Total)
}

func TestTaskUsecase_SearchFallsBackToDatabase(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pm := e.seedUser(t, "pm", model.RoleProjectManager)

	_, err := e.taskUC.Create(ctx, pm, usecase.CreateTaskInput{Title: "Fix login bug"})
	require.NoError(t, err)
	_, err = e.taskUC.Create(ctx, pm, usecase.CreateTaskInput{Title: "Other", Description: "about LOGIN page"})
	require.NoError(t, err)
	_, err = e.taskUC.Create(ctx, pm, usecase.CreateTaskInput{Title: "Unrelated"})
	require.NoError(t, err)

	e.index.fail = true

	res, err := e.taskUC.Search(ctx, "login", 10, 0)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, int64(2), res.Total)

	withoutIndex := usecase.NewTaskUsecase(e.tasks, e.epics, nil, nil, nil, e.clock)
	res, err = withoutIndex.Search(ctx, "login", 1, 1)
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, int64(2), res.Total)
}

func TestTaskUsecase_SearchValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		q      string
		limit  int
		offset int
	}{
		{"empty query", "   ", 10, 0},
		{"limit too big", "x", 101, 0},
		{"negative limit", "x", -1, 0},
		{"negative offset", "x", 10, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.taskUC.Search(ctx, tc.q, tc.limit, tc.offset)
			assert.ErrorIs(t, err, usecase.ErrValidation)
		})
	}
}

func TestTaskUsecase_ListFilters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pm := e.seedUser(t, "pm", model.RoleProjectManager)
	dev := e.seedUser(t, "dev", model.RoleDeveloper)

	_, err := e.taskUC.Create(ctx, pm, usecase.CreateTaskInput{Title: "mine", AssignedToID: &dev})
	require.NoError(t, err)
	_, err = e.taskUC.Create(ctx, pm, usecase.CreateTaskInput{Title: "high", Priority: ptr(model.PriorityHigh)})
	require.NoError(t, err)

	mine, err := e.taskUC.List(ctx, repo.TaskListFilter{AssignedToID: &dev})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "mine", mine[0].Title)

	high, err := e.taskUC.List(ctx, repo.TaskListFilter{Priority: ptr(model.PriorityHigh)})
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, "high", high[0].Title)
}
