package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"teamflow/internal/domain/event"
	"teamflow/internal/domain/model"
	"teamflow/internal/logging"
	repo "teamflow/internal/repository"
	"teamflow/internal/validator"
)

type TaskDTO struct {
	ID                 int64                `json:"id"`
	Title              string               `json:"title"`
	Description        string               `json:"description"`
	CreatedAt          time.Time            `json:"createdAt"`
	DueDate            *time.Time           `json:"dueDate"`
	StartedAt          *time.Time           `json:"startedAt"`
	CompletedAt        *time.Time           `json:"completedAt"`
	Status             model.WorkItemStatus `json:"status"`
	Priority           model.TaskPriority   `json:"priority"`
	Effort             int                  `json:"effort"`
	AcceptanceCriteria string               `json:"acceptanceCriteria"`
	Notes              string               `json:"notes"`
	CreatedByID        int64                `json:"createdById"`
	CreatedByName      string               `json:"createdByName"`
	AssignedToID       *int64               `json:"assignedToId"`
	AssignedToName     string               `json:"assignedToName,omitempty"`
	EpicID             *int64               `json:"epicId"`
}

// 詳細（エピック名とコメント/添付の件数付き）
type TaskDetailDTO struct {
	TaskDTO
	Epic            *EpicRef `json:"epic"`
	CommentCount    int64    `json:"commentCount"`
	AttachmentCount int64    `json:"attachmentCount"`
}

type EpicRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type TaskSearchResult struct {
	Items  []TaskDTO `json:"items"`
	Total  int64     `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

func toTaskDTO(s repo.TaskSummary) TaskDTO {
	return TaskDTO{
		ID:                 s.ID,
		Title:              s.Title,
		Description:        s.Description,
		CreatedAt:          s.CreatedAt,
		DueDate:            s.DueDate,
		StartedAt:          s.StartedAt,
		CompletedAt:        s.CompletedAt,
		Status:             s.Status,
		Priority:           s.Priority,
		Effort:             s.Effort,
		AcceptanceCriteria: s.AcceptanceCriteria,
		Notes:              s.Notes,
		CreatedByID:        s.CreatedByID,
		CreatedByName:      joinName(s.CreatedByFirstName, s.CreatedByLastName),
		AssignedToID:       s.AssignedToID,
		AssignedToName:     joinName(s.AssignedToFirstName, s.AssignedToLastName),
		EpicID:             s.EpicID,
	}
}

func toTaskDTOs(rows []repo.TaskSummary) []TaskDTO {
	out := make([]TaskDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, toTaskDTO(r))
	}
	return out
}

func toTaskDocument(t *model.Task) repo.TaskDocument {
	return repo.TaskDocument{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status.String(),
		Priority:     t.Priority.String(),
		AssignedToID: t.AssignedToID,
		EpicID:       t.EpicID,
		CreatedAt:    t.CreatedAt,
	}
}

type CreateTaskInput struct {
	Title              string
	Description        string
	DueDate            *time.Time
	Status             *model.WorkItemStatus
	Priority           *model.TaskPriority
	Effort             *int
	AcceptanceCriteria string
	Notes              string
	AssignedToID       *int64
	EpicID             *int64
}

// 部分更新（nilは変更なし）
type UpdateTaskInput struct {
	Title              *string
	Description        *string
	DueDate            *time.Time
	Status             *model.WorkItemStatus
	Priority           *model.TaskPriority
	Effort             *int
	AcceptanceCriteria *string
	Notes              *string
	AssignedToID       *int64
	EpicID             *int64
}

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	maxSearchQueryLen  = 200
)

type TaskUsecase struct {
	tasks  repo.TaskRepository
	epics  repo.EpicRepository
	tx     repo.TransactionManager
	index  repo.TaskSearchIndex
	events event.Publisher
	clock  Clock
}

// DI
// indexがnilならDBの部分一致で検索する
func NewTaskUsecase(
	tasks repo.TaskRepository,
	epics repo.EpicRepository,
	tx repo.TransactionManager,
	index repo.TaskSearchIndex,
	events event.Publisher,
	clock Clock,
) *TaskUsecase {
	if events == nil {
		events = event.Nop{}
	}
	return &TaskUsecase{
		tasks:  tasks,
		epics:  epics,
		tx:     tx,
		index:  index,
		events: events,
		clock:  clock,
	}
}

func (u *TaskUsecase) List(ctx context.Context, filter repo.TaskListFilter) ([]TaskDTO, error) {
	rows, err := u.tasks.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return toTaskDTOs(rows), nil
}

func (u *TaskUsecase) Get(ctx context.Context, id int64) (TaskDetailDTO, error) {
	rows, err := u.tasks.List(ctx, repo.TaskListFilter{IDs: []int64{id}})
	if err != nil {
		return TaskDetailDTO{}, err
	}
	if len(rows) == 0 {
		return TaskDetailDTO{}, NotFoundError("task not found")
	}

	out := TaskDetailDTO{TaskDTO: toTaskDTO(rows[0])}

	if out.EpicID != nil {
		epic, err := u.epics.FindByID(ctx, *out.EpicID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return TaskDetailDTO{}, err
		}
		if epic != nil {
			out.Epic = &EpicRef{ID: epic.ID, Title: epic.Title}
		}
	}

	counts, err := u.tasks.Counts(ctx, id)
	if err != nil {
		return TaskDetailDTO{}, err
	}
	out.CommentCount = counts.Comments
	out.AttachmentCount = counts.Attachments
	return out, nil
}

func (u *TaskUsecase) Create(ctx context.Context, actorID int64, in CreateTaskInput) (TaskDetailDTO, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validator.ValidateTask(validator.WorkItemFields{
		Title:              &in.Title,
		Description:        &in.Description,
		AcceptanceCriteria: &in.AcceptanceCriteria,
		Notes:              &in.Notes,
		Effort:             in.Effort,
	}); err != nil {
		return TaskDetailDTO{}, InvalidInput(err)
	}
	if in.Status != nil && !in.Status.Valid() {
		return TaskDetailDTO{}, ValidationError("invalid status")
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return TaskDetailDTO{}, ValidationError("invalid priority")
	}
	if err := u.ensureEpic(ctx, in.EpicID); err != nil {
		return TaskDetailDTO{}, err
	}

	now := u.clock.Now()
	task := &model.Task{
		Title:              in.Title,
		Description:        in.Description,
		CreatedAt:          now,
		DueDate:            in.DueDate,
		Status:             model.StatusToDo,
		Priority:           model.PriorityMedium,
		Effort:             model.MinEffort,
		AcceptanceCriteria: in.AcceptanceCriteria,
		Notes:              in.Notes,
		CreatedByID:        actorID,
		EpicID:             in.EpicID,
	}
	if in.Status != nil {
		task.ApplyStatus(*in.Status, now)
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	if in.Effort != nil {
		task.Effort = *in.Effort
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if in.AssignedToID != nil {
			if err := ensureAssignee(ctx, r.Users(), *in.AssignedToID); err != nil {
				return err
			}
			task.AssignedToID = in.AssignedToID
		}
		return r.Tasks().Create(ctx, task)
	})
	if err != nil {
		return TaskDetailDTO{}, err
	}

	u.reindex(ctx, task)
	u.publish(ctx, event.TaskCreated, task.ID, event.TaskCreatedPayload{
		TaskID:      task.ID,
		Title:       task.Title,
		EpicID:      task.EpicID,
		CreatedByID: actorID,
	})
	if task.AssignedToID != nil {
		u.publish(ctx, event.TaskAssigned, task.ID, event.TaskAssignedPayload{
			TaskID:       task.ID,
			AssigneeID:   *task.AssignedToID,
			AssignedByID: actorID,
		})
	}

	return u.Get(ctx, task.ID)
}

func (u *TaskUsecase) Update(ctx context.Context, actorID int64, id int64, in UpdateTaskInput) (TaskDetailDTO, error) {
	in.Title = trimmedPtr(in.Title)
	if err := validator.ValidateTask(validator.WorkItemFields{
		Title:              in.Title,
		Description:        in.Description,
		AcceptanceCriteria: in.AcceptanceCriteria,
		Notes:              in.Notes,
		Effort:             in.Effort,
	}); err != nil {
		return TaskDetailDTO{}, InvalidInput(err)
	}
	if in.Status != nil && !in.Status.Valid() {
		return TaskDetailDTO{}, ValidationError("invalid status")
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return TaskDetailDTO{}, ValidationError("invalid priority")
	}
	if err := u.ensureEpic(ctx, in.EpicID); err != nil {
		return TaskDetailDTO{}, err
	}

	var (
		task    *model.Task
		changes taskChanges
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		task, err = r.Tasks().FindByID(ctx, id)
		if err != nil {
			return mapRepoError(err, "task not found")
		}
		now := u.clock.Now()

		if in.Title != nil {
			task.Title = *in.Title
		}
		if in.Description != nil {
			task.Description = *in.Description
		}
		if in.DueDate != nil {
			task.DueDate = in.DueDate
		}
		if in.Priority != nil {
			task.Priority = *in.Priority
		}
		if in.Effort != nil {
			task.Effort = *in.Effort
		}
		if in.AcceptanceCriteria != nil {
			task.AcceptanceCriteria = *in.AcceptanceCriteria
		}
		if in.Notes != nil {
			task.Notes = *in.Notes
		}
		if in.EpicID != nil {
			task.EpicID = in.EpicID
		}
		if in.AssignedToID != nil && !sameID(task.AssignedToID, in.AssignedToID) {
			if err := ensureAssignee(ctx, r.Users(), *in.AssignedToID); err != nil {
				return err
			}
			changes.assignedFrom = task.AssignedToID
			changes.assigned = true
			task.AssignedToID = in.AssignedToID
		}
		if in.Status != nil && *in.Status != task.Status {
			changes.statusFrom = task.Status
			changes.statusChanged = true
			task.ApplyStatus(*in.Status, now)
		}

		if err := r.Tasks().Update(ctx, task); err != nil {
			return err
		}
		return writeTaskAudits(ctx, r, actorID, task, changes, now)
	})
	if err != nil {
		return TaskDetailDTO{}, err
	}

	u.reindex(ctx, task)
	u.publishChanges(ctx, actorID, task, changes)
	return u.Get(ctx, id)
}

func (u *TaskUsecase) Delete(ctx context.Context, id int64) error {
	if err := u.tasks.Delete(ctx, id); err != nil {
		return mapRepoError(err, "task not found")
	}
	if u.index != nil {
		if err := u.index.Delete(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("search index delete failed", "task_id", id, "error", err)
		}
	}
	return nil
}

// Assign は担当者を変える。タスクかユーザーがなければ404
func (u *TaskUsecase) Assign(ctx context.Context, actorID int64, id int64, assigneeID int64) error {
	var (
		task    *model.Task
		changes taskChanges
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		task, err = r.Tasks().FindByID(ctx, id)
		if err != nil {
			return mapRepoError(err, "task not found")
		}
		ok, err := activeUserExists(ctx, r.Users(), assigneeID)
		if err != nil {
			return err
		}
		if !ok {
			return NotFoundError("user not found")
		}
		if sameID(task.AssignedToID, &assigneeID) {
			return nil
		}

		changes.assignedFrom = task.AssignedToID
		changes.assigned = true
		task.AssignedToID = &assigneeID

		if err := r.Tasks().Update(ctx, task); err != nil {
			return err
		}
		return writeTaskAudits(ctx, r, actorID, task, changes, u.clock.Now())
	})
	if err != nil {
		return err
	}

	if changes.assigned {
		u.reindex(ctx, task)
		u.publishChanges(ctx, actorID, task, changes)
	}
	return nil
}

// UpdateStatus は同じステータスなら何もしない（開始・完了時刻は初回だけ）
func (u *TaskUsecase) UpdateStatus(ctx context.Context, actorID int64, id int64, status model.WorkItemStatus) error {
	if !status.Valid() {
		return ValidationError("invalid status")
	}

	var (
		task    *model.Task
		changes taskChanges
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		task, err = r.Tasks().FindByID(ctx, id)
		if err != nil {
			return mapRepoError(err, "task not found")
		}
		if task.Status == status {
			return nil
		}

		now := u.clock.Now()
		changes.statusFrom = task.Status
		changes.statusChanged = true
		task.ApplyStatus(status, now)

		if err := r.Tasks().Update(ctx, task); err != nil {
			return err
		}
		return writeTaskAudits(ctx, r, actorID, task, changes, now)
	})
	if err != nil {
		return err
	}

	if changes.statusChanged {
		u.reindex(ctx, task)
		u.publishChanges(ctx, actorID, task, changes)
	}
	return nil
}

// Search は検索エンジンがあればそれを使い、なければ（失敗時も）DBの部分一致
func (u *TaskUsecase) Search(ctx context.Context, q string, limit int, offset int) (TaskSearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return TaskSearchResult{}, ValidationError("q is required")
	}
	if len(q) > maxSearchQueryLen {
		return TaskSearchResult{}, ValidationError("q too long")
	}
	if limit == 0 {
		limit = defaultSearchLimit
	}
	if limit < 1 || limit > maxSearchLimit {
		return TaskSearchResult{}, ValidationError("invalid limit")
	}
	if offset < 0 {
		return TaskSearchResult{}, ValidationError("invalid offset")
	}

	res := TaskSearchResult{Limit: limit, Offset: offset}

	if u.index != nil {
		ids, total, err := u.index.Search(ctx, q, limit, offset)
		if err == nil {
			if ids == nil {
				ids = []int64{}
			}
			rows, err := u.tasks.List(ctx, repo.TaskListFilter{IDs: ids})
			if err != nil {
				return TaskSearchResult{}, err
			}
			res.Items = orderByIDs(toTaskDTOs(rows), ids)
			res.Total = total
			return res, nil
		}
		logging.FromContext(ctx).Warn("search index query failed, falling back to database", "error", err)
	}

	rows, total, err := u.tasks.Search(ctx, q, limit, offset)
	if err != nil {
		return TaskSearchResult{}, err
	}
	res.Items = toTaskDTOs(rows)
	res.Total = total
	return res, nil
}

// 検索エンジンのスコア順に並べ直す（DBから消えたものは落とす）
func orderByIDs(items []TaskDTO, ids []int64) []TaskDTO {
	byID := make(map[int64]TaskDTO, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	out := make([]TaskDTO, 0, len(ids))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out
}

// Tx外で呼ぶ（SQLiteは接続1本のため）
func (u *TaskUsecase) ensureEpic(ctx context.Context, epicID *int64) error {
	if epicID == nil {
		return nil
	}
	if _, err := u.epics.FindByID(ctx, *epicID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ValidationError("epic not found")
		}
		return err
	}
	return nil
}

// 無効化されたユーザーには割り当てない
func activeUserExists(ctx context.Context, users repo.UserRepository, id int64) (bool, error) {
	user, err := users.FindByID(ctx, id)
	if errors.Is(err, repo.ErrUserNotFound) || errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.IsActive, nil
}

// 作成・更新の入力で参照先がない時は400
func ensureAssignee(ctx context.Context, users repo.UserRepository, id int64) error {
	ok, err := activeUserExists(ctx, users, id)
	if err != nil {
		return err
	}
	if !ok {
		return ValidationError("assignee not found")
	}
	return nil
}

type taskChanges struct {
	statusChanged bool
	statusFrom    model.WorkItemStatus
	assigned      bool
	assignedFrom  *int64
}

func writeTaskAudits(ctx context.Context, r repo.TxRepos, actorID int64, task *model.Task, c taskChanges, now time.Time) error {
	if c.statusChanged {
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorID,
			Action:       model.AuditActionChangeTaskStatus,
			ResourceType: model.AuditResourceTask,
			ResourceID:   task.ID,
			BeforeJSON:   auditJSON(map[string]any{"status": c.statusFrom}),
			AfterJSON:    auditJSON(map[string]any{"status": task.Status}),
			CreatedAt:    now,
		}); err != nil {
			return err
		}
	}
	if c.assigned {
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorID,
			Action:       model.AuditActionAssignTask,
			ResourceType: model.AuditResourceTask,
			ResourceID:   task.ID,
			BeforeJSON:   auditJSON(map[string]any{"assignedToId": c.assignedFrom}),
			AfterJSON:    auditJSON(map[string]any{"assignedToId": task.AssignedToID}),
			CreatedAt:    now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (u *TaskUsecase) publishChanges(ctx context.Context, actorID int64, task *model.Task, c taskChanges) {
	if c.statusChanged {
		u.publish(ctx, event.TaskStatusChanged, task.ID, event.TaskStatusChangedPayload{
			TaskID:      task.ID,
			From:        c.statusFrom.String(),
			To:          task.Status.String(),
			ChangedByID: actorID,
		})
	}
	if c.assigned && task.AssignedToID != nil {
		u.publish(ctx, event.TaskAssigned, task.ID, event.TaskAssignedPayload{
			TaskID:       task.ID,
			AssigneeID:   *task.AssignedToID,
			AssignedByID: actorID,
		})
	}
}

func (u *TaskUsecase) publish(ctx context.Context, t event.Type, taskID int64, payload any) {
	if err := u.events.Publish(ctx, t, strconv.FormatInt(taskID, 10), payload); err != nil {
		logging.FromContext(ctx).Warn("event publish failed", "type", string(t), "error", err)
	}
}

// 検索インデックスの更新失敗はリクエストを失敗させない
func (u *TaskUsecase) reindex(ctx context.Context, task *model.Task) {
	if u.index == nil || task == nil {
		return
	}
	if err := u.index.Index(ctx, toTaskDocument(task)); err != nil {
		logging.FromContext(ctx).Warn("search index update failed", "task_id", task.ID, "error", err)
	}
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
