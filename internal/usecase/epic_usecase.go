package usecase

import (
	"context"
	"strconv"
	"strings"
	"time"

	"teamflow/internal/domain/event"
	"teamflow/internal/domain/model"
	"teamflow/internal/logging"
	repo "teamflow/internal/repository"
	"teamflow/internal/validator"
)

type EpicDTO struct {
	ID                 int64                `json:"id"`
	Title              string               `json:"title"`
	Description        string               `json:"description"`
	CreatedAt          time.Time            `json:"createdAt"`
	DueDate            *time.Time           `json:"dueDate"`
	Status             model.WorkItemStatus `json:"status"`
	Priority           model.TaskPriority   `json:"priority"`
	CreatedByID        int64                `json:"createdById"`
	CreatedByName      string               `json:"createdByName"`
	TaskCount          int64                `json:"taskCount"`
	CompletedTaskCount int64                `json:"completedTaskCount"`
}

func toEpicDTO(s repo.EpicSummary) EpicDTO {
	return EpicDTO{
		ID:                 s.ID,
		Title:              s.Title,
		Description:        s.Description,
		CreatedAt:          s.CreatedAt,
		DueDate:            s.DueDate,
		Status:             s.Status,
		Priority:           s.Priority,
		CreatedByID:        s.CreatedByID,
		CreatedByName:      joinName(s.CreatedByFirstName, s.CreatedByLastName),
		TaskCount:          s.TaskCount,
		CompletedTaskCount: s.CompletedTaskCount,
	}
}

type CreateEpicInput struct {
	Title       string
	Description string
	DueDate     *time.Time
	Status      *model.WorkItemStatus
	Priority    *model.TaskPriority
}

// 部分更新（nilは変更なし）
type UpdateEpicInput struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Status      *model.WorkItemStatus
	Priority    *model.TaskPriority
}

type EpicUsecase struct {
	epics  repo.EpicRepository
	events event.Publisher
	clock  Clock
	search *TaskIndexSync
}

// DI
func NewEpicUsecase(epics repo.EpicRepository, events event.Publisher, clock Clock) *EpicUsecase {
	if events == nil {
		events = event.Nop{}
	}
	return &EpicUsecase{epics: epics, events: events, clock: clock}
}

func (u *EpicUsecase) List(ctx context.Context, filter repo.EpicListFilter) ([]EpicDTO, error) {
	rows, err := u.epics.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]EpicDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, toEpicDTO(r))
	}
	return out, nil
}

func (u *EpicUsecase) Get(ctx context.Context, id int64) (EpicDTO, error) {
	s, err := u.epics.FindSummaryByID(ctx, id)
	if err != nil {
		return EpicDTO{}, mapRepoError(err, "epic not found")
	}
	return toEpicDTO(*s), nil
}

// 作成者はリクエストしたユーザー
func (u *EpicUsecase) Create(ctx context.Context, actorID int64, in CreateEpicInput) (EpicDTO, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validator.ValidateEpic(validator.WorkItemFields{
		Title:       &in.Title,
		Description: &in.Description,
	}); err != nil {
		return EpicDTO{}, InvalidInput(err)
	}

	epic := &model.Epic{
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   u.clock.Now(),
		DueDate:     in.DueDate,
		Status:      model.StatusToDo,
		Priority:    model.PriorityMedium,
		CreatedByID: actorID,
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return EpicDTO{}, ValidationError("invalid status")
		}
		epic.Status = *in.Status
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return EpicDTO{}, ValidationError("invalid priority")
		}
		epic.Priority = *in.Priority
	}

	if err := u.epics.Create(ctx, epic); err != nil {
		return EpicDTO{}, err
	}

	if err := u.events.Publish(ctx, event.EpicCreated, strconv.FormatInt(epic.ID, 10), event.EpicCreatedPayload{
		EpicID:      epic.ID,
		Title:       epic.Title,
		CreatedByID: actorID,
	}); err != nil {
		logging.FromContext(ctx).Warn("event publish failed", "type", string(event.EpicCreated), "error", err)
	}

	return u.Get(ctx, epic.ID)
}

func (u *EpicUsecase) Update(ctx context.Context, id int64, in UpdateEpicInput) (EpicDTO, error) {
	in.Title = trimmedPtr(in.Title)
	if err := validator.ValidateEpic(validator.WorkItemFields{
		Title:       in.Title,
		Description: in.Description,
	}); err != nil {
		return EpicDTO{}, InvalidInput(err)
	}
	if in.Status != nil && !in.Status.Valid() {
		return EpicDTO{}, ValidationError("invalid status")
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return EpicDTO{}, ValidationError("invalid priority")
	}

	epic, err := u.epics.FindByID(ctx, id)
	if err != nil {
		return EpicDTO{}, mapRepoError(err, "epic not found")
	}

	if in.Title != nil {
		epic.Title = *in.Title
	}
	if in.Description != nil {
		epic.Description = *in.Description
	}
	if in.DueDate != nil {
		epic.DueDate = in.DueDate
	}
	if in.Status != nil {
		epic.Status = *in.Status
	}
	if in.Priority != nil {
		epic.Priority = *in.Priority
	}

	if err := u.epics.Update(ctx, epic); err != nil {
		return EpicDTO{}, err
	}
	return u.Get(ctx, id)
}

// 配下のタスクは残る（epicIdだけ外れる）
// WithTaskIndex は削除でepicIdが外れたタスクを検索インデックスにも反映させる
func (u *EpicUsecase) WithTaskIndex(s *TaskIndexSync) *EpicUsecase {
	u.search = s
	return u
}

// Delete は紐づくタスクを残したままepicIdを外す
func (u *EpicUsecase) Delete(ctx context.Context, id int64) error {
	affected := u.search.Affected(ctx, repo.TaskListFilter{EpicID: &id})

	if err := u.epics.Delete(ctx, id); err != nil {
		return mapRepoError(err, "epic not found")
	}
	u.search.Refresh(ctx, affected)
	return nil
}

// パスパラメータのステータス（名前か数値）
func ParseStatusParam(raw string) (model.WorkItemStatus, error) {
	st, ok := model.ParseWorkItemStatus(raw)
	if !ok {
		return 0, ValidationError("invalid status")
	}
	return st, nil
}

// パスパラメータの優先度（名前か数値）
func ParsePriorityParam(raw string) (model.TaskPriority, error) {
	p, ok := model.ParseTaskPriority(raw)
	if !ok {
		return 0, ValidationError("invalid priority")
	}
	return p, nil
}

func joinName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
