package repository

import (
	"context"

	"teamflow/internal/domain/model"
)

// 一覧の絞り込み（nilは条件なし）
type EpicListFilter struct {
	Status      *model.WorkItemStatus
	Priority    *model.TaskPriority
	CreatedByID *int64
}

// 一覧・詳細用の読み取りモデル（作成者名とタスク件数をJOINで取る）
type EpicSummary struct {
	model.Epic
	CreatedByFirstName string
	CreatedByLastName  string
	TaskCount          int64
	CompletedTaskCount int64
}

type EpicRepository interface {
	Create(ctx context.Context, epic *model.Epic) error
	// なければErrNotFound
	FindByID(ctx context.Context, id int64) (*model.Epic, error)
	FindSummaryByID(ctx context.Context, id int64) (*EpicSummary, error)
	List(ctx context.Context, filter EpicListFilter) ([]EpicSummary, error)
	Update(ctx context.Context, epic *model.Epic) error
	// 削除（配下タスクのepic_idはNULLに戻す）
	Delete(ctx context.Context, id int64) error
}
