package repository

import (
	"context"

	"teamflow/internal/domain/model"
)

// 一覧の絞り込み（nilは条件なし）
type TaskListFilter struct {
	Status       *model.WorkItemStatus
	Priority     *model.TaskPriority
	AssignedToID *int64
	EpicID       *int64
	IDs          []int64
}

// 一覧用の読み取りモデル
type TaskSummary struct {
	model.Task
	AssignedToFirstName string
	AssignedToLastName  string
	CreatedByFirstName  string
	CreatedByLastName   string
}

// コメント・添付の件数
type TaskCounts struct {
	Comments    int64
	Attachments int64
}

type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	// なければErrNotFound
	FindByID(ctx context.Context, id int64) (*model.Task, error)
	List(ctx context.Context, filter TaskListFilter) ([]TaskSummary, error)
	// タイトル・説明の部分一致（検索エンジンがない時の代替）
	Search(ctx context.Context, q string, limit int, offset int) ([]TaskSummary, int64, error)
	Counts(ctx context.Context, id int64) (TaskCounts, error)
	Update(ctx context.Context, task *model.Task) error
	// 削除（コメント・添付も消す）
	Delete(ctx context.Context, id int64) error
}
