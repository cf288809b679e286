package usecase

import (
	"context"

	"teamflow/internal/logging"
	repo "teamflow/internal/repository"
)

// TaskIndexSync はエピック・ユーザー削除で参照が外れたタスクを
// 検索インデックスに入れ直す。nilやindexなしでも呼べる
type TaskIndexSync struct {
	tasks repo.TaskRepository
	index repo.TaskSearchIndex
}

func NewTaskIndexSync(tasks repo.TaskRepository, index repo.TaskSearchIndex) *TaskIndexSync {
	return &TaskIndexSync{tasks: tasks, index: index}
}

func (s *TaskIndexSync) enabled() bool {
	return s != nil && s.index != nil
}

// Affected は削除前に対象タスクのidを集める（Tx外で呼ぶ）
func (s *TaskIndexSync) Affected(ctx context.Context, filter repo.TaskListFilter) []int64 {
	if !s.enabled() {
		return nil
	}
	rows, err := s.tasks.List(ctx, filter)
	if err != nil {
		logging.FromContext(ctx).Warn("search index: listing affected tasks failed", "error", err)
		return nil
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids
}

// Refresh はコミット後のDBの内容でドキュメントを上書きする。失敗はログだけ
func (s *TaskIndexSync) Refresh(ctx context.Context, ids []int64) {
	if !s.enabled() || len(ids) == 0 {
		return
	}
	log := logging.FromContext(ctx)

	rows, err := s.tasks.List(ctx, repo.TaskListFilter{IDs: ids})
	if err != nil {
		log.Warn("search index: reloading tasks failed", "error", err)
		return
	}
	for i := range rows {
		if err := s.index.Index(ctx, toTaskDocument(&rows[i].Task)); err != nil {
			log.Warn("search index update failed", "task_id", rows[i].ID, "error", err)
		}
	}
}
