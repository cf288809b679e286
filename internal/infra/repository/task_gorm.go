package repository

import (
	"context"
	"errors"
	"strings"

	"teamflow/internal/domain/model"
	repo "teamflow/internal/repository"

	"gorm.io/gorm"
)

type taskGormRepository struct {
	db *gorm.DB
}

func NewTaskGormRepository(db *gorm.DB) repo.TaskRepository {
	return &taskGormRepository{db: db}
}

func (r *taskGormRepository) Create(ctx context.Context, task *model.Task) error {
	return translateWriteError(r.db.WithContext(ctx).Create(task).Error)
}

func (r *taskGormRepository) FindByID(ctx context.Context, id int64) (*model.Task, error) {
	var t model.Task

	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *taskGormRepository) List(ctx context.Context, filter repo.TaskListFilter) ([]repo.TaskSummary, error) {
	q := r.summaryQuery(ctx)

	if filter.Status != nil {
		q = q.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		q = q.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.AssignedToID != nil {
		q = q.Where("tasks.assigned_to_id = ?", *filter.AssignedToID)
	}
	if filter.EpicID != nil {
		q = q.Where("tasks.epic_id = ?", *filter.EpicID)
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []repo.TaskSummary{}, nil
		}
		q = q.Where("tasks.id IN ?", filter.IDs)
	}

	rows := make([]repo.TaskSummary, 0)
	if err := q.Order("tasks.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// LIKEでの部分一致（大文字小文字は無視）
func (r *taskGormRepository) Search(ctx context.Context, q string, limit int, offset int) ([]repo.TaskSummary, int64, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(q))) + "%"
	cond := "(LOWER(tasks.title) LIKE ? ESCAPE '\\' OR LOWER(tasks.description) LIKE ? ESCAPE '\\')"

	var total int64
	if err := r.db.WithContext(ctx).
		Table("tasks").
		Where(cond, pattern, pattern).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := make([]repo.TaskSummary, 0, limit)
	if total == 0 {
		return rows, 0, nil
	}
	if err := r.summaryQuery(ctx).
		Where(cond, pattern, pattern).
		Order("tasks.id DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *taskGormRepository) Counts(ctx context.Context, id int64) (repo.TaskCounts, error) {
	var c repo.TaskCounts

	if err := r.db.WithContext(ctx).Model(&model.TaskComment{}).Where("task_id = ?", id).Count(&c.Comments).Error; err != nil {
		return repo.TaskCounts{}, err
	}
	if err := r.db.WithContext(ctx).Model(&model.TaskAttachment{}).Where("task_id = ?", id).Count(&c.Attachments).Error; err != nil {
		return repo.TaskCounts{}, err
	}
	return c, nil
}

func (r *taskGormRepository) Update(ctx context.Context, task *model.Task) error {
	return translateWriteError(r.db.WithContext(ctx).Save(task).Error)
}

// コメント・添付ごと消す
func (r *taskGormRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&model.TaskComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&model.TaskAttachment{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&model.Task{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}

// 担当者名・作成者名をJOINで取る
func (r *taskGormRepository) summaryQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("tasks").
		Select(`tasks.*,
			COALESCE(assignee.first_name, '') AS assigned_to_first_name,
			COALESCE(assignee.last_name, '') AS assigned_to_last_name,
			COALESCE(creator.first_name, '') AS created_by_first_name,
			COALESCE(creator.last_name, '') AS created_by_last_name`).
		Joins("LEFT JOIN users AS assignee ON assignee.id = tasks.assigned_to_id").
		Joins("LEFT JOIN users AS creator ON creator.id = tasks.created_by_id")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
