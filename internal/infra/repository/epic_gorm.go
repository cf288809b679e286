package repository

import (
	"context"
	"errors"

	"teamflow/internal/domain/model"
	repo "teamflow/internal/repository"

	"gorm.io/gorm"
)

type epicGormRepository struct {
	db *gorm.DB
}

func NewEpicGormRepository(db *gorm.DB) repo.EpicRepository {
	return &epicGormRepository{db: db}
}

func (r *epicGormRepository) Create(ctx context.Context, epic *model.Epic) error {
	return translateWriteError(r.db.WithContext(ctx).Create(epic).Error)
}

func (r *epicGormRepository) FindByID(ctx context.Context, id int64) (*model.Epic, error) {
	var e model.Epic

	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *epicGormRepository) FindSummaryByID(ctx context.Context, id int64) (*repo.EpicSummary, error) {
	var rows []repo.EpicSummary

	if err := r.summaryQuery(ctx).Where("epics.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repo.ErrNotFound
	}
	return &rows[0], nil
}

func (r *epicGormRepository) List(ctx context.Context, filter repo.EpicListFilter) ([]repo.EpicSummary, error) {
	q := r.summaryQuery(ctx)

	if filter.Status != nil {
		q = q.Where("epics.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		q = q.Where("epics.priority = ?", *filter.Priority)
	}
	if filter.CreatedByID != nil {
		q = q.Where("epics.created_by_id = ?", *filter.CreatedByID)
	}

	rows := make([]repo.EpicSummary, 0)
	if err := q.Order("epics.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// 作成者名・タスク件数・完了件数を1クエリで取る
func (r *epicGormRepository) summaryQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("epics").
		Select(`epics.*,
			COALESCE(users.first_name, '') AS created_by_first_name,
			COALESCE(users.last_name, '') AS created_by_last_name,
			(SELECT COUNT(*) FROM tasks WHERE tasks.epic_id = epics.id) AS task_count,
			(SELECT COUNT(*) FROM tasks WHERE tasks.epic_id = epics.id AND tasks.status = ?) AS completed_task_count`,
			model.StatusDone).
		Joins("LEFT JOIN users ON users.id = epics.created_by_id")
}

func (r *epicGormRepository) Update(ctx context.Context, epic *model.Epic) error {
	res := r.db.WithContext(ctx).Save(epic)
	if res.Error != nil {
		return translateWriteError(res.Error)
	}
	return nil
}

// 配下のタスクは残し、epic_idだけNULLにする
func (r *epicGormRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Task{}).
			Where("epic_id = ?", id).
			UpdateColumn("epic_id", nil).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&model.Epic{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}
