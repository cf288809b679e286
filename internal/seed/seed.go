// Package seed は開発用の初期データを入れる。
package seed

import (
	"context"
	"time"

	"teamflow/internal/domain/model"
	infraRepo "teamflow/internal/infra/repository"
	"teamflow/internal/logging"
	repo "teamflow/internal/repository"

	"gorm.io/gorm"
)

// 全員共通の初期パスワード
const DefaultPassword = "password123"

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

type Clock interface {
	Now() time.Time
}

// Run はユーザーが1人もいない時だけ、ユーザー3人・エピック2件・タスク3件を入れる。
// 入れたかどうかを返す。indexがあれば入れたタスクも登録する。
func Run(ctx context.Context, db *gorm.DB, hasher PasswordHasher, clock Clock, index repo.TaskSearchIndex) (bool, error) {
	count, err := infraRepo.NewUserGormRepository(db).Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hash, err := hasher.Hash(DefaultPassword)
	if err != nil {
		return false, err
	}

	now := clock.Now()
	days := func(n int) *time.Time {
		t := now.AddDate(0, 0, n)
		return &t
	}

	var tasks []*model.Task
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := infraRepo.NewUserGormRepository(tx)
		epics := infraRepo.NewEpicGormRepository(tx)
		taskRepo := infraRepo.NewTaskGormRepository(tx)

		john := &model.User{FirstName: "John", LastName: "Doe", Email: "john.doe@example.com", Username: "johndoe", Role: model.RoleProjectManager}
		jane := &model.User{FirstName: "Jane", LastName: "Smith", Email: "jane.smith@example.com", Username: "janesmith", Role: model.RoleDeveloper}
		bob := &model.User{FirstName: "Bob", LastName: "Johnson", Email: "bob.johnson@example.com", Username: "bobjohnson", Role: model.RoleTeamLead}
		for _, u := range []*model.User{john, jane, bob} {
			u.PasswordHash = hash
			u.IsActive = true
			u.CreatedAt = now
			if err := users.Create(ctx, u); err != nil {
				return err
			}
		}

		auth := &model.Epic{
			Title:       "User Authentication System",
			Description: "Implement a comprehensive user authentication and authorization system",
			DueDate:     days(30),
			Priority:    model.PriorityHigh,
			Status:      model.StatusInProgress,
			CreatedByID: john.ID,
			CreatedAt:   now,
		}
		dashboard := &model.Epic{
			Title:       "Dashboard Development",
			Description: "Create a modern dashboard with analytics and reporting features",
			DueDate:     days(45),
			Priority:    model.PriorityMedium,
			Status:      model.StatusToDo,
			CreatedByID: john.ID,
			CreatedAt:   now,
		}
		for _, e := range []*model.Epic{auth, dashboard} {
			if err := epics.Create(ctx, e); err != nil {
				return err
			}
		}

		tasks = []*model.Task{
			{
				Title:        "Design Login UI",
				Description:  "Create a modern and responsive login interface",
				DueDate:      days(7),
				Priority:     model.PriorityHigh,
				Effort:       8,
				Status:       model.StatusInProgress,
				StartedAt:    days(-2),
				CreatedByID:  john.ID,
				AssignedToID: &jane.ID,
				EpicID:       &auth.ID,
				CreatedAt:    now,
			},
			{
				Title:        "Implement JWT Authentication",
				Description:  "Set up JWT token-based authentication system",
				DueDate:      days(14),
				Priority:     model.PriorityHigh,
				Effort:       16,
				Status:       model.StatusToDo,
				CreatedByID:  john.ID,
				AssignedToID: &bob.ID,
				EpicID:       &auth.ID,
				CreatedAt:    now,
			},
			{
				Title:        "Create Dashboard Layout",
				Description:  "Design the main dashboard layout and navigation",
				DueDate:      days(10),
				Priority:     model.PriorityMedium,
				Effort:       12,
				Status:       model.StatusToDo,
				CreatedByID:  john.ID,
				AssignedToID: &jane.ID,
				EpicID:       &dashboard.ID,
				CreatedAt:    now,
			},
		}
		for _, t := range tasks {
			if err := taskRepo.Create(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if index != nil {
		for _, t := range tasks {
			if err := index.Index(ctx, toDocument(t)); err != nil {
				logging.FromContext(ctx).Warn("seed: search index update failed", "task_id", t.ID, "error", err)
			}
		}
	}
	return true, nil
}

func toDocument(t *model.Task) repo.TaskDocument {
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
