package repository

import (
	"context"
	"errors"
	"time"

	"teamflow/internal/domain/model"
	domainrepo "teamflow/internal/repository"

	"gorm.io/gorm"
)

type userGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewUserGormRepository(db *gorm.DB) domainrepo.UserRepository {
	return &userGormRepository{db: db}
}

// Create はユーザーを新規作成（email/username重複はErrDuplicate）
func (r *userGormRepository) Create(ctx context.Context, user *model.User) error {
	return translateWriteError(r.db.WithContext(ctx).Create(user).Error)
}

// IDでユーザーを1件取得
func (r *userGormRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&u).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainrepo.ErrUserNotFound
		}
		return nil, err
	}

	return &u, nil
}

// emailかusernameが一致する有効ユーザー
func (r *userGormRepository) FindActiveByLogin(ctx context.Context, email string, username string) (*model.User, error) {
	if email == "" && username == "" {
		return nil, domainrepo.ErrUserNotFound
	}

	var u model.User

	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	switch {
	case email != "" && username != "":
		q = q.Where("(email = ? OR username = ?)", email, username)
	case email != "":
		q = q.Where("email = ?", email)
	default:
		q = q.Where("username = ?", username)
	}

	if err := q.Order("id ASC").First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainrepo.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userGormRepository) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, "email = ?", email, excludeID)
}

func (r *userGormRepository) UsernameExists(ctx context.Context, username string, excludeID int64) (bool, error) {
	return r.exists(ctx, "username = ?", username, excludeID)
}

func (r *userGormRepository) exists(ctx context.Context, cond string, value string, excludeID int64) (bool, error) {
	var n int64

	q := r.db.WithContext(ctx).Model(&model.User{}).Where(cond, value)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *userGormRepository) List(ctx context.Context, filter domainrepo.UserListFilter) ([]model.User, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})

	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.Role != nil {
		q = q.Where("role = ?", *filter.Role)
	}

	users := make([]model.User, 0)
	if err := q.Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userGormRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.User, error) {
	users := make([]model.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ユーザーを更新。
func (r *userGormRepository) Update(ctx context.Context, user *model.User) error {
	return translateWriteError(r.db.WithContext(ctx).Save(user).Error)
}

func (r *userGormRepository) UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_login_at", at)

	if res.Error != nil {
		return res.Error
	}
	// 0件更新は「対象がない」
	if res.RowsAffected == 0 {
		return domainrepo.ErrUserNotFound
	}
	return nil
}

// 削除。作成者として参照されていれば消さない。
// 担当タスクは担当者なしに戻し、リフレッシュトークンは一緒に消す。
func (r *userGormRepository) Delete(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&model.Epic{}).Where("created_by_id = ?", userID).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return domainrepo.ErrInUse
		}
		if err := tx.Model(&model.Task{}).Where("created_by_id = ?", userID).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return domainrepo.ErrInUse
		}

		if err := tx.Model(&model.Task{}).
			Where("assigned_to_id = ?", userID).
			UpdateColumn("assigned_to_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.RefreshToken{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", userID).Delete(&model.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domainrepo.ErrUserNotFound
		}
		return nil
	})
}

func (r *userGormRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
