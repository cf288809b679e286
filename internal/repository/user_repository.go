package repository

import (
	"context"
	"errors"
	"time"

	"teamflow/internal/domain/model"
)

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")

// 一覧の絞り込み
type UserListFilter struct {
	ActiveOnly bool
	Role       *model.Role
}

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成（unique違反はErrDuplicate）
	Create(ctx context.Context, user *model.User) error
	// IDで1件取得。なければErrUserNotFound
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	// 有効ユーザーをemailかusernameで1件取得（ログイン用）
	FindActiveByLogin(ctx context.Context, email string, username string) (*model.User, error)
	// email/usernameが既に使われているか（excludeIDは自分自身を除く時に使う）
	EmailExists(ctx context.Context, email string, excludeID int64) (bool, error)
	UsernameExists(ctx context.Context, username string, excludeID int64) (bool, error)
	List(ctx context.Context, filter UserListFilter) ([]model.User, error)
	// IDまとめて取得（表示名の解決用）
	FindByIDs(ctx context.Context, ids []int64) ([]model.User, error)
	// ユーザー情報の更新
	Update(ctx context.Context, user *model.User) error
	// 最終ログイン時刻だけ更新
	UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error
	// 削除（作成したエピック/タスクがあればErrInUse）
	Delete(ctx context.Context, userID int64) error
	Count(ctx context.Context) (int64, error)
}
