package repository

import (
	"context"
	"errors"
	"time"

	"teamflow/internal/domain/model"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// 失効させる時の情報
type RevokeInfo struct {
	At           time.Time
	Reason       string
	ReplacedByID *string
}

// リフレッシュトークンの保存・取得・失効・削除
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	// なければErrRefreshTokenNotFound
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	// 未失効かつ期限内（expires_at > info.At）の時だけ失効させる。
	// 条件に合わなければErrRefreshTokenNotFound（ローテーションの排他に使う）
	RevokeActive(ctx context.Context, tokenID string, info RevokeInfo) error
	// 未失効なら失効させる。すでに失効済み・存在しない場合も成功扱い
	RevokeByTokenHash(ctx context.Context, tokenHash string, info RevokeInfo) error
	// 期限切れ・失効済みで古いものを消す。消した件数を返す
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}
