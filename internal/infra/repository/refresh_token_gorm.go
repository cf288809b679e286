package repository

import (
	"context"
	"errors"
	"time"

	"teamflow/internal/domain/model"
	repo "teamflow/internal/repository"

	"gorm.io/gorm"
)

type refreshTokenGormRepository struct {
	db *gorm.DB //DB接続（GORM）
}

// GORM実装
func NewRefreshTokenRepository(db *gorm.DB) repo.RefreshTokenRepository {
	return &refreshTokenGormRepository{db: db}
}

// リフレッシュトークンを保存。token_hashの重複はErrDuplicate
func (r *refreshTokenGormRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	return translateWriteError(r.db.WithContext(ctx).Create(token).Error)
}

// token_hashで1件検索します。
func (r *refreshTokenGormRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var token model.RefreshToken

	err := r.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&token).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrRefreshTokenNotFound
		}
		return nil, err
	}

	return &token, nil
}

// 未失効・期限内のときだけ失効させる（条件付きUPDATE）。
// 同じトークンで同時にrefreshされても、更新できるのは1件だけ。
func (r *refreshTokenGormRepository) RevokeActive(ctx context.Context, tokenID string, info repo.RevokeInfo) error {
	result := r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("id = ? AND is_revoked = ? AND expires_at > ?", tokenID, false, info.At).
		Updates(revokeColumns(info))

	if result.Error != nil {
		return result.Error
	}

	// 更新件数が0なら「すでに失効/期限切れ/存在しない」
	if result.RowsAffected == 0 {
		return repo.ErrRefreshTokenNotFound
	}

	return nil
}

// 冪等な失効。対象がなくてもエラーにしない。
func (r *refreshTokenGormRepository) RevokeByTokenHash(ctx context.Context, tokenHash string, info repo.RevokeInfo) error {
	return r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("token_hash = ? AND is_revoked = ?", tokenHash, false).
		Updates(revokeColumns(info)).Error
}

// 期限切れ・失効済みで before より古いものを削除
func (r *refreshTokenGormRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ? OR (is_revoked = ? AND revoked_at < ?)", before, true, before).
		Delete(&model.RefreshToken{})

	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func revokeColumns(info repo.RevokeInfo) map[string]interface{} {
	cols := map[string]interface{}{
		"is_revoked":     true,
		"revoked_at":     info.At,
		"reason_revoked": info.Reason,
	}
	if info.ReplacedByID != nil {
		cols["replaced_by_id"] = *info.ReplacedByID
	}
	return cols
}
