package usecase

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"teamflow/internal/repository"
	"teamflow/internal/validator"
)

// 現在の時間
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// 平文パスワードからハッシュへ（実装はbcrypt）
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// validatorのエラーを400に変換
func InvalidInput(err error) error {
	if err == nil {
		return nil
	}
	var ve *validator.Error
	if errors.As(err, &ve) {
		return ValidationError(ve.Error())
	}
	return ValidationError("invalid input")
}

// repoのエラーを分類に合わせる。それ以外はそのまま（500）
func mapRepoError(err error, notFoundMessage string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrUserNotFound):
		return NotFoundError(notFoundMessage)
	case errors.Is(err, repository.ErrDuplicate):
		return ConflictError("already exists")
	case errors.Is(err, repository.ErrInUse):
		return ConflictError("still referenced")
	default:
		return err
	}
}

// 監査ログ用のJSON
func auditJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
