package repository

import (
	"errors"
	"strings"

	repo "teamflow/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// postgresのunique_violation
const pgUniqueViolation = "23505"

// DBのユニーク制約違反かどうか。
// TranslateErrorが効かないドライバ（古いsqliteなど）もメッセージで拾う。
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// 保存系のエラーをリポジトリのエラーに寄せる
func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return repo.ErrDuplicate
	}
	return err
}
