package repository

import "errors"

var (
	// 対象がない
	ErrNotFound = errors.New("not found")
	// ユニーク制約違反（email/username/token など）
	ErrDuplicate = errors.New("duplicate key")
	// 他のレコードから参照されていて消せない
	ErrInUse = errors.New("record in use")
)
