package repository

import (
	"context"
	"time"

	"teamflow/internal/domain/model"
)

// 監査ログの検索条件（nilは条件なし）
type AuditLogFilter struct {
	ActorUserID  *int64
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *int64
	Since        *time.Time
	Limit        int
	Offset       int
}

type AuditLogRepository interface {
	Create(ctx context.Context, entry model.AuditLog) error
	// 新しい順。Limitは1..200（範囲外は50）
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
