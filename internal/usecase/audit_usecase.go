package usecase

import (
	"context"

	"teamflow/internal/domain/model"
	repo "teamflow/internal/repository"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

type AuditLogUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditLogUsecase(logs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{logs: logs}
}

// List は新しい順に返す。Limitが0なら50
func (u *AuditLogUsecase) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	if filter.Limit == 0 {
		filter.Limit = defaultAuditLimit
	}
	if filter.Limit < 1 || filter.Limit > maxAuditLimit {
		return nil, ValidationError("invalid limit")
	}
	if filter.Offset < 0 {
		return nil, ValidationError("invalid offset")
	}
	if filter.Action != nil && !validAuditAction(*filter.Action) {
		return nil, ValidationError("invalid action")
	}
	if filter.ResourceType != nil &&
		*filter.ResourceType != model.AuditResourceUser &&
		*filter.ResourceType != model.AuditResourceTask {
		return nil, ValidationError("invalid resourceType")
	}

	return u.logs.List(ctx, filter)
}

func validAuditAction(a model.AuditAction) bool {
	switch a {
	case model.AuditActionChangeRole,
		model.AuditActionChangeActive,
		model.AuditActionDeleteUser,
		model.AuditActionChangeTaskStatus,
		model.AuditActionAssignTask:
		return true
	}
	return false
}
