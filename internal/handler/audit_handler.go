package handler

import (
	"net/http"
	"time"

	"teamflow/internal/domain/model"
	repo "teamflow/internal/repository"
	"teamflow/internal/usecase"

	"github.com/labstack/echo/v4"
)

// GET /audit-logs
type AuditLogHandler struct {
	uc *usecase.AuditLogUsecase
}

func NewAuditLogHandler(uc *usecase.AuditLogUsecase) *AuditLogHandler {
	return &AuditLogHandler{uc: uc}
}

func (h *AuditLogHandler) List(c echo.Context) error {
	var (
		filter repo.AuditLogFilter
		ok     bool
	)

	if filter.ActorUserID, ok = queryInt64Ptr(c, "actorUserId"); !ok {
		return badParam(c, "actorUserId")
	}
	if filter.ResourceID, ok = queryInt64Ptr(c, "resourceId"); !ok {
		return badParam(c, "resourceId")
	}
	if filter.Limit, ok = queryInt(c, "limit"); !ok {
		return badParam(c, "limit")
	}
	if filter.Offset, ok = queryInt(c, "offset"); !ok {
		return badParam(c, "offset")
	}
	if v := c.QueryParam("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badParam(c, "since")
		}
		since = since.UTC()
		filter.Since = &since
	}
	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		filter.Action = &a
	}
	if v := c.QueryParam("resourceType"); v != "" {
		rt := model.AuditResourceType(v)
		filter.ResourceType = &rt
	}

	out, err := h.uc.List(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
