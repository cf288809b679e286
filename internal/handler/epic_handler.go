package handler

import (
	"net/http"
	"time"

	"teamflow/internal/domain/model"
	repo "teamflow/internal/repository"
	"teamflow/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /epics のAPI
type EpicHandler struct {
	uc *usecase.EpicUsecase
}

func NewEpicHandler(uc *usecase.EpicUsecase) *EpicHandler {
	return &EpicHandler{uc: uc}
}

type epicRequest struct {
	Title       *string               `json:"title"`
	Description *string               `json:"description"`
	DueDate     *time.Time            `json:"dueDate"`
	Status      *model.WorkItemStatus `json:"status"`
	Priority    *model.TaskPriority   `json:"priority"`
}

func (h *EpicHandler) List(c echo.Context) error {
	return h.list(c, repo.EpicListFilter{})
}

func (h *EpicHandler) ListByStatus(c echo.Context) error {
	st, err := usecase.ParseStatusParam(c.Param("status"))
	if err != nil {
		return writeError(c, err)
	}
	return h.list(c, repo.EpicListFilter{Status: &st})
}

func (h *EpicHandler) ListByPriority(c echo.Context) error {
	p, err := usecase.ParsePriorityParam(c.Param("priority"))
	if err != nil {
		return writeError(c, err)
	}
	return h.list(c, repo.EpicListFilter{Priority: &p})
}

func (h *EpicHandler) ListByCreator(c echo.Context) error {
	id, ok := pathID(c, "creatorId")
	if !ok {
		return badParam(c, "creatorId")
	}
	return h.list(c, repo.EpicListFilter{CreatedByID: &id})
}

func (h *EpicHandler) list(c echo.Context, filter repo.EpicListFilter) error {
	out, err := h.uc.List(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *EpicHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}

	out, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 作成者はトークンのユーザー
func (h *EpicHandler) Create(c echo.Context) error {
	actor, ok := actorID(c)
	if !ok {
		return c.NoContent(http.StatusUnauthorized)
	}

	var req epicRequest
	if !bindBody(c, &req) {
		return badBody(c)
	}

	in := usecase.CreateEpicInput{
		DueDate:  req.DueDate,
		Status:   req.Status,
		Priority: req.Priority,
	}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Description != nil {
		in.Description = *req.Description
	}

	out, err := h.uc.Create(c.Request().Context(), actor, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *EpicHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}

	var req epicRequest
	if !bindBody(c, &req) {
		return badBody(c)
	}

	out, err := h.uc.Update(c.Request().Context(), id, usecase.UpdateEpicInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      req.Status,
		Priority:    req.Priority,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *EpicHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}

	if err := h.uc.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
