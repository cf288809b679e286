package handler

import (
	"net/http"
	"time"

	"teamflow/internal/domain/model"
	repo "teamflow/internal/repository"
	"teamflow/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /tasks のAPI
type TaskHandler struct {
	uc *usecase.TaskUsecase
}

func NewTaskHandler(uc *usecase.TaskUsecase) *TaskHandler {
	return &TaskHandler{uc: uc}
}

type taskRequest struct {
	Title              *string               `json:"title"`
	Description        *string               `json:"description"`
	DueDate            *time.Time            `json:"dueDate"`
	Status             *model.WorkItemStatus `json:"status"`
	Priority           *model.TaskPriority   `json:"priority"`
	Effort             *int                  `json:"effort"`
	AcceptanceCriteria *string               `json:"acceptanceCriteria"`
	Notes              *string               `json:"notes"`
	AssignedToID       *int64                `json:"assignedToId"`
	EpicID             *int64                `json:"epicId"`
}

// GET /tasks （status, priority, assigneeId, epicId で絞り込み可）
func (h *TaskHandler) List(c echo.Context) error {
	var filter repo.TaskListFilter

	if v := c.QueryParam("status"); v != "" {
		st, err := usecase.ParseStatusParam(v)
		if err != nil {
			return writeError(c, err)
		}
		filter.Status = &st
	}
	if v := c.QueryParam("priority"); v != "" {
		p, err := usecase.ParsePriorityParam(v)
		if err != nil {
			return writeError(c, err)
		}
		filter.Priority = &p
	}
	var ok bool
	if filter.AssignedToID, ok = queryInt64Ptr(c, "assigneeId"); !ok {
		return badParam(c, "assigneeId")
	}
	if filter.EpicID, ok = queryInt64Ptr(c, "epicId"); !ok {
		return badParam(c, "epicId")
	}
	return h.list(c, filter)
}

func (h *TaskHandler) ListByStatus(c echo.Context) error {
	st, err := usecase.ParseStatusParam(c.Param("status"))
	if err != nil {
		return writeError(c, err)
	}
	return h.list(c, repo.TaskListFilter{Status: &st})
}

func (h *TaskHandler) ListByPriority(c echo.Context) error {
	p, err := usecase.ParsePriorityParam(c.Param("priority"))
	if err != nil {
		return writeError(c, err)
	}
	return h.list(c, repo.TaskListFilter{Priority: &p})
}

func (h *TaskHandler) ListByAssignee(c echo.Context) error {
	id, ok := pathID(c, "assigneeId")
	if !ok {
		return badParam(c, "assigneeId")
	}
	return h.list(c, repo.TaskListFilter{AssignedToID: &id})
}

func (h *TaskHandler) ListByEpic(c echo.Context) error {
	id, ok := pathID(c, "epicId")
	if !ok {
		return badParam(c, "epicId")
	}
	return h.list(c, repo.TaskListFilter{EpicID: &id})
}

func (h *TaskHandler) list(c echo.Context, filter repo.TaskListFilter) error {
	out, err := h.uc.List(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TaskHandler) Get(c echo.Context) error {
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

func (h *TaskHandler) Create(c echo.Context) error {
	actor, ok := actorID(c)
	if !ok {
		return c.NoContent(http.StatusUnauthorized)
	}

	var req taskRequest
	if !bindBody(c, &req) {
		return badBody(c)
	}

	in := usecase.CreateTaskInput{
		DueDate:      req.DueDate,
		Status:       req.Status,
		Priority:     req.Priority,
		Effort:       req.Effort,
		AssignedToID: req.AssignedToID,
		EpicID:       req.EpicID,
	}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.AcceptanceCriteria != nil {
		in.AcceptanceCriteria = *req.AcceptanceCriteria
	}
	if req.Notes != nil {
		in.Notes = *req.Notes
	}

	out, err := h.uc.Create(c.Request().Context(), actor, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *TaskHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	actor, ok := actorID(c)
	if !ok {
		return c.NoContent(http.StatusUnauthorized)
	}

	var req taskRequest
	if !bindBody(c, &req) {
		return badBody(c)
	}

	out, err := h.uc.Update(c.Request().Context(), actor, id, usecase.UpdateTaskInput{
		Title:              req.Title,
		Description:        req.Description,
		DueDate:            req.DueDate,
		Status:             req.Status,
		Priority:           req.Priority,
		Effort:             req.Effort,
		AcceptanceCriteria: req.AcceptanceCriteria,
		Notes:              req.Notes,
		AssignedToID:       req.AssignedToID,
		EpicID:             req.EpicID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TaskHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}

	if err := h.uc.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// POST /tasks/:id/assign/:assigneeId
func (h *TaskHandler) Assign(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	assignee, ok := pathID(c, "assigneeId")
	if !ok {
		return badParam(c, "assigneeId")
	}
	actor, ok := actorID(c)
	if !ok {
		return c.NoContent(http.StatusUnauthorized)
	}

	if err := h.uc.Assign(c.Request().Context(), actor, id, assignee); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// POST /tasks/:id/status/:status
func (h *TaskHandler) UpdateStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	st, err := usecase.ParseStatusParam(c.Param("status"))
	if err != nil {
		return writeError(c, err)
	}
	actor, ok := actorID(c)
	if !ok {
		return c.NoContent(http.StatusUnauthorized)
	}

	if err := h.uc.UpdateStatus(c.Request().Context(), actor, id, st); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GET /tasks/search?q=&limit=&offset=
func (h *TaskHandler) Search(c echo.Context) error {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return badParam(c, "limit")
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return badParam(c, "offset")
	}

	out, err := h.uc.Search(c.Request().Context(), c.QueryParam("q"), limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
