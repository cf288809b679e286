package handler

import (
	"net/http"
	"strconv"

	"teamflow/internal/domain/model"
	"teamflow/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /users のAPI
type UserHandler struct {
	uc *usecase.UserUsecase
}

// DI
func NewUserHandler(uc *usecase.UserUsecase) *UserHandler {
	return &UserHandler{uc: uc}
}

type createUserRequest struct {
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Username  string      `json:"username"`
	Password  string      `json:"password"`
	Role      *model.Role `json:"role"`
}

// 省略した項目は変更しない
type updateUserRequest struct {
	FirstName *string     `json:"firstName"`
	LastName  *string     `json:"lastName"`
	Email     *string     `json:"email"`
	Username  *string     `json:"username"`
	Role      *model.Role `json:"role"`
	IsActive  *bool       `json:"isActive"`
}

func (h *UserHandler) List(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) Get(c echo.Context) error {
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

// GET /users/role/:role （1..6の整数）
func (h *UserHandler) ListByRole(c echo.Context) error {
	role, err := strconv.Atoi(c.Param("role"))
	if err != nil {
		return badParam(c, "role")
	}

	out, err := h.uc.ListByRole(c.Request().Context(), role)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if !bindBody(c, &req) {
		return badBody(c)
	}

	out, err := h.uc.Create(c.Request().Context(), usecase.CreateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		Role:      req.Role,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *UserHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	actor, ok := actorID(c)
	if !ok {
		return c.NoContent(http.StatusUnauthorized)
	}

	var req updateUserRequest
	if !bindBody(c, &req) {
		return badBody(c)
	}

	out, err := h.uc.Update(c.Request().Context(), actor, id, usecase.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Username:  req.Username,
		Role:      req.Role,
		IsActive:  req.IsActive,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	actor, ok := actorID(c)
	if !ok {
		return c.NoContent(http.StatusUnauthorized)
	}

	if err := h.uc.Delete(c.Request().Context(), actor, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) Activate(c echo.Context) error {
	return h.setActive(c, true)
}

func (h *UserHandler) Deactivate(c echo.Context) error {
	return h.setActive(c, false)
}

func (h *UserHandler) setActive(c echo.Context, active bool) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	actor, ok := actorID(c)
	if !ok {
		return c.NoContent(http.StatusUnauthorized)
	}

	if err := h.uc.SetActive(c.Request().Context(), actor, id, active); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
