package handler

import (
	"net/http"

	auth "teamflow/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	svc *auth.AuthService
}

// DIコンストラクタ
func NewAuthHandler(svc *auth.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// /auth/login のリクエストボディ。emailかuserNameのどちらか
type loginRequest struct {
	Email    string `json:"email"`
	UserName string `json:"userName"`
	Password string `json:"password"`
}

// /auth/register のリクエストボディ。
type registerRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// POST /auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if !bindBody(c, &req) {
		return badBody(c)
	}

	out, err := h.svc.Login(c.Request().Context(), auth.LoginInput{
		Email:    req.Email,
		Username: req.UserName,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if !bindBody(c, &req) {
		return badBody(c)
	}

	out, err := h.svc.Register(c.Request().Context(), auth.RegisterInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /auth/refresh
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if !bindBody(c, &req) {
		return badBody(c)
	}

	out, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /auth/logout 失敗しても200
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshRequest
	_ = bindBody(c, &req)

	_ = h.svc.Logout(c.Request().Context(), req.RefreshToken)
	return c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}
