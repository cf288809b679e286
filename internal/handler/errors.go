package handler

import (
	"errors"
	"net/http"
	"strconv"

	"teamflow/internal/logging"
	"teamflow/internal/middleware"
	"teamflow/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// writeError はusecaseのエラーをHTTPに変える。401/403はボディなし
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, usecase.ErrUnauthorized):
		return c.NoContent(http.StatusUnauthorized)
	case errors.Is(err, usecase.ErrForbidden):
		return c.NoContent(http.StatusForbidden)
	}

	if he, ok := usecase.AsHTTPError(err); ok && he.Status < http.StatusInternalServerError {
		return c.JSON(he.Status, errorJSON(he.Message))
	}

	//500
	logging.FromContext(c.Request().Context()).Error("unhandled error", "error", err)
	return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
}

// JSONボディだけを読む（パス・クエリは混ぜない）
func bindBody(c echo.Context, dst any) bool {
	return (&echo.DefaultBinder{}).BindBody(c, dst) == nil
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, errorJSON("invalid request body"))
}

// 正の整数のパスパラメータ
func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func badParam(c echo.Context, name string) error {
	return c.JSON(http.StatusBadRequest, errorJSON("invalid "+name))
}

// ゲートを通った後なので基本は取れる
func actorID(c echo.Context) (int64, bool) {
	return middleware.UserID(c)
}

// 任意の整数クエリ
func queryInt(c echo.Context, name string) (int, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, true
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func queryInt64Ptr(c echo.Context, name string) (*int64, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, true
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, false
	}
	return &i, true
}
