package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"teamflow/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"unauthorized", usecase.ErrUnauthorized, http.StatusUnauthorized, ""},
		{"forbidden wrapped", fmt.Errorf("gate: %w", usecase.ErrForbidden), http.StatusForbidden, ""},
		{"validation", usecase.ValidationError("invalid status"), http.StatusBadRequest, `{"error":"invalid status"}`},
		{"not found", usecase.NotFoundError("task not found"), http.StatusNotFound, `{"error":"task not found"}`},
		{"conflict", usecase.ConflictError("email or username already exists"), http.StatusConflict, `{"error":"email or username already exists"}`},
		{"unknown", errors.New("db is on fire"), http.StatusInternalServerError, `{"error":"internal error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/", "")
			require.NoError(t, writeError(c, tt.err))
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody == "" {
				assert.Empty(t, rec.Body.String())
				return
			}
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestPathID(t *testing.T) {
	for raw, want := range map[string]bool{"1": true, "42": true, "0": false, "-3": false, "abc": false, "": false} {
		c, _ := newContext(http.MethodGet, "/", "")
		c.SetParamNames("id")
		c.SetParamValues(raw)
		_, ok := pathID(c, "id")
		assert.Equal(t, want, ok, raw)
	}
}

func TestQueryHelpers(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/?limit=10&epicId=7&bad=x", "")

	n, ok := queryInt(c, "limit")
	assert.True(t, ok)
	assert.Equal(t, 10, n)

	n, ok = queryInt(c, "offset")
	assert.True(t, ok)
	assert.Zero(t, n)

	_, ok = queryInt(c, "bad")
	assert.False(t, ok)

	id, ok := queryInt64Ptr(c, "epicId")
	require.True(t, ok)
	require.NotNil(t, id)
	assert.Equal(t, int64(7), *id)

	id, ok = queryInt64Ptr(c, "assigneeId")
	assert.True(t, ok)
	assert.Nil(t, id)
}

func TestBindBody_IgnoresQueryAndRejectsBadJSON(t *testing.T) {
	var dst refreshRequest

	c, _ := newContext(http.MethodPost, "/?refreshToken=from-query", `{"refreshToken":"from-body"}`)
	require.True(t, bindBody(c, &dst))
	assert.Equal(t, "from-body", dst.RefreshToken)

	c, _ = newContext(http.MethodPost, "/", `{"refreshToken":`)
	assert.False(t, bindBody(c, &dst))
}
