package middleware

import (
	"net/http"
	"strings"

	"teamflow/internal/domain/model"
	auth "teamflow/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey   = "user_id"   // int64
	CtxUserRoleKey = "user_role" // model.Role
)

// アクセストークンの検証（実装はTokenService）
type TokenVerifier interface {
	VerifyAccessToken(token string) (auth.Identity, bool)
}

// Authorizationヘッダから "Bearer xxx" のトークンを抜く
func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get(echo.HeaderAuthorization)
	if authz == "" {
		return "", false
	}

	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", false
	}
	return raw, true
}

// 認証済みのuser_idを取り出す
func UserID(c echo.Context) (int64, bool) {
	id, ok := c.Get(CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

func UserRole(c echo.Context) (model.Role, bool) {
	role, ok := c.Get(CtxUserRoleKey).(model.Role)
	if !ok || !role.Valid() {
		return 0, false
	}
	return role, true
}
