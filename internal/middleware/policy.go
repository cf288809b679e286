package middleware

import (
	"net/http"

	"teamflow/internal/domain/model"
	auth "teamflow/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

// Policy はルートごとに許可するロールの集合。空なら認証済みなら誰でも通す。
type Policy struct {
	roles map[model.Role]struct{}
}

func AnyAuthenticated() Policy {
	return Policy{}
}

func AllowRoles(roles ...model.Role) Policy {
	p := Policy{roles: make(map[model.Role]struct{}, len(roles))}
	for _, r := range roles {
		p.roles[r] = struct{}{}
	}
	return p
}

func (p Policy) Allows(role model.Role) bool {
	if len(p.roles) == 0 {
		return true
	}
	_, ok := p.roles[role]
	return ok
}

type Decision int

const (
	Allow Decision = iota
	// 401
	Unauthenticated
	// 403
	Forbidden
)

// Decide は検証済みトークンの中身だけで可否を決める
func (p Policy) Decide(ident auth.Identity, ok bool) (Decision, model.Role) {
	if !ok || ident.UserID <= 0 {
		return Unauthenticated, 0
	}

	// ロールクレームは名前だけ受け付ける（数値は不可）
	role, known := model.RoleByName(ident.Role)
	if !known {
		return Forbidden, 0
	}
	if !p.Allows(role) {
		return Forbidden, role
	}
	return Allow, role
}

// Authorize はトークン検証とロール判定をまとめたゲート。
// 401/403 はボディなしで返す。
func Authorize(verifier TokenVerifier, p Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var (
				ident auth.Identity
				ok    bool
			)
			if raw, found := bearerToken(c.Request()); found {
				ident, ok = verifier.VerifyAccessToken(raw)
			}

			decision, role := p.Decide(ident, ok)
			switch decision {
			case Unauthenticated:
				return c.NoContent(http.StatusUnauthorized)
			case Forbidden:
				return c.NoContent(http.StatusForbidden)
			}

			c.Set(CtxUserIDKey, ident.UserID)
			c.Set(CtxUserRoleKey, role)
			return next(c)
		}
	}
}

// 読み取りは広く、書き込みは狭く、のようにグループの後で絞る時に使う
func RequireRoles(roles ...model.Role) echo.MiddlewareFunc {
	p := AllowRoles(roles...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := UserID(c); !ok {
				return c.NoContent(http.StatusUnauthorized)
			}
			role, ok := UserRole(c)
			if !ok || !p.Allows(role) {
				return c.NoContent(http.StatusForbidden)
			}
			return next(c)
		}
	}
}
