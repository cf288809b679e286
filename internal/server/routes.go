package server

import (
	"teamflow/internal/domain/model"
	"teamflow/internal/middleware"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ロールの組み合わせ
var (
	userReaders = []model.Role{model.RoleProjectManager, model.RoleTeamLead, model.RoleProductOwner}
	managers    = []model.Role{model.RoleProjectManager, model.RoleProductOwner}
	planners    = []model.Role{model.RoleTeamLead, model.RoleProjectManager, model.RoleProductOwner, model.RoleScrumMaster}
)

func RegisterRoutes(e *echo.Echo, d Deps) {
	gate := func(roles ...model.Role) echo.MiddlewareFunc {
		return middleware.Authorize(d.Tokens, middleware.AllowRoles(roles...))
	}

	// 運用
	e.GET("/health/live", d.Health.Live)
	e.GET("/health/ready", d.Health.Ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{Registry: d.Registry})))

	// 認証（IPごとに回数制限）
	limiter := middleware.NewRateLimiter(d.Config.AuthRateLimit)
	authG := e.Group("/auth", limiter.Middleware())
	authG.POST("/login", d.Auth.Login)
	authG.POST("/register", d.Auth.Register)
	authG.POST("/refresh", d.Auth.Refresh)
	authG.POST("/logout", d.Auth.Logout)

	// ユーザー
	users := e.Group("/users", gate(userReaders...))
	users.GET("", d.Users.List)
	users.GET("/role/:role", d.Users.ListByRole)
	users.GET("/:id", d.Users.Get)
	users.POST("", d.Users.Create, middleware.RequireRoles(managers...))
	users.PUT("/:id", d.Users.Update, middleware.RequireRoles(managers...))
	users.DELETE("/:id", d.Users.Delete, middleware.RequireRoles(managers...))
	users.POST("/:id/activate", d.Users.Activate, middleware.RequireRoles(managers...))
	users.POST("/:id/deactivate", d.Users.Deactivate, middleware.RequireRoles(managers...))

	// エピック
	epics := e.Group("/epics", gate(planners...))
	epics.GET("", d.Epics.List)
	epics.GET("/status/:status", d.Epics.ListByStatus)
	epics.GET("/creator/:creatorId", d.Epics.ListByCreator)
	epics.GET("/priority/:priority", d.Epics.ListByPriority)
	epics.GET("/:id", d.Epics.Get)
	epics.POST("", d.Epics.Create, middleware.RequireRoles(managers...))
	epics.PUT("/:id", d.Epics.Update, middleware.RequireRoles(managers...))
	epics.DELETE("/:id", d.Epics.Delete, middleware.RequireRoles(managers...))

	// タスク（全ロール）
	tasks := e.Group("/tasks", gate(model.AllRoles()...))
	tasks.GET("", d.Tasks.List)
	tasks.GET("/search", d.Tasks.Search)
	tasks.GET("/status/:status", d.Tasks.ListByStatus)
	tasks.GET("/assignee/:assigneeId", d.Tasks.ListByAssignee)
	tasks.GET("/epic/:epicId", d.Tasks.ListByEpic)
	tasks.GET("/priority/:priority", d.Tasks.ListByPriority)
	tasks.GET("/:id", d.Tasks.Get)
	tasks.POST("", d.Tasks.Create, middleware.RequireRoles(planners...))
	tasks.PUT("/:id", d.Tasks.Update)
	tasks.DELETE("/:id", d.Tasks.Delete, middleware.RequireRoles(planners...))
	tasks.POST("/:id/assign/:assigneeId", d.Tasks.Assign, middleware.RequireRoles(planners...))
	tasks.POST("/:id/status/:status", d.Tasks.UpdateStatus)

	// 監査ログ
	e.GET("/audit-logs", d.Audit.List, gate(managers...))
}
