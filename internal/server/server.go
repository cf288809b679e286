package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"teamflow/internal/config"
	"teamflow/internal/handler"
	"teamflow/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// 停止時にリクエストの完了を待つ上限
const shutdownTimeout = 10 * time.Second

// サーバーの組み立てに必要なもの
type Deps struct {
	Config   config.Config
	Logger   *slog.Logger
	Tokens   middleware.TokenVerifier
	Registry *prometheus.Registry

	Auth   *handler.AuthHandler
	Users  *handler.UserHandler
	Epics  *handler.EpicHandler
	Tasks  *handler.TaskHandler
	Audit  *handler.AuditLogHandler
	Health *handler.HealthHandler
}

// New はミドルウェアとルートを登録したechoを返す
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(
		echomw.Recover(),
		echomw.RequestID(),
		middleware.NewMetrics(d.Registry).Middleware(),
		middleware.RequestLogger(d.Logger),
	)

	RegisterRoutes(e, d)
	return e
}

// Start はctxが終わるまでサーバーを動かし、その後graceful shutdownする
func Start(ctx context.Context, e *echo.Echo, addr string, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
