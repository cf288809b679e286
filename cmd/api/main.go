package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"teamflow/internal/config"
	"teamflow/internal/domain/event"
	"teamflow/internal/handler"
	"teamflow/internal/infra/db"
	"teamflow/internal/infra/events"
	infraRepo "teamflow/internal/infra/repository"
	"teamflow/internal/infra/search"
	"teamflow/internal/logging"
	repo "teamflow/internal/repository"
	"teamflow/internal/seed"
	"teamflow/internal/server"
	"teamflow/internal/usecase"
	auth "teamflow/internal/usecase/auth_usecase"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	//.envは任意
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, log)

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gormDB); err != nil {
			log.Warn("db close failed", "error", err)
		}
	}()
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}

	//イベント（ブローカー未設定なら送らない）
	var publisher event.Publisher = event.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Warn("kafka writer close failed", "error", err)
			}
		}()
		publisher = kp
		log.Info("kafka publisher enabled", "topic", cfg.Kafka.Topic)
	}

	//検索（未設定ならDBの部分一致）
	var index repo.TaskSearchIndex
	if cfg.Search.URL != "" {
		es, err := search.NewClient(cfg.Search, nil)
		if err != nil {
			return err
		}
		ti := search.NewTaskIndex(es, cfg.Search.TaskIndex)
		if err := ti.EnsureIndex(ctx); err != nil {
			log.Warn("search index unavailable, using database search", "error", err)
		} else {
			index = ti
			log.Info("search index enabled", "index", cfg.Search.TaskIndex)
		}
	}

	//Repository（GORM実装）
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenRepository(gormDB)
	epicRepo := infraRepo.NewEpicGormRepository(gormDB)
	taskRepo := infraRepo.NewTaskGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	clock := usecase.SystemClock{}
	hasher := auth.NewBcryptPasswordHasher(bcrypt.DefaultCost)

	if cfg.SeedData {
		seeded, err := seed.Run(ctx, gormDB, hasher, clock, index)
		if err != nil {
			return err
		}
		if seeded {
			log.Info("seed data inserted")
		}
	}

	//Usecase
	tokens, err := auth.NewTokenService(cfg.JWT, userRepo, rtRepo, auth.UUIDGenerator{}, clock)
	if err != nil {
		return err
	}
	authSvc := auth.NewAuthService(userRepo, txm, tokens, hasher, auth.NewBcryptPasswordVerifier(), publisher, clock)
	indexSync := usecase.NewTaskIndexSync(taskRepo, index)
	userUC := usecase.NewUserUsecase(userRepo, txm, hasher, clock).WithTaskIndex(indexSync)
	epicUC := usecase.NewEpicUsecase(epicRepo, publisher, clock).WithTaskIndex(indexSync)
	taskUC := usecase.NewTaskUsecase(taskRepo, epicRepo, txm, index, publisher, clock)
	auditUC := usecase.NewAuditLogUsecase(auditRepo)

	//期限切れリフレッシュトークンの掃除
	if cfg.TokenCleanupInterval > 0 {
		go auth.NewTokenCleaner(rtRepo, clock).Run(ctx, cfg.TokenCleanupInterval)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	e := server.New(server.Deps{
		Config:   cfg,
		Logger:   log,
		Tokens:   tokens,
		Registry: reg,
		Auth:     handler.NewAuthHandler(authSvc),
		Users:    handler.NewUserHandler(userUC),
		Epics:    handler.NewEpicHandler(epicUC),
		Tasks:    handler.NewTaskHandler(taskUC),
		Audit:    handler.NewAuditLogHandler(auditUC),
		Health:   handler.NewHealthHandler(sqlDB),
	})

	return server.Start(ctx, e, cfg.Addr(), log)
}
