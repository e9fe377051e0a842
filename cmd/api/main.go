package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tableorder/internal/app"
	"tableorder/internal/config"
	"tableorder/internal/infra/db"
	"tableorder/internal/infra/memory"
	"tableorder/internal/infra/payment"
	infraRepo "tableorder/internal/infra/repository"
	"tableorder/internal/infra/seed"
	"tableorder/internal/infra/session"
	"tableorder/internal/logger"
	repo "tableorder/internal/repository"
	"tableorder/internal/server"

	"github.com/google/uuid"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	if err := config.LoadEnvFiles(".env", "../.env"); err != nil {
		panic(err)
	}
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//セッションはRedis（未設定ならメモリ）
	var sessStore repo.SessionRepository
	if cfg.RedisAddr != "" {
		rs := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rs.Ping(ctx); err != nil {
			log.Error("startup", "", "redis ping failed", err)
			os.Exit(1)
		}
		defer rs.Close()
		sessStore = rs
	} else {
		log.Warn("startup", "", "REDIS_ADDR not set, sessions are kept in memory")
		sessStore = session.NewMemoryStore()
	}

	gateway, err := payment.NewHostedCheckout(cfg.PaymentBaseURL, cfg.PaymentSecret)
	if err != nil {
		log.Error("startup", "", "payment gateway init failed", err)
		os.Exit(1)
	}

	deps, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("startup", "", "storage init failed", err)
		os.Exit(1)
	}
	deps.Sessions = sessStore
	deps.Gateway = gateway
	deps.IDs = &uuidGenerator{}
	deps.Clock = &realClock{}

	//Server起動
	e := app.NewServer(cfg, log, deps)
	if err := server.Run(ctx, e, cfg.Addr(), log); err != nil {
		log.Error("server", "", "server stopped with error", err)
		os.Exit(1)
	}
}

func openStores(ctx context.Context, cfg config.Config, log *logger.Logger) (app.Deps, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("startup", "", "using in-memory storage")
		s := memory.NewStore()
		if cfg.SeedDemo {
			c := seed.Demo()
			s.Seed(c.Items, c.AddOns, c.Tables)
		}
		return app.MemoryDeps(s, nil, nil, nil, nil), nil
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return app.Deps{}, err
	}
	if err := db.Migrate(gormDB); err != nil {
		return app.Deps{}, err
	}
	if cfg.SeedDemo {
		if err := seed.ApplyGorm(ctx, gormDB, seed.Demo()); err != nil {
			return app.Deps{}, err
		}
	}
	log.Info("startup", "", "connected to postgres", slog.String("host", cfg.PostgresHost))

	//Repository（GORM実装）生成
	return app.Deps{
		Tx:     infraRepo.NewTxManagerGorm(gormDB),
		Menu:   infraRepo.NewMenuGormRepository(gormDB),
		Rates:  infraRepo.NewRateGormRepository(gormDB),
		Tables: infraRepo.NewTableGormRepository(gormDB),
		Audit:  infraRepo.NewAuditLogGormRepository(gormDB),
	}, nil
}
