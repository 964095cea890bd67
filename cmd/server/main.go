package main

import (
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "go.uber.org/zap"

    "github.com/dmarkova/taskhub/internal/config"
    "github.com/dmarkova/taskhub/internal/database"
    "github.com/dmarkova/taskhub/internal/handler"
    "github.com/dmarkova/taskhub/internal/logger"
    "github.com/dmarkova/taskhub/internal/middleware"
    "github.com/dmarkova/taskhub/internal/queue"
    "github.com/dmarkova/taskhub/internal/repository"
    "github.com/dmarkova/taskhub/internal/router"
    "github.com/dmarkova/taskhub/internal/service"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg.Env)
    defer func() { _ = log.Sync() }()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatal("database connect failed", zap.Error(err))
    }
    defer func() { _ = db.Close() }()

    tenants := repository.NewTenantRepo(db)
    users := repository.NewUserRepo(db)
    projects := repository.NewProjectRepo(db)
    tasks := repository.NewTaskRepo(db)
    audit := service.NewAuditPublisher(cfg.AMQPURL, log)
    if cfg.AMQPURL != "" {
        go queue.StartAuditConsumer(cfg.AMQPURL, log)
    }

    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.Recover())
    e.Use(logger.RequestLogger(log))
    e.Use(middleware.Metrics)
    if cfg.FrontendURL != "" {
        e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
            AllowOrigins: []string{cfg.FrontendURL},
            AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
        }))
    }

    // Redis is optional: without it rate limiting and response caching
    // are simply skipped.  Both run inside the /api groups (after the
    // principal is resolved on authenticated routes), never globally.
    var protect []echo.MiddlewareFunc
    if rdb := config.NewRedisClient(); rdb != nil {
        if rl := config.LoadRateLimitConfig(); rl.Enabled {
            protect = append(protect, middleware.NewTokenBucket(rl, rdb))
        }
        if cc := config.LoadCacheConfig(); cc.Enabled {
            protect = append(protect, middleware.NewRedisCache(cc, rdb))
        }
    } else {
        log.Warn("redis unavailable, rate limiting and caching disabled")
    }

    h := router.Handlers{
        Auth:    handler.NewAuthHandler(cfg, log, tenants, users, audit),
        Tenant:  handler.NewTenantHandler(cfg, log, tenants, users, audit),
        User:    handler.NewUserHandler(log, users, audit),
        Project: handler.NewProjectHandler(log, projects, audit),
        Task:    handler.NewTaskHandler(log, tasks, projects, audit),
    }
    router.RegisterSystem(e, db)
    router.RegisterAPI(e, h, cfg.JWTSecret, protect...)

    addr := ":" + cfg.Port
    log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
    if err := e.Start(addr); err != nil {
        log.Fatal("server stopped", zap.Error(err))
    }
}
