package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/TrevorThebe/cdstock/internal/auth"
	"github.com/TrevorThebe/cdstock/internal/config"
	"github.com/TrevorThebe/cdstock/internal/db"
	"github.com/TrevorThebe/cdstock/internal/handlers"
	"github.com/TrevorThebe/cdstock/internal/logger"
	"github.com/TrevorThebe/cdstock/internal/middleware"
	"github.com/TrevorThebe/cdstock/internal/notify"
	"github.com/TrevorThebe/cdstock/internal/observability"
	"github.com/TrevorThebe/cdstock/internal/outbox"
	"github.com/TrevorThebe/cdstock/internal/rabbitmq"
	"github.com/TrevorThebe/cdstock/internal/repositories"
	"github.com/TrevorThebe/cdstock/internal/telemetry"
	"github.com/TrevorThebe/cdstock/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTLPAddr, cfg.Environment)
	if err != nil {
		zlog.Fatal("failed to set up tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	database, err := db.Connect(cfg.DatabaseDSN, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to db", zap.Error(err))
	}
	defer database.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		zlog.Warn("redis unreachable, outbox disabled until it recovers", zap.Error(err))
	}

	eventPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.Exchange, zlog)
	defer eventPublisher.Close()

	if cfg.AMQPURL != "" {
		if amqpPub, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.Exchange); err != nil {
			zlog.Warn("ws event publisher unavailable", zap.Error(err))
		} else {
			observability.SetPublisher(amqpPub)
			defer amqpPub.Close()
		}
	}

	audit := telemetry.NewAuditEmitter(eventPublisher, "notify.audit", "cdstock", cfg.Environment, zlog)

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		zlog.Fatal("failed to set up token service", zap.Error(err))
	}

	userRepo := repositories.NewUserRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)
	chatRepo := repositories.NewChatRepo(database)

	hub := ws.NewHub(zlog)
	broadcaster := notify.NewBroadcaster(userRepo, notificationRepo, hub, zlog)
	queue := outbox.NewQueue(rdb, zlog)

	authHandler := handlers.NewAuthHandler(userRepo, tokens, audit, zlog)
	userHandler := handlers.NewUserHandler(userRepo, audit, zlog)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, userRepo, broadcaster, audit, zlog)
	chatHandler := handlers.NewChatHandler(chatRepo, userRepo, hub, queue, zlog)
	feedWS := ws.NewFeedHandler(hub, tokens)

	go queue.RunFlusher(ctx, cfg.FlushEvery, chatHandler.StoreSender())

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("cdstock"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.Login)

	authRequired := middleware.AuthMiddleware(tokens)
	adminOnly := middleware.RequireAdmin()

	router.GET("/auth/me", authRequired, authHandler.Me)

	router.GET("/users", authRequired, userHandler.List)
	router.PATCH("/users/:id/role", authRequired, adminOnly, userHandler.UpdateRole)
	router.PATCH("/users/:id/block", authRequired, adminOnly, userHandler.SetBlocked)
	router.DELETE("/users/:id", authRequired, adminOnly, userHandler.Delete)

	router.GET("/notifications", authRequired, notificationHandler.List)
	router.GET("/notifications/unread-count", authRequired, notificationHandler.UnreadCount)
	router.POST("/notifications/read-all", authRequired, notificationHandler.MarkAllRead)
	router.POST("/notifications/broadcast", authRequired, adminOnly, notificationHandler.Broadcast)
	router.GET("/notifications/history", authRequired, adminOnly, notificationHandler.History)
	router.GET("/notifications/all", authRequired, adminOnly, notificationHandler.ListAll)
	router.POST("/notifications/:id/read", authRequired, notificationHandler.MarkRead)
	router.DELETE("/notifications/:id", authRequired, notificationHandler.Delete)

	router.GET("/chats/unread-count", authRequired, chatHandler.UnreadCount)
	router.POST("/chats/:user_id/messages", authRequired, chatHandler.Send)
	router.GET("/chats/:user_id/messages", authRequired, chatHandler.Conversation)
	router.POST("/chats/:user_id/read", authRequired, chatHandler.MarkConversationRead)

	router.GET("/ws", feedWS.Handle)

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	zlog.Info("cdstock listening", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
	if err := router.Run(":" + cfg.Port); err != nil {
		zlog.Fatal("server error", zap.Error(err))
	}
}
