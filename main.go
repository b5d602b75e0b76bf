package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/fabricioGuac/chat-fusion/internal/blob"
	"github.com/fabricioGuac/chat-fusion/internal/chatengine"
	"github.com/fabricioGuac/chat-fusion/internal/config"
	"github.com/fabricioGuac/chat-fusion/internal/db"
	"github.com/fabricioGuac/chat-fusion/internal/fanout"
	"github.com/fabricioGuac/chat-fusion/internal/handlers"
	"github.com/fabricioGuac/chat-fusion/internal/identity"
	"github.com/fabricioGuac/chat-fusion/internal/middleware"
	"github.com/fabricioGuac/chat-fusion/internal/observability"
	"github.com/fabricioGuac/chat-fusion/internal/presence"
	"github.com/fabricioGuac/chat-fusion/internal/rabbitmq"
	"github.com/fabricioGuac/chat-fusion/internal/storage"
	"github.com/fabricioGuac/chat-fusion/internal/telemetry"
	"github.com/fabricioGuac/chat-fusion/internal/ws"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg)
	log := logger.WithField("service", cfg.ServiceName)

	shutdownTracer, err := telemetry.InitTracer(context.Background(), cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseDSN, log)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.EventExchange, log)
	defer publisher.Close()
	log.WithField("mode", rabbitmq.PublisherMode(publisher)).Info("event publisher ready")

	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, cfg.ServiceName, cfg.Environment, log)

	gateway := identity.NewJWTGateway(cfg.JWTSecret)
	blobs := blob.NewStore(cfg.BlobDir, log.WithField("component", "blob"))
	tracker := presence.NewTracker()
	hub := ws.NewHub(log.WithField("component", "ws"))

	notifier := fanout.New(log.WithField("component", "fanout"), hub, rabbitmq.NewEventTransport(publisher))
	defer notifier.Close()

	chatRepo := storage.NewChatRepo(database)
	messageRepo := storage.NewMessageRepo(database)
	userRepo := storage.NewUserRepo(database)

	engine := chatengine.New(chatRepo, messageRepo, userRepo, blobs, tracker, notifier, log.WithField("component", "chatengine"))

	chatHandler := handlers.NewChatHandler(engine, audit)
	groupHandler := handlers.NewGroupHandler(engine, audit)
	messageHandler := handlers.NewMessageHandler(engine, audit)

	chatWS := ws.NewChatSocketHandler(hub, engine, tracker, gateway)
	notificationsWS := ws.NewNotificationSocketHandler(hub, gateway)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, cfg.Debug)

	authMiddleware := middleware.AuthMiddleware(gateway)

	router.POST("/chats/direct", authMiddleware, chatHandler.StartDirectChat)
	router.GET("/chats", authMiddleware, chatHandler.ListChats)
	router.GET("/chats/:chat_id", authMiddleware, chatHandler.GetChat)
	router.DELETE("/chats/:chat_id", authMiddleware, chatHandler.DeleteChat)
	router.POST("/chats/:chat_id/read", authMiddleware, chatHandler.MarkRead)

	router.POST("/groups", authMiddleware, groupHandler.CreateGroup)
	router.PUT("/groups/:chat_id", authMiddleware, groupHandler.UpdateGroup)
	router.POST("/groups/:chat_id/members", authMiddleware, groupHandler.AddMember)
	router.DELETE("/groups/:chat_id/members/:user_id", authMiddleware, groupHandler.RemoveMember)
	router.POST("/groups/:chat_id/admins/:user_id", authMiddleware, groupHandler.PromoteAdmin)

	router.GET("/chats/:chat_id/messages", authMiddleware, messageHandler.GetMessages)
	router.POST("/chats/:chat_id/messages", authMiddleware, messageHandler.PostMessage)
	router.PUT("/chats/:chat_id/messages/:message_id", authMiddleware, messageHandler.EditMessage)
	router.DELETE("/chats/:chat_id/messages/:message_id", authMiddleware, messageHandler.DeleteMessage)

	router.GET("/ws/chats/:chat_id", chatWS.Handle)
	router.GET("/ws/notifications", notificationsWS.Handle)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warnf("server shutdown: %v", err)
	}
	if err := shutdownTracer(ctx); err != nil {
		log.Warnf("tracer shutdown: %v", err)
	}

	log.Info("server exited")
}

func newLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()

	switch cfg.LogLevel {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	return logger
}
