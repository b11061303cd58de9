package main

import (
	"context"
	"log"

	"github.com/Instant-Chat-App/InstantChat-Server/auth"
	"github.com/Instant-Chat-App/InstantChat-Server/config"
	"github.com/Instant-Chat-App/InstantChat-Server/controllers"
	"github.com/Instant-Chat-App/InstantChat-Server/models"
	"github.com/Instant-Chat-App/InstantChat-Server/realtime"
	"github.com/Instant-Chat-App/InstantChat-Server/repositories"
	"github.com/Instant-Chat-App/InstantChat-Server/routes"
	"github.com/Instant-Chat-App/InstantChat-Server/services"
	"github.com/Instant-Chat-App/InstantChat-Server/upload"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := config.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	db, err := config.InitDB(cfg, logger)
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}
	if err := models.Migrate(db); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	// The coordination channel keeps fan-out whole across processes;
	// without Redis a single instance falls back to the in-memory bus.
	var bus realtime.Bus
	if redisClient, err := config.NewRedis(cfg, logger); err != nil {
		logger.Warn("Redis unavailable, falling back to in-process bus", zap.Error(err))
		bus = realtime.NewMemoryBus()
	} else {
		defer redisClient.Close()
		bus = realtime.NewRedisBus(redisClient, logger)
	}
	defer bus.Close()

	conversationRepo := repositories.NewConversationRepository(db, logger)
	messageRepo := repositories.NewMessageRepository(db, logger)
	reactionRepo := repositories.NewReactionRepository(db, logger)
	deliveryRepo := repositories.NewDeliveryRepository(db, logger)

	deliveryService := services.NewDeliveryService(deliveryRepo, conversationRepo, logger)
	membershipService := services.NewMembershipService(conversationRepo, messageRepo, deliveryRepo, logger)
	messageService := services.NewMessageService(messageRepo, reactionRepo, conversationRepo, deliveryService, logger)

	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	uploader := upload.NewHTTPUploader(cfg.UploadEndpoint)

	hub := realtime.NewHub(bus, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := hub.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("hub stopped", zap.Error(err))
		}
	}()

	gateway := realtime.NewGateway(hub, membershipService, messageService, deliveryService, uploader, verifier, logger)

	conversationsController := controllers.NewConversationsController(membershipService, deliveryService, hub, logger)
	messageController := controllers.NewMessageController(messageService, hub, logger)

	r := routes.RegisterRoutes(conversationsController, messageController, gateway, verifier)
	logger.Info("server listening", zap.String("addr", cfg.HTTPAddr))
	if err := r.Run(cfg.HTTPAddr); err != nil {
		logger.Fatal("server failed to start", zap.Error(err))
	}
}
