package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/account-service/internal/config"
	"github.com/fathima-sithara/account-service/internal/database"
	"github.com/fathima-sithara/account-service/internal/events"
	"github.com/fathima-sithara/account-service/internal/handlers"
	"github.com/fathima-sithara/account-service/internal/notifier"
	"github.com/fathima-sithara/account-service/internal/oauth"
	"github.com/fathima-sithara/account-service/internal/repository"
	"github.com/fathima-sithara/account-service/internal/server"
	"github.com/fathima-sithara/account-service/internal/services"
	"github.com/fathima-sithara/account-service/internal/utils"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.App.Env == "development" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer func() {
		_ = logger.Sync()
	}()
	sugar := logger.Sugar()
	sugar.Infof("Starting account-service in %s environment on port %d", cfg.App.Env, cfg.App.Port)

	db, closeMongo, err := database.ConnectMongo(cfg.Mongo, logger)
	if err != nil {
		sugar.Fatal(err)
	}

	rdb, err := database.ConnectRedis(cfg.Redis, logger)
	if err != nil {
		sugar.Warnf("Redis unavailable, otp resend rate limiting disabled: %v", err)
		rdb = nil
	}

	email := notifier.NewBrevoClient(cfg.Brevo.APIKey, cfg.Brevo.SenderEmail, cfg.Brevo.SenderName)
	if !email.IsConfigured() {
		sugar.Warn("Brevo client not fully configured. Verification emails will be skipped.")
	}
	sms := notifier.NewTwilioClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From)
	if !sms.IsConfigured() {
		sugar.Warn("Twilio client not fully configured. Verification SMS will be skipped.")
	}
	dispatcher := notifier.NewDispatcher(email, sms, logger)

	var producer *events.Producer
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		sugar.Infof("Kafka producer enabled on topic %s", cfg.Kafka.Topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	userRepo, err := repository.NewMongoUserRepo(ctx, db, cfg.User.Collection)
	cancel()
	if err != nil {
		sugar.Fatalf("failed to initialize user repository: %v", err)
	}

	jwtMgr := utils.NewJWTManager(cfg.App.JWT.Secret, cfg.App.JWT.AccessTTLMinutes)
	authSvc := services.NewAuthService(userRepo, dispatcher, rdb, producer, cfg, logger)

	state := oauth.NewStateSigner(cfg.OAuth.StateSecret)
	providers := map[string]oauth.Provider{}
	if cfg.OAuth.Google.ClientID != "" {
		providers["google"] = oauth.NewGoogle(
			cfg.OAuth.Google.ClientID, cfg.OAuth.Google.ClientSecret, cfg.OAuth.Google.RedirectURL)
	}
	if cfg.OAuth.Facebook.ClientID != "" {
		providers["facebook"] = oauth.NewFacebook(
			cfg.OAuth.Facebook.ClientID, cfg.OAuth.Facebook.ClientSecret, cfg.OAuth.Facebook.RedirectURL)
	}

	h := handlers.NewAuthHandler(authSvc, jwtMgr, state, providers, logger)
	app := server.New(cfg, h, jwtMgr, logger)

	go func() {
		listenAddr := fmt.Sprintf(":%d", cfg.App.Port)
		sugar.Infof("Server listening on %s", listenAddr)
		if err := app.Listen(listenAddr); err != nil {
			sugar.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	sugar.Info("Shutting down server...")

	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := app.ShutdownWithContext(ctxShut); err != nil {
		sugar.Errorf("Fiber app shutdown error: %v", err)
	}
	if err := closeMongo(ctxShut); err != nil {
		sugar.Errorf("MongoDB disconnect error: %v", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			sugar.Errorf("Redis client close error: %v", err)
		}
	}
	if err := producer.Close(); err != nil {
		sugar.Errorf("Kafka producer close error: %v", err)
	}

	sugar.Info("Graceful shutdown complete.")
}
