package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rewrz/word-soul/internal/cache"
	"github.com/rewrz/word-soul/internal/config"
	"github.com/rewrz/word-soul/internal/repository"
	"github.com/rewrz/word-soul/internal/service"
	"github.com/rewrz/word-soul/internal/transport/rest"
)

func main() {
	log.Println("started")
	ctx := context.Background()

	cfg := config.Load()

	// Global narrator config, overridable per session by user AI configs
	aiConfig := config.DefaultAIConfig()
	log.Printf("Narrator config:")
	log.Printf("  Provider: %s", aiConfig.Provider)
	log.Printf("  Model:    %s", aiConfig.ModelName)
	if aiConfig.IsEnabled() {
		log.Println("  API Key:  configured ✓")
	} else {
		log.Println("  API Key:  NOT SET (user configs required)")
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)

	redisAddr := strings.TrimPrefix(cfg.RedisAddr, "redis://")
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// Initialize repositories
	seq := repository.NewSequence(db)
	userRepo := repository.NewUserRepo(db, seq)
	worldRepo := repository.NewWorldRepo(db, seq)
	sessionRepo := repository.NewSessionRepo(db, seq)
	settingRepo := repository.NewSettingRepo(db, seq)

	// Initialize caches
	sessionCache := cache.NewSessionCache(rdb)
	tokenCache := cache.NewTokenCache(rdb)

	// Initialize services
	authSvc := service.NewAuthService(userRepo, tokenCache, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	narratorSvc := service.NewNarratorService(aiConfig)
	worldSvc := service.NewWorldService(worldRepo, sessionRepo, settingRepo, narratorSvc)
	sessionSvc := service.NewSessionService(sessionRepo, worldRepo, settingRepo, sessionCache, narratorSvc)
	settingSvc := service.NewSettingService(settingRepo)

	container := &rest.Container{
		AuthService:    authSvc,
		WorldService:   worldSvc,
		SessionService: sessionSvc,
		SettingService: settingSvc,
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		log.Println("Endpoints:")
		log.Println("  POST /api/register")
		log.Println("  POST /api/login")
		log.Println("  POST /api/refresh")
		log.Println("  POST /api/logout")
		log.Println("  POST /api/worlds")
		log.Println("  POST /api/worlds/assist")
		log.Println("  GET  /api/sessions")
		log.Println("  GET/DELETE /api/sessions/{id}")
		log.Println("  POST /api/sessions/{id}/action")
		log.Println("  POST /api/sessions/{id}/set-ai-config")
		log.Println("  POST /api/sessions/{id}/update_narrative")
		log.Println("  GET/POST /api/ai-configs")
		log.Println("  PUT/DELETE /api/ai-configs/{id}")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
