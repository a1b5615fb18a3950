package main

import (
	"context"
	"log"

	"github.com/arnavshah/aid-coordination-api/pkg/auth"
	"github.com/arnavshah/aid-coordination-api/pkg/config"
	"github.com/arnavshah/aid-coordination-api/pkg/database"
	"github.com/arnavshah/aid-coordination-api/pkg/handlers"
	"github.com/arnavshah/aid-coordination-api/pkg/logging"
	"github.com/arnavshah/aid-coordination-api/pkg/optimizer"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("could not create logger: %v", err)
	}
	defer logger.Sync()

	if cfg.GinMode == "" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(cfg.GinMode)
	}

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("database unavailable", zap.Error(err))
	}
	store := database.NewGormStore(db)
	created, err := auth.EnsureAdminExists(context.Background(), store, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		logger.Fatal("could not seed admin", zap.Error(err))
	}
	if created {
		logger.Info("default admin user created", zap.String("username", cfg.AdminUsername))
	}

	h := &handlers.Handler{
		Store:  store,
		Auth:   auth.New(cfg.JWTSecret, cfg.APIMasterSecret, cfg.TokenTTL),
		Logger: logger,
		Options: optimizer.Options{
			MaxCapacity:    cfg.MaxCapacity,
			MaxMatrixCells: cfg.MaxMatrixCells,
		},
	}

	r := gin.New()
	r.Use(logging.GinMiddleware(logger), gin.Recovery())
	h.Register(r, version)

	logger.Info("server starting", zap.String("port", cfg.Port), zap.String("version", version))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("could not run server", zap.Error(err))
	}
}
