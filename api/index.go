package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/arnavshah/aid-coordination-api/pkg/auth"
	"github.com/arnavshah/aid-coordination-api/pkg/config"
	"github.com/arnavshah/aid-coordination-api/pkg/database"
	"github.com/arnavshah/aid-coordination-api/pkg/handlers"
	"github.com/arnavshah/aid-coordination-api/pkg/logging"
	"github.com/arnavshah/aid-coordination-api/pkg/optimizer"
	"github.com/gin-gonic/gin"
)

var r *gin.Engine

func init() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("could not create logger: %v", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database unavailable: %v", err)
	}
	store := database.NewGormStore(db)
	if _, err := auth.EnsureAdminExists(context.Background(), store, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("could not seed admin: %v", err)
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

	gin.SetMode(gin.ReleaseMode)
	r = gin.New()
	r.Use(logging.GinMiddleware(logger), gin.Recovery())
	h.Register(r, "1.0.0-serverless")
}

// Handler is the entry point for the serverless Go runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
