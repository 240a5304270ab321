package main

import (
	"context"
	"log"
	"net/http"

	"whatsgo/internal/config"
	"whatsgo/internal/routes"
	"whatsgo/pkg/database"
	"whatsgo/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	logger.Init()

	cfg := config.Load()

	if err := database.InitMongoDB(cfg.Database.MongoDB); err != nil {
		logger.Fatal("Failed to connect to MongoDB: " + err.Error())
	}
	defer database.Disconnect()

	logger.WithFields(logrus.Fields{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("Booting")

	if cfg.App.Environment == "production" && !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	coordinator := routes.SetupRoutes(router, cfg)

	// Flip calls nobody answered to missed in the background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coordinator.RunMissedCallSweep(ctx, cfg.Chat.MissedCallInterval)

	srv := &http.Server{
		Addr:         cfg.Server.HTTP.Host + ":" + cfg.Server.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	logger.Info("Server starting on " + srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Failed to start server: " + err.Error())
	}
}
