package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/handlers"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/router"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/service"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/websocket"
)

const defaultPort = "8080"

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	port := os.Getenv("API_PORT")
	if port == "" {
		port = defaultPort
	}

	ctx := context.Background()

	pool, err := database.NewPool(ctx, database.ConfigFromEnv())
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	runner := database.NewTxRunner(pool)
	svc := service.NewService(runner)

	hub := websocket.NewHub(log)
	go hub.Run()

	h := handlers.NewHandler(svc, hub)
	r := router.SetupRouter(h, log)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
