package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/velworks/strpdf/internal/bootstrap"
	"github.com/velworks/strpdf/internal/config"
)

// One process serves the API, the progress websocket and the orchestrator
// loop; all session state lives in memory, so they must share an instance.
func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	apiServer := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      app.Handler,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: app.MetricsHandler,
	}

	go func() {
		app.Logger.Info("api listening", "port", cfg.APIPort)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()
	go func() {
		app.Logger.Info("metrics listening", "port", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("metrics server error: %v", err)
		}
	}()

	subscribeDone := make(chan error, 1)
	go func() {
		app.Logger.Info("orchestrator subscribed", "subject", cfg.NATSSubject)
		subscribeDone <- app.Queue.SubscribeSessionCreated(ctx, func(handlerCtx context.Context, sessionID string) error {
			processCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Minute)
			defer cancel()
			return app.Processor.ProcessSession(processCtx, sessionID)
		})
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("api shutdown error", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("metrics shutdown error", "error", err)
	}
	if err := <-subscribeDone; err != nil {
		app.Logger.Error("orchestrator drain error", "error", err)
	}
}
