package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/LazarusMackles/Digital-Lazarus-sub000/internal/application"
	appanalysis "github.com/LazarusMackles/Digital-Lazarus-sub000/internal/application/analysis"
	"github.com/LazarusMackles/Digital-Lazarus-sub000/internal/config"
	domain "github.com/LazarusMackles/Digital-Lazarus-sub000/internal/domain/analysis"
	"github.com/LazarusMackles/Digital-Lazarus-sub000/internal/infra/ai/gemini"
	openaiclient "github.com/LazarusMackles/Digital-Lazarus-sub000/internal/infra/ai/openai"
	"github.com/LazarusMackles/Digital-Lazarus-sub000/internal/infra/classifier"
	"github.com/LazarusMackles/Digital-Lazarus-sub000/internal/infra/history"
	"github.com/LazarusMackles/Digital-Lazarus-sub000/internal/infra/httpserver"
	minioStore "github.com/LazarusMackles/Digital-Lazarus-sub000/internal/infra/storage"
	"github.com/LazarusMackles/Digital-Lazarus-sub000/internal/middleware"
)

func main() {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// model provider
	var model domain.ModelClient
	switch cfg.AI.Provider {
	case "openai":
		model = openaiclient.NewClient(cfg.AI.APIKey, cfg.AI.Model)
	case "gemini":
		gc, err := gemini.NewClient(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			log.Fatalf("gemini init error: %v", err)
		}
		defer gc.Close()
		model = gc
	default:
		log.Fatalf("unknown ai provider: %s", cfg.AI.Provider)
	}

	// auxiliary pixel classifier (hybrid angle)
	var pixel domain.PixelClassifier
	if cfg.Classifier.Endpoint != "" {
		pixel = classifier.New(cfg.Classifier.Endpoint, cfg.Classifier.APIUser, cfg.Classifier.APISecret)
	}

	// optional report archive
	var archive domain.ReportArchive
	checkers := map[string]middleware.HealthChecker{}
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		archive = store
		checkers["archive"] = middleware.CheckerFunc(store.Check)
	}

	svc := &appanalysis.Service{
		Model:          model,
		Classifier:     pixel,
		History:        history.NewMemoryRepository(100),
		Archive:        archive,
		Clock:          application.SystemClock{},
		MaxRetries:     cfg.AI.MaxRetries,
		InitialBackoff: cfg.InitialBackoff(),
		CallTimeout:    cfg.CallTimeout(),
	}

	mux := chi.NewRouter()
	if len(cfg.Auth.Tokens) > 0 {
		mux.Use(middleware.TokenAuth(cfg.Auth.Tokens))
	}
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(10, 1))
	mux.Mount("/", httpserver.NewRouter(svc, checkers))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// analysis streams can legitimately outlive a short write timeout
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
