package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sitesurvey/server/internal/config"
	"github.com/sitesurvey/server/internal/handlers"
	custommw "github.com/sitesurvey/server/internal/middleware"
	"github.com/sitesurvey/server/internal/models"
	"github.com/sitesurvey/server/internal/observability"
	"github.com/sitesurvey/server/internal/repository"
	"github.com/sitesurvey/server/internal/services"
)

const serviceVersion = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize telemetry
	ctx := context.Background()
	telemetry, err := observability.Initialize(ctx, observability.NewConfig("sitesurvey-server", serviceVersion))
	if err != nil {
		log.Printf("Telemetry initialization failed, continuing without: %v", err)
	}

	// Initialize database
	var db *sql.DB
	if cfg.UsePostgres() {
		log.Println("Using PostgreSQL database")
		db, err = repository.NewPostgresDB(cfg.DatabaseURL)
	} else {
		log.Println("Using SQLite database")
		db, err = repository.NewSQLiteDB(cfg.DatabasePath)
	}
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	sessionRepo := repository.NewSessionRepository(db)
	queueRepo := repository.NewUploadQueueRepository(db)

	// Initialize services
	hashService := services.NewHashService()
	exifService := services.NewEXIFService()
	storageService, err := services.NewPhotoStorageService(
		cfg.PhotoStorage.BasePath,
		cfg.PhotoStorage.AllowedExtensions,
		cfg.PhotoStorage.MaxFileSizeMB,
	)
	if err != nil {
		log.Fatalf("Failed to initialize storage service: %v", err)
	}
	thumbnailService := services.NewThumbnailService(cfg.PhotoStorage.BasePath)

	debounce := time.Duration(cfg.Autosave.DebounceMS) * time.Millisecond
	sessionService := services.NewSessionService(sessionRepo, debounce)
	exportService := services.NewExportService()

	remoteStore := services.NewHTTPRemoteStore(cfg.Remote.BaseURL, cfg.Remote.Token, "")
	syncService := services.NewSyncService(sessionService, exportService, storageService, queueRepo, remoteStore)

	surveyMetrics, err := observability.NewSurveyMetrics()
	if err != nil {
		log.Printf("Survey metrics unavailable: %v", err)
	} else {
		syncService.SetMetrics(surveyMetrics)
		sessionService.SetMetrics(surveyMetrics)
	}

	// Status stream: save and upload indicators fan out to connected UIs
	hub := services.NewStatusHub()
	go hub.Run()

	sessionService.SetStatusListener(func(status models.SaveStatusResponse) {
		hub.Broadcast(services.StatusMessage{Type: services.WSTypeSaveStatus, Payload: status})
	})
	syncService.SetProgressListener(func(p services.SyncProgress) {
		hub.Broadcast(services.StatusMessage{Type: services.WSTypeUploadProgress, Payload: p})
	})

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(sessionService)
	photoHandler := handlers.NewPhotoHandler(sessionService, storageService, hashService, exifService, thumbnailService, surveyMetrics)
	exportHandler := handlers.NewExportHandler(sessionService, exportService)
	syncHandler := handlers.NewSyncHandler(syncService)
	healthHandler := handlers.NewHealthHandler()
	wsHandler := handlers.NewWebSocketHandler(hub)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware("sitesurvey-server"))
	if httpMetrics, err := observability.NewHTTPMetrics(); err == nil {
		r.Use(observability.MetricsMiddleware(httpMetrics))
	}
	r.Use(custommw.APIKeyAuth(cfg.Security.APIKey, cfg.Security.APIKeyHash, cfg.Security.APIKeyHeader))

	// Routes
	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/api/health", healthHandler.HealthCheck)
	r.Get("/ws/status", wsHandler.HandleConnection)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", sessionHandler.Create)
		r.Get("/latest", sessionHandler.Latest)
		r.Post("/{id}/resume", sessionHandler.Resume)
		r.Route("/current", func(r chi.Router) {
			r.Get("/", sessionHandler.Current)
			r.Get("/room", sessionHandler.GetRoom)
			r.Patch("/rooms", sessionHandler.UpdateRoom)
			r.Patch("/cameras", sessionHandler.UpdateCamera)
			r.Get("/progress", sessionHandler.Progress)
			r.Get("/next-room", sessionHandler.NextRoom)
			r.Get("/floor", sessionHandler.ResolveFloor)
			r.Get("/save-status", sessionHandler.SaveStatus)
			r.Post("/photos", photoHandler.Attach)
			r.Delete("/photos", photoHandler.Remove)
			r.Get("/photos/file", photoHandler.Serve)
		})
	})

	r.Route("/api/export", func(r chi.Router) {
		r.Get("/", exportHandler.Download)
		r.Get("/changes", exportHandler.Changes)
	})

	r.Route("/api/sync", func(r chi.Router) {
		r.Post("/submit", syncHandler.Submit)
		r.Post("/replay", syncHandler.Replay)
		r.Get("/status", syncHandler.Status)
	})

	// Create server
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Longer for uploads
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Site Survey Server starting on %s", cfg.ServerAddress)
		log.Printf("Photo storage path: %s", cfg.PhotoStorage.BasePath)
		log.Printf("Max file size: %dMB", cfg.PhotoStorage.MaxFileSizeMB)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Pending edits land on disk before exit.
	if err := sessionService.Flush(shutdownCtx); err != nil {
		log.Printf("Final session flush failed: %v", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			log.Printf("Telemetry shutdown failed: %v", err)
		}
	}

	log.Println("Server stopped")
}
