package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"notedeck/internal/client"
	"notedeck/internal/config"
	"notedeck/internal/handler"
	"notedeck/internal/middleware"
	"notedeck/internal/repository"
	"notedeck/internal/service"
	authpkg "notedeck/pkg/auth"
	"notedeck/pkg/db"
	"notedeck/pkg/helpers"
	"notedeck/pkg/logger"
	"notedeck/pkg/metrics"
)

func main() {
	cfg := config.Load()
	log := logger.NewLogger(cfg.ServiceName)
	m := metrics.NewMetrics("api")

	// Database
	conn, err := db.NewConnection(cfg.DB)
	if err != nil {
		log.WithField("error", err.Error()).Fatal("failed to connect to database")
	}
	defer conn.Close()

	if err := validateSchema(conn); err != nil {
		log.WithField("error", err.Error()).Fatal("schema validation failed")
	}
	log.Info("database schema validated")

	// Repositories
	noteRepo := repository.NewNoteRepository(conn.DB)
	notificationRepo := repository.NewNotificationRepository(conn.DB)
	userRepo := repository.NewUserRepository(conn.DB)

	// Services
	dispatcher := service.NewDispatcher(service.NewStoreNotifier(notificationRepo), log, m)
	noteService := service.NewNoteService(noteRepo, userRepo, dispatcher)
	notificationService := service.NewNotificationService(notificationRepo)

	// External identity provider
	identityClient := client.NewIdentityClient(cfg.IdentityServiceAddr)

	// Handlers
	validator := helpers.NewCustomValidator()
	noteHandler := handler.NewNoteHandler(noteService, validator, log)
	userHandler := handler.NewUserHandler(userRepo, validator, log)
	notificationHandler := handler.NewNotificationHandler(notificationService, log)

	// API routes require authentication; health does not.
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/notes", noteHandler.HandleNotes)
	apiMux.HandleFunc("/api/notes/", noteHandler.HandleNoteSubroutes)
	apiMux.HandleFunc("/api/users", userHandler.HandleUsers)
	apiMux.HandleFunc("/api/users/by-ids", userHandler.HandleUsersByIDs)
	apiMux.HandleFunc("/api/notifications", notificationHandler.HandleNotifications)
	apiMux.HandleFunc("/api/notifications/", notificationHandler.HandleNotificationSubroutes)

	var apiChain http.Handler = apiMux
	apiChain = middleware.ThrottleMiddleware(cfg.ThrottleMaxReads, cfg.ThrottleMaxMutations, cfg.ThrottlePeriod)(apiChain)
	apiChain = middleware.AuthMiddleware(identityClient)(apiChain)

	rootMux := http.NewServeMux()
	rootMux.Handle("/api/", apiChain)
	rootMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := conn.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	var rootChain http.Handler = rootMux
	rootChain = metrics.HTTPMiddleware(m)(rootChain)
	rootChain = middleware.LoggingMiddleware(log)(rootChain)
	rootChain = middleware.CORSMiddleware(rootChain)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      rootChain,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("HTTP server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithField("error", err.Error()).Fatal("HTTP server failed")
		}
	}()

	// gRPC server exposes the health service for in-cluster probes.
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.UnaryServerInterceptor(log),
			metrics.UnaryServerInterceptor(m),
			authpkg.UnaryServerInterceptor(identityClient),
		),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			log.WithField("error", err.Error()).Fatal("failed to listen on gRPC port")
		}
		log.WithField("port", cfg.GRPCPort).Info("gRPC server starting")
		if err := grpcServer.Serve(lis); err != nil {
			log.WithField("error", err.Error()).Fatal("gRPC server failed")
		}
	}()

	// Metrics endpoint on its own port
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		log.WithField("port", cfg.MetricsPort).Info("metrics server starting")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithField("error", err.Error()).Error("metrics server failed")
		}
	}()

	// Periodically record connection pool stats
	stopStats := make(chan struct{})
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stats := conn.DB.Stats()
				m.RecordDBPoolStats(stats.OpenConnections, stats.InUse, stats.Idle, stats.WaitCount, stats.WaitDuration)
			case <-stopStats:
				return
			}
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	close(stopStats)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithField("error", err.Error()).Error("HTTP server shutdown failed")
	}
	grpcServer.GracefulStop()
	metricsServer.Shutdown(ctx)

	// Drain in-flight notification dispatches before exiting.
	dispatcher.Wait()
	log.Info("shutdown complete")
}

// validateSchema checks the tables this service depends on before serving.
func validateSchema(conn *db.Connection) error {
	guard := db.NewSchemaGuard(conn.DB)
	return guard.ValidateTables([]db.TableSchema{
		{
			Name: "notes",
			Columns: []db.ColumnType{
				{Name: "id", DataType: "char"},
				{Name: "title", DataType: "varchar"},
				{Name: "project_id", DataType: "char", Nullable: true},
				{Name: "blocks", DataType: "json"},
				{Name: "tags", DataType: "json"},
				{Name: "is_public", DataType: "tinyint"},
				{Name: "created_by", DataType: "char"},
				{Name: "created_username", DataType: "varchar"},
				{Name: "shared_original", DataType: "char", Nullable: true},
				{Name: "copied_from", DataType: "char", Nullable: true},
				{Name: "created_at", DataType: "datetime"},
				{Name: "updated_at", DataType: "datetime"},
			},
		},
		{
			Name: "note_shares",
			Columns: []db.ColumnType{
				{Name: "note_id", DataType: "char"},
				{Name: "user_id", DataType: "char"},
				{Name: "created_at", DataType: "datetime"},
			},
		},
		{
			Name: "notifications",
			Columns: []db.ColumnType{
				{Name: "id", DataType: "char"},
				{Name: "user_id", DataType: "char"},
				{Name: "actor_id", DataType: "char"},
				{Name: "type", DataType: "varchar"},
				{Name: "data", DataType: "json"},
				{Name: "read_at", DataType: "datetime", Nullable: true},
				{Name: "created_at", DataType: "datetime"},
				{Name: "updated_at", DataType: "datetime"},
			},
		},
		{
			Name: "users",
			Columns: []db.ColumnType{
				{Name: "id", DataType: "char"},
				{Name: "username", DataType: "varchar"},
				{Name: "email", DataType: "varchar"},
				{Name: "role", DataType: "varchar"},
				{Name: "is_admin", DataType: "tinyint"},
			},
		},
	})
}
