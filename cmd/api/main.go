package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ncruz89/share-space-app-backend/internal/config"
	"github.com/ncruz89/share-space-app-backend/internal/database"
	"github.com/ncruz89/share-space-app-backend/internal/database/mongodb"
	"github.com/ncruz89/share-space-app-backend/internal/geocode"
	"github.com/ncruz89/share-space-app-backend/internal/monitoring"
	"github.com/ncruz89/share-space-app-backend/internal/server"
	"github.com/ncruz89/share-space-app-backend/internal/services"
	"github.com/ncruz89/share-space-app-backend/internal/store"
	"github.com/ncruz89/share-space-app-backend/internal/store/memory"
	"github.com/ncruz89/share-space-app-backend/internal/telemetry"
	"github.com/ncruz89/share-space-app-backend/internal/uploads"
	"github.com/ncruz89/share-space-app-backend/internal/utils"
)

const shutdownTimeout = 15 * time.Second

func main() {
	root := &cobra.Command{
		Use:           "share-places-api",
		Short:         "REST backend for sharing places",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create tables and indexes for the configured store",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrate(cmd.Context())
			},
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))
	return cfg, nil
}

// openStore connects the backend named by cfg.StoreDriver. db is nil unless
// the backend is PostgreSQL.
func openStore(ctx context.Context, cfg config.Config, migrate bool) (st store.Store, db *sql.DB, err error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err = database.Open(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			if err := database.CreateTables(ctx, db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		return database.NewStore(db), db, nil

	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		mongoStore := mongodb.NewStore(client, client.Database(cfg.MongoDatabase))
		if migrate {
			if err := mongoStore.EnsureIndexes(ctx); err != nil {
				_ = mongoStore.Close()
				return nil, nil, err
			}
		}
		return mongoStore, nil, nil

	case config.DriverMemory:
		slog.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func runMigrate(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, _, err := openStore(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer st.Close()

	slog.Info("migration complete", "driver", cfg.StoreDriver)
	return nil
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	shutdownTracer, err := telemetry.InitTracer(ctx, server.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	st, db, err := openStore(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer st.Close()

	tokens, err := utils.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	logger := slog.Default()
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	uploader := uploads.New(cfg.UploadsDir, cfg.MaxImageBytes, metrics)
	if err := os.MkdirAll(uploader.ImagesDir(), 0o755); err != nil {
		return fmt.Errorf("create uploads directory: %w", err)
	}

	geocoder := geocode.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderAPIKey, cfg.GeocoderTimeout)
	places := services.NewPlaceService(st, geocoder, uploader,
		services.WithPlaceLogger(logger),
		services.WithWriteRecorder(metrics),
		services.WithPublicBaseURL(cfg.PublicBaseURL),
	)
	users := services.NewUserService(st, tokens, utils.NewPasswordHasher(cfg.BcryptCost), logger, cfg.PublicBaseURL)
	monitor := monitoring.NewService(time.Now(), st, metrics, cfg.UploadsDir, cfg.StoreDriver, monitoring.WithSQLStats(db))

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(server.Deps{
		Store:               st,
		Places:              places,
		Users:               users,
		Tokens:              tokens,
		Uploader:            uploader,
		Metrics:             metrics,
		Monitor:             monitor,
		Logger:              logger,
		CORSAllowOrigin:     cfg.CORSAllowOrigin,
		StoreTimeout:        cfg.StoreTimeout,
		AuthRateLimitPerMin: cfg.AuthRateLimitPerMin,
		AuthRateLimitBurst:  cfg.AuthRateLimitBurst,
		MonitoringAPIKey:    cfg.MonitoringAPIKey,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("share places api starting", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
