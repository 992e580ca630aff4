// @title           Todo API
// @version         1.0
// @description     Todo lists and items over a partitioned document store.
// @BasePath        /
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"todoapi/internal/app"
	"todoapi/internal/config"
	"todoapi/internal/secrets"
	"todoapi/internal/telemetry"

	_ "todoapi/docs"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := newLogger(cfg)
	slog.SetDefault(log)

	if cfg.KeyVault.Endpoint != "" {
		if err := loadSecrets(&cfg, log); err != nil {
			log.Error("key vault", "error", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Error("config", "error", err)
		os.Exit(1)
	}

	shutdownTracing, err := telemetry.Setup(context.Background(), cfg.Telemetry, cfg.App.Version, log)
	if err != nil {
		log.Error("telemetry", "error", err)
		os.Exit(1)
	}

	if !cfg.IsDevelop() {
		gin.SetMode(gin.ReleaseMode)
	}
	log.Info("config loaded, connecting to store", "backend", cfg.Store.Backend, "env", cfg.App.Env)

	application, err := app.New(cfg, log)
	if err != nil {
		log.Error("app init", "error", err)
		_ = shutdownTracing(context.Background())
		os.Exit(1)
	}
	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTP.Port,
		Handler:      application.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Duration(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Duration(),
	}

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.HTTP.ShutdownTimeout.Duration(),
		map[string]gfshutdown.Operation{
			// One operation so the steps run in order.
			"api": func(ctx context.Context) error {
				log.Info("graceful shutdown initiated")
				return errors.Join(
					server.Shutdown(ctx),
					application.Close(ctx),
					shutdownTracing(ctx),
				)
			},
		},
	)

	exitCode := <-wait
	log.Info("exited", "code", exitCode)
	os.Exit(exitCode)
}

// newLogger writes JSON in production and text in develop.
func newLogger(cfg config.Config) *slog.Logger {
	if cfg.IsDevelop() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func loadSecrets(cfg *config.Config, log *slog.Logger) error {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return err
	}
	kv, err := secrets.NewKeyVault(cfg.KeyVault.Endpoint, cred, nil)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	applied, err := config.ApplySecrets(ctx, cfg, kv)
	if err != nil {
		return err
	}
	log.Info("secrets loaded from key vault", "count", len(applied))
	return nil
}
