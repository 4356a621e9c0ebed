package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/santhosh101066/sync-player/internal/controller"
	"github.com/santhosh101066/sync-player/internal/repository/identity/google"
	"github.com/santhosh101066/sync-player/internal/repository/session/inmemory"
	"github.com/santhosh101066/sync-player/internal/repository/snapshot"
	snapshotfile "github.com/santhosh101066/sync-player/internal/repository/snapshot/file"
	snapshotredis "github.com/santhosh101066/sync-player/internal/repository/snapshot/redis"
	"github.com/santhosh101066/sync-player/internal/service/room"
	"github.com/santhosh101066/sync-player/pkg/ctxlogger"
	"github.com/santhosh101066/sync-player/pkg/redisclient"
)

type AppConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`

	AdminEmail     string `json:"-"`
	GoogleClientId string `json:"google_client_id"`
	DevAuth        bool   `json:"dev_auth"`

	HistorySize      int    `json:"history_size"`
	SnapshotBackend  string `json:"snapshot_backend"`
	SnapshotPath     string `json:"snapshot_path"`
	SnapshotInterval int    `json:"snapshot_interval_ms"`

	RedisHost     string `json:"redis_host"`
	RedisPort     int    `json:"redis_port"`
	RedisPassword string `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.HistorySize < 1 {
		return fmt.Errorf("history size must be greater than 0")
	}
	switch cfg.SnapshotBackend {
	case "redis", "file":
	default:
		return fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
	}
	return nil
}

type iSnapshotStore interface {
	Save(context.Context, *snapshot.RoomState) error
	Load(context.Context) (*snapshot.RoomState, error)
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		}),
	}
	logger := slog.New(&h)

	var store iSnapshotStore
	switch cfg.SnapshotBackend {
	case "redis":
		rc, err := redisclient.NewRedisClient(&redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()
		store = snapshotredis.NewRepo(rc, "")
	case "file":
		store = snapshotfile.NewRepo(cfg.SnapshotPath)
	}

	sessionRepo := inmemory.NewRepo(logger)
	verifier := google.NewVerifier(cfg.GoogleClientId)

	roomService, err := room.NewService(ctx, sessionRepo, store, verifier, &room.Config{
		AdminEmail:       cfg.AdminEmail,
		DevAuthEnabled:   cfg.DevAuth,
		HistorySize:      cfg.HistorySize,
		SnapshotInterval: time.Duration(cfg.SnapshotInterval) * time.Millisecond,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create room service: %w", err)
	}

	ctrl := controller.NewController(roomService, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: ctrl.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		// the snapshot writer flushes pending state before the process exits
		if err := roomService.Close(shutdownCtx); err != nil {
			logger.ErrorContext(shutdownCtx, "failed to close room service", "error", err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
