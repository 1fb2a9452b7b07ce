package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/orderfood-dev/orderfood/internal/app"
	"github.com/orderfood-dev/orderfood/internal/config"
	"github.com/orderfood-dev/orderfood/pkg/api"
	"github.com/orderfood-dev/orderfood/pkg/middleware"
	"github.com/orderfood-dev/orderfood/pkg/server"
	"github.com/orderfood-dev/orderfood/pkg/upload"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the live interaction server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	client, err := api.New(cfg.BackendURL, logger)
	if err != nil {
		return err
	}

	metrics := middleware.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, staticDir, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	a := app.New(client, metrics, logger, cfg.PollInterval)
	srv := server.New(server.Config{
		Listen:        cfg.Listen,
		UploadHandler: upload.NewHandler(store, cfg.MaxUploadSize, logger),
		StaticUploads: staticDir,
	}, a, metrics, logger)

	logger.Info("starting orderfood live server",
		"version", version, "listen", cfg.Listen, "backend", cfg.BackendURL)
	return srv.ListenAndServe(ctx)
}

// buildStore selects S3 when a bucket is configured, the local disk store
// otherwise. The disk store also gets its directory served statically.
func buildStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (upload.Store, string, error) {
	if cfg.S3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("load aws config: %w", err)
		}
		logger.Info("using s3 image store", "bucket", cfg.S3Bucket)
		return upload.NewS3Store(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Prefix, cfg.S3BaseURL, cfg.MaxUploadSize), "", nil
	}
	logger.Info("using disk image store", "dir", cfg.UploadDir)
	store, err := upload.NewDiskStore(cfg.UploadDir, "/uploads/", cfg.MaxUploadSize)
	if err != nil {
		return nil, "", err
	}
	return store, cfg.UploadDir, nil
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
