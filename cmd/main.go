package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shreyahuja108/sentryfeed/internal/alerts"
	"github.com/shreyahuja108/sentryfeed/internal/alerts/kafkasink"
	"github.com/shreyahuja108/sentryfeed/internal/alerts/pgstore"
	"github.com/shreyahuja108/sentryfeed/internal/appctx"
	"github.com/shreyahuja108/sentryfeed/internal/camconfig"
	"github.com/shreyahuja108/sentryfeed/internal/capture"
	"github.com/shreyahuja108/sentryfeed/internal/config"
	"github.com/shreyahuja108/sentryfeed/internal/database"
	"github.com/shreyahuja108/sentryfeed/internal/detector"
	"github.com/shreyahuja108/sentryfeed/internal/httpapi"
	"github.com/shreyahuja108/sentryfeed/internal/kafka"
	"github.com/shreyahuja108/sentryfeed/internal/models"
	"github.com/shreyahuja108/sentryfeed/internal/pipeline"
	"github.com/shreyahuja108/sentryfeed/internal/s3"
	"github.com/shreyahuja108/sentryfeed/internal/snapshot"
)

func main() {
	appCtx := appctx.New("main")

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		appCtx.Logger.Fatalf("load config: %v", err)
	}

	cameras := camconfig.Load(appCtx, cfg.CamerasPath)

	aggregator := alerts.New(appCtx)

	var dbHandle *database.Database
	if cfg.Postgres.Enabled {
		dbHandle, err = database.New(cfg.Postgres.DSN)
		if err != nil {
			appCtx.Logger.Fatalf("connect postgres: %v", err)
		}
		if err := dbHandle.Init(); err != nil {
			appCtx.Logger.Fatalf("init postgres schema: %v", err)
		}
		defer dbHandle.Close()
		aggregator.AddObserver(pgstore.New(appCtx.With("pgstore"), dbHandle))
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AlertTopic)
		if err != nil {
			appCtx.Logger.Fatalf("connect kafka: %v", err)
		}
		defer producer.Close()
		aggregator.AddObserver(kafkasink.New(appCtx.With("kafkasink"), producer))
	}

	var store snapshot.Store
	localStore, err := snapshot.NewLocalStore(cfg.Snapshot.Dir)
	if err != nil {
		appCtx.Logger.Fatalf("init local snapshot store: %v", err)
	}
	store = localStore

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var minioClient *s3.Client
	if cfg.Minio.Enabled {
		minioClient, err = s3.NewMinioClient(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Secure)
		if err != nil {
			appCtx.Logger.Fatalf("connect minio: %v", err)
		}
		minioStore, err := snapshot.NewMinioStore(ctx, minioClient, cfg.Minio.Bucket)
		if err != nil {
			appCtx.Logger.Fatalf("init minio snapshot store: %v", err)
		}
		store = minioStore
	}

	manager := pipeline.NewManager(appCtx, aggregator)
	if err := manager.Load(cameras, func(cameraCtx *appctx.Context, cam models.CameraConfig) (capture.Source, error) {
		return capture.NewGoCVSource(cameraCtx, cam.Type, cam.Source)
	}); err != nil {
		appCtx.Logger.Fatalf("load cameras: %v", err)
	}

	for _, p := range manager.List() {
		p.SetSnapshotStore(store)
	}

	if cfg.Detection.Endpoint != "" {
		det := detector.NewHTTPDetector(cfg.Detection.Endpoint, nil)
		det.SetConfidenceThreshold(cfg.Detection.ConfidenceThreshold)
		for _, p := range manager.List() {
			p.SetDetector(det)
			p.SetAIEnabled(true)
		}
	}

	manager.StartAll(ctx)

	handlers := httpapi.NewHandlers(appCtx.With("httpapi"), aggregator, manager)
	server := &http.Server{Addr: cfg.HTTP.ListenAddr, Handler: httpapi.NewRouter(handlers)}
	go func() {
		appCtx.Logger.Printf("http status surface listening on %s", cfg.HTTP.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appCtx.Logger.Printf("http server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	appCtx.Logger.Println("shutting down")
	server.Close()
	manager.StopAll()
	cancel()
}
