package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v4"
	configloader "github.com/tiiuae/go-configloader"

	"github.com/tiiuae/rosbag-data-exporter/internal/rosbag"
)

var bgctx = context.Background()

type application struct {
	config   *config
	exporter *rosbag.Exporter
	uploader *artifactUploader
}

func newApplication(cfg *config) (*application, error) {
	app := &application{
		config: cfg,
		exporter: &rosbag.Exporter{
			TypeName:         cfg.MessageType,
			SkipDecodeErrors: cfg.SkipDecodeErrors,
		},
	}
	if !cfg.Topics.All {
		app.exporter.Topics = cfg.Topics.Topics
	}
	if cfg.BackendURL != "" {
		privateKey, err := loadPrivateKey(cfg.PrivateKeyPath, cfg.PrivateKeyAlgorithm)
		if err != nil {
			return nil, err
		}
		app.uploader = &artifactUploader{
			HTTPClient:    http.DefaultClient,
			BackendURL:    cfg.BackendURL,
			SigningMethod: jwt.GetSigningMethod(cfg.PrivateKeyAlgorithm),
			SigningKey:    privateKey,
			TokenLifetime: 2 * time.Minute,
			DeviceID:      cfg.DeviceID,
			ProjectID:     cfg.ProjectID,
		}
	}
	return app, nil
}

// exportBag drains one recording, writes the artifact and optionally ships
// it to the backend.
func (app *application) exportBag(ctx context.Context, bagPath string) error {
	batch, err := app.exporter.Export(ctx, bagPath)
	if err != nil {
		return err
	}
	if err := batch.Err(); err != nil {
		log.Printf("bag '%s': %d records skipped: %v", bagPath, len(batch.Skipped), err)
	}
	if app.config.OutputDir == "" && app.uploader == nil {
		return writeBatch(os.Stdout, app.config.Format, batch)
	}
	outputDir := app.config.OutputDir
	if outputDir == "" {
		outputDir = os.TempDir()
	}
	artifact, err := writeArtifact(outputDir, bagPath, app.config.Format, app.config.Compression, batch)
	if err != nil {
		return err
	}
	log.Printf("bag '%s': exported %d records to '%s'", bagPath, batch.Count(), artifact)
	if app.uploader != nil {
		if err := app.uploader.UploadArtifact(ctx, artifact); err != nil {
			return err
		}
		if app.config.OutputDir == "" {
			os.Remove(artifact)
		}
	}
	return nil
}

func (app *application) runOnce(ctx context.Context) error {
	for _, bag := range app.config.Bags {
		if err := app.exportBag(ctx, bag); err != nil {
			return err
		}
	}
	return nil
}

func (app *application) runWatch(ctx context.Context) error {
	manager := newExportManager(
		app.config.MaxExportCount,
		func(ctx context.Context, bag *bagMetadata) error {
			return app.exportBag(ctx, bag.path)
		},
		stdLogger{},
	)
	manager.removeAfterExport = app.config.RemoveAfterExport
	if err := manager.LoadExistingBags(app.config.WatchDir); err != nil {
		return err
	}
	go manager.StartWorker(ctx)
	watcher := &bagWatcher{
		Dir:        app.config.WatchDir,
		OnBagReady: manager.AddBag,
		Logger:     stdLogger{},
	}
	return watcher.Start(ctx)
}

func run() int {
	cfg := defaultConfig()
	loader := configloader.New()
	loader.EnvPrefix = "ROSBAG_EXPORTER"
	if err := loader.Load(cfg); err != nil {
		log.Println("failed to load configuration:", err)
		return 1
	}
	if err := cfg.validate(); err != nil {
		log.Println(err)
		return 1
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(bgctx)
	defer cancel()
	go func() {
		<-signalChan
		cancel()
	}()

	app, err := newApplication(cfg)
	if err != nil {
		log.Println(err)
		return 1
	}
	if cfg.WatchDir != "" {
		err = app.runWatch(ctx)
	} else {
		err = app.runOnce(ctx)
	}
	switch err {
	case nil, context.Canceled:
		return 0
	default:
		log.Println(err)
		return 1
	}
}

func main() {
	os.Exit(run())
}
