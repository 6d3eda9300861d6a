package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/parcelview/internal/adapters/imagefetch"
	natsadapter "github.com/samirrijal/parcelview/internal/adapters/nats"
	"github.com/samirrijal/parcelview/internal/adapters/postgres"
	"github.com/samirrijal/parcelview/internal/core/ports"
	"github.com/samirrijal/parcelview/internal/core/usecases"
	"github.com/samirrijal/parcelview/internal/pkg/config"
	"github.com/samirrijal/parcelview/internal/pkg/logging"
	"github.com/samirrijal/parcelview/internal/workflows"
)

const maxDocumentBytes = 256 << 20

func main() {
	cfg, err := config.Load("parcelview-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, imports will not notify the API", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.ImportPropertiesWorkflow)
	w.RegisterActivity(&workflows.ImportActivities{
		Documents: imagefetch.New(cfg.Images.Timeout, maxDocumentBytes, imagefetch.AllowAnyFile()),
		Importer:  usecases.NewImportService(postgres.NewPropertyRepo(db), events),
	})

	slog.Info("importer worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
