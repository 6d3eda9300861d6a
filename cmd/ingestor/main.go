package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/parcelview/internal/adapters/imagefetch"
	natsadapter "github.com/samirrijal/parcelview/internal/adapters/nats"
	"github.com/samirrijal/parcelview/internal/adapters/postgres"
	"github.com/samirrijal/parcelview/internal/core/ports"
	"github.com/samirrijal/parcelview/internal/core/usecases"
	"github.com/samirrijal/parcelview/internal/pkg/config"
	"github.com/samirrijal/parcelview/internal/pkg/logging"
	"github.com/samirrijal/parcelview/internal/workflows"
)

// Import documents can be far larger than a single aerial image.
const maxDocumentBytes = 256 << 20

var rootCmd = &cobra.Command{
	Use:   "parcelview-ingest",
	Short: "Load GeoJSON property FeatureCollections into ParcelView",
}

var importCmd = &cobra.Command{
	Use:   "import <file|url>...",
	Short: "Import documents directly into the database",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImport,
}

var submitCmd = &cobra.Command{
	Use:   "submit <file|url>...",
	Short: "Start an import workflow on the Temporal worker",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSubmit,
}

var waitForResult bool

func init() {
	submitCmd.Flags().BoolVar(&waitForResult, "wait", false, "block until the workflow finishes")
	rootCmd.AddCommand(importCmd, submitCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load("parcelview-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)
	return cfg
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	ctx := cmd.Context()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, API search indexes will not refresh", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	importer := usecases.NewImportService(postgres.NewPropertyRepo(db), events)
	docs := imagefetch.New(cfg.Images.Timeout, maxDocumentBytes, imagefetch.AllowAnyFile())

	total := 0
	for _, source := range args {
		start := time.Now()
		data, err := docs.Fetch(ctx, source)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", source, err)
		}
		n, err := importer.ImportDocument(ctx, data, source)
		if err != nil {
			return fmt.Errorf("import %s (%d stored): %w", source, n, err)
		}
		slog.Info("imported", "source", source, "properties", n, "took", time.Since(start).String())
		total += n
	}

	slog.Info("ingestion complete", "sources", len(args), "properties", total)
	return nil
}

func runSubmit(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer c.Close()

	run, err := c.ExecuteWorkflow(cmd.Context(), client.StartWorkflowOptions{
		ID:        "import-" + uuid.NewString(),
		TaskQueue: cfg.Temporal.TaskQueue,
	}, workflows.ImportPropertiesWorkflow, workflows.ImportInput{Sources: args})
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	slog.Info("import workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())

	if !waitForResult {
		return nil
	}
	var out workflows.ImportOutput
	if err := run.Get(context.Background(), &out); err != nil {
		return fmt.Errorf("workflow %s: %w", run.GetID(), err)
	}
	slog.Info("import workflow complete", "workflow_id", run.GetID(), "properties", out.Imported)
	return nil
}
