package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/parcelview/internal/core/domain"
	"github.com/samirrijal/parcelview/internal/core/ports"
	"github.com/samirrijal/parcelview/internal/core/usecases"
)

// Non-retryable application error types.
const (
	ErrTypeBadDocument = "BadDocument"
	ErrTypeNotFound    = "DocumentNotFound"
)

// ImportActivities holds the activity implementations for the import workflow.
type ImportActivities struct {
	Documents ports.DocumentSource
	Importer  *usecases.ImportService
}

// ImportResult reports what one import stored.
type ImportResult struct {
	Source   string
	Imported int
}

// ImportDocument fetches a FeatureCollection, upserts its properties and
// publishes the update event. Malformed or missing documents fail without
// retry; transport and storage errors are retried by the workflow policy.
func (a *ImportActivities) ImportDocument(ctx context.Context, source string) (ImportResult, error) {
	res := ImportResult{Source: source}

	data, err := a.Documents.Fetch(ctx, source)
	if err != nil {
		if errors.Is(err, domain.ErrImageNotFound) {
			return res, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNotFound, err)
		}
		return res, fmt.Errorf("fetch %s: %w", source, err)
	}
	activity.RecordHeartbeat(ctx, len(data))

	n, err := a.Importer.ImportDocument(ctx, data, source)
	res.Imported = n
	if err != nil {
		if errors.Is(err, domain.ErrDecode) || errors.Is(err, domain.ErrInvalidBoundingBox) {
			return res, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeBadDocument, err)
		}
		return res, err
	}

	slog.Info("import activity complete", "source", source, "imported", n)
	return res, nil
}
