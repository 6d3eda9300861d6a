package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ImportInput is the input for the import workflow.
type ImportInput struct {
	Sources []string // file paths or http(s) URLs of FeatureCollections
}

// ImportOutput totals a finished import workflow.
type ImportOutput struct {
	Imported int
	Results  []ImportResult
}

// ImportPropertiesWorkflow imports each source in order. A source that fails
// stops the workflow; sources already imported stay stored.
func ImportPropertiesWorkflow(ctx workflow.Context, input ImportInput) (ImportOutput, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting import workflow", "sources", len(input.Sources))

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{ErrTypeBadDocument, ErrTypeNotFound},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var out ImportOutput
	for _, source := range input.Sources {
		var res ImportResult
		if err := workflow.ExecuteActivity(ctx, "ImportDocument", source).Get(ctx, &res); err != nil {
			logger.Error("import failed", "source", source, "error", err)
			return out, err
		}
		out.Results = append(out.Results, res)
		out.Imported += res.Imported
	}

	logger.Info("Import workflow complete", "imported", out.Imported)
	return out, nil
}
