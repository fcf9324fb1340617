// ABOUTME: Database operations for the estimation_runs audit table
// ABOUTME: Records every LLM-assisted estimation call with model, raw reply and token usage
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Estimation run kinds.
const (
	RunKindPercentages        = "percentages"
	RunKindDays               = "days"
	RunKindCVSummary          = "cv_summary"
	RunKindMissionDescription = "mission_description"
)

// Estimation run statuses.
const (
	RunStatusOK    = "ok"
	RunStatusError = "error"
)

type EstimationRun struct {
	ID           uuid.UUID `json:"id"`
	ProjectID    uuid.UUID `json:"project_id"`
	Kind         string    `json:"kind"`
	Model        string    `json:"model,omitempty"`
	RawResponse  string    `json:"raw_response,omitempty"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type EstimationRunRepository struct {
	db *sql.DB
}

func NewEstimationRunRepository(db *sql.DB) *EstimationRunRepository {
	return &EstimationRunRepository{db: db}
}

// Record stores a run, assigning its ID and timestamp.
func (r *EstimationRunRepository) Record(ctx context.Context, run *EstimationRun) error {
	run.ID = uuid.New()
	run.CreatedAt = time.Now().UTC()
	if run.Status == "" {
		run.Status = RunStatusOK
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO estimation_runs (id, project_id, kind, model, raw_response, input_tokens, output_tokens, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID.String(), run.ProjectID.String(), run.Kind, run.Model, run.RawResponse,
		run.InputTokens, run.OutputTokens, run.Status, run.ErrorMessage, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record estimation run: %w", err)
	}
	return nil
}

// ListRuns returns the runs of a project, newest first.
func (r *EstimationRunRepository) ListRuns(ctx context.Context, projectID uuid.UUID, limit int) ([]EstimationRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, kind, model, raw_response, input_tokens, output_tokens, status, error_message, created_at
		FROM estimation_runs
		WHERE project_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, projectID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []EstimationRun
	for rows.Next() {
		var run EstimationRun
		var model, raw, errMsg sql.NullString
		if err := rows.Scan(&run.ID, &run.ProjectID, &run.Kind, &model, &raw,
			&run.InputTokens, &run.OutputTokens, &run.Status, &errMsg, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.Model = model.String
		run.RawResponse = raw.String
		run.ErrorMessage = errMsg.String
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
