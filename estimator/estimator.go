// ABOUTME: Orchestrates the LLM-assisted estimation steps of a project
// ABOUTME: Every call is recorded in the estimation run log when a recorder is set

// Package estimator runs the LLM-assisted steps of a project: budget split
// suggestions, day allocations, CV summaries and mission descriptions.
// Model replies are validated against the project before they are returned.
package estimator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/models"
	"golang.org/x/sync/errgroup"
)

// RunRecorder stores an audit record for each model call.
type RunRecorder interface {
	Record(ctx context.Context, run *db.EstimationRun) error
}

// ErrNothingToEstimate is returned when the project has no missions.
var ErrNothingToEstimate = errors.New("project has no missions to estimate")

type Estimator struct {
	completer Completer
	model     string
	runs      RunRecorder
	logger    *log.Logger
}

type Option func(*Estimator)

// WithRunRecorder records every call in the estimation run log.
func WithRunRecorder(r RunRecorder) Option {
	return func(e *Estimator) {
		e.runs = r
	}
}

func WithEstimatorLogger(logger *log.Logger) Option {
	return func(e *Estimator) {
		e.logger = logger
	}
}

// WithModelName sets the model name written to the run log.
func WithModelName(model string) Option {
	return func(e *Estimator) {
		e.model = model
	}
}

func New(completer Completer, opts ...Option) *Estimator {
	e := &Estimator{
		completer: completer,
		logger:    log.Default(),
	}
	if c, ok := completer.(*Client); ok {
		e.model = c.Model()
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EstimatePercentages asks for a category and mission split of the budget.
// Mission splits that do not sum to 100 within tolerance are logged, not rejected.
func (e *Estimator) EstimatePercentages(ctx context.Context, project *models.Project) (*PercentageResult, error) {
	if project == nil {
		return nil, &budget.MissingProjectDataError{Field: "project"}
	}
	if len(project.Missions) == 0 {
		return nil, ErrNothingToEstimate
	}

	prompt := describeProject(project) + "\n" + percentagesInstructions
	completion, err := e.call(ctx, project, db.RunKindPercentages, prompt)
	if err != nil {
		return nil, err
	}

	result, err := ParsePercentageResult(completion.Content, project)
	e.finish(ctx, project, db.RunKindPercentages, completion, err)
	if err != nil {
		return nil, err
	}

	budget.ValidatePercentageEstimation(result.Missions, e.logger)
	return result, nil
}

// EstimateDays asks for a day allocation per mission, company and person.
// The result is a separate ledger; callers merge it with budget.Merge.
func (e *Estimator) EstimateDays(ctx context.Context, project *models.Project) (models.ProjectEstimation, error) {
	if err := budget.RequireProjectData(project); err != nil {
		return nil, err
	}
	if len(project.Missions) == 0 {
		return nil, ErrNothingToEstimate
	}

	prompt := describeProject(project) + "\n" + daysInstructions
	completion, err := e.call(ctx, project, db.RunKindDays, prompt)
	if err != nil {
		return nil, err
	}

	est, err := ParseDaysResult(completion.Content, project)
	e.finish(ctx, project, db.RunKindDays, completion, err)
	if err != nil {
		return nil, err
	}
	return est, nil
}

// SummarizeCV returns a short summary of a person's CV.
func (e *Estimator) SummarizeCV(ctx context.Context, project *models.Project, person *models.MobilizedPerson) (string, error) {
	if strings.TrimSpace(person.CV) == "" {
		return "", fmt.Errorf("person %s has no CV text", person.Name)
	}

	prompt := fmt.Sprintf("Résume en 5 lignes maximum le CV suivant pour un mémoire technique "+
		"(expérience, références similaires, compétences clés). Réponds en texte brut.\n\nNom: %s\n\n%s",
		person.Name, person.CV)

	completion, err := e.call(ctx, project, db.RunKindCVSummary, prompt)
	if err != nil {
		return "", err
	}
	e.finish(ctx, project, db.RunKindCVSummary, completion, nil)
	return strings.TrimSpace(completion.Content), nil
}

// SummarizeCVs summarizes every CV in the project, at most limit calls at a
// time. People without CV text are skipped. The first failure cancels the rest.
func (e *Estimator) SummarizeCVs(ctx context.Context, project *models.Project, limit int) (map[uuid.UUID]string, error) {
	if limit <= 0 {
		limit = 1
	}

	var mu sync.Mutex
	summaries := make(map[uuid.UUID]string)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, company := range project.Companies {
		for _, person := range company.People {
			if strings.TrimSpace(person.CV) == "" {
				continue
			}
			person := person
			g.Go(func() error {
				summary, err := e.SummarizeCV(gctx, project, &person)
				if err != nil {
					return fmt.Errorf("failed to summarize CV of %s: %w", person.Name, err)
				}
				mu.Lock()
				summaries[person.ID] = summary
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// EnrichMission returns a fuller description of a mission for the mémoire.
func (e *Estimator) EnrichMission(ctx context.Context, project *models.Project, mission *models.Mission) (string, error) {
	prompt := fmt.Sprintf("Rédige un paragraphe décrivant le contenu de la mission %q (%s) "+
		"pour le projet %q. Réponds en texte brut.", mission.DisplayName(), mission.Category.Label(), project.Name)
	if mission.Description != "" {
		prompt += "\n\nDescription actuelle: " + mission.Description
	}

	completion, err := e.call(ctx, project, db.RunKindMissionDescription, prompt)
	if err != nil {
		return "", err
	}
	e.finish(ctx, project, db.RunKindMissionDescription, completion, nil)
	return strings.TrimSpace(completion.Content), nil
}

// call sends prompt to the model. A failed call is recorded here; a reply is
// recorded once by finish, after the caller has validated it.
func (e *Estimator) call(ctx context.Context, project *models.Project, kind, prompt string) (*Completion, error) {
	completion, err := e.completer.Complete(ctx, systemPrompt, []Message{{Role: "user", Content: prompt}})
	if err != nil {
		e.record(ctx, &db.EstimationRun{
			ProjectID:    project.ID,
			Kind:         kind,
			Model:        e.model,
			Status:       db.RunStatusError,
			ErrorMessage: err.Error(),
		})
		return nil, fmt.Errorf("failed to call model: %w", err)
	}
	return completion, nil
}

// finish writes the single run row of a completed call.
func (e *Estimator) finish(ctx context.Context, project *models.Project, kind string, completion *Completion, parseErr error) {
	run := &db.EstimationRun{
		ProjectID:    project.ID,
		Kind:         kind,
		Model:        firstNonEmpty(completion.Model, e.model),
		RawResponse:  completion.Content,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
		Status:       db.RunStatusOK,
	}
	if parseErr != nil {
		run.Status = db.RunStatusError
		run.ErrorMessage = parseErr.Error()
	}
	e.record(ctx, run)
}

// record failures are logged; they never fail the estimation itself.
func (e *Estimator) record(ctx context.Context, run *db.EstimationRun) {
	if e.runs == nil {
		return
	}
	if err := e.runs.Record(ctx, run); err != nil {
		e.logger.Printf("failed to record estimation run: %v", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
