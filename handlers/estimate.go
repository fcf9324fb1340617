// ABOUTME: Estimation MCP tool handlers backed by the LLM estimator
// ABOUTME: Implements estimate_percentages, estimate_days, summarize_cvs and enrich_mission
package handlers

import (
	"context"
	"fmt"
	"sort"

	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/estimator"
	"github.com/harperreed/memoire/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type EstimateHandlers struct {
	repo        *db.ProjectRepository
	est         *estimator.Estimator
	concurrency int
}

func NewEstimateHandlers(repo *db.ProjectRepository, est *estimator.Estimator, concurrency int) *EstimateHandlers {
	return &EstimateHandlers{repo: repo, est: est, concurrency: concurrency}
}

type EstimatePercentagesInput struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID (required)"`
	Apply     bool   `json:"apply,omitempty" jsonschema:"Store the suggested percentages on the project"`
}

type MissionPercentageOutput struct {
	MissionID     string  `json:"mission_id"`
	Category      string  `json:"category"`
	Percentage    float64 `json:"percentage"`
	Justification string  `json:"justification,omitempty"`
}

type EstimatePercentagesOutput struct {
	Categories map[string]float64        `json:"categories"`
	Missions   []MissionPercentageOutput `json:"missions"`
	Warnings   []string                  `json:"warnings,omitempty"`
	Applied    bool                      `json:"applied"`
}

func (h *EstimateHandlers) EstimatePercentages(ctx context.Context, request *mcp.CallToolRequest, input EstimatePercentagesInput) (*mcp.CallToolResult, EstimatePercentagesOutput, error) {
	id, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, EstimatePercentagesOutput{}, err
	}

	project, err := h.repo.Load(ctx, id)
	if err != nil {
		return nil, EstimatePercentagesOutput{}, fmt.Errorf("failed to load project: %w", err)
	}

	result, err := h.est.EstimatePercentages(ctx, project)
	if err != nil {
		return nil, EstimatePercentagesOutput{}, fmt.Errorf("failed to estimate percentages: %w", err)
	}

	out := EstimatePercentagesOutput{Categories: map[string]float64{}}
	for cat, pct := range result.Categories {
		out.Categories[string(cat)] = pct
	}
	for _, m := range project.Missions {
		pct, ok := result.Missions[m.Category][m.ID]
		if !ok {
			continue
		}
		out.Missions = append(out.Missions, MissionPercentageOutput{
			MissionID:     m.ID.String(),
			Category:      string(m.Category),
			Percentage:    pct,
			Justification: result.Justifications[m.ID],
		})
	}
	for _, w := range budget.CheckMissionPercentages(result.Missions) {
		out.Warnings = append(out.Warnings, w.String())
	}

	if input.Apply {
		_, err := h.repo.Update(ctx, id, func(p *models.Project) error {
			p.CategoryPercentages = result.Categories
			p.MissionPercentages = result.Missions
			return nil
		})
		if err != nil {
			return nil, EstimatePercentagesOutput{}, fmt.Errorf("failed to store percentages: %w", err)
		}
		out.Applied = true
	}

	return nil, out, nil
}

type EstimateDaysOutput struct {
	Allocations int                 `json:"allocations"`
	Summary     BudgetSummaryOutput `json:"summary"`
}

// EstimateDays replaces the project's suggested ledger. Manual allocations
// are kept and still win in the summary.
func (h *EstimateHandlers) EstimateDays(ctx context.Context, request *mcp.CallToolRequest, input ProjectIDInput) (*mcp.CallToolResult, EstimateDaysOutput, error) {
	id, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, EstimateDaysOutput{}, err
	}

	project, err := h.repo.Load(ctx, id)
	if err != nil {
		return nil, EstimateDaysOutput{}, fmt.Errorf("failed to load project: %w", err)
	}

	est, err := h.est.EstimateDays(ctx, project)
	if err != nil {
		return nil, EstimateDaysOutput{}, fmt.Errorf("failed to estimate days: %w", err)
	}

	project, err = h.repo.Update(ctx, id, func(p *models.Project) error {
		p.AIEstimation = est
		return nil
	})
	if err != nil {
		return nil, EstimateDaysOutput{}, fmt.Errorf("failed to store estimation: %w", err)
	}

	summary, err := budget.Summarize(project)
	if err != nil {
		return nil, EstimateDaysOutput{}, err
	}

	return nil, EstimateDaysOutput{
		Allocations: countAllocations(est),
		Summary:     summaryToOutput(summary),
	}, nil
}

type SummarizeCVsOutput struct {
	Updated []string `json:"updated" jsonschema:"Names of the people whose CV summary was written"`
}

func (h *EstimateHandlers) SummarizeCVs(ctx context.Context, request *mcp.CallToolRequest, input ProjectIDInput) (*mcp.CallToolResult, SummarizeCVsOutput, error) {
	id, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, SummarizeCVsOutput{}, err
	}

	project, err := h.repo.Load(ctx, id)
	if err != nil {
		return nil, SummarizeCVsOutput{}, fmt.Errorf("failed to load project: %w", err)
	}

	summaries, err := h.est.SummarizeCVs(ctx, project, h.concurrency)
	if err != nil {
		return nil, SummarizeCVsOutput{}, err
	}

	out := SummarizeCVsOutput{Updated: []string{}}
	_, err = h.repo.Update(ctx, id, func(p *models.Project) error {
		for i := range p.Companies {
			for j := range p.Companies[i].People {
				person := &p.Companies[i].People[j]
				if summary, ok := summaries[person.ID]; ok {
					person.CVSummary = summary
					out.Updated = append(out.Updated, person.Name)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, SummarizeCVsOutput{}, fmt.Errorf("failed to store CV summaries: %w", err)
	}
	sort.Strings(out.Updated)

	return nil, out, nil
}

type EnrichMissionInput struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID (required)"`
	MissionID string `json:"mission_id" jsonschema:"Mission ID (required)"`
	Apply     bool   `json:"apply,omitempty" jsonschema:"Replace the mission description with the suggestion"`
}

type EnrichMissionOutput struct {
	Description string `json:"description"`
	Applied     bool   `json:"applied"`
}

func (h *EstimateHandlers) EnrichMission(ctx context.Context, request *mcp.CallToolRequest, input EnrichMissionInput) (*mcp.CallToolResult, EnrichMissionOutput, error) {
	projectID, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, EnrichMissionOutput{}, err
	}
	missionID, err := parseID("mission_id", input.MissionID)
	if err != nil {
		return nil, EnrichMissionOutput{}, err
	}

	project, err := h.repo.Load(ctx, projectID)
	if err != nil {
		return nil, EnrichMissionOutput{}, fmt.Errorf("failed to load project: %w", err)
	}
	mission := project.Mission(missionID)
	if mission == nil {
		return nil, EnrichMissionOutput{}, fmt.Errorf("mission %s not found", missionID)
	}

	text, err := h.est.EnrichMission(ctx, project, mission)
	if err != nil {
		return nil, EnrichMissionOutput{}, err
	}

	out := EnrichMissionOutput{Description: text}
	if input.Apply {
		_, err := h.repo.Update(ctx, projectID, func(p *models.Project) error {
			m := p.Mission(missionID)
			if m == nil {
				return fmt.Errorf("mission %s not found", missionID)
			}
			m.Description = text
			return nil
		})
		if err != nil {
			return nil, EnrichMissionOutput{}, fmt.Errorf("failed to store description: %w", err)
		}
		out.Applied = true
	}

	return nil, out, nil
}

func countAllocations(est models.ProjectEstimation) int {
	n := 0
	for _, ce := range est {
		for _, mission := range ce.Missions {
			for _, company := range mission {
				n += len(company)
			}
		}
	}
	return n
}
