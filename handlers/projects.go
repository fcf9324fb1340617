// ABOUTME: Project MCP tool handlers
// ABOUTME: Create, list, get, update and delete projects plus the buyer's notation criteria
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ProjectHandlers struct {
	repo *db.ProjectRepository
}

func NewProjectHandlers(repo *db.ProjectRepository) *ProjectHandlers {
	return &ProjectHandlers{repo: repo}
}

type CreateProjectInput struct {
	Name        string  `json:"name" jsonschema:"Project name (required)"`
	Reference   string  `json:"reference,omitempty" jsonschema:"Tender reference of the buyer"`
	Buyer       string  `json:"buyer,omitempty" jsonschema:"Maître d'ouvrage (contracting authority)"`
	WorksAmount float64 `json:"works_amount,omitempty" jsonschema:"Estimated amount of the works, excluding tax"`
}

func (h *ProjectHandlers) CreateProject(ctx context.Context, request *mcp.CallToolRequest, input CreateProjectInput) (*mcp.CallToolResult, ProjectOutput, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ProjectOutput{}, fmt.Errorf("name is required")
	}
	if input.WorksAmount < 0 {
		return nil, ProjectOutput{}, fmt.Errorf("works_amount must not be negative")
	}

	project := &models.Project{
		Name:        input.Name,
		Reference:   input.Reference,
		Buyer:       input.Buyer,
		WorksAmount: input.WorksAmount,
	}
	if err := h.repo.Create(ctx, project); err != nil {
		return nil, ProjectOutput{}, fmt.Errorf("failed to create project: %w", err)
	}

	return nil, projectToOutput(project), nil
}

type ListProjectsInput struct {
	Query string `json:"query,omitempty" jsonschema:"Search query (matches name and reference)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 20)"`
}

type ListProjectsOutput struct {
	Projects []ProjectOutput `json:"projects"`
}

func (h *ProjectHandlers) ListProjects(ctx context.Context, request *mcp.CallToolRequest, input ListProjectsInput) (*mcp.CallToolResult, ListProjectsOutput, error) {
	limit := input.Limit
	if limit == 0 {
		limit = 20
	}

	summaries, err := h.repo.List(ctx, input.Query, limit)
	if err != nil {
		return nil, ListProjectsOutput{}, fmt.Errorf("failed to list projects: %w", err)
	}

	result := make([]ProjectOutput, len(summaries))
	for i, s := range summaries {
		result[i] = ProjectOutput{
			ID:          s.ID.String(),
			Name:        s.Name,
			Reference:   s.Reference,
			Buyer:       s.Buyer,
			WorksAmount: s.WorksAmount,
			UpdatedAt:   s.UpdatedAt.Format(timeFormat),
		}
	}

	return nil, ListProjectsOutput{Projects: result}, nil
}

type ProjectIDInput struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID (required)"`
}

func (h *ProjectHandlers) GetProject(ctx context.Context, request *mcp.CallToolRequest, input ProjectIDInput) (*mcp.CallToolResult, ProjectDetailOutput, error) {
	id, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, ProjectDetailOutput{}, err
	}

	project, err := h.repo.Load(ctx, id)
	if err != nil {
		return nil, ProjectDetailOutput{}, fmt.Errorf("failed to load project: %w", err)
	}

	return nil, projectToDetail(project), nil
}

type UpdateProjectInput struct {
	ProjectID   string   `json:"project_id" jsonschema:"Project ID (required)"`
	Name        *string  `json:"name,omitempty" jsonschema:"New project name"`
	Reference   *string  `json:"reference,omitempty" jsonschema:"New tender reference"`
	Buyer       *string  `json:"buyer,omitempty" jsonschema:"New maître d'ouvrage"`
	WorksAmount *float64 `json:"works_amount,omitempty" jsonschema:"New works amount"`
}

func (h *ProjectHandlers) UpdateProject(ctx context.Context, request *mcp.CallToolRequest, input UpdateProjectInput) (*mcp.CallToolResult, ProjectOutput, error) {
	id, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, ProjectOutput{}, err
	}

	project, err := h.repo.Update(ctx, id, func(p *models.Project) error {
		if input.Name != nil {
			if strings.TrimSpace(*input.Name) == "" {
				return fmt.Errorf("name must not be empty")
			}
			p.Name = *input.Name
		}
		if input.Reference != nil {
			p.Reference = *input.Reference
		}
		if input.Buyer != nil {
			p.Buyer = *input.Buyer
		}
		if input.WorksAmount != nil {
			if *input.WorksAmount < 0 {
				return fmt.Errorf("works_amount must not be negative")
			}
			p.WorksAmount = *input.WorksAmount
		}
		return nil
	})
	if err != nil {
		return nil, ProjectOutput{}, fmt.Errorf("failed to update project: %w", err)
	}

	return nil, projectToOutput(project), nil
}

type DeleteOutput struct {
	Deleted bool `json:"deleted"`
}

func (h *ProjectHandlers) DeleteProject(ctx context.Context, request *mcp.CallToolRequest, input ProjectIDInput) (*mcp.CallToolResult, DeleteOutput, error) {
	id, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	if err := h.repo.Delete(ctx, id); err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete project: %w", err)
	}

	return nil, DeleteOutput{Deleted: true}, nil
}

type SetNotationCriteriaInput struct {
	ProjectID string            `json:"project_id" jsonschema:"Project ID (required)"`
	Criteria  []CriterionOutput `json:"criteria" jsonschema:"Buyer's scoring criteria with their weight in percent; an empty list clears them"`
}

type NotationCriteriaOutput struct {
	Criteria    []CriterionOutput `json:"criteria"`
	TotalWeight float64           `json:"total_weight"`
	Warning     string            `json:"warning,omitempty"`
}

// SetNotationCriteria replaces the whole grid; partial edits are left to the caller.
func (h *ProjectHandlers) SetNotationCriteria(ctx context.Context, request *mcp.CallToolRequest, input SetNotationCriteriaInput) (*mcp.CallToolResult, NotationCriteriaOutput, error) {
	id, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, NotationCriteriaOutput{}, err
	}

	criteria := make([]models.NotationCriterion, len(input.Criteria))
	for i, c := range input.Criteria {
		criteria[i] = models.NotationCriterion{Name: strings.TrimSpace(c.Name), Weight: c.Weight}
	}
	if err := models.ValidateNotationCriteria(criteria); err != nil {
		return nil, NotationCriteriaOutput{}, err
	}

	project, err := h.repo.Update(ctx, id, func(p *models.Project) error {
		p.NotationCriteria = criteria
		if len(criteria) == 0 {
			p.NotationCriteria = nil
		}
		return nil
	})
	if err != nil {
		return nil, NotationCriteriaOutput{}, fmt.Errorf("failed to set notation criteria: %w", err)
	}

	out := NotationCriteriaOutput{
		Criteria:    make([]CriterionOutput, len(project.NotationCriteria)),
		TotalWeight: project.NotationWeight(),
	}
	for i, c := range project.NotationCriteria {
		out.Criteria[i] = CriterionOutput{Name: c.Name, Weight: c.Weight}
	}
	if msg, ok := budget.NotationWeightsWarning(project.NotationCriteria); ok {
		out.Warning = msg
	}
	return nil, out, nil
}
