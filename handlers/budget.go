// ABOUTME: Budget MCP tool handlers
// ABOUTME: Implements set_allocation, price constraints, category percentages and budget_summary
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/models"
	"github.com/harperreed/memoire/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type BudgetHandlers struct {
	repo *db.ProjectRepository
}

func NewBudgetHandlers(repo *db.ProjectRepository) *BudgetHandlers {
	return &BudgetHandlers{repo: repo}
}

type SetAllocationInput struct {
	ProjectID     string  `json:"project_id" jsonschema:"Project ID (required)"`
	MissionID     string  `json:"mission_id" jsonschema:"Mission ID (required)"`
	CompanyID     string  `json:"company_id" jsonschema:"Company ID (required)"`
	PersonID      string  `json:"person_id" jsonschema:"Person ID (required)"`
	Days          float64 `json:"days" jsonschema:"Number of days allocated"`
	Justification string  `json:"justification,omitempty" jsonschema:"Why this many days"`
}

// SetAllocation writes a manual allocation. The category is the mission's.
func (h *BudgetHandlers) SetAllocation(ctx context.Context, request *mcp.CallToolRequest, input SetAllocationInput) (*mcp.CallToolResult, AllocationOutput, error) {
	projectID, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, AllocationOutput{}, err
	}
	missionID, err := parseID("mission_id", input.MissionID)
	if err != nil {
		return nil, AllocationOutput{}, err
	}
	companyID, err := parseID("company_id", input.CompanyID)
	if err != nil {
		return nil, AllocationOutput{}, err
	}
	personID, err := parseID("person_id", input.PersonID)
	if err != nil {
		return nil, AllocationOutput{}, err
	}
	if input.Days < 0 {
		return nil, AllocationOutput{}, fmt.Errorf("days must not be negative")
	}

	var category models.Category
	_, err = h.repo.Update(ctx, projectID, func(p *models.Project) error {
		mission := p.Mission(missionID)
		if mission == nil {
			return fmt.Errorf("mission %s not found", missionID)
		}
		company := p.Company(companyID)
		if company == nil {
			return fmt.Errorf("company %s not found", companyID)
		}
		if company.Person(personID) == nil {
			return fmt.Errorf("person %s is not part of %s", personID, company.Name)
		}

		category = mission.Category
		if p.Estimation == nil {
			p.Estimation = models.ProjectEstimation{}
		}
		p.Estimation.SetAllocation(category, missionID, companyID, personID, models.PersonAllocation{
			DaysAllocated: input.Days,
			Justification: strings.TrimSpace(input.Justification),
		})
		return nil
	})
	if err != nil {
		return nil, AllocationOutput{}, fmt.Errorf("failed to set allocation: %w", err)
	}

	return nil, AllocationOutput{
		Category:      string(category),
		MissionID:     missionID.String(),
		CompanyID:     companyID.String(),
		PersonID:      personID.String(),
		Days:          input.Days,
		Justification: strings.TrimSpace(input.Justification),
	}, nil
}

type SetPriceConstraintInput struct {
	ProjectID     string  `json:"project_id" jsonschema:"Project ID (required)"`
	MissionID     string  `json:"mission_id" jsonschema:"Mission ID (required)"`
	CompanyID     string  `json:"company_id" jsonschema:"Company ID (required)"`
	ImposedAmount float64 `json:"imposed_amount" jsonschema:"Amount imposed for this company on this mission"`
	Justification string  `json:"justification,omitempty" jsonschema:"Reason for the imposed price"`
}

func (h *BudgetHandlers) SetPriceConstraint(ctx context.Context, request *mcp.CallToolRequest, input SetPriceConstraintInput) (*mcp.CallToolResult, ConstraintOutput, error) {
	projectID, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, ConstraintOutput{}, err
	}
	missionID, err := parseID("mission_id", input.MissionID)
	if err != nil {
		return nil, ConstraintOutput{}, err
	}
	companyID, err := parseID("company_id", input.CompanyID)
	if err != nil {
		return nil, ConstraintOutput{}, err
	}
	if input.ImposedAmount < 0 {
		return nil, ConstraintOutput{}, fmt.Errorf("imposed_amount must not be negative")
	}

	constraint := models.MissionPriceConstraint{
		MissionID:     missionID,
		CompanyID:     companyID,
		ImposedAmount: input.ImposedAmount,
		Justification: input.Justification,
	}
	_, err = h.repo.Update(ctx, projectID, func(p *models.Project) error {
		if p.Mission(missionID) == nil {
			return fmt.Errorf("mission %s not found", missionID)
		}
		if p.Company(companyID) == nil {
			return fmt.Errorf("company %s not found", companyID)
		}
		p.PriceConstraints = budget.UpsertConstraint(p.PriceConstraints, constraint)
		return nil
	})
	if err != nil {
		return nil, ConstraintOutput{}, fmt.Errorf("failed to set price constraint: %w", err)
	}

	return nil, ConstraintOutput{
		MissionID:     input.MissionID,
		CompanyID:     input.CompanyID,
		ImposedAmount: input.ImposedAmount,
		Justification: input.Justification,
	}, nil
}

type RemovePriceConstraintInput struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID (required)"`
	MissionID string `json:"mission_id" jsonschema:"Mission ID (required)"`
	CompanyID string `json:"company_id" jsonschema:"Company ID (required)"`
}

func (h *BudgetHandlers) RemovePriceConstraint(ctx context.Context, request *mcp.CallToolRequest, input RemovePriceConstraintInput) (*mcp.CallToolResult, DeleteOutput, error) {
	projectID, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	missionID, err := parseID("mission_id", input.MissionID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	companyID, err := parseID("company_id", input.CompanyID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	removed := false
	_, err = h.repo.Update(ctx, projectID, func(p *models.Project) error {
		removed = budget.FindConstraint(p.PriceConstraints, missionID, companyID) != nil
		p.PriceConstraints = budget.RemoveConstraint(p.PriceConstraints, missionID, companyID)
		return nil
	})
	if err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to remove price constraint: %w", err)
	}

	return nil, DeleteOutput{Deleted: removed}, nil
}

type SetCategoryPercentagesInput struct {
	ProjectID               string   `json:"project_id" jsonschema:"Project ID (required)"`
	Base                    *float64 `json:"base,omitempty" jsonschema:"Percentage of the works amount for the tranche ferme"`
	PSE                     *float64 `json:"pse,omitempty" jsonschema:"Percentage for prestations supplémentaires éventuelles"`
	TranchesConditionnelles *float64 `json:"tranches_conditionnelles,omitempty" jsonschema:"Percentage for tranches conditionnelles"`
	Variantes               *float64 `json:"variantes,omitempty" jsonschema:"Percentage for variantes"`
}

type CategoryPercentagesOutput struct {
	Percentages map[string]float64 `json:"percentages"`
	TargetTotal float64            `json:"target_total"`
	Warning     string             `json:"warning,omitempty"`
}

// SetCategoryPercentages updates only the categories given in the input.
func (h *BudgetHandlers) SetCategoryPercentages(ctx context.Context, request *mcp.CallToolRequest, input SetCategoryPercentagesInput) (*mcp.CallToolResult, CategoryPercentagesOutput, error) {
	projectID, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, CategoryPercentagesOutput{}, err
	}

	values := map[models.Category]*float64{
		models.CategoryBase:                    input.Base,
		models.CategoryPSE:                     input.PSE,
		models.CategoryTranchesConditionnelles: input.TranchesConditionnelles,
		models.CategoryVariantes:               input.Variantes,
	}
	for cat, v := range values {
		if v != nil && (*v < 0 || *v > 100) {
			return nil, CategoryPercentagesOutput{}, fmt.Errorf("%s percentage must be between 0 and 100", cat)
		}
	}

	project, err := h.repo.Update(ctx, projectID, func(p *models.Project) error {
		if p.CategoryPercentages == nil {
			p.CategoryPercentages = models.CategoryPercentages{}
		}
		for cat, v := range values {
			if v != nil {
				p.CategoryPercentages[cat] = *v
			}
		}
		return nil
	})
	if err != nil {
		return nil, CategoryPercentagesOutput{}, fmt.Errorf("failed to set category percentages: %w", err)
	}

	out := CategoryPercentagesOutput{
		Percentages: map[string]float64{},
		TargetTotal: budget.TotalTargetAmount(project.WorksAmount, project.CategoryPercentages),
	}
	for cat, pct := range project.CategoryPercentages {
		out.Percentages[string(cat)] = pct
	}
	if msg, ok := budget.CategoryPercentagesWarning(project.CategoryPercentages); ok {
		out.Warning = msg
	}

	return nil, out, nil
}

type BudgetSummaryInput struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID (required)"`
	Markdown  bool   `json:"markdown,omitempty" jsonschema:"Include a markdown report of the fee breakdown"`
}

func (h *BudgetHandlers) BudgetSummary(ctx context.Context, request *mcp.CallToolRequest, input BudgetSummaryInput) (*mcp.CallToolResult, BudgetSummaryOutput, error) {
	projectID, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, BudgetSummaryOutput{}, err
	}

	project, err := h.repo.Load(ctx, projectID)
	if err != nil {
		return nil, BudgetSummaryOutput{}, fmt.Errorf("failed to load project: %w", err)
	}

	summary, err := budget.Summarize(project)
	if err != nil {
		var missing *budget.MissingProjectDataError
		if errors.As(err, &missing) {
			return nil, BudgetSummaryOutput{}, fmt.Errorf("cannot summarize budget, %s is not set: %w", missing.Field, err)
		}
		return nil, BudgetSummaryOutput{}, err
	}

	out := summaryToOutput(summary)
	if input.Markdown {
		out.Report = report.Markdown(project, summary)
	}
	return nil, out, nil
}
