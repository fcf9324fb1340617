// ABOUTME: Output types shared by the MCP tool handlers
// ABOUTME: Converts the project aggregate into flat, string-keyed tool results
package handlers

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/models"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

type ProjectOutput struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Reference    string  `json:"reference,omitempty"`
	Buyer        string  `json:"buyer,omitempty"`
	WorksAmount  float64 `json:"works_amount"`
	MandataireID string  `json:"mandataire_id,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

type MissionOutput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Sigle       string `json:"sigle,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
}

type PersonOutput struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Role      string   `json:"role,omitempty"`
	DailyRate *float64 `json:"daily_rate,omitempty"`
	CVSummary string   `json:"cv_summary,omitempty"`
}

type CompanyOutput struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Presentation     string         `json:"presentation,omitempty"`
	Equipment        string         `json:"equipment,omitempty"`
	RepresentativeID string         `json:"representative_id,omitempty"`
	Mandataire       bool           `json:"mandataire"`
	People           []PersonOutput `json:"people"`
}

type ConstraintOutput struct {
	MissionID     string  `json:"mission_id"`
	CompanyID     string  `json:"company_id"`
	ImposedAmount float64 `json:"imposed_amount"`
	Justification string  `json:"justification,omitempty"`
}

type AllocationOutput struct {
	Category      string  `json:"category"`
	MissionID     string  `json:"mission_id"`
	CompanyID     string  `json:"company_id"`
	PersonID      string  `json:"person_id"`
	Days          float64 `json:"days"`
	Justification string  `json:"justification,omitempty"`
}

// ProjectDetailOutput is the full view of a project.
// Allocations come from the merged manual and suggested ledgers.
type ProjectDetailOutput struct {
	Project             ProjectOutput      `json:"project"`
	Missions            []MissionOutput    `json:"missions"`
	Companies           []CompanyOutput    `json:"companies"`
	PriceConstraints    []ConstraintOutput `json:"price_constraints"`
	CategoryPercentages map[string]float64 `json:"category_percentages"`
	NotationCriteria    []CriterionOutput  `json:"notation_criteria"`
	Allocations         []AllocationOutput `json:"allocations"`
}

type CriterionOutput struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

type CompanyLineOutput struct {
	CompanyID   string  `json:"company_id"`
	CompanyName string  `json:"company_name"`
	Days        float64 `json:"days"`
	Computed    float64 `json:"computed"`
	Amount      float64 `json:"amount"`
	Constrained bool    `json:"constrained"`
}

type MissionLineOutput struct {
	MissionID             string              `json:"mission_id"`
	Name                  string              `json:"name"`
	Computed              float64             `json:"computed"`
	Total                 float64             `json:"total"`
	Constrained           bool                `json:"constrained"`
	RecommendedPercentage float64             `json:"recommended_percentage,omitempty"`
	Companies             []CompanyLineOutput `json:"companies"`
}

type CategorySummaryOutput struct {
	Category     string              `json:"category"`
	Label        string              `json:"label"`
	Percentage   float64             `json:"percentage"`
	TargetAmount float64             `json:"target_amount"`
	Total        float64             `json:"total"`
	Missions     []MissionLineOutput `json:"missions"`
}

type BudgetSummaryOutput struct {
	ProjectID   string                  `json:"project_id"`
	WorksAmount float64                 `json:"works_amount"`
	TargetTotal float64                 `json:"target_total"`
	Total       float64                 `json:"total"`
	Categories  []CategorySummaryOutput `json:"categories"`
	Warnings    []string                `json:"warnings,omitempty"`
	Report      string                  `json:"report,omitempty"`
}

func parseID(field, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, fmt.Errorf("%s is required", field)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return id, nil
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func projectToOutput(project *models.Project) ProjectOutput {
	return ProjectOutput{
		ID:           project.ID.String(),
		Name:         project.Name,
		Reference:    project.Reference,
		Buyer:        project.Buyer,
		WorksAmount:  project.WorksAmount,
		MandataireID: optionalID(project.MandataireID),
		CreatedAt:    project.CreatedAt.Format(timeFormat),
		UpdatedAt:    project.UpdatedAt.Format(timeFormat),
	}
}

func missionToOutput(m models.Mission) MissionOutput {
	return MissionOutput{
		ID:          m.ID.String(),
		Name:        m.Name,
		Sigle:       m.Sigle,
		Description: m.Description,
		Category:    string(m.Category),
	}
}

func personToOutput(p models.MobilizedPerson) PersonOutput {
	return PersonOutput{
		ID:        p.ID.String(),
		Name:      p.Name,
		Role:      p.Role,
		DailyRate: p.DailyRate,
		CVSummary: p.CVSummary,
	}
}

func companyToOutput(project *models.Project, c models.ParticipatingCompany) CompanyOutput {
	out := CompanyOutput{
		ID:               c.ID.String(),
		Name:             c.Name,
		Presentation:     c.Presentation,
		Equipment:        c.Equipment,
		RepresentativeID: optionalID(c.RepresentativeID),
		Mandataire:       project.MandataireID != nil && *project.MandataireID == c.ID,
		People:           make([]PersonOutput, len(c.People)),
	}
	for i, p := range c.People {
		out.People[i] = personToOutput(p)
	}
	return out
}

func projectToDetail(project *models.Project) ProjectDetailOutput {
	out := ProjectDetailOutput{
		Project:             projectToOutput(project),
		Missions:            make([]MissionOutput, len(project.Missions)),
		Companies:           make([]CompanyOutput, len(project.Companies)),
		PriceConstraints:    make([]ConstraintOutput, len(project.PriceConstraints)),
		CategoryPercentages: map[string]float64{},
		NotationCriteria:    make([]CriterionOutput, len(project.NotationCriteria)),
		Allocations:         []AllocationOutput{},
	}
	for i, c := range project.NotationCriteria {
		out.NotationCriteria[i] = CriterionOutput{Name: c.Name, Weight: c.Weight}
	}
	for i, m := range project.Missions {
		out.Missions[i] = missionToOutput(m)
	}
	for i, c := range project.Companies {
		out.Companies[i] = companyToOutput(project, c)
	}
	for i, pc := range project.PriceConstraints {
		out.PriceConstraints[i] = ConstraintOutput{
			MissionID:     pc.MissionID.String(),
			CompanyID:     pc.CompanyID.String(),
			ImposedAmount: pc.ImposedAmount,
			Justification: pc.Justification,
		}
	}
	for cat, pct := range project.CategoryPercentages {
		out.CategoryPercentages[string(cat)] = pct
	}

	// Walk the aggregate rather than the maps so the order is stable.
	est := budget.EffectiveEstimation(project)
	for _, m := range project.Missions {
		for _, c := range project.Companies {
			for _, p := range c.People {
				alloc, ok := est.Allocation(m.ID, c.ID, p.ID)
				if !ok {
					continue
				}
				out.Allocations = append(out.Allocations, AllocationOutput{
					Category:      string(m.Category),
					MissionID:     m.ID.String(),
					CompanyID:     c.ID.String(),
					PersonID:      p.ID.String(),
					Days:          alloc.DaysAllocated,
					Justification: alloc.Justification,
				})
			}
		}
	}
	return out
}

func summaryToOutput(summary *budget.Summary) BudgetSummaryOutput {
	out := BudgetSummaryOutput{
		ProjectID:   summary.ProjectID.String(),
		WorksAmount: summary.WorksAmount,
		TargetTotal: summary.TargetTotal,
		Total:       summary.Total,
		Categories:  make([]CategorySummaryOutput, len(summary.Categories)),
		Warnings:    summary.Warnings,
	}
	for i, cs := range summary.Categories {
		co := CategorySummaryOutput{
			Category:     string(cs.Category),
			Label:        cs.Category.Label(),
			Percentage:   cs.Percentage,
			TargetAmount: cs.TargetAmount,
			Total:        cs.Total,
			Missions:     make([]MissionLineOutput, len(cs.Missions)),
		}
		for j, ml := range cs.Missions {
			mo := MissionLineOutput{
				MissionID:             ml.MissionID.String(),
				Name:                  ml.Name,
				Computed:              ml.Computed,
				Total:                 ml.Total,
				Constrained:           ml.Constrained,
				RecommendedPercentage: ml.RecommendedPercentage,
				Companies:             make([]CompanyLineOutput, len(ml.Companies)),
			}
			for k, cl := range ml.Companies {
				mo.Companies[k] = CompanyLineOutput{
					CompanyID:   cl.CompanyID.String(),
					CompanyName: cl.CompanyName,
					Days:        cl.Days,
					Computed:    cl.Computed,
					Amount:      cl.Amount,
					Constrained: cl.Constrained,
				}
			}
			co.Missions[j] = mo
		}
		out.Categories[i] = co
	}
	return out
}
