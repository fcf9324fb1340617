// ABOUTME: Builds the full budget summary of a project
// ABOUTME: Fails with MissingProjectDataError when the inputs are incomplete
package budget

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/memoire/models"
)

// ErrMissingProjectData is matched by every *MissingProjectDataError.
var ErrMissingProjectData = errors.New("missing project data")

// MissingProjectDataError names the project field required before aggregation.
type MissingProjectDataError struct {
	Field string
}

func (e *MissingProjectDataError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingProjectData, e.Field)
}

func (e *MissingProjectDataError) Is(target error) bool {
	return target == ErrMissingProjectData
}

// RequireProjectData checks the inputs aggregation depends on.
func RequireProjectData(project *models.Project) error {
	switch {
	case project == nil:
		return &MissingProjectDataError{Field: "project"}
	case project.WorksAmount <= 0:
		return &MissingProjectDataError{Field: "works_amount"}
	case len(project.Companies) == 0:
		return &MissingProjectDataError{Field: "companies"}
	case len(project.CategoryPercentages) == 0:
		return &MissingProjectDataError{Field: "category_percentages"}
	}
	return nil
}

type CompanyLine struct {
	CompanyID   uuid.UUID `json:"company_id"`
	CompanyName string    `json:"company_name"`
	Days        float64   `json:"days"`
	Computed    float64   `json:"computed"`
	Amount      float64   `json:"amount"`
	Constrained bool      `json:"constrained"`
}

type MissionLine struct {
	MissionID             uuid.UUID     `json:"mission_id"`
	Name                  string        `json:"name"`
	Computed              float64       `json:"computed"`
	Total                 float64       `json:"total"`
	Constrained           bool          `json:"constrained"`
	RecommendedPercentage float64       `json:"recommended_percentage,omitempty"`
	Companies             []CompanyLine `json:"companies"`
}

type CategorySummary struct {
	Category     models.Category `json:"category"`
	Percentage   float64         `json:"percentage"`
	TargetAmount float64         `json:"target_amount"`
	Total        float64         `json:"total"`
	Missions     []MissionLine   `json:"missions"`
}

// Summary is the effective budget view of a project.
type Summary struct {
	ProjectID   uuid.UUID         `json:"project_id"`
	WorksAmount float64           `json:"works_amount"`
	TargetTotal float64           `json:"target_total"`
	Total       float64           `json:"total"`
	Categories  []CategorySummary `json:"categories"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// Category returns the summary of one category, or nil.
func (s *Summary) Category(c models.Category) *CategorySummary {
	for i := range s.Categories {
		if s.Categories[i].Category == c {
			return &s.Categories[i]
		}
	}
	return nil
}

// Summarize rolls the merged manual and AI ledgers up into category and
// project totals, applying price constraints.
func Summarize(project *models.Project) (*Summary, error) {
	if err := RequireProjectData(project); err != nil {
		return nil, err
	}

	days := LookupFromEstimation(EffectiveEstimation(project))

	summary := &Summary{
		ProjectID:   project.ID,
		WorksAmount: project.WorksAmount,
		TargetTotal: TotalTargetAmount(project.WorksAmount, project.CategoryPercentages),
	}

	for _, cat := range models.Categories() {
		pct := project.CategoryPercentages[cat]
		cs := CategorySummary{
			Category:     cat,
			Percentage:   pct,
			TargetAmount: CategoryTargetAmount(project.WorksAmount, pct),
		}

		for _, mission := range project.MissionsIn(cat) {
			line := missionLine(mission, project, days)
			line.RecommendedPercentage = project.MissionPercentages[cat][mission.ID]
			cs.Total += line.Total
			cs.Missions = append(cs.Missions, line)
		}

		summary.Total += cs.Total
		summary.Categories = append(summary.Categories, cs)
	}

	if msg, ok := CategoryPercentagesWarning(project.CategoryPercentages); ok {
		summary.Warnings = append(summary.Warnings, msg)
	}
	for _, w := range CheckMissionPercentages(project.MissionPercentages) {
		summary.Warnings = append(summary.Warnings, w.String())
	}
	if msg, ok := NotationWeightsWarning(project.NotationCriteria); ok {
		summary.Warnings = append(summary.Warnings, msg)
	}

	return summary, nil
}

func missionLine(mission models.Mission, project *models.Project, days DaysLookup) MissionLine {
	line := MissionLine{
		MissionID: mission.ID,
		Name:      mission.DisplayName(),
	}

	for i := range project.Companies {
		company := &project.Companies[i]
		cl := CompanyLine{
			CompanyID:   company.ID,
			CompanyName: company.Name,
			Computed:    CompanySubtotal(mission.ID, company, days),
		}
		for _, person := range company.People {
			cl.Days += days(mission.ID, company.ID, person.ID)
		}
		cl.Amount = cl.Computed
		if c := FindConstraint(project.PriceConstraints, mission.ID, company.ID); c != nil {
			cl.Amount = c.ImposedAmount
			cl.Constrained = true
			line.Constrained = true
		}
		line.Computed += cl.Computed
		line.Total += cl.Amount
		line.Companies = append(line.Companies, cl)
	}

	return line
}
