// ABOUTME: Consortium MCP tool handlers for companies, people and missions
// ABOUTME: Implements add_company, remove_company, add_person, remove_person, set_representative, set_mandataire and add_mission
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ConsortiumHandlers struct {
	repo *db.ProjectRepository
}

func NewConsortiumHandlers(repo *db.ProjectRepository) *ConsortiumHandlers {
	return &ConsortiumHandlers{repo: repo}
}

type AddCompanyInput struct {
	ProjectID    string `json:"project_id" jsonschema:"Project ID (required)"`
	Name         string `json:"name" jsonschema:"Company name (required)"`
	Presentation string `json:"presentation,omitempty" jsonschema:"Company presentation for the mémoire"`
	Equipment    string `json:"equipment,omitempty" jsonschema:"Technical means and equipment"`
}

func (h *ConsortiumHandlers) AddCompany(ctx context.Context, request *mcp.CallToolRequest, input AddCompanyInput) (*mcp.CallToolResult, CompanyOutput, error) {
	projectID, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, CompanyOutput{}, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, CompanyOutput{}, fmt.Errorf("name is required")
	}

	var added models.ParticipatingCompany
	project, err := h.repo.Update(ctx, projectID, func(p *models.Project) error {
		added = p.AddCompany(models.ParticipatingCompany{
			Name:         input.Name,
			Presentation: input.Presentation,
			Equipment:    input.Equipment,
		})
		return nil
	})
	if err != nil {
		return nil, CompanyOutput{}, fmt.Errorf("failed to add company: %w", err)
	}

	return nil, companyToOutput(project, added), nil
}

type CompanyRefInput struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID (required)"`
	CompanyID string `json:"company_id" jsonschema:"Company ID (required)"`
}

// RemoveCompany drops a company with its price constraints. The mandataire
// reference is cleared when it pointed at the removed company.
func (h *ConsortiumHandlers) RemoveCompany(ctx context.Context, request *mcp.CallToolRequest, input CompanyRefInput) (*mcp.CallToolResult, DeleteOutput, error) {
	projectID, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	companyID, err := parseID("company_id", input.CompanyID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	_, err = h.repo.Update(ctx, projectID, func(p *models.Project) error {
		if !p.RemoveCompany(companyID) {
			return fmt.Errorf("company %s not found", companyID)
		}
		for _, m := range p.Missions {
			p.PriceConstraints = budget.RemoveConstraint(p.PriceConstraints, m.ID, companyID)
		}
		return nil
	})
	if err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to remove company: %w", err)
	}

	return nil, DeleteOutput{Deleted: true}, nil
}

type AddPersonInput struct {
	ProjectID string   `json:"project_id" jsonschema:"Project ID (required)"`
	CompanyID string   `json:"company_id" jsonschema:"Company ID (required)"`
	Name      string   `json:"name" jsonschema:"Person name (required)"`
	Role      string   `json:"role,omitempty" jsonschema:"Role in the team (e.g., architecte, économiste)"`
	DailyRate *float64 `json:"daily_rate,omitempty" jsonschema:"Daily rate in euros, excluding tax"`
	CV        string   `json:"cv,omitempty" jsonschema:"Plain-text CV"`
}

func (h *ConsortiumHandlers) AddPerson(ctx context.Context, request *mcp.CallToolRequest, input AddPersonInput) (*mcp.CallToolResult, PersonOutput, error) {
	projectID, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, PersonOutput{}, err
	}
	companyID, err := parseID("company_id", input.CompanyID)
	if err != nil {
		return nil, PersonOutput{}, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, PersonOutput{}, fmt.Errorf("name is required")
	}
	if input.DailyRate != nil && *input.DailyRate < 0 {
		return nil, PersonOutput{}, fmt.Errorf("daily_rate must not be negative")
	}

	var added models.MobilizedPerson
	_, err = h.repo.Update(ctx, projectID, func(p *models.Project) error {
		company := p.Company(companyID)
		if company == nil {
			return fmt.Errorf("company %s not found", companyID)
		}
		added = company.AddPerson(models.MobilizedPerson{
			Name:      input.Name,
			Role:      input.Role,
			DailyRate: input.DailyRate,
			CV:        input.CV,
		})
		return nil
	})
	if err != nil {
		return nil, PersonOutput{}, fmt.Errorf("failed to add person: %w", err)
	}

	return nil, personToOutput(added), nil
}

type PersonRefInput struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID (required)"`
	CompanyID string `json:"company_id" jsonschema:"Company ID (required)"`
	PersonID  string `json:"person_id" jsonschema:"Person ID (required)"`
}

func (h *ConsortiumHandlers) RemovePerson(ctx context.Context, request *mcp.CallToolRequest, input PersonRefInput) (*mcp.CallToolResult, DeleteOutput, error) {
	projectID, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	companyID, err := parseID("company_id", input.CompanyID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	personID, err := parseID("person_id", input.PersonID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	_, err = h.repo.Update(ctx, projectID, func(p *models.Project) error {
		company := p.Company(companyID)
		if company == nil {
			return fmt.Errorf("company %s not found", companyID)
		}
		if !company.RemovePerson(personID) {
			return fmt.Errorf("person %s not found", personID)
		}
		return nil
	})
	if err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to remove person: %w", err)
	}

	return nil, DeleteOutput{Deleted: true}, nil
}

type SetRepresentativeInput struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID (required)"`
	CompanyID string `json:"company_id" jsonschema:"Company ID (required)"`
	PersonID  string `json:"person_id,omitempty" jsonschema:"Person ID of the representative; empty clears it"`
}

func (h *ConsortiumHandlers) SetRepresentative(ctx context.Context, request *mcp.CallToolRequest, input SetRepresentativeInput) (*mcp.CallToolResult, CompanyOutput, error) {
	projectID, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, CompanyOutput{}, err
	}
	companyID, err := parseID("company_id", input.CompanyID)
	if err != nil {
		return nil, CompanyOutput{}, err
	}
	var personID *uuid.UUID
	if input.PersonID != "" {
		id, err := parseID("person_id", input.PersonID)
		if err != nil {
			return nil, CompanyOutput{}, err
		}
		personID = &id
	}

	project, err := h.repo.Update(ctx, projectID, func(p *models.Project) error {
		company := p.Company(companyID)
		if company == nil {
			return fmt.Errorf("company %s not found", companyID)
		}
		if !company.SetRepresentative(personID) {
			return fmt.Errorf("person %s is not part of %s", *personID, company.Name)
		}
		return nil
	})
	if err != nil {
		return nil, CompanyOutput{}, fmt.Errorf("failed to set representative: %w", err)
	}

	return nil, companyToOutput(project, *project.Company(companyID)), nil
}

func (h *ConsortiumHandlers) SetMandataire(ctx context.Context, request *mcp.CallToolRequest, input CompanyRefInput) (*mcp.CallToolResult, ProjectOutput, error) {
	projectID, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, ProjectOutput{}, err
	}
	companyID, err := parseID("company_id", input.CompanyID)
	if err != nil {
		return nil, ProjectOutput{}, err
	}

	project, err := h.repo.Update(ctx, projectID, func(p *models.Project) error {
		p.MandataireID = models.ValidateReference(&companyID, p.CompanyIDs())
		if p.MandataireID == nil {
			return fmt.Errorf("company %s not found", companyID)
		}
		return nil
	})
	if err != nil {
		return nil, ProjectOutput{}, fmt.Errorf("failed to set mandataire: %w", err)
	}

	return nil, projectToOutput(project), nil
}

type AddMissionInput struct {
	ProjectID   string `json:"project_id" jsonschema:"Project ID (required)"`
	Name        string `json:"name" jsonschema:"Mission name (required)"`
	Sigle       string `json:"sigle,omitempty" jsonschema:"Short code such as ESQ, APS, DET"`
	Description string `json:"description,omitempty" jsonschema:"Mission content"`
	Category    string `json:"category,omitempty" jsonschema:"base, pse, tranchesConditionnelles or variantes (default base)"`
}

func (h *ConsortiumHandlers) AddMission(ctx context.Context, request *mcp.CallToolRequest, input AddMissionInput) (*mcp.CallToolResult, MissionOutput, error) {
	projectID, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, MissionOutput{}, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, MissionOutput{}, fmt.Errorf("name is required")
	}
	category := models.CategoryBase
	if input.Category != "" {
		category, err = models.ParseCategory(input.Category)
		if err != nil {
			return nil, MissionOutput{}, err
		}
	}

	var added models.Mission
	_, err = h.repo.Update(ctx, projectID, func(p *models.Project) error {
		added = p.AddMission(models.Mission{
			Name:        input.Name,
			Sigle:       input.Sigle,
			Description: input.Description,
			Category:    category,
		})
		return nil
	})
	if err != nil {
		return nil, MissionOutput{}, fmt.Errorf("failed to add mission: %w", err)
	}

	return nil, missionToOutput(added), nil
}
