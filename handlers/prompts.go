// ABOUTME: MCP prompt handlers for drafting mémoire technique sections
// ABOUTME: Builds fee justification and team presentation prompts from stored projects
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/models"
	"github.com/harperreed/memoire/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	repo *db.ProjectRepository
}

func NewPromptHandlers(repo *db.ProjectRepository) *PromptHandlers {
	return &PromptHandlers{repo: repo}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	project, err := h.loadProject(ctx, request.Params.Arguments)
	if err != nil {
		return nil, err
	}

	switch request.Params.Name {
	case "fee-justification":
		return feeJustificationPrompt(project)
	case "team-presentation":
		return teamPresentationPrompt(project), nil
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) loadProject(ctx context.Context, args map[string]string) (*models.Project, error) {
	idStr, ok := args["project_id"]
	if !ok {
		return nil, fmt.Errorf("project_id is required")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid project_id: %w", err)
	}
	project, err := h.repo.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project: %w", err)
	}
	return project, nil
}

func feeJustificationPrompt(project *models.Project) (*mcp.GetPromptResult, error) {
	summary, err := budget.Summarize(project)
	if err != nil {
		return nil, err
	}

	var promptText strings.Builder
	promptText.WriteString("Rédige la note de justification des honoraires du mémoire technique ")
	promptText.WriteString("à partir de la décomposition suivante:\n\n")
	promptText.WriteString(report.Markdown(project, summary))

	justification := budget.JustificationFromEstimation(budget.EffectiveEstimation(project))
	var notes []string
	for _, m := range project.Missions {
		for _, c := range project.Companies {
			for _, p := range c.People {
				if j := justification(m.ID, c.ID, p.ID); j != "" {
					notes = append(notes, fmt.Sprintf("- %s / %s / %s: %s", m.DisplayName(), c.Name, p.Name, j))
				}
			}
		}
	}
	if len(notes) > 0 {
		promptText.WriteString("\nJustifications des temps passés:\n")
		promptText.WriteString(strings.Join(notes, "\n"))
		promptText.WriteString("\n")
	}

	promptText.WriteString("\nLa note doit:")
	promptText.WriteString("\n1. Expliquer la répartition par catégorie et par mission")
	promptText.WriteString("\n2. Justifier les temps passés de chaque membre du groupement")
	promptText.WriteString("\n3. Mentionner les prix imposés et leur raison")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Fee justification for %s", project.Name),
		Messages: []*mcp.PromptMessage{
			{
				Role: "user",
				Content: &mcp.TextContent{
					Text: promptText.String(),
				},
			},
		},
	}, nil
}

func teamPresentationPrompt(project *models.Project) *mcp.GetPromptResult {
	var promptText strings.Builder
	promptText.WriteString(fmt.Sprintf("Présente l'équipe du groupement pour le projet %s:\n\n", project.Name))

	for _, c := range project.Companies {
		role := "cotraitant"
		if project.MandataireID != nil && *project.MandataireID == c.ID {
			role = "mandataire"
		}
		promptText.WriteString(fmt.Sprintf("## %s (%s)\n", c.Name, role))
		if c.Presentation != "" {
			promptText.WriteString(c.Presentation + "\n")
		}
		if c.Equipment != "" {
			promptText.WriteString(fmt.Sprintf("Moyens: %s\n", c.Equipment))
		}
		for _, p := range c.People {
			line := fmt.Sprintf("- %s", p.Name)
			if p.Role != "" {
				line += ", " + p.Role
			}
			if c.RepresentativeID != nil && *c.RepresentativeID == p.ID {
				line += " (représentant)"
			}
			if p.CVSummary != "" {
				line += ": " + p.CVSummary
			}
			promptText.WriteString(line + "\n")
		}
		promptText.WriteString("\n")
	}

	promptText.WriteString("Mets en avant la complémentarité des compétences et l'organisation du groupement.")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Team presentation for %s", project.Name),
		Messages: []*mcp.PromptMessage{
			{
				Role: "user",
				Content: &mcp.TextContent{
					Text: promptText.String(),
				},
			},
		},
	}
}
