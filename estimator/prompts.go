// ABOUTME: Prompt text for the estimation steps
// ABOUTME: describeProject lists missions, companies, people and imposed prices with their IDs
package estimator

import (
	"fmt"
	"strings"

	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/models"
)

const systemPrompt = `Tu es économiste de la construction. Tu aides à rédiger le mémoire technique ` +
	`d'une réponse à un marché public de maîtrise d'œuvre. Réponds uniquement avec un objet JSON valide, ` +
	`sans commentaire, en réutilisant exactement les identifiants fournis.`

const percentagesInstructions = `Propose la répartition des honoraires.
Format attendu:
{"categories": {"<categorie>": {"percentage": <pourcentage du montant des travaux>,
  "missions": [{"mission_id": "<id>", "category_percentage": <part de la catégorie>, "justification": "<texte>"}]}}}
Les category_percentage d'une catégorie doivent totaliser 100.`

const daysInstructions = `Propose le nombre de jours par personne et par mission.
Respecte les montants cibles par catégorie. Quand un prix est imposé pour une mission et une entreprise,
répartis les jours de cette entreprise pour atteindre exactement ce montant.
Format attendu:
{"categories": {"<categorie>": {"target_amount": <montant>, "missions": [{"mission_id": "<id>",
  "allocations": [{"company_id": "<id>", "person_id": "<id>", "days": <jours>, "justification": "<texte>"}]}]}}}`

// describeProject renders the project facts the model needs, with IDs.
func describeProject(project *models.Project) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Projet: %s\n", project.Name)
	if project.Buyer != "" {
		fmt.Fprintf(&b, "Maître d'ouvrage: %s\n", project.Buyer)
	}
	if project.WorksAmount > 0 {
		fmt.Fprintf(&b, "Montant des travaux: %.2f €\n", project.WorksAmount)
	}

	b.WriteString("\nMissions:\n")
	for _, cat := range models.Categories() {
		missions := project.MissionsIn(cat)
		if len(missions) == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s", cat)
		if pct, ok := project.CategoryPercentages[cat]; ok && project.WorksAmount > 0 {
			fmt.Fprintf(&b, " (%.2f%%, cible %.2f €)", pct, budget.CategoryTargetAmount(project.WorksAmount, pct))
		}
		b.WriteString(":\n")
		for _, m := range missions {
			fmt.Fprintf(&b, "  - [%s] %s", m.ID, m.DisplayName())
			if pct := project.MissionPercentages[cat][m.ID]; pct > 0 {
				fmt.Fprintf(&b, " (%.1f%% de la catégorie)", pct)
			}
			if m.Description != "" {
				fmt.Fprintf(&b, ": %s", m.Description)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nEntreprises:\n")
	for _, c := range project.Companies {
		role := "cotraitant"
		if project.MandataireID != nil && *project.MandataireID == c.ID {
			role = "mandataire"
		}
		fmt.Fprintf(&b, "- [%s] %s (%s)\n", c.ID, c.Name, role)
		for _, p := range c.People {
			fmt.Fprintf(&b, "  - [%s] %s", p.ID, p.Name)
			if p.Role != "" {
				fmt.Fprintf(&b, ", %s", p.Role)
			}
			if p.DailyRate != nil {
				fmt.Fprintf(&b, ", %.2f €/jour", *p.DailyRate)
			}
			b.WriteString("\n")
		}
	}

	if len(project.PriceConstraints) > 0 {
		b.WriteString("\nPrix imposés:\n")
		for _, pc := range project.PriceConstraints {
			mission := project.Mission(pc.MissionID)
			company := project.Company(pc.CompanyID)
			if mission == nil || company == nil {
				continue
			}
			fmt.Fprintf(&b, "- mission [%s] / entreprise [%s]: %.2f €", mission.ID, company.ID, pc.ImposedAmount)
			if pc.Justification != "" {
				fmt.Fprintf(&b, " (%s)", pc.Justification)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
