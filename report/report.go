// ABOUTME: Markdown rendering of a project's budget for the mémoire technique
// ABOUTME: Produces the fee breakdown tables and renders them for the terminal with glamour
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/models"
)

// Markdown returns the budget of a project as a markdown document: one table
// per non-empty category, then the consortium totals and any warnings.
func Markdown(project *models.Project, summary *budget.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", project.Name)
	if project.Reference != "" {
		fmt.Fprintf(&b, "Référence: %s  \n", project.Reference)
	}
	if project.Buyer != "" {
		fmt.Fprintf(&b, "Maître d'ouvrage: %s  \n", project.Buyer)
	}
	fmt.Fprintf(&b, "Montant des travaux: %s\n\n", Euro(summary.WorksAmount))

	if m := project.Mandataire(); m != nil {
		fmt.Fprintf(&b, "Mandataire: **%s**", m.Name)
		if r := m.Representative(); r != nil {
			fmt.Fprintf(&b, " (représenté par %s)", r.Name)
		}
		b.WriteString("\n\n")
	}

	if len(project.NotationCriteria) > 0 {
		b.WriteString("## Critères de notation\n\n| Critère | Pondération |\n|---|---:|\n")
		for _, c := range project.NotationCriteria {
			fmt.Fprintf(&b, "| %s | %s |\n", escape(c.Name), Percent(c.Weight))
		}
		b.WriteString("\n")
	}

	for _, cs := range summary.Categories {
		if len(cs.Missions) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", cs.Category.Label())
		fmt.Fprintf(&b, "Cible: %s (%s du montant des travaux)\n\n", Euro(cs.TargetAmount), Percent(cs.Percentage))

		b.WriteString("| Mission |")
		for _, c := range project.Companies {
			fmt.Fprintf(&b, " %s |", escape(c.Name))
		}
		b.WriteString(" Total |\n|---|")
		for range project.Companies {
			b.WriteString("---:|")
		}
		b.WriteString("---:|\n")

		for _, ml := range cs.Missions {
			fmt.Fprintf(&b, "| %s |", escape(ml.Name))
			for _, cl := range ml.Companies {
				amount := Euro(cl.Amount)
				if cl.Constrained {
					amount += " *"
				}
				fmt.Fprintf(&b, " %s |", amount)
			}
			fmt.Fprintf(&b, " %s |\n", Euro(ml.Total))
		}
		fmt.Fprintf(&b, "| **Total** |%s **%s** |\n\n", strings.Repeat(" |", len(project.Companies)), Euro(cs.Total))
	}

	b.WriteString("## Récapitulatif\n\n")
	b.WriteString("| Entreprise | Jours | Montant |\n|---|---:|---:|\n")
	for _, c := range project.Companies {
		var days, amount float64
		for _, cs := range summary.Categories {
			for _, ml := range cs.Missions {
				for _, cl := range ml.Companies {
					if cl.CompanyID == c.ID {
						days += cl.Days
						amount += cl.Amount
					}
				}
			}
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", escape(c.Name), Days(days), Euro(amount))
	}
	fmt.Fprintf(&b, "| **Total** | | **%s** |\n\n", Euro(summary.Total))
	fmt.Fprintf(&b, "Cible globale: %s\n", Euro(summary.TargetTotal))

	if hasConstraint(summary) {
		b.WriteString("\n\\* prix imposé\n")
	}

	if len(summary.Warnings) > 0 {
		b.WriteString("\n## Avertissements\n\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}

// Render formats markdown for a terminal of the given width.
// Style is a glamour standard style name such as "dark", "light" or "notty".
func Render(markdown, style string, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return out, nil
}

// Euro formats an amount with grouped thousands and a comma decimal separator.
func Euro(v float64) string {
	neg := v < 0
	cents := int64(math.Round(math.Abs(v) * 100))
	whole := fmt.Sprintf("%d", cents/100)

	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteRune(' ')
		}
		grouped.WriteRune(r)
	}

	s := fmt.Sprintf("%s,%02d €", grouped.String(), cents%100)
	if neg {
		s = "-" + s
	}
	return s
}

// Percent formats a percentage with at most two decimals.
func Percent(v float64) string {
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
	return strings.Replace(s, ".", ",", 1) + " %"
}

// Days formats a day count with at most one decimal.
func Days(v float64) string {
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.1f", v), "0"), ".")
	return strings.Replace(s, ".", ",", 1)
}

func hasConstraint(summary *budget.Summary) bool {
	for _, cs := range summary.Categories {
		for _, ml := range cs.Missions {
			if ml.Constrained {
				return true
			}
		}
	}
	return false
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
