// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Provides an ASCII overview of a project's fees against its targets
package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/models"
	"github.com/harperreed/memoire/report"
)

type DashboardStats struct {
	ProjectName string
	WorksAmount float64
	TargetTotal float64
	Total       float64

	Categories []CategoryStats
	Companies  []CompanyStats

	TotalMissions int
	TotalPeople   int

	Warnings []string
}

type CategoryStats struct {
	Label  string
	Target float64
	Total  float64
}

type CompanyStats struct {
	Name       string
	Mandataire bool
	Days       float64
	Amount     float64
}

func GenerateDashboardStats(project *models.Project, summary *budget.Summary) *DashboardStats {
	stats := &DashboardStats{
		ProjectName:   project.Name,
		WorksAmount:   summary.WorksAmount,
		TargetTotal:   summary.TargetTotal,
		Total:         summary.Total,
		TotalMissions: len(project.Missions),
		Warnings:      summary.Warnings,
	}

	for _, c := range project.Companies {
		stats.TotalPeople += len(c.People)
	}

	companies := make(map[string]*CompanyStats)
	for _, cs := range summary.Categories {
		if len(cs.Missions) == 0 {
			continue
		}
		stats.Categories = append(stats.Categories, CategoryStats{
			Label:  cs.Category.Label(),
			Target: cs.TargetAmount,
			Total:  cs.Total,
		})
		for _, m := range cs.Missions {
			for _, line := range m.Companies {
				entry, ok := companies[line.CompanyID.String()]
				if !ok {
					entry = &CompanyStats{
						Name:       line.CompanyName,
						Mandataire: project.MandataireID != nil && *project.MandataireID == line.CompanyID,
					}
					companies[line.CompanyID.String()] = entry
				}
				entry.Days += line.Days
				entry.Amount += line.Amount
			}
		}
	}

	for _, entry := range companies {
		stats.Companies = append(stats.Companies, *entry)
	}
	sort.Slice(stats.Companies, func(i, j int) bool {
		if stats.Companies[i].Amount != stats.Companies[j].Amount {
			return stats.Companies[i].Amount > stats.Companies[j].Amount
		}
		return stats.Companies[i].Name < stats.Companies[j].Name
	})

	return stats
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	// Header
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString(fmt.Sprintf("  %s\n", strings.ToUpper(stats.ProjectName)))
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("HONORAIRES PAR CATÉGORIE\n")
	if len(stats.Categories) == 0 {
		out.WriteString("  (aucune mission)\n")
	}
	for _, cat := range stats.Categories {
		out.WriteString(fmt.Sprintf("  %-24s %s  %s / %s\n",
			cat.Label, bar(cat.Total, cat.Target), report.Euro(cat.Total), report.Euro(cat.Target)))
	}
	out.WriteString("\n")

	out.WriteString("RÉPARTITION PAR ENTREPRISE\n")
	for _, c := range stats.Companies {
		name := c.Name
		if c.Mandataire {
			name += " (M)"
		}
		out.WriteString(fmt.Sprintf("  %-24s %8s j  %s\n", name, report.Days(c.Days), report.Euro(c.Amount)))
	}
	out.WriteString("\n")

	out.WriteString("TOTAUX\n")
	out.WriteString(fmt.Sprintf("  🏗️  travaux %s  🎯 cible %s  💶 total %s\n",
		report.Euro(stats.WorksAmount), report.Euro(stats.TargetTotal), report.Euro(stats.Total)))
	out.WriteString(fmt.Sprintf("  📋 %d missions  👷 %d personnes\n\n", stats.TotalMissions, stats.TotalPeople))

	if len(stats.Warnings) > 0 {
		out.WriteString("POINTS D'ATTENTION\n")
		for _, w := range stats.Warnings {
			out.WriteString(fmt.Sprintf("  ⚠️  %s\n", w))
		}
	}

	return out.String()
}

// bar draws total against target on 10 blocks, capped when over target.
func bar(total, target float64) string {
	length := 0
	if target > 0 {
		length = int(total / target * 10)
	} else if total > 0 {
		length = 10
	}
	if length > 10 {
		length = 10
	}
	if length < 0 {
		length = 0
	}
	return strings.Repeat("█", length) + strings.Repeat("░", 10-length)
}
