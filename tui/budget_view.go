package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/memoire/report"
)

func (m Model) renderBudgetView() string {
	var s strings.Builder

	// Title
	s.WriteString(titleStyle.Render(m.project.Name))
	s.WriteString("\n\n")

	// Tabs
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	// Table
	s.WriteString(m.renderMissionsTable())
	s.WriteString("\n\n")

	// Totals
	s.WriteString(m.renderTotals())
	s.WriteString("\n")

	for _, w := range m.summary.Warnings {
		s.WriteString(warningStyle.Render("⚠ " + w))
		s.WriteString("\n")
	}

	// Help
	s.WriteString(m.renderBudgetHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	var rendered []string

	for i, cs := range m.summary.Categories {
		label := fmt.Sprintf("%s (%d)", cs.Category.Label(), len(cs.Missions))
		if i == m.category {
			rendered = append(rendered, tabActiveStyle.Render(label))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(label))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderMissionsTable() string {
	cs := m.currentCategory()
	if cs == nil || len(cs.Missions) == 0 {
		return "Aucune mission dans cette catégorie."
	}

	columns := []table.Column{
		{Title: "Mission", Width: 36},
		{Title: "Jours", Width: 8},
		{Title: "Calculé", Width: 16},
		{Title: "Montant", Width: 16},
		{Title: "% cat.", Width: 8},
	}

	var rows []table.Row
	for _, line := range cs.Missions {
		days := 0.0
		for _, c := range line.Companies {
			days += c.Days
		}
		total := report.Euro(line.Total)
		if line.Constrained {
			total += " *"
		}
		pct := ""
		if line.RecommendedPercentage > 0 {
			pct = report.Percent(line.RecommendedPercentage)
		}
		rows = append(rows, table.Row{
			line.Name,
			report.Days(days),
			report.Euro(line.Computed),
			total,
			pct,
		})
	}

	height := m.height - 12
	if height < 3 {
		height = 3
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}

	return t.View()
}

func (m Model) renderTotals() string {
	var lines []string
	if cs := m.currentCategory(); cs != nil {
		lines = append(lines, fmt.Sprintf("%s: %s / cible %s (%s)",
			cs.Category.Label(), report.Euro(cs.Total), report.Euro(cs.TargetAmount), report.Percent(cs.Percentage)))
	}
	lines = append(lines, totalStyle.Render(fmt.Sprintf("Total projet: %s / cible %s",
		report.Euro(m.summary.Total), report.Euro(m.summary.TargetTotal))))
	return strings.Join(lines, "\n")
}

func (m Model) renderBudgetHelp() string {
	help := []string{
		"Tab/←→: Catégorie",
		"↑↓: Mission",
		"Enter: Détail",
		"d: Tableau de bord",
		"q: Quitter",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleBudgetKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.summary.Categories)
	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if cs := m.currentCategory(); cs != nil && m.selectedRow < len(cs.Missions)-1 {
			m.selectedRow++
		}
	case "tab", "right", "l":
		if count > 0 {
			m.category = (m.category + 1) % count
			m.selectedRow = 0
		}
	case "shift+tab", "left", "h":
		if count > 0 {
			m.category = (m.category + count - 1) % count
			m.selectedRow = 0
		}
	case "enter":
		if cs := m.currentCategory(); cs != nil && m.selectedRow < len(cs.Missions) {
			m.viewMode = ViewMission
		}
	case "d":
		m.viewMode = ViewDashboard
	}

	return m, nil
}
