package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/report"
)

func (m Model) renderMissionView() string {
	var s strings.Builder

	cs := m.currentCategory()
	if cs == nil || m.selectedRow >= len(cs.Missions) {
		return "Mission introuvable.\n"
	}
	line := cs.Missions[m.selectedRow]

	s.WriteString(titleStyle.Render(line.Name))
	s.WriteString("\n\n")

	if mission := m.project.Mission(line.MissionID); mission != nil && mission.Description != "" {
		s.WriteString(mission.Description)
		s.WriteString("\n\n")
	}

	est := budget.EffectiveEstimation(m.project)
	days := budget.LookupFromEstimation(est)
	justification := budget.JustificationFromEstimation(est)

	for _, cl := range line.Companies {
		company := m.project.Company(cl.CompanyID)
		if company == nil {
			continue
		}

		header := fmt.Sprintf("%s  %s j  %s", company.Name, report.Days(cl.Days), report.Euro(cl.Amount))
		if cl.Constrained {
			header += fmt.Sprintf("  (prix imposé, calculé %s)", report.Euro(cl.Computed))
		}
		s.WriteString(totalStyle.Render(header))
		s.WriteString("\n")

		for i := range company.People {
			person := &company.People[i]
			d := days(line.MissionID, company.ID, person.ID)
			if d == 0 {
				continue
			}
			s.WriteString(fmt.Sprintf("  • %-24s %6s j × %s = %s\n",
				person.Name, report.Days(d), report.Euro(person.Rate()),
				report.Euro(budget.PersonCost(line.MissionID, company, person, days))))
			if j := justification(line.MissionID, company.ID, person.ID); j != "" {
				s.WriteString(fmt.Sprintf("    %s\n", j))
			}
		}
		s.WriteString("\n")
	}

	s.WriteString(totalStyle.Render("Total mission: " + report.Euro(line.Total)))
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("Esc: Retour • q: Quitter"))

	return s.String()
}

func (m Model) handleMissionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		m.viewMode = ViewBudget
	}

	return m, nil
}
