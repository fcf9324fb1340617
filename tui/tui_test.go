// ABOUTME: Tests for the budget TUI
// ABOUTME: Drives the model with key messages and checks the rendered views
package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/models"
)

func testProject() *models.Project {
	rate := 800.0
	mission := models.Mission{ID: uuid.New(), Name: "Esquisse", Sigle: "ESQ", Category: models.CategoryBase}
	person := models.MobilizedPerson{ID: uuid.New(), Name: "Anne Morel", Role: "Architecte", DailyRate: &rate}
	company := models.ParticipatingCompany{ID: uuid.New(), Name: "Atelier Loire", People: []models.MobilizedPerson{person}}

	project := &models.Project{
		ID:                  uuid.New(),
		Name:                "Médiathèque",
		WorksAmount:         1000000,
		Missions:            []models.Mission{mission},
		Companies:           []models.ParticipatingCompany{company},
		MandataireID:        &company.ID,
		CategoryPercentages: models.CategoryPercentages{models.CategoryBase: 10},
		Estimation:          models.ProjectEstimation{},
	}
	project.Estimation.SetAllocation(models.CategoryBase, mission.ID, company.ID, person.ID,
		models.PersonAllocation{DaysAllocated: 5, Justification: "esquisse et variantes"})
	return project
}

func press(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModelRequiresProjectData(t *testing.T) {
	project := testProject()
	project.WorksAmount = 0

	_, err := NewModel(project)
	assert.ErrorIs(t, err, budget.ErrMissingProjectData)
}

func TestBudgetViewRendering(t *testing.T) {
	m, err := NewModel(testProject())
	require.NoError(t, err)

	output := m.View()
	assert.Contains(t, output, "Médiathèque")
	assert.Contains(t, output, "Tranche ferme")
	assert.Contains(t, output, "ESQ - Esquisse")
	assert.Contains(t, output, "4 000,00 €")
	assert.Contains(t, output, "Total projet")
	assert.Contains(t, output, "cible 100 000,00 €")
}

func TestTabSwitchesCategory(t *testing.T) {
	m, err := NewModel(testProject())
	require.NoError(t, err)

	m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 1, m.category)
	assert.Contains(t, m.View(), "Aucune mission dans cette catégorie.")

	m = press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m = press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, len(models.Categories())-1, m.category)
}

func TestMissionDetail(t *testing.T) {
	m, err := NewModel(testProject())
	require.NoError(t, err)

	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ViewMission, m.viewMode)

	output := m.View()
	assert.Contains(t, output, "Atelier Loire")
	assert.Contains(t, output, "Anne Morel")
	assert.Contains(t, output, "esquisse et variantes")
	assert.Contains(t, output, "Total mission: 4 000,00 €")

	m = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewBudget, m.viewMode)
}

func TestEnterIgnoredOnEmptyCategory(t *testing.T) {
	m, err := NewModel(testProject())
	require.NoError(t, err)

	m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewBudget, m.viewMode)
}

func TestDashboardView(t *testing.T) {
	m, err := NewModel(testProject())
	require.NoError(t, err)

	m = press(m, runes("d"))
	require.Equal(t, ViewDashboard, m.viewMode)
	output := m.View()
	assert.Contains(t, output, "HONORAIRES PAR CATÉGORIE")
	assert.Contains(t, output, "Atelier Loire (M)")

	m = press(m, runes("d"))
	assert.Equal(t, ViewBudget, m.viewMode)
}

func TestQuit(t *testing.T) {
	m, err := NewModel(testProject())
	require.NoError(t, err)

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWindowResize(t *testing.T) {
	m, err := NewModel(testProject())
	require.NoError(t, err)

	m = press(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40, m.height)
}
