// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Browses a project's fee budget category by category
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/models"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewBudget ViewMode = iota
	ViewMission
	ViewDashboard
)

// Model is the main bubbletea model
type Model struct {
	project  *models.Project
	summary  *budget.Summary
	viewMode ViewMode

	// Budget view state
	category    int
	selectedRow int

	// UI state
	width  int
	height int
}

// NewModel builds the model from the project's current budget.
func NewModel(project *models.Project) (Model, error) {
	summary, err := budget.Summarize(project)
	if err != nil {
		return Model{}, fmt.Errorf("failed to summarize budget: %w", err)
	}
	return Model{
		project:  project,
		summary:  summary,
		viewMode: ViewBudget,
		width:    100,
		height:   24,
	}, nil
}

// Run starts the full-screen program and blocks until the user quits.
func Run(project *models.Project) error {
	m, err := NewModel(project)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewBudget:
		return m.renderBudgetView()
	case ViewMission:
		return m.renderMissionView()
	case ViewDashboard:
		return m.renderDashboardView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewBudget:
		return m.handleBudgetKeys(msg)
	case ViewMission:
		return m.handleMissionKeys(msg)
	case ViewDashboard:
		return m.handleDashboardKeys(msg)
	}

	return m, nil
}

// currentCategory returns the summary of the selected tab.
func (m Model) currentCategory() *budget.CategorySummary {
	if m.category < 0 || m.category >= len(m.summary.Categories) {
		return nil
	}
	return &m.summary.Categories[m.category]
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	totalStyle = lipgloss.NewStyle().
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)
)
