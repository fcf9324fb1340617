// ABOUTME: Tests for the MCP tool handlers over an in-memory database
// ABOUTME: Drives projects, consortium, budget, archive and estimation tools end to end
package handlers

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/estimator"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	require.NoError(t, db.InitSchema(database))
	t.Cleanup(func() { _ = database.Close() })
	return database
}

type testEnv struct {
	ctx        context.Context
	database   *sql.DB
	repo       *db.ProjectRepository
	projects   *ProjectHandlers
	consortium *ConsortiumHandlers
	budget     *BudgetHandlers
	archive    *ArchiveHandlers
}

func newTestEnv(t *testing.T) *testEnv {
	database := setupTestDB(t)
	repo := db.NewProjectRepository(database)
	return &testEnv{
		ctx:        context.Background(),
		database:   database,
		repo:       repo,
		projects:   NewProjectHandlers(repo),
		consortium: NewConsortiumHandlers(repo),
		budget:     NewBudgetHandlers(repo),
		archive:    NewArchiveHandlers(repo),
	}
}

// scenario holds the IDs of a small two-company project.
type scenario struct {
	project   ProjectOutput
	mission   MissionOutput
	archi     CompanyOutput
	bet       CompanyOutput
	architect PersonOutput
	engineer  PersonOutput
}

func rate(v float64) *float64 { return &v }

func (e *testEnv) seed(t *testing.T) scenario {
	t.Helper()
	var s scenario
	var err error

	_, s.project, err = e.projects.CreateProject(e.ctx, nil, CreateProjectInput{
		Name: "Groupe scolaire", Reference: "GS-2025", Buyer: "Ville de Nantes", WorksAmount: 1000000,
	})
	require.NoError(t, err)

	_, s.mission, err = e.consortium.AddMission(e.ctx, nil, AddMissionInput{
		ProjectID: s.project.ID, Name: "Esquisse", Sigle: "ESQ",
	})
	require.NoError(t, err)

	_, s.archi, err = e.consortium.AddCompany(e.ctx, nil, AddCompanyInput{ProjectID: s.project.ID, Name: "Atelier Loire"})
	require.NoError(t, err)
	_, s.bet, err = e.consortium.AddCompany(e.ctx, nil, AddCompanyInput{ProjectID: s.project.ID, Name: "BET Océan"})
	require.NoError(t, err)

	_, s.architect, err = e.consortium.AddPerson(e.ctx, nil, AddPersonInput{
		ProjectID: s.project.ID, CompanyID: s.archi.ID, Name: "Anne", Role: "Architecte", DailyRate: rate(800),
	})
	require.NoError(t, err)
	_, s.engineer, err = e.consortium.AddPerson(e.ctx, nil, AddPersonInput{
		ProjectID: s.project.ID, CompanyID: s.bet.ID, Name: "Marc", DailyRate: rate(600),
	})
	require.NoError(t, err)

	return s
}

func TestCreateAndListProjects(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.projects.CreateProject(env.ctx, nil, CreateProjectInput{Name: "  "})
	assert.Error(t, err)
	_, _, err = env.projects.CreateProject(env.ctx, nil, CreateProjectInput{Name: "X", WorksAmount: -1})
	assert.Error(t, err)

	_, created, err := env.projects.CreateProject(env.ctx, nil, CreateProjectInput{Name: "Piscine", Reference: "PISC-01"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Piscine", created.Name)

	_, list, err := env.projects.ListProjects(env.ctx, nil, ListProjectsInput{Query: "pisc"})
	require.NoError(t, err)
	require.Len(t, list.Projects, 1)
	assert.Equal(t, created.ID, list.Projects[0].ID)

	_, list, err = env.projects.ListProjects(env.ctx, nil, ListProjectsInput{Query: "gymnase"})
	require.NoError(t, err)
	assert.Empty(t, list.Projects)
}

func TestUpdateAndDeleteProject(t *testing.T) {
	env := newTestEnv(t)
	s := env.seed(t)

	name := "Groupe scolaire Nord"
	amount := 1200000.0
	_, updated, err := env.projects.UpdateProject(env.ctx, nil, UpdateProjectInput{
		ProjectID: s.project.ID, Name: &name, WorksAmount: &amount,
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, amount, updated.WorksAmount)
	assert.Equal(t, "GS-2025", updated.Reference)

	empty := ""
	_, _, err = env.projects.UpdateProject(env.ctx, nil, UpdateProjectInput{ProjectID: s.project.ID, Name: &empty})
	assert.Error(t, err)

	_, deleted, err := env.projects.DeleteProject(env.ctx, nil, ProjectIDInput{ProjectID: s.project.ID})
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)

	_, _, err = env.projects.GetProject(env.ctx, nil, ProjectIDInput{ProjectID: s.project.ID})
	assert.ErrorIs(t, err, db.ErrProjectNotFound)
}

func TestGetProjectRejectsBadID(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.projects.GetProject(env.ctx, nil, ProjectIDInput{})
	assert.EqualError(t, err, "project_id is required")

	_, _, err = env.projects.GetProject(env.ctx, nil, ProjectIDInput{ProjectID: "nope"})
	assert.Error(t, err)
}

func TestSetNotationCriteria(t *testing.T) {
	env := newTestEnv(t)
	s := env.seed(t)

	_, out, err := env.projects.SetNotationCriteria(env.ctx, nil, SetNotationCriteriaInput{
		ProjectID: s.project.ID,
		Criteria:  []CriterionOutput{{Name: " Valeur technique ", Weight: 60}, {Name: "Prix", Weight: 30}},
	})
	require.NoError(t, err)
	assert.Equal(t, 90.0, out.TotalWeight)
	assert.Contains(t, out.Warning, "90.0%")
	assert.Equal(t, "Valeur technique", out.Criteria[0].Name)

	_, detail, err := env.projects.GetProject(env.ctx, nil, ProjectIDInput{ProjectID: s.project.ID})
	require.NoError(t, err)
	require.Len(t, detail.NotationCriteria, 2)
	assert.Equal(t, "Prix", detail.NotationCriteria[1].Name)

	_, _, err = env.projects.SetNotationCriteria(env.ctx, nil, SetNotationCriteriaInput{
		ProjectID: s.project.ID,
		Criteria:  []CriterionOutput{{Name: "Prix", Weight: 40}, {Name: "prix", Weight: 60}},
	})
	assert.Error(t, err)

	_, out, err = env.projects.SetNotationCriteria(env.ctx, nil, SetNotationCriteriaInput{ProjectID: s.project.ID})
	require.NoError(t, err)
	assert.Empty(t, out.Criteria)
	assert.Empty(t, out.Warning)

	projectID, err := parseID("project_id", s.project.ID)
	require.NoError(t, err)
	project, err := env.repo.Load(env.ctx, projectID)
	require.NoError(t, err)
	assert.Nil(t, project.NotationCriteria)
}

func TestConsortiumReferences(t *testing.T) {
	env := newTestEnv(t)
	s := env.seed(t)

	assert.True(t, s.archi.Mandataire, "first company becomes mandataire")
	assert.False(t, s.bet.Mandataire)

	_, company, err := env.consortium.SetRepresentative(env.ctx, nil, SetRepresentativeInput{
		ProjectID: s.project.ID, CompanyID: s.archi.ID, PersonID: s.architect.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, s.architect.ID, company.RepresentativeID)

	// A person from another company cannot represent this one
	_, _, err = env.consortium.SetRepresentative(env.ctx, nil, SetRepresentativeInput{
		ProjectID: s.project.ID, CompanyID: s.archi.ID, PersonID: s.engineer.ID,
	})
	assert.Error(t, err)

	_, project, err := env.consortium.SetMandataire(env.ctx, nil, CompanyRefInput{ProjectID: s.project.ID, CompanyID: s.bet.ID})
	require.NoError(t, err)
	assert.Equal(t, s.bet.ID, project.MandataireID)

	// Removing the representative clears the reference
	_, _, err = env.consortium.RemovePerson(env.ctx, nil, PersonRefInput{
		ProjectID: s.project.ID, CompanyID: s.archi.ID, PersonID: s.architect.ID,
	})
	require.NoError(t, err)

	// Removing the mandataire clears the reference
	_, _, err = env.consortium.RemoveCompany(env.ctx, nil, CompanyRefInput{ProjectID: s.project.ID, CompanyID: s.bet.ID})
	require.NoError(t, err)

	_, detail, err := env.projects.GetProject(env.ctx, nil, ProjectIDInput{ProjectID: s.project.ID})
	require.NoError(t, err)
	require.Len(t, detail.Companies, 1)
	assert.Empty(t, detail.Companies[0].RepresentativeID)
	assert.Empty(t, detail.Project.MandataireID)
}

func TestAddMissionValidatesCategory(t *testing.T) {
	env := newTestEnv(t)
	s := env.seed(t)

	_, m, err := env.consortium.AddMission(env.ctx, nil, AddMissionInput{ProjectID: s.project.ID, Name: "Mobilier", Category: "pse"})
	require.NoError(t, err)
	assert.Equal(t, "pse", m.Category)
	assert.Equal(t, "base", s.mission.Category)

	_, _, err = env.consortium.AddMission(env.ctx, nil, AddMissionInput{ProjectID: s.project.ID, Name: "X", Category: "options"})
	assert.Error(t, err)
}

func TestBudgetSummaryWithAllocationsAndConstraint(t *testing.T) {
	env := newTestEnv(t)
	s := env.seed(t)

	_, _, err := env.budget.BudgetSummary(env.ctx, nil, BudgetSummaryInput{ProjectID: s.project.ID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category_percentages")

	_, pct, err := env.budget.SetCategoryPercentages(env.ctx, nil, SetCategoryPercentagesInput{
		ProjectID: s.project.ID, Base: rate(10),
	})
	require.NoError(t, err)
	assert.Equal(t, 100000.0, pct.TargetTotal)
	assert.Empty(t, pct.Warning)

	_, alloc, err := env.budget.SetAllocation(env.ctx, nil, SetAllocationInput{
		ProjectID: s.project.ID, MissionID: s.mission.ID, CompanyID: s.archi.ID, PersonID: s.architect.ID, Days: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "base", alloc.Category)

	_, _, err = env.budget.SetAllocation(env.ctx, nil, SetAllocationInput{
		ProjectID: s.project.ID, MissionID: s.mission.ID, CompanyID: s.bet.ID, PersonID: s.engineer.ID, Days: 3,
	})
	require.NoError(t, err)

	_, summary, err := env.budget.BudgetSummary(env.ctx, nil, BudgetSummaryInput{ProjectID: s.project.ID})
	require.NoError(t, err)
	assert.Equal(t, 5800.0, summary.Total) // 5×800 + 3×600
	assert.Empty(t, summary.Report)

	_, _, err = env.budget.SetPriceConstraint(env.ctx, nil, SetPriceConstraintInput{
		ProjectID: s.project.ID, MissionID: s.mission.ID, CompanyID: s.bet.ID, ImposedAmount: 2500,
	})
	require.NoError(t, err)

	_, summary, err = env.budget.BudgetSummary(env.ctx, nil, BudgetSummaryInput{ProjectID: s.project.ID, Markdown: true})
	require.NoError(t, err)
	assert.Equal(t, 6500.0, summary.Total)
	base := summary.Categories[0]
	assert.Equal(t, "base", base.Category)
	require.Len(t, base.Missions, 1)
	assert.Equal(t, 5800.0, base.Missions[0].Computed)
	assert.True(t, base.Missions[0].Constrained)
	assert.Contains(t, summary.Report, "Esquisse")

	_, removed, err := env.budget.RemovePriceConstraint(env.ctx, nil, RemovePriceConstraintInput{
		ProjectID: s.project.ID, MissionID: s.mission.ID, CompanyID: s.bet.ID,
	})
	require.NoError(t, err)
	assert.True(t, removed.Deleted)

	_, summary, err = env.budget.BudgetSummary(env.ctx, nil, BudgetSummaryInput{ProjectID: s.project.ID})
	require.NoError(t, err)
	assert.Equal(t, 5800.0, summary.Total)
}

func TestSetAllocationRejectsForeignPerson(t *testing.T) {
	env := newTestEnv(t)
	s := env.seed(t)

	_, _, err := env.budget.SetAllocation(env.ctx, nil, SetAllocationInput{
		ProjectID: s.project.ID, MissionID: s.mission.ID, CompanyID: s.archi.ID, PersonID: s.engineer.ID, Days: 1,
	})
	assert.Error(t, err)

	_, _, err = env.budget.SetAllocation(env.ctx, nil, SetAllocationInput{
		ProjectID: s.project.ID, MissionID: s.mission.ID, CompanyID: s.archi.ID, PersonID: s.architect.ID, Days: -1,
	})
	assert.Error(t, err)
}

func TestCategoryPercentagesWarning(t *testing.T) {
	env := newTestEnv(t)
	s := env.seed(t)

	_, out, err := env.budget.SetCategoryPercentages(env.ctx, nil, SetCategoryPercentagesInput{
		ProjectID: s.project.ID, Base: rate(70), Variantes: rate(40),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Warning)
	assert.Equal(t, 70.0, out.Percentages["base"])

	_, _, err = env.budget.SetCategoryPercentages(env.ctx, nil, SetCategoryPercentagesInput{
		ProjectID: s.project.ID, PSE: rate(120),
	})
	assert.Error(t, err)
}

func TestExportImportRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	s := env.seed(t)

	_, exported, err := env.archive.ExportProject(env.ctx, nil, ProjectIDInput{ProjectID: s.project.ID})
	require.NoError(t, err)
	assert.Equal(t, "gs-2025.memoire.zip", exported.Filename)
	assert.Greater(t, exported.Size, 0)

	other := newTestEnv(t)
	_, imported, err := other.archive.ImportProject(other.ctx, nil, ImportProjectInput{Archive: exported.Archive})
	require.NoError(t, err)
	assert.Equal(t, s.project.ID, imported.ID)

	_, detail, err := other.projects.GetProject(other.ctx, nil, ProjectIDInput{ProjectID: s.project.ID})
	require.NoError(t, err)
	assert.Len(t, detail.Companies, 2)
	assert.Len(t, detail.Missions, 1)
}

func TestImportRejectsBadArchives(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.archive.ImportProject(env.ctx, nil, ImportProjectInput{})
	assert.Error(t, err)

	_, _, err = env.archive.ImportProject(env.ctx, nil, ImportProjectInput{Archive: "!!!"})
	assert.Error(t, err)

	_, _, err = env.archive.ImportProject(env.ctx, nil, ImportProjectInput{
		Archive: base64.StdEncoding.EncodeToString([]byte("PK but not really")),
	})
	assert.Error(t, err)
}

type scriptedCompleter struct {
	reply string
}

func (c *scriptedCompleter) Complete(ctx context.Context, system string, messages []estimator.Message) (*estimator.Completion, error) {
	return &estimator.Completion{Content: c.reply, Model: "scripted"}, nil
}

func TestEstimateDaysStoresSuggestedLedger(t *testing.T) {
	env := newTestEnv(t)
	s := env.seed(t)

	_, _, err := env.budget.SetCategoryPercentages(env.ctx, nil, SetCategoryPercentagesInput{ProjectID: s.project.ID, Base: rate(10)})
	require.NoError(t, err)
	// A manual value must survive the estimation
	_, _, err = env.budget.SetAllocation(env.ctx, nil, SetAllocationInput{
		ProjectID: s.project.ID, MissionID: s.mission.ID, CompanyID: s.archi.ID, PersonID: s.architect.ID, Days: 2,
	})
	require.NoError(t, err)

	reply := fmt.Sprintf(`{"categories": {"base": {"target_amount": 100000, "missions": [{"mission_id": "%s", "allocations": [
		{"company_id": "%s", "person_id": "%s", "days": 10},
		{"company_id": "%s", "person_id": "%s", "days": 4}
	]}]}}}`, s.mission.ID, s.archi.ID, s.architect.ID, s.bet.ID, s.engineer.ID)

	runs := db.NewEstimationRunRepository(env.database)
	est := estimator.New(&scriptedCompleter{reply: reply},
		estimator.WithRunRecorder(runs),
		estimator.WithEstimatorLogger(log.New(io.Discard, "", 0)))
	h := NewEstimateHandlers(env.repo, est, 2)

	_, out, err := h.EstimateDays(env.ctx, nil, ProjectIDInput{ProjectID: s.project.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Allocations)
	assert.Equal(t, 2*800.0+4*600.0, out.Summary.Total)

	projectID, err := parseID("project_id", s.project.ID)
	require.NoError(t, err)
	recorded, err := runs.ListRuns(env.ctx, projectID, 10)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, db.RunKindDays, recorded[0].Kind)
	assert.Equal(t, "scripted", recorded[0].Model)
}

func TestEstimatePercentagesApply(t *testing.T) {
	env := newTestEnv(t)
	s := env.seed(t)

	reply := fmt.Sprintf(`{"categories": {"base": {"percentage": 9.5, "missions": [
		{"mission_id": "%s", "category_percentage": 100, "justification": "seule mission"}
	]}}}`, s.mission.ID)
	est := estimator.New(&scriptedCompleter{reply: reply})
	h := NewEstimateHandlers(env.repo, est, 2)

	_, out, err := h.EstimatePercentages(env.ctx, nil, EstimatePercentagesInput{ProjectID: s.project.ID, Apply: true})
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, 9.5, out.Categories["base"])
	require.Len(t, out.Missions, 1)
	assert.Equal(t, "seule mission", out.Missions[0].Justification)
	assert.Empty(t, out.Warnings)

	_, detail, err := env.projects.GetProject(env.ctx, nil, ProjectIDInput{ProjectID: s.project.ID})
	require.NoError(t, err)
	assert.Equal(t, 9.5, detail.CategoryPercentages["base"])
}

func TestSummarizeCVsAndEnrichMission(t *testing.T) {
	env := newTestEnv(t)
	s := env.seed(t)

	_, withCV, err := env.consortium.AddPerson(env.ctx, nil, AddPersonInput{
		ProjectID: s.project.ID, CompanyID: s.bet.ID, Name: "Zoé", CV: "Ingénieure fluides, 10 ans.",
	})
	require.NoError(t, err)

	h := NewEstimateHandlers(env.repo, estimator.New(&scriptedCompleter{reply: "Texte généré."}), 2)

	_, cvs, err := h.SummarizeCVs(env.ctx, nil, ProjectIDInput{ProjectID: s.project.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"Zoé"}, cvs.Updated)

	_, detail, err := env.projects.GetProject(env.ctx, nil, ProjectIDInput{ProjectID: s.project.ID})
	require.NoError(t, err)
	for _, p := range detail.Companies[1].People {
		if p.ID == withCV.ID {
			assert.Equal(t, "Texte généré.", p.CVSummary)
		}
	}

	_, enriched, err := h.EnrichMission(env.ctx, nil, EnrichMissionInput{ProjectID: s.project.ID, MissionID: s.mission.ID, Apply: true})
	require.NoError(t, err)
	assert.True(t, enriched.Applied)

	_, detail, err = env.projects.GetProject(env.ctx, nil, ProjectIDInput{ProjectID: s.project.ID})
	require.NoError(t, err)
	assert.Equal(t, "Texte généré.", detail.Missions[0].Description)
}

func TestReadResources(t *testing.T) {
	env := newTestEnv(t)
	s := env.seed(t)
	h := NewResourceHandlers(env.repo)

	read := func(uri string) (*mcp.ReadResourceResult, error) {
		return h.ReadResource(env.ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}})
	}

	result, err := read("memoire://projects")
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Contains(t, result.Contents[0].Text, "Groupe scolaire")

	result, err = read("memoire://projects/" + s.project.ID)
	require.NoError(t, err)
	assert.Contains(t, result.Contents[0].Text, "Atelier Loire")

	_, err = read("memoire://projects/" + s.project.ID + "/budget")
	assert.Error(t, err, "no category percentages yet")

	_, _, err = env.budget.SetCategoryPercentages(env.ctx, nil, SetCategoryPercentagesInput{ProjectID: s.project.ID, Base: rate(10)})
	require.NoError(t, err)
	result, err = read("memoire://projects/" + s.project.ID + "/budget")
	require.NoError(t, err)
	assert.Equal(t, "text/markdown", result.Contents[0].MIMEType)

	_, err = read("files://projects")
	assert.Error(t, err)
	_, err = read("memoire://companies")
	assert.Error(t, err)
}

func TestGetPrompt(t *testing.T) {
	env := newTestEnv(t)
	s := env.seed(t)
	h := NewPromptHandlers(env.repo)

	get := func(name string, args map[string]string) (*mcp.GetPromptResult, error) {
		return h.GetPrompt(env.ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: name, Arguments: args}})
	}

	result, err := get("team-presentation", map[string]string{"project_id": s.project.ID})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	text := result.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "Atelier Loire (mandataire)")
	assert.Contains(t, text, "- Anne, Architecte")

	_, err = get("fee-justification", map[string]string{"project_id": s.project.ID})
	assert.Error(t, err, "budget needs category percentages")

	_, err = get("unknown", map[string]string{"project_id": s.project.ID})
	assert.Error(t, err)

	_, err = get("team-presentation", map[string]string{})
	assert.Error(t, err)
}
