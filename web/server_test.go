// ABOUTME: Tests for the read-only web UI
// ABOUTME: Exercises the routes against a temporary database through httptest
package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/models"
)

func setupServer(t *testing.T) (*Server, *db.ProjectRepository) {
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	server, err := NewServer(database)
	require.NoError(t, err)
	return server, db.NewProjectRepository(database)
}

func seedProject(t *testing.T, repo *db.ProjectRepository) *models.Project {
	rate := 800.0
	mission := models.Mission{ID: uuid.New(), Name: "Esquisse", Sigle: "ESQ", Category: models.CategoryBase}
	anne := models.MobilizedPerson{ID: uuid.New(), Name: "Anne Morel", Role: "Architecte", DailyRate: &rate}
	atelier := models.ParticipatingCompany{ID: uuid.New(), Name: "Atelier Loire", People: []models.MobilizedPerson{anne}, RepresentativeID: &anne.ID}

	project := &models.Project{
		Name:                "Groupe scolaire",
		Reference:           "GS-2025",
		WorksAmount:         1000000,
		Missions:            []models.Mission{mission},
		Companies:           []models.ParticipatingCompany{atelier},
		MandataireID:        &atelier.ID,
		CategoryPercentages: models.CategoryPercentages{models.CategoryBase: 10},
		Estimation:          models.ProjectEstimation{},
	}
	project.Estimation.SetAllocation(models.CategoryBase, mission.ID, atelier.ID, anne.ID, models.PersonAllocation{DaysAllocated: 5})
	require.NoError(t, repo.Create(context.Background(), project))
	return project
}

func get(t *testing.T, server *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestProjectsPage(t *testing.T) {
	server, repo := setupServer(t)
	project := seedProject(t, repo)

	rec := get(t, server, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Groupe scolaire")
	assert.Contains(t, rec.Body.String(), "/projects/"+project.ID.String())

	rec = get(t, server, "/?q=hopital")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Aucun projet.")
}

func TestProjectPage(t *testing.T) {
	server, repo := setupServer(t)
	project := seedProject(t, repo)

	rec := get(t, server, "/projects/"+project.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Atelier Loire (Mandataire)")
	assert.Contains(t, body, "Représentant")
	assert.Contains(t, body, "ESQ - Esquisse")
	assert.Contains(t, body, "Total projet: 4 000,00 €")
	assert.Contains(t, body, "cible 100 000,00 €")
}

func TestProjectPageNotationCriteria(t *testing.T) {
	server, repo := setupServer(t)
	project := seedProject(t, repo)

	rec := get(t, server, "/projects/"+project.ID.String())
	assert.NotContains(t, rec.Body.String(), "Critères de notation")

	project.NotationCriteria = []models.NotationCriterion{{Name: "Valeur technique", Weight: 70}, {Name: "Prix", Weight: 20}}
	require.NoError(t, repo.Save(context.Background(), project))

	rec = get(t, server, "/projects/"+project.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Critères de notation")
	assert.Contains(t, body, "Valeur technique")
	assert.Contains(t, body, "70 %")
	assert.Contains(t, body, "notation criteria weights sum to 90.0%")
}

func TestProjectPageWithoutBudget(t *testing.T) {
	server, repo := setupServer(t)
	project := &models.Project{Name: "Piscine"}
	require.NoError(t, repo.Create(context.Background(), project))

	rec := get(t, server, "/projects/"+project.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Budget indisponible")

	rec = get(t, server, "/projects/"+project.ID.String()+"/report.md")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProjectNotFound(t *testing.T) {
	server, _ := setupServer(t)

	rec := get(t, server, "/projects/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, server, "/projects/"+uuid.New().String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportMarkdown(t *testing.T) {
	server, repo := setupServer(t)
	project := seedProject(t, repo)

	rec := get(t, server, "/projects/"+project.ID.String()+"/report.md")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "# Groupe scolaire")
}

func TestGraphSVG(t *testing.T) {
	server, repo := setupServer(t)
	project := seedProject(t, repo)

	rec := get(t, server, "/projects/"+project.ID.String()+"/graph.svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")
	assert.Contains(t, rec.Body.String(), "Atelier Loire")
}
