// ABOUTME: Tests for the project and estimation run repositories
// ABOUTME: Uses in-memory SQLite for fast isolated tests
package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/memoire/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	require.NoError(t, InitSchema(database))
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func sampleProject() *models.Project {
	rate := 750.0
	project := &models.Project{
		Name:        "Réhabilitation du gymnase",
		Reference:   "2024-GYM-01",
		Buyer:       "Ville de Lyon",
		WorksAmount: 2500000,
		CategoryPercentages: models.CategoryPercentages{
			models.CategoryBase: 9,
		},
	}
	m := project.AddMission(models.Mission{Name: "Avant-projet", Sigle: "AVP", Category: models.CategoryBase})
	c := project.AddCompany(models.ParticipatingCompany{Name: "Atelier Rhône"})
	p := project.Company(c.ID).AddPerson(models.MobilizedPerson{Name: "Inès", DailyRate: &rate})
	project.Estimation = models.ProjectEstimation{}
	project.Estimation.SetAllocation(models.CategoryBase, m.ID, c.ID, p.ID, models.PersonAllocation{DaysAllocated: 7})
	return project
}

func TestProjectCreateAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(setupTestDB(t))

	project := sampleProject()
	require.NoError(t, repo.Create(ctx, project))
	assert.NotEqual(t, uuid.Nil, project.ID)
	assert.False(t, project.CreatedAt.IsZero())

	loaded, err := repo.Load(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.Name, loaded.Name)
	assert.Equal(t, project.Reference, loaded.Reference)
	require.Len(t, loaded.Missions, 1)
	require.Len(t, loaded.Companies, 1)
	require.NotNil(t, loaded.Mandataire())

	c := loaded.Companies[0]
	alloc, ok := loaded.Estimation.Allocation(loaded.Missions[0].ID, c.ID, c.People[0].ID)
	require.True(t, ok)
	assert.Equal(t, 7.0, alloc.DaysAllocated)
}

func TestProjectCreateRequiresName(t *testing.T) {
	repo := NewProjectRepository(setupTestDB(t))
	assert.ErrorIs(t, repo.Create(context.Background(), &models.Project{}), ErrInvalidProject)
	assert.ErrorIs(t, repo.Create(context.Background(), nil), ErrInvalidProject)
}

func TestProjectLoadNotFound(t *testing.T) {
	repo := NewProjectRepository(setupTestDB(t))
	_, err := repo.Load(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestProjectSaveUpsertsAndUpdates(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(setupTestDB(t))

	// Save inserts when the ID is new (import path)
	project := sampleProject()
	project.ID = uuid.New()
	require.NoError(t, repo.Save(ctx, project))

	project.WorksAmount = 3000000
	project.AddMission(models.Mission{Name: "OPC", Category: models.CategoryPSE})
	require.NoError(t, repo.Save(ctx, project))

	loaded, err := repo.Load(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 3000000.0, loaded.WorksAmount)
	assert.Len(t, loaded.Missions, 2)

	list, err := repo.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3000000.0, list[0].WorksAmount)
}

func TestProjectUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(setupTestDB(t))

	project := sampleProject()
	require.NoError(t, repo.Create(ctx, project))

	updated, err := repo.Update(ctx, project.ID, func(p *models.Project) error {
		p.Buyer = "Métropole de Lyon"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Métropole de Lyon", updated.Buyer)

	_, err = repo.Update(ctx, uuid.New(), func(p *models.Project) error { return nil })
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestProjectUpdateSerializesConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	database, err := OpenDatabase(filepath.Join(t.TempDir(), "memoire.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	repo := NewProjectRepository(database)

	project := sampleProject()
	project.WorksAmount = 1000
	require.NoError(t, repo.Create(ctx, project))

	const writers = 16
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			_, err := repo.Update(ctx, project.ID, func(p *models.Project) error {
				p.WorksAmount++
				return nil
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	loaded, err := repo.Load(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0+writers, loaded.WorksAmount)
}

func TestProjectUpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(setupTestDB(t))

	project := sampleProject()
	require.NoError(t, repo.Create(ctx, project))

	_, err := repo.Update(ctx, project.ID, func(p *models.Project) error {
		p.Buyer = "jamais enregistré"
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	loaded, err := repo.Load(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ville de Lyon", loaded.Buyer)
}

func TestProjectListAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(setupTestDB(t))

	require.NoError(t, repo.Create(ctx, &models.Project{Name: "Collège Jean Moulin", Reference: "CJM-22"}))
	require.NoError(t, repo.Create(ctx, &models.Project{Name: "Piscine municipale"}))

	all, err := repo.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byRef, err := repo.List(ctx, "cjm", 10)
	require.NoError(t, err)
	require.Len(t, byRef, 1)
	assert.Equal(t, "Collège Jean Moulin", byRef[0].Name)

	found, err := repo.FindByName(ctx, "piscine municipale")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Piscine municipale", found.Name)

	missing, err := repo.FindByName(ctx, "Stade")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProjectDeleteRemovesRuns(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	repo := NewProjectRepository(database)
	runs := NewEstimationRunRepository(database)

	project := sampleProject()
	require.NoError(t, repo.Create(ctx, project))
	require.NoError(t, runs.Record(ctx, &EstimationRun{ProjectID: project.ID, Kind: RunKindDays, Model: "claude"}))

	require.NoError(t, repo.Delete(ctx, project.ID))
	_, err := repo.Load(ctx, project.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)

	remaining, err := runs.ListRuns(ctx, project.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	assert.ErrorIs(t, repo.Delete(ctx, project.ID), ErrProjectNotFound)
}

func TestEstimationRunRecordAndList(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	repo := NewProjectRepository(database)
	runs := NewEstimationRunRepository(database)

	project := sampleProject()
	require.NoError(t, repo.Create(ctx, project))

	require.NoError(t, runs.Record(ctx, &EstimationRun{
		ProjectID:    project.ID,
		Kind:         RunKindPercentages,
		Model:        "claude-sonnet",
		RawResponse:  `{"categories":{}}`,
		InputTokens:  120,
		OutputTokens: 40,
	}))
	require.NoError(t, runs.Record(ctx, &EstimationRun{
		ProjectID:    project.ID,
		Kind:         RunKindDays,
		Status:       RunStatusError,
		ErrorMessage: "malformed result",
	}))

	list, err := runs.ListRuns(ctx, project.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)

	kinds := map[string]EstimationRun{}
	for _, r := range list {
		kinds[r.Kind] = r
	}
	assert.Equal(t, RunStatusOK, kinds[RunKindPercentages].Status)
	assert.Equal(t, 120, kinds[RunKindPercentages].InputTokens)
	assert.Equal(t, "malformed result", kinds[RunKindDays].ErrorMessage)
}
