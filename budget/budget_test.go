// ABOUTME: Tests for budget cost functions, merging, percentage checks and summaries
package budget

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/memoire/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rate(v float64) *float64 {
	return &v
}

type fixture struct {
	mission models.Mission
	company models.ParticipatingCompany
	p1, p2  models.MobilizedPerson
	est     models.ProjectEstimation
}

// newFixture builds company C with P1 at 800/day and P2 at 600/day,
// allocated 5 and 3 days on mission M.
func newFixture() fixture {
	f := fixture{
		mission: models.Mission{ID: uuid.New(), Name: "DET", Category: models.CategoryBase},
		p1:      models.MobilizedPerson{ID: uuid.New(), Name: "P1", DailyRate: rate(800)},
		p2:      models.MobilizedPerson{ID: uuid.New(), Name: "P2", DailyRate: rate(600)},
	}
	f.company = models.ParticipatingCompany{
		ID:     uuid.New(),
		Name:   "C",
		People: []models.MobilizedPerson{f.p1, f.p2},
	}
	f.est = models.ProjectEstimation{}
	f.est.SetAllocation(models.CategoryBase, f.mission.ID, f.company.ID, f.p1.ID, models.PersonAllocation{DaysAllocated: 5, Justification: "suivi"})
	f.est.SetAllocation(models.CategoryBase, f.mission.ID, f.company.ID, f.p2.ID, models.PersonAllocation{DaysAllocated: 3})
	return f
}

func TestMissionTotalScenario(t *testing.T) {
	f := newFixture()
	lookup := LookupFromEstimation(f.est)
	companies := []models.ParticipatingCompany{f.company}

	assert.Equal(t, 5800.0, MissionTotal(f.mission.ID, companies, lookup))

	constraint := models.MissionPriceConstraint{MissionID: f.mission.ID, CompanyID: f.company.ID, ImposedAmount: 4000}
	assert.Equal(t, 4000.0, MissionTotalWithConstraints(f.mission.ID, companies, lookup, []models.MissionPriceConstraint{constraint}))
	assert.Equal(t, 5800.0, MissionTotalWithConstraints(f.mission.ID, companies, lookup, nil))
}

func TestPersonCostZeroDefault(t *testing.T) {
	f := newFixture()
	lookup := LookupFromEstimation(f.est)

	other := models.MobilizedPerson{ID: uuid.New(), DailyRate: rate(900)}
	assert.Equal(t, 0.0, PersonCost(f.mission.ID, &f.company, &other, lookup))
	assert.Equal(t, 0.0, PersonCost(uuid.New(), &f.company, &f.p1, lookup))
	assert.Equal(t, 0.0, PersonCost(f.mission.ID, &f.company, &f.p1, nil))

	noRate := models.MobilizedPerson{ID: f.p1.ID}
	assert.Equal(t, 0.0, PersonCost(f.mission.ID, &f.company, &noRate, lookup))

	assert.Equal(t, "suivi", JustificationFromEstimation(f.est)(f.mission.ID, f.company.ID, f.p1.ID))
	assert.Equal(t, "", JustificationFromEstimation(f.est)(f.mission.ID, f.company.ID, uuid.New()))
}

func TestCostMonotonicity(t *testing.T) {
	f := newFixture()
	companies := []models.ParticipatingCompany{f.company}

	prevPerson, prevMission, prevConstrained := -1.0, -1.0, -1.0
	for days := 0.0; days <= 10; days += 2.5 {
		est := f.est.Clone()
		est.SetAllocation(models.CategoryBase, f.mission.ID, f.company.ID, f.p1.ID, models.PersonAllocation{DaysAllocated: days})
		lookup := LookupFromEstimation(est)

		person := PersonCost(f.mission.ID, &f.company, &f.p1, lookup)
		mission := MissionTotal(f.mission.ID, companies, lookup)
		constrained := MissionTotalWithConstraints(f.mission.ID, companies, lookup, nil)

		assert.Greater(t, person, prevPerson)
		assert.Greater(t, mission, prevMission)
		assert.Greater(t, constrained, prevConstrained)
		prevPerson, prevMission, prevConstrained = person, mission, constrained
	}
}

func TestConstraintOverrideIgnoresDays(t *testing.T) {
	f := newFixture()
	constraints := []models.MissionPriceConstraint{{MissionID: f.mission.ID, CompanyID: f.company.ID, ImposedAmount: 1234}}

	for _, days := range []float64{0, 1, 50, 400} {
		est := f.est.Clone()
		est.SetAllocation(models.CategoryBase, f.mission.ID, f.company.ID, f.p2.ID, models.PersonAllocation{DaysAllocated: days})
		lookup := LookupFromEstimation(est)

		assert.Equal(t, 1234.0, EffectiveCompanySubtotal(f.mission.ID, &f.company, lookup, constraints))
	}
}

func TestConstraintOnlyAppliesToItsCompany(t *testing.T) {
	f := newFixture()
	other := models.ParticipatingCompany{
		ID:     uuid.New(),
		Name:   "D",
		People: []models.MobilizedPerson{{ID: uuid.New(), DailyRate: rate(500)}},
	}
	f.est.SetAllocation(models.CategoryBase, f.mission.ID, other.ID, other.People[0].ID, models.PersonAllocation{DaysAllocated: 2})
	lookup := LookupFromEstimation(f.est)

	constraints := []models.MissionPriceConstraint{{MissionID: f.mission.ID, CompanyID: f.company.ID, ImposedAmount: 4000}}
	total := MissionTotalWithConstraints(f.mission.ID, []models.ParticipatingCompany{f.company, other}, lookup, constraints)
	assert.Equal(t, 4000.0+1000.0, total)
}

func TestTargetAmounts(t *testing.T) {
	assert.Equal(t, 96000.0, CategoryTargetAmount(1200000, 8))
	assert.Equal(t, 0.0, CategoryTargetAmount(0, 8))

	pct := models.CategoryPercentages{
		models.CategoryBase:                    60,
		models.CategoryPSE:                     30,
		models.CategoryTranchesConditionnelles: 20,
		models.CategoryVariantes:               10,
	}
	// Not clamped above 100%
	assert.Equal(t, 1200.0, TotalTargetAmount(1000, pct))
}

func TestConstraintUpsertAndRemove(t *testing.T) {
	m, c := uuid.New(), uuid.New()
	original := []models.MissionPriceConstraint{
		{MissionID: m, CompanyID: c, ImposedAmount: 100},
		{MissionID: uuid.New(), CompanyID: c, ImposedAmount: 50},
	}

	updated := UpsertConstraint(original, models.MissionPriceConstraint{MissionID: m, CompanyID: c, ImposedAmount: 300, Justification: "forfait"})
	require.Len(t, updated, 2)
	found := FindConstraint(updated, m, c)
	require.NotNil(t, found)
	assert.Equal(t, 300.0, found.ImposedAmount)
	assert.Equal(t, 100.0, original[0].ImposedAmount, "input list must not change")

	removed := RemoveConstraint(updated, m, c)
	assert.Len(t, removed, 1)
	assert.Nil(t, FindConstraint(removed, m, c))
}

func TestMergeManualWins(t *testing.T) {
	m, c, p1, p2 := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	manual := models.ProjectEstimation{}
	manual.SetAllocation(models.CategoryBase, m, c, p1, models.PersonAllocation{DaysAllocated: 10, Justification: "saisie"})

	ai := models.ProjectEstimation{}
	ai.SetAllocation(models.CategoryBase, m, c, p1, models.PersonAllocation{DaysAllocated: 4, Justification: "ia"})
	ai.SetAllocation(models.CategoryBase, m, c, p2, models.PersonAllocation{DaysAllocated: 6, Justification: "ia"})
	aiBase := ai[models.CategoryBase]
	aiBase.TargetAmount = 5000
	ai[models.CategoryBase] = aiBase

	merged := Merge(manual, ai)

	alloc, ok := merged.Allocation(m, c, p1)
	require.True(t, ok)
	assert.Equal(t, 10.0, alloc.DaysAllocated)
	assert.Equal(t, "saisie", alloc.Justification)

	alloc, ok = merged.Allocation(m, c, p2)
	require.True(t, ok)
	assert.Equal(t, 6.0, alloc.DaysAllocated)
	assert.Equal(t, 5000.0, merged[models.CategoryBase].TargetAmount)

	// Inputs are untouched
	alloc, _ = ai.Allocation(m, c, p1)
	assert.Equal(t, 4.0, alloc.DaysAllocated)
	_, ok = manual.Allocation(m, c, p2)
	assert.False(t, ok)
}

func TestMergeNilInputs(t *testing.T) {
	assert.NotNil(t, Merge(nil, nil))

	m, c, p := uuid.New(), uuid.New(), uuid.New()
	manual := models.ProjectEstimation{}
	manual.SetAllocation(models.CategoryPSE, m, c, p, models.PersonAllocation{DaysAllocated: 2})

	merged := Merge(manual, nil)
	alloc, ok := merged.Allocation(m, c, p)
	require.True(t, ok)
	assert.Equal(t, 2.0, alloc.DaysAllocated)
}

func TestCheckMissionPercentages(t *testing.T) {
	mp := models.RecommendedMissionPercentages{
		models.CategoryBase:      {uuid.New(): 60, uuid.New(): 43}, // 103, within tolerance
		models.CategoryPSE:       {uuid.New(): 50, uuid.New(): 30}, // 80, outside
		models.CategoryVariantes: {},
	}

	warnings := CheckMissionPercentages(mp)
	require.Len(t, warnings, 1)
	assert.Equal(t, models.CategoryPSE, warnings[0].Category)
	assert.Equal(t, 80.0, warnings[0].Sum)
}

func TestValidatePercentageEstimationLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	mp := models.RecommendedMissionPercentages{
		models.CategoryTranchesConditionnelles: {uuid.New(): 120},
	}
	warnings := ValidatePercentageEstimation(mp, logger)
	require.Len(t, warnings, 1)
	assert.Contains(t, buf.String(), "tranchesConditionnelles")
	assert.Contains(t, buf.String(), "120.0%")
}

func TestCategoryPercentagesWarning(t *testing.T) {
	_, warn := CategoryPercentagesWarning(models.CategoryPercentages{models.CategoryBase: 8, models.CategoryPSE: 2})
	assert.False(t, warn)

	msg, warn := CategoryPercentagesWarning(models.CategoryPercentages{models.CategoryBase: 80, models.CategoryPSE: 30})
	assert.True(t, warn)
	assert.Contains(t, msg, "110.0%")
}

func TestNotationWeightsWarning(t *testing.T) {
	_, warn := NotationWeightsWarning(nil)
	assert.False(t, warn)

	_, warn = NotationWeightsWarning([]models.NotationCriterion{{Name: "Valeur technique", Weight: 60}, {Name: "Prix", Weight: 40}})
	assert.False(t, warn)

	msg, warn := NotationWeightsWarning([]models.NotationCriterion{{Name: "Valeur technique", Weight: 60}, {Name: "Prix", Weight: 30}})
	assert.True(t, warn)
	assert.Contains(t, msg, "90.0%")
}

func TestSummarizeRequiresProjectData(t *testing.T) {
	_, err := Summarize(nil)
	assert.True(t, errors.Is(err, ErrMissingProjectData))

	project := &models.Project{Name: "Vide"}
	_, err = Summarize(project)
	var missing *MissingProjectDataError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "works_amount", missing.Field)

	project.WorksAmount = 1000000
	_, err = Summarize(project)
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "companies", missing.Field)

	project.AddCompany(models.ParticipatingCompany{Name: "A"})
	_, err = Summarize(project)
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "category_percentages", missing.Field)
}

func TestSummarize(t *testing.T) {
	f := newFixture()
	pse := models.Mission{ID: uuid.New(), Name: "OPC", Category: models.CategoryPSE}

	project := &models.Project{
		ID:          uuid.New(),
		Name:        "Groupe scolaire",
		WorksAmount: 1000000,
		Missions:    []models.Mission{f.mission, pse},
		Companies:   []models.ParticipatingCompany{f.company},
		Estimation:  f.est,
		CategoryPercentages: models.CategoryPercentages{
			models.CategoryBase: 8,
			models.CategoryPSE:  1,
		},
		PriceConstraints: []models.MissionPriceConstraint{
			{MissionID: pse.ID, CompanyID: f.company.ID, ImposedAmount: 2500},
		},
	}
	project.AIEstimation = models.ProjectEstimation{}
	project.AIEstimation.SetAllocation(models.CategoryPSE, pse.ID, f.company.ID, f.p2.ID, models.PersonAllocation{DaysAllocated: 10})

	summary, err := Summarize(project)
	require.NoError(t, err)

	assert.Equal(t, 90000.0, summary.TargetTotal)
	assert.Equal(t, 5800.0+2500.0, summary.Total)
	require.Len(t, summary.Categories, 4)

	base := summary.Category(models.CategoryBase)
	require.NotNil(t, base)
	assert.Equal(t, 80000.0, base.TargetAmount)
	require.Len(t, base.Missions, 1)
	assert.Equal(t, 5800.0, base.Missions[0].Total)
	assert.Equal(t, 8.0, base.Missions[0].Companies[0].Days)
	assert.False(t, base.Missions[0].Constrained)

	pseSummary := summary.Category(models.CategoryPSE)
	require.Len(t, pseSummary.Missions, 1)
	line := pseSummary.Missions[0]
	assert.True(t, line.Constrained)
	assert.Equal(t, 6000.0, line.Computed, "AI days still count in the computed figure")
	assert.Equal(t, 2500.0, line.Total)

	assert.Empty(t, summary.Category(models.CategoryVariantes).Missions)
	assert.Empty(t, summary.Warnings)
}
