// ABOUTME: Project export and import on top of the single-entry archive
// ABOUTME: The archive holds project.json, the indented JSON of the whole aggregate
package archive

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/models"
)

// ProjectEntryName is the name of the single entry in a project export.
const ProjectEntryName = "project.json"

// ExportProject serializes a project into an archive.
func ExportProject(project *models.Project) ([]byte, error) {
	data, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode project: %w", err)
	}
	return Build(ProjectEntryName, data)
}

// ImportProject reads a project back from an archive built by ExportProject.
// The entry name is not checked so renamed entries still import.
func ImportProject(data []byte) (*models.Project, error) {
	content, err := ReadFirstEntry(data)
	if err != nil {
		return nil, err
	}

	var project models.Project
	if err := json.Unmarshal(content, &project); err != nil {
		return nil, fmt.Errorf("failed to decode project: %w", err)
	}
	if project.ID == uuid.Nil {
		return nil, fmt.Errorf("imported project has no id")
	}
	if strings.TrimSpace(project.Name) == "" {
		return nil, fmt.Errorf("imported project has no name")
	}

	if err := validateImported(&project); err != nil {
		return nil, err
	}

	// References may be stale if the file was edited by hand.
	project.MandataireID = models.ValidateReference(project.MandataireID, project.CompanyIDs())
	for i := range project.Companies {
		c := &project.Companies[i]
		c.RepresentativeID = models.ValidateReference(c.RepresentativeID, c.PersonIDs())
	}
	project.Estimation = pruneLedger(&project, project.Estimation)
	project.AIEstimation = pruneLedger(&project, project.AIEstimation)

	var constraints []models.MissionPriceConstraint
	for _, c := range project.PriceConstraints {
		constraints = budget.UpsertConstraint(constraints, c)
	}
	project.PriceConstraints = constraints

	return &project, nil
}

// validateImported rejects values the editors would never have produced.
func validateImported(project *models.Project) error {
	if project.WorksAmount < 0 {
		return fmt.Errorf("imported project has a negative works amount")
	}
	for _, m := range project.Missions {
		if _, err := models.ParseCategory(string(m.Category)); err != nil {
			return fmt.Errorf("mission %s: %w", m.ID, err)
		}
	}
	for _, c := range project.Companies {
		for _, p := range c.People {
			if p.DailyRate != nil && *p.DailyRate < 0 {
				return fmt.Errorf("person %s has a negative daily rate", p.ID)
			}
		}
	}
	for _, c := range project.PriceConstraints {
		if c.ImposedAmount < 0 {
			return fmt.Errorf("price constraint on mission %s has a negative amount", c.MissionID)
		}
	}
	for _, ledger := range []models.ProjectEstimation{project.Estimation, project.AIEstimation} {
		for cat, ce := range ledger {
			for missionID, companies := range ce.Missions {
				for _, people := range companies {
					for _, alloc := range people {
						if alloc.DaysAllocated < 0 {
							return fmt.Errorf("negative days on mission %s in %s", missionID, cat)
						}
					}
				}
			}
		}
	}
	if err := models.ValidateNotationCriteria(project.NotationCriteria); err != nil {
		return err
	}
	return nil
}

// pruneLedger keeps only entries filed under a known category whose mission
// belongs to that category and whose company and person still exist.
func pruneLedger(project *models.Project, ledger models.ProjectEstimation) models.ProjectEstimation {
	if ledger == nil {
		return nil
	}
	out := models.ProjectEstimation{}
	for _, cat := range models.Categories() {
		ce, ok := ledger[cat]
		if !ok {
			continue
		}
		out[cat] = models.CategoryEstimation{TargetAmount: ce.TargetAmount}
		for missionID, companies := range ce.Missions {
			mission := project.Mission(missionID)
			if mission == nil || mission.Category != cat {
				continue
			}
			for companyID, people := range companies {
				company := project.Company(companyID)
				if company == nil {
					continue
				}
				for personID, alloc := range people {
					if company.Person(personID) == nil {
						continue
					}
					out.SetAllocation(cat, missionID, companyID, personID, alloc)
				}
			}
		}
	}
	return out
}

// ExportFilename returns a file name for a project export.
func ExportFilename(project *models.Project) string {
	name := project.Reference
	if name == "" {
		name = project.Name
	}
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = project.ID.String()
	}
	return slug + ".memoire.zip"
}
