// ABOUTME: Merges manual and model-suggested allocation ledgers and manages price constraints
// ABOUTME: Manual values always win over suggested ones
package budget

import (
	"github.com/google/uuid"
	"github.com/harperreed/memoire/models"
)

// FindConstraint returns the constraint for (mission, company), or nil.
func FindConstraint(constraints []models.MissionPriceConstraint, missionID, companyID uuid.UUID) *models.MissionPriceConstraint {
	for i := range constraints {
		if constraints[i].MissionID == missionID && constraints[i].CompanyID == companyID {
			return &constraints[i]
		}
	}
	return nil
}

// UpsertConstraint returns a new list with any constraint on the same
// (mission, company) pair replaced by c.
func UpsertConstraint(constraints []models.MissionPriceConstraint, c models.MissionPriceConstraint) []models.MissionPriceConstraint {
	out := RemoveConstraint(constraints, c.MissionID, c.CompanyID)
	return append(out, c)
}

// RemoveConstraint returns a new list without the (mission, company) constraint.
func RemoveConstraint(constraints []models.MissionPriceConstraint, missionID, companyID uuid.UUID) []models.MissionPriceConstraint {
	out := make([]models.MissionPriceConstraint, 0, len(constraints)+1)
	for _, existing := range constraints {
		if existing.MissionID == missionID && existing.CompanyID == companyID {
			continue
		}
		out = append(out, existing)
	}
	return out
}

// Merge combines a manual ledger with an AI-suggested one into a new ledger.
// Manual allocations win for each (mission, company, person); AI values fill
// the gaps. A non-zero manual target amount wins over the AI one.
func Merge(manual, ai models.ProjectEstimation) models.ProjectEstimation {
	out := ai.Clone()
	if out == nil {
		out = models.ProjectEstimation{}
	}

	for cat, ce := range manual {
		merged := out[cat]
		if ce.TargetAmount != 0 {
			merged.TargetAmount = ce.TargetAmount
		}
		out[cat] = merged

		for missionID, mission := range ce.Missions {
			for companyID, company := range mission {
				for personID, alloc := range company {
					out.SetAllocation(cat, missionID, companyID, personID, alloc)
				}
			}
		}
	}

	return out
}

// EffectiveEstimation merges the project's manual and AI ledgers.
func EffectiveEstimation(project *models.Project) models.ProjectEstimation {
	return Merge(project.Estimation, project.AIEstimation)
}
