// ABOUTME: Decodes and validates model replies for percentage and day estimations
// ABOUTME: Rejects unknown categories, missions, companies and people before anything is stored
package estimator

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/memoire/models"
)

// Result kinds, used in errors and in the estimation run log.
const (
	KindPercentages = "percentages"
	KindDays        = "days"
)

// PercentageResult is a validated budget split suggested by the model.
type PercentageResult struct {
	Categories     models.CategoryPercentages
	Missions       models.RecommendedMissionPercentages
	Justifications map[uuid.UUID]string
}

type percentageReply struct {
	Categories map[string]struct {
		Percentage float64 `json:"percentage"`
		Missions   []struct {
			MissionID          string  `json:"mission_id"`
			CategoryPercentage float64 `json:"category_percentage"`
			Justification      string  `json:"justification"`
		} `json:"missions"`
	} `json:"categories"`
}

type daysReply struct {
	Categories map[string]struct {
		TargetAmount float64 `json:"target_amount"`
		Missions     []struct {
			MissionID   string `json:"mission_id"`
			Allocations []struct {
				CompanyID     string  `json:"company_id"`
				PersonID      string  `json:"person_id"`
				Days          float64 `json:"days"`
				Justification string  `json:"justification"`
			} `json:"allocations"`
		} `json:"missions"`
	} `json:"categories"`
}

// ParsePercentageResult validates a percentage reply against the project.
func ParsePercentageResult(content string, project *models.Project) (*PercentageResult, error) {
	var reply percentageReply
	if err := decodeStrict(KindPercentages, content, &reply); err != nil {
		return nil, err
	}
	if len(reply.Categories) == 0 {
		return nil, malformed(KindPercentages, "no categories")
	}

	result := &PercentageResult{
		Categories:     models.CategoryPercentages{},
		Missions:       models.RecommendedMissionPercentages{},
		Justifications: map[uuid.UUID]string{},
	}

	for name, cat := range reply.Categories {
		category, err := models.ParseCategory(name)
		if err != nil {
			return nil, malformed(KindPercentages, "%v", err)
		}
		if cat.Percentage < 0 || cat.Percentage > 100 {
			return nil, malformed(KindPercentages, "category %s percentage %.2f out of range", name, cat.Percentage)
		}
		result.Categories[category] = cat.Percentage

		if len(cat.Missions) == 0 {
			continue
		}
		missions := make(map[uuid.UUID]float64, len(cat.Missions))
		for _, m := range cat.Missions {
			mission, err := projectMission(KindPercentages, project, m.MissionID, category)
			if err != nil {
				return nil, err
			}
			if m.CategoryPercentage < 0 {
				return nil, malformed(KindPercentages, "mission %s has negative percentage", m.MissionID)
			}
			missions[mission.ID] = m.CategoryPercentage
			if m.Justification != "" {
				result.Justifications[mission.ID] = m.Justification
			}
		}
		result.Missions[category] = missions
	}

	return result, nil
}

// ParseDaysResult validates a day-allocation reply against the project and
// returns it as a ledger.
func ParseDaysResult(content string, project *models.Project) (models.ProjectEstimation, error) {
	var reply daysReply
	if err := decodeStrict(KindDays, content, &reply); err != nil {
		return nil, err
	}
	if len(reply.Categories) == 0 {
		return nil, malformed(KindDays, "no categories")
	}

	est := models.ProjectEstimation{}
	for name, cat := range reply.Categories {
		category, err := models.ParseCategory(name)
		if err != nil {
			return nil, malformed(KindDays, "%v", err)
		}
		if cat.TargetAmount < 0 {
			return nil, malformed(KindDays, "category %s has negative target amount", name)
		}
		ce := est[category]
		ce.TargetAmount = cat.TargetAmount
		est[category] = ce

		for _, m := range cat.Missions {
			mission, err := projectMission(KindDays, project, m.MissionID, category)
			if err != nil {
				return nil, err
			}
			for _, a := range m.Allocations {
				companyID, err := uuid.Parse(a.CompanyID)
				if err != nil {
					return nil, malformed(KindDays, "invalid company_id %q", a.CompanyID)
				}
				company := project.Company(companyID)
				if company == nil {
					return nil, malformed(KindDays, "unknown company %s", companyID)
				}
				personID, err := uuid.Parse(a.PersonID)
				if err != nil {
					return nil, malformed(KindDays, "invalid person_id %q", a.PersonID)
				}
				if company.Person(personID) == nil {
					return nil, malformed(KindDays, "person %s is not part of company %s", personID, company.Name)
				}
				if a.Days < 0 {
					return nil, malformed(KindDays, "negative days for person %s", personID)
				}
				est.SetAllocation(category, mission.ID, companyID, personID, models.PersonAllocation{
					DaysAllocated: a.Days,
					Justification: strings.TrimSpace(a.Justification),
				})
			}
		}
	}

	return est, nil
}

func decodeStrict(kind, content string, v interface{}) error {
	raw := ExtractJSON(content)
	if raw == "" {
		return malformed(kind, "no JSON object in reply")
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return malformed(kind, "%v", err)
	}
	return nil
}

func projectMission(kind string, project *models.Project, id string, category models.Category) (*models.Mission, error) {
	missionID, err := uuid.Parse(id)
	if err != nil {
		return nil, malformed(kind, "invalid mission_id %q", id)
	}
	mission := project.Mission(missionID)
	if mission == nil {
		return nil, malformed(kind, "unknown mission %s", missionID)
	}
	if mission.Category != category {
		return nil, malformed(kind, "mission %s belongs to %s, not %s", mission.Name, mission.Category, category)
	}
	return mission, nil
}
