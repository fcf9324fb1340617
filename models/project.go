// ABOUTME: Project aggregate behaviour: lookups, weak references and ledger edits
// ABOUTME: Keeps representative and mandataire references valid after every list mutation
package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidateReference returns id when it names a member of ids, nil otherwise.
func ValidateReference(id *uuid.UUID, ids []uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	for _, candidate := range ids {
		if candidate == *id {
			ref := *id
			return &ref
		}
	}
	return nil
}

// PersonIDs returns the IDs of the company's people in list order.
func (c *ParticipatingCompany) PersonIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(c.People))
	for i, p := range c.People {
		ids[i] = p.ID
	}
	return ids
}

// Person returns the person with the given ID, or nil.
func (c *ParticipatingCompany) Person(id uuid.UUID) *MobilizedPerson {
	for i := range c.People {
		if c.People[i].ID == id {
			return &c.People[i]
		}
	}
	return nil
}

// Representative returns the company representative, or nil when unset.
func (c *ParticipatingCompany) Representative() *MobilizedPerson {
	if c.RepresentativeID == nil {
		return nil
	}
	return c.Person(*c.RepresentativeID)
}

// SetPeople replaces the people list and revalidates the representative.
func (c *ParticipatingCompany) SetPeople(people []MobilizedPerson) {
	c.People = people
	c.RepresentativeID = ValidateReference(c.RepresentativeID, c.PersonIDs())
}

// AddPerson appends a person, assigning an ID when missing.
func (c *ParticipatingCompany) AddPerson(person MobilizedPerson) MobilizedPerson {
	if person.ID == uuid.Nil {
		person.ID = uuid.New()
	}
	people := append(append([]MobilizedPerson{}, c.People...), person)
	c.SetPeople(people)
	return person
}

// RemovePerson drops a person; it reports whether one was removed.
func (c *ParticipatingCompany) RemovePerson(id uuid.UUID) bool {
	people := make([]MobilizedPerson, 0, len(c.People))
	for _, p := range c.People {
		if p.ID != id {
			people = append(people, p)
		}
	}
	removed := len(people) != len(c.People)
	c.SetPeople(people)
	return removed
}

// SetRepresentative sets the representative if id is one of the company's people.
// It reports whether the reference was accepted.
func (c *ParticipatingCompany) SetRepresentative(id *uuid.UUID) bool {
	c.RepresentativeID = ValidateReference(id, c.PersonIDs())
	return (id == nil) == (c.RepresentativeID == nil)
}

// CompanyIDs returns the IDs of the participating companies.
func (p *Project) CompanyIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Companies))
	for i, c := range p.Companies {
		ids[i] = c.ID
	}
	return ids
}

// Company returns the company with the given ID, or nil.
func (p *Project) Company(id uuid.UUID) *ParticipatingCompany {
	for i := range p.Companies {
		if p.Companies[i].ID == id {
			return &p.Companies[i]
		}
	}
	return nil
}

// Mandataire returns the lead company of the consortium, or nil.
func (p *Project) Mandataire() *ParticipatingCompany {
	if p.MandataireID == nil {
		return nil
	}
	return p.Company(*p.MandataireID)
}

// AddCompany appends a company. The first company becomes mandataire by default.
func (p *Project) AddCompany(company ParticipatingCompany) ParticipatingCompany {
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	company.RepresentativeID = ValidateReference(company.RepresentativeID, company.PersonIDs())
	p.Companies = append(p.Companies, company)
	if p.MandataireID == nil {
		id := company.ID
		p.MandataireID = &id
	}
	return company
}

// RemoveCompany drops a company and revalidates the mandataire reference.
func (p *Project) RemoveCompany(id uuid.UUID) bool {
	companies := make([]ParticipatingCompany, 0, len(p.Companies))
	for _, c := range p.Companies {
		if c.ID != id {
			companies = append(companies, c)
		}
	}
	removed := len(companies) != len(p.Companies)
	p.Companies = companies
	p.MandataireID = ValidateReference(p.MandataireID, p.CompanyIDs())
	return removed
}

// Mission returns the mission with the given ID, or nil.
func (p *Project) Mission(id uuid.UUID) *Mission {
	for i := range p.Missions {
		if p.Missions[i].ID == id {
			return &p.Missions[i]
		}
	}
	return nil
}

// AddMission appends a mission to the catalog.
func (p *Project) AddMission(mission Mission) Mission {
	if mission.ID == uuid.Nil {
		mission.ID = uuid.New()
	}
	p.Missions = append(p.Missions, mission)
	return mission
}

// MissionsIn returns the missions of one category in catalog order.
func (p *Project) MissionsIn(category Category) []Mission {
	var missions []Mission
	for _, m := range p.Missions {
		if m.Category == category {
			missions = append(missions, m)
		}
	}
	return missions
}

// Allocation finds the allocation for a (mission, company, person) triple.
// Categories are searched in Categories() order so a triple stored under two
// categories always resolves to the same entry.
func (e ProjectEstimation) Allocation(missionID, companyID, personID uuid.UUID) (PersonAllocation, bool) {
	for _, cat := range Categories() {
		ce, ok := e[cat]
		if !ok {
			continue
		}
		mission, ok := ce.Missions[missionID]
		if !ok {
			continue
		}
		alloc, ok := mission[companyID][personID]
		if ok {
			return alloc, true
		}
	}
	return PersonAllocation{}, false
}

// SetAllocation records an allocation, creating intermediate levels as needed.
func (e ProjectEstimation) SetAllocation(category Category, missionID, companyID, personID uuid.UUID, alloc PersonAllocation) {
	ce := e[category]
	if ce.Missions == nil {
		ce.Missions = make(map[uuid.UUID]MissionAllocation)
	}
	mission := ce.Missions[missionID]
	if mission == nil {
		mission = make(MissionAllocation)
		ce.Missions[missionID] = mission
	}
	company := mission[companyID]
	if company == nil {
		company = make(CompanyAllocation)
		mission[companyID] = company
	}
	company[personID] = alloc
	e[category] = ce
}

// Clone returns a deep copy of the ledger.
func (e ProjectEstimation) Clone() ProjectEstimation {
	if e == nil {
		return nil
	}
	out := make(ProjectEstimation, len(e))
	for cat, ce := range e {
		copied := CategoryEstimation{TargetAmount: ce.TargetAmount}
		if ce.Missions != nil {
			copied.Missions = make(map[uuid.UUID]MissionAllocation, len(ce.Missions))
			for mid, mission := range ce.Missions {
				m := make(MissionAllocation, len(mission))
				for cid, company := range mission {
					c := make(CompanyAllocation, len(company))
					for pid, alloc := range company {
						c[pid] = alloc
					}
					m[cid] = c
				}
				copied.Missions[mid] = m
			}
		}
		out[cat] = copied
	}
	return out
}

// Sum returns the total of all category percentages.
func (cp CategoryPercentages) Sum() float64 {
	var total float64
	for _, c := range Categories() {
		total += cp[c]
	}
	return total
}

// ValidateNotationCriteria rejects blank names, negative weights and names
// used twice. The weights are not required to total 100.
func ValidateNotationCriteria(criteria []NotationCriterion) error {
	seen := make(map[string]bool, len(criteria))
	for _, c := range criteria {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return fmt.Errorf("notation criterion name cannot be empty")
		}
		if c.Weight < 0 {
			return fmt.Errorf("notation criterion %q has a negative weight", name)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("duplicate notation criterion %q", name)
		}
		seen[key] = true
	}
	return nil
}

// NotationWeight returns the total weight of the buyer's criteria.
func (p *Project) NotationWeight() float64 {
	total := 0.0
	for _, c := range p.NotationCriteria {
		total += c.Weight
	}
	return total
}
