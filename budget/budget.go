// ABOUTME: Budget cost functions over mission, company and person day allocations
// ABOUTME: Costs are days times daily rate, with imposed company prices taking precedence

// Package budget computes mission, company and person costs from the
// estimation ledger and rolls them up into category and project totals.
//
// Every function here is pure: inputs are never mutated and missing
// allocations count as zero.
package budget

import (
	"github.com/google/uuid"
	"github.com/harperreed/memoire/models"
)

// DaysLookup returns the days allocated to a person on a mission for a company.
type DaysLookup func(missionID, companyID, personID uuid.UUID) float64

// JustificationLookup returns the justification recorded for an allocation.
type JustificationLookup func(missionID, companyID, personID uuid.UUID) string

// PersonCost is days × daily rate; 0 when nothing is allocated or no rate is set.
func PersonCost(missionID uuid.UUID, company *models.ParticipatingCompany, person *models.MobilizedPerson, days DaysLookup) float64 {
	if days == nil {
		return 0
	}
	return days(missionID, company.ID, person.ID) * person.Rate()
}

// CompanySubtotal sums the cost of every person of one company on a mission.
func CompanySubtotal(missionID uuid.UUID, company *models.ParticipatingCompany, days DaysLookup) float64 {
	var total float64
	for i := range company.People {
		total += PersonCost(missionID, company, &company.People[i], days)
	}
	return total
}

// MissionTotal sums person costs over every person of every company.
func MissionTotal(missionID uuid.UUID, companies []models.ParticipatingCompany, days DaysLookup) float64 {
	var total float64
	for i := range companies {
		total += CompanySubtotal(missionID, &companies[i], days)
	}
	return total
}

// MissionTotalWithConstraints is MissionTotal where a company's subtotal is
// replaced by the imposed amount of its price constraint, if any.
func MissionTotalWithConstraints(missionID uuid.UUID, companies []models.ParticipatingCompany, days DaysLookup, constraints []models.MissionPriceConstraint) float64 {
	var total float64
	for i := range companies {
		total += EffectiveCompanySubtotal(missionID, &companies[i], days, constraints)
	}
	return total
}

// EffectiveCompanySubtotal returns the imposed amount when (mission, company)
// is constrained, the computed subtotal otherwise.
func EffectiveCompanySubtotal(missionID uuid.UUID, company *models.ParticipatingCompany, days DaysLookup, constraints []models.MissionPriceConstraint) float64 {
	if c := FindConstraint(constraints, missionID, company.ID); c != nil {
		return c.ImposedAmount
	}
	return CompanySubtotal(missionID, company, days)
}

// CategoryTargetAmount is worksAmount × percentage / 100.
func CategoryTargetAmount(worksAmount, percentage float64) float64 {
	return worksAmount * percentage / 100
}

// TotalTargetAmount applies the sum of all category percentages to the works
// amount. Sums above 100 are not clamped.
func TotalTargetAmount(worksAmount float64, percentages models.CategoryPercentages) float64 {
	return worksAmount * percentages.Sum() / 100
}

// LookupFromEstimation adapts a ledger to a DaysLookup.
func LookupFromEstimation(est models.ProjectEstimation) DaysLookup {
	return func(missionID, companyID, personID uuid.UUID) float64 {
		alloc, _ := est.Allocation(missionID, companyID, personID)
		return alloc.DaysAllocated
	}
}

// JustificationFromEstimation adapts a ledger to a JustificationLookup.
func JustificationFromEstimation(est models.ProjectEstimation) JustificationLookup {
	return func(missionID, companyID, personID uuid.UUID) string {
		alloc, _ := est.Allocation(missionID, companyID, personID)
		return alloc.Justification
	}
}
