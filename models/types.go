// ABOUTME: Data models for mémoire technique projects
// ABOUTME: Defines Project, Mission, ParticipatingCompany, MobilizedPerson and estimation ledgers
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category is one of the four fixed mission buckets of a tender.
type Category string

const (
	CategoryBase                    Category = "base"
	CategoryPSE                     Category = "pse"
	CategoryTranchesConditionnelles Category = "tranchesConditionnelles"
	CategoryVariantes               Category = "variantes"
)

// Categories returns the four categories in display order.
func Categories() []Category {
	return []Category{
		CategoryBase,
		CategoryPSE,
		CategoryTranchesConditionnelles,
		CategoryVariantes,
	}
}

// ParseCategory converts a string to a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid category: %s (valid: base, pse, tranchesConditionnelles, variantes)", s)
}

// Label returns the French display label for a category.
func (c Category) Label() string {
	switch c {
	case CategoryBase:
		return "Tranche ferme"
	case CategoryPSE:
		return "PSE"
	case CategoryTranchesConditionnelles:
		return "Tranches conditionnelles"
	case CategoryVariantes:
		return "Variantes"
	}
	return string(c)
}

type Mission struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Sigle       string    `json:"sigle,omitempty"`
	Description string    `json:"description,omitempty"`
	Category    Category  `json:"category"`
}

// DisplayName returns "SIGLE - Name" when a sigle is set.
func (m Mission) DisplayName() string {
	if m.Sigle != "" {
		return m.Sigle + " - " + m.Name
	}
	return m.Name
}

type MobilizedPerson struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role,omitempty"`
	DailyRate *float64  `json:"daily_rate,omitempty"` // currency per day
	CV        string    `json:"cv,omitempty"`
	CVSummary string    `json:"cv_summary,omitempty"`
}

// Rate returns the daily rate, or 0 when unset.
func (p MobilizedPerson) Rate() float64 {
	if p.DailyRate == nil {
		return 0
	}
	return *p.DailyRate
}

type ParticipatingCompany struct {
	ID               uuid.UUID         `json:"id"`
	Name             string            `json:"name"`
	Presentation     string            `json:"presentation,omitempty"`
	Equipment        string            `json:"equipment,omitempty"`
	People           []MobilizedPerson `json:"people"`
	RepresentativeID *uuid.UUID        `json:"representative_id,omitempty"`
}

// MissionPriceConstraint pins the total cost of one (mission, company) pair.
type MissionPriceConstraint struct {
	MissionID     uuid.UUID `json:"mission_id"`
	CompanyID     uuid.UUID `json:"company_id"`
	ImposedAmount float64   `json:"imposed_amount"`
	Justification string    `json:"justification,omitempty"`
}

type PersonAllocation struct {
	DaysAllocated float64 `json:"days_allocated"`
	Justification string  `json:"justification,omitempty"`
}

// CompanyAllocation maps person ID to allocated effort.
type CompanyAllocation map[uuid.UUID]PersonAllocation

// MissionAllocation maps company ID to its people's allocations.
type MissionAllocation map[uuid.UUID]CompanyAllocation

type CategoryEstimation struct {
	TargetAmount float64                         `json:"target_amount"`
	Missions     map[uuid.UUID]MissionAllocation `json:"missions"`
}

// ProjectEstimation is the ledger of allocated days per category.
// Costs are always derived from it, never stored.
type ProjectEstimation map[Category]CategoryEstimation

// CategoryPercentages is the share of the works amount per category.
type CategoryPercentages map[Category]float64

// RecommendedMissionPercentages is the share of each mission within its category.
type RecommendedMissionPercentages map[Category]map[uuid.UUID]float64

// NotationCriterion is one weighted criterion of the buyer's scoring grid.
type NotationCriterion struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"` // percentage of the total score
}

type Project struct {
	ID                  uuid.UUID                     `json:"id"`
	Name                string                        `json:"name"`
	Reference           string                        `json:"reference,omitempty"`
	Buyer               string                        `json:"buyer,omitempty"`
	WorksAmount         float64                       `json:"works_amount,omitempty"`
	Missions            []Mission                     `json:"missions"`
	Companies           []ParticipatingCompany        `json:"companies"`
	MandataireID        *uuid.UUID                    `json:"mandataire_id,omitempty"`
	Estimation          ProjectEstimation             `json:"estimation,omitempty"`
	AIEstimation        ProjectEstimation             `json:"ai_estimation,omitempty"`
	PriceConstraints    []MissionPriceConstraint      `json:"price_constraints,omitempty"`
	CategoryPercentages CategoryPercentages           `json:"category_percentages,omitempty"`
	MissionPercentages  RecommendedMissionPercentages `json:"mission_percentages,omitempty"`
	NotationCriteria    []NotationCriterion           `json:"notation_criteria,omitempty"`
	CreatedAt           time.Time                     `json:"created_at"`
	UpdatedAt           time.Time                     `json:"updated_at"`
}
