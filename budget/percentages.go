// ABOUTME: Sanity checks on category and mission percentage splits
// ABOUTME: Out-of-tolerance splits produce warnings, never errors
package budget

import (
	"fmt"
	"log"
	"math"

	"github.com/harperreed/memoire/models"
)

// PercentageTolerance is the allowed deviation, in points, of a
// per-category mission percentage sum from 100.
const PercentageTolerance = 5.0

// PercentageWarning reports a category whose mission percentages do not add up.
type PercentageWarning struct {
	Category models.Category
	Sum      float64
}

func (w PercentageWarning) String() string {
	return fmt.Sprintf("mission percentages for %s sum to %.1f%% (expected 100%% ± %.0f)", w.Category, w.Sum, PercentageTolerance)
}

// CheckMissionPercentages sums mission percentages within each category that
// has any, and reports those outside the tolerance.
func CheckMissionPercentages(mp models.RecommendedMissionPercentages) []PercentageWarning {
	var warnings []PercentageWarning
	for _, cat := range models.Categories() {
		missions := mp[cat]
		if len(missions) == 0 {
			continue
		}
		var sum float64
		for _, pct := range missions {
			sum += pct
		}
		if math.Abs(sum-100) > PercentageTolerance {
			warnings = append(warnings, PercentageWarning{Category: cat, Sum: sum})
		}
	}
	return warnings
}

// ValidatePercentageEstimation checks an estimated breakdown and logs each
// deviation. Deviations are advisory and never block the caller.
func ValidatePercentageEstimation(mp models.RecommendedMissionPercentages, logger *log.Logger) []PercentageWarning {
	if logger == nil {
		logger = log.Default()
	}
	warnings := CheckMissionPercentages(mp)
	for _, w := range warnings {
		logger.Printf("warning: %s", w)
	}
	return warnings
}

// CategoryPercentagesWarning returns a message when the category split
// exceeds the whole works amount.
func CategoryPercentagesWarning(cp models.CategoryPercentages) (string, bool) {
	sum := cp.Sum()
	if sum > 100 {
		return fmt.Sprintf("category percentages sum to %.1f%%, above 100%% of the works amount", sum), true
	}
	return "", false
}

// NotationWeightsWarning returns a message when the buyer's criteria do not
// add up to a 100% scoring grid. An empty grid is not flagged.
func NotationWeightsWarning(criteria []models.NotationCriterion) (string, bool) {
	if len(criteria) == 0 {
		return "", false
	}
	sum := 0.0
	for _, c := range criteria {
		sum += c.Weight
	}
	if math.Abs(sum-100) > 0.01 {
		return fmt.Sprintf("notation criteria weights sum to %.1f%%, expected 100%%", sum), true
	}
	return "", false
}
