// Package estimator prices classified faults in minor currency units.
package estimator

import "github.com/insightdelivered/diagnostic-report-parser/internal/models"

// DefaultCost is charged for a category with no base cost, whatever the
// severity. Quotations downstream rely on this exact value.
const DefaultCost int64 = 10000

// BaseCosts is the medium-severity repair cost per category.
var BaseCosts = map[models.Category]int64{
	models.CategoryEngine:       12000,
	models.CategoryTransmission: 18000,
	models.CategoryBrakes:       20000,
	models.CategoryElectrical:   6000,
	models.CategorySuspension:   25000,
	models.CategoryFuelSystem:   8000,
	models.CategoryOther:        5000,
}

// SeverityMultipliers scale a base cost, in percent.
var SeverityMultipliers = map[models.Severity]int64{
	models.SeverityLow:    80,
	models.SeverityMedium: 100,
	models.SeverityHigh:   125,
}

// EstimateCost returns the cost for a fault of the given category and
// severity. An unknown severity is priced as medium.
func EstimateCost(category models.Category, severity models.Severity) int64 {
	base, ok := BaseCosts[category]
	if !ok {
		return DefaultCost
	}
	pct, ok := SeverityMultipliers[severity]
	if !ok {
		pct = SeverityMultipliers[models.SeverityMedium]
	}
	return base * pct / 100
}

// Apply returns a copy of entry with EstimatedCost filled in.
func Apply(entry models.ErrorCodeEntry) models.ErrorCodeEntry {
	entry.EstimatedCost = EstimateCost(entry.Category, entry.Severity)
	return entry
}

// Total sums the estimated cost of entries.
func Total(entries []models.ErrorCodeEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.EstimatedCost
	}
	return total
}

// Table expands the lookup into every (category, severity) pair.
func Table() map[models.Category]map[models.Severity]int64 {
	out := make(map[models.Category]map[models.Severity]int64, len(BaseCosts))
	for _, c := range models.Categories {
		row := make(map[models.Severity]int64, len(SeverityMultipliers))
		for s := range SeverityMultipliers {
			row[s] = EstimateCost(c, s)
		}
		out[c] = row
	}
	return out
}
