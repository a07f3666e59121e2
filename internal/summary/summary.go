// Package summary folds a classified, costed fault list into an
// AnalysisSummary.
package summary

import (
	"sort"

	"github.com/insightdelivered/diagnostic-report-parser/internal/models"
)

// HighMileageKM is the odometer reading from which a full inspection is
// recommended alongside repairs.
const HighMileageKM = 150000

const kmPerMile = 1.609344

// categoryRank orders categories from most to least safety-relevant. It
// breaks ties between categories whose worst faults share a severity.
var categoryRank = map[models.Category]int{
	models.CategoryBrakes:       0,
	models.CategorySuspension:   1,
	models.CategoryEngine:       2,
	models.CategoryTransmission: 3,
	models.CategoryFuelSystem:   4,
	models.CategoryElectrical:   5,
	models.CategoryOther:        6,
}

// Summarize aggregates entries. It has no side effects; calling it twice on
// the same input gives identical output.
func Summarize(entries []models.ErrorCodeEntry, vehicle models.VehicleInfo, diag models.DiagnosticInfo) models.AnalysisSummary {
	s := models.AnalysisSummary{
		TotalErrors: len(entries),
		Categories:  make(map[models.Category]models.CategoryTotal),
	}

	worst := make(map[models.Category]models.Severity)
	for _, e := range entries {
		switch e.Severity {
		case models.SeverityHigh:
			s.CriticalErrors++
		case models.SeverityLow:
			s.LowErrors++
		default:
			s.MediumErrors++
		}
		s.EstimatedTotalCost += e.EstimatedCost

		ct := s.Categories[e.Category]
		ct.Count++
		ct.SubtotalCost += e.EstimatedCost
		s.Categories[e.Category] = ct

		if cur, ok := worst[e.Category]; !ok || e.Severity.Rank() > cur.Rank() {
			worst[e.Category] = e.Severity
		}
	}

	s.Priority = priority(s)
	s.Recommendations = recommendations(entries, worst, vehicle, diag)
	return s
}

func priority(s models.AnalysisSummary) models.Priority {
	switch {
	case s.CriticalErrors > 0:
		return models.PriorityHigh
	case s.MediumErrors > 0:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// rankedCategories orders the present categories by their worst severity,
// most severe first, then by categoryRank.
func rankedCategories(worst map[models.Category]models.Severity) []models.Category {
	cats := make([]models.Category, 0, len(worst))
	for c := range worst {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		ri, rj := worst[cats[i]].Rank(), worst[cats[j]].Rank()
		if ri != rj {
			return ri > rj
		}
		return rank(cats[i]) < rank(cats[j])
	})
	return cats
}

func rank(c models.Category) int {
	if r, ok := categoryRank[c]; ok {
		return r
	}
	return len(categoryRank)
}

func mileageKM(v models.VehicleInfo) (int, bool) {
	if v.Mileage == nil {
		return 0, false
	}
	if v.MileageUnit == models.MileageMiles {
		return int(float64(*v.Mileage) * kmPerMile), true
	}
	return *v.Mileage, true
}
