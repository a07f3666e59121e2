package summary

import "github.com/insightdelivered/diagnostic-report-parser/internal/models"

// advice holds the recommendation for a category when its worst fault is
// high severity, and for everything else.
type advice struct {
	critical string
	routine  string
}

var categoryAdvice = map[models.Category]advice{
	models.CategoryBrakes: {
		critical: "Do not drive; critical brake system fault detected. Have the braking system inspected before further use.",
		routine:  "Schedule a brake system inspection to verify the reported brake faults.",
	},
	models.CategorySuspension: {
		critical: "Avoid driving; a steering or suspension fault may affect vehicle control. Inspect immediately.",
		routine:  "Check suspension and steering components at the next service.",
	},
	models.CategoryEngine: {
		critical: "Limit driving; the engine fault may cause further damage. Book an engine diagnosis promptly.",
		routine:  "Have the engine management faults diagnosed at the next opportunity.",
	},
	models.CategoryTransmission: {
		critical: "Avoid heavy loads; transmission fault detected. Arrange a transmission inspection.",
		routine:  "Monitor shifting behaviour and have the transmission checked.",
	},
	models.CategoryFuelSystem: {
		critical: "Fuel system fault detected; check for fuel leaks or fuel smell before driving.",
		routine:  "Have the fuel delivery and pressure components tested.",
	},
	models.CategoryElectrical: {
		critical: "Critical electrical fault; check battery, wiring and control module communication.",
		routine:  "Check wiring, connectors and module communication, then clear codes and re-scan.",
	},
	models.CategoryOther: {
		critical: "Safety system fault detected; have it repaired before driving.",
		routine:  "Review the remaining fault codes with a technician at the next service.",
	},
}

const (
	recNoFaults        = "No fault codes found; no repair action required."
	recMILOn           = "Malfunction indicator lamp is on; emissions-related faults must be repaired before the next inspection."
	recAllIntermittent = "All faults are intermittent; clear the fault memory and re-scan after a test drive."
	recIncompleteScan  = "Some modules could not be read completely; re-run the scan to confirm the fault list."
	recHighMileage     = "High mileage vehicle; combine the repairs with a full service inspection."
)

// recommendations builds category advice in severity order, followed by
// report-wide notes.
func recommendations(entries []models.ErrorCodeEntry, worst map[models.Category]models.Severity, vehicle models.VehicleInfo, diag models.DiagnosticInfo) []string {
	recs := []string{}
	if len(entries) == 0 {
		recs = append(recs, recNoFaults)
	}

	for _, c := range rankedCategories(worst) {
		a, ok := categoryAdvice[c]
		if !ok {
			a = categoryAdvice[models.CategoryOther]
		}
		if worst[c] == models.SeverityHigh {
			recs = append(recs, a.critical)
		} else {
			recs = append(recs, a.routine)
		}
	}

	milOn, allIntermittent := false, len(entries) > 0
	for _, e := range entries {
		milOn = milOn || e.StatusFlags.MILOn
		allIntermittent = allIntermittent && e.StatusFlags.Intermittent
	}
	if milOn {
		recs = append(recs, recMILOn)
	}
	if allIntermittent {
		recs = append(recs, recAllIntermittent)
	}

	for _, m := range diag.Modules {
		if m.DeclaredFaultCount != m.FaultCount {
			recs = append(recs, recIncompleteScan)
			break
		}
	}

	if km, ok := mileageKM(vehicle); ok && km >= HighMileageKM {
		recs = append(recs, recHighMileage)
	}
	return recs
}
