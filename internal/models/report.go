package models

import "time"

// Format is the declared format of an uploaded diagnostic report.
type Format string

const (
	FormatTXT Format = "TXT"
	FormatXML Format = "XML"
	FormatPDF Format = "PDF"
)

// Dialect identifies the layout of a scanner export.
type Dialect string

const (
	DialectVAG Dialect = "vag"  // multi-module "Address NN:" reports (VCDS and compatibles)
	DialectOBD Dialect = "obd2" // flat generic OBD-II code listings
)

// Category is the vehicle system a fault belongs to.
type Category string

const (
	CategoryEngine       Category = "Engine"
	CategoryTransmission Category = "Transmission"
	CategoryBrakes       Category = "Brakes"
	CategoryElectrical   Category = "Electrical"
	CategorySuspension   Category = "Suspension"
	CategoryFuelSystem   Category = "FuelSystem"
	CategoryOther        Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryEngine, CategoryTransmission, CategoryBrakes, CategoryElectrical,
	CategorySuspension, CategoryFuelSystem, CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Severity is the urgency assigned to a single fault.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities so that a higher rank is more urgent.
// Unknown values rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Priority is the overall urgency of a report.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// MileageUnit is the unit the odometer reading was reported in.
type MileageUnit string

const (
	MileageKM    MileageUnit = "km"
	MileageMiles MileageUnit = "miles"
)

// Line is one normalized source line. Num is 1-based.
type Line struct {
	Num  int
	Text string
}

// StatusFlags records the status keywords seen on a fault's status lines.
type StatusFlags struct {
	Confirmed    bool `json:"confirmed"`
	Intermittent bool `json:"intermittent"`
	MILOn        bool `json:"milOn"`
}

// RawFault is a fault block as extracted from the text, before classification.
type RawFault struct {
	Code        string
	Description string
	RelatedCode string // OBD-II code quoted on a status line, if any
	Detail      string // remaining text of that status line
	Module      string
	Line        int
	Status      StatusFlags
}

// ErrorCodeEntry is one classified and costed fault occurrence.
type ErrorCodeEntry struct {
	Code          string      `json:"code"`
	Description   string      `json:"description"`
	Category      Category    `json:"category"`
	Severity      Severity    `json:"severity"`
	EstimatedCost int64       `json:"estimatedCost"`
	StatusFlags   StatusFlags `json:"statusFlags"`
	Module        string      `json:"module,omitempty"`
	RelatedCode   string      `json:"relatedCode,omitempty"`
	Detail        string      `json:"detail,omitempty"`
}

// VehicleInfo holds metadata from the report header.
// Fields that were not found stay empty or nil.
type VehicleInfo struct {
	VIN         string      `json:"vin,omitempty"`
	Mileage     *int        `json:"mileage,omitempty"`
	MileageUnit MileageUnit `json:"mileageUnit,omitempty"`
	ChassisType string      `json:"chassisType,omitempty"`
}

// ModuleInfo describes one control module section of a report.
type ModuleInfo struct {
	Address            string            `json:"address"`
	Name               string            `json:"name"`
	PartNumbers        map[string]string `json:"partNumbers,omitempty"`
	FaultCount         int               `json:"faultCount"`
	DeclaredFaultCount int               `json:"declaredFaultCount"`
}

// DiagnosticInfo holds scan-level metadata.
type DiagnosticInfo struct {
	Dialect           Dialect      `json:"dialect"`
	ScanTool          string       `json:"scanTool,omitempty"`
	ScanDate          string       `json:"scanDate,omitempty"`
	ModulesScanned    int          `json:"modulesScanned"`
	ModulesWithFaults int          `json:"modulesWithFaults"`
	Modules           []ModuleInfo `json:"modules"`
}

// CategoryTotal aggregates the faults of one category.
type CategoryTotal struct {
	Count        int   `json:"count"`
	SubtotalCost int64 `json:"subtotalCost"`
}

// AnalysisSummary is the aggregate view of a classified fault list.
type AnalysisSummary struct {
	TotalErrors        int                        `json:"totalErrors"`
	CriticalErrors     int                        `json:"criticalErrors"`
	MediumErrors       int                        `json:"mediumErrors"`
	LowErrors          int                        `json:"lowErrors"`
	EstimatedTotalCost int64                      `json:"estimatedTotalCost"`
	Priority           Priority                   `json:"priority"`
	Categories         map[Category]CategoryTotal `json:"categories"`
	Recommendations    []string                   `json:"recommendations"`
}

// ParseWarning is a recoverable problem found while scanning a report.
type ParseWarning struct {
	Line    int    `json:"line,omitempty"`
	Module  string `json:"module,omitempty"`
	Message string `json:"message"`
}

// Report is the structural output of a dialect parser.
type Report struct {
	Vehicle     VehicleInfo
	Diagnostics DiagnosticInfo
	Faults      []RawFault
	Warnings    []ParseWarning
}

// ParseResult is the top-level result of parsing one report.
type ParseResult struct {
	Success         bool             `json:"success"`
	ErrorCodes      []ErrorCodeEntry `json:"errorCodes"`
	VehicleInfo     VehicleInfo      `json:"vehicleInfo"`
	DiagnosticInfo  DiagnosticInfo   `json:"diagnosticInfo"`
	AnalysisSummary AnalysisSummary  `json:"analysisSummary"`
	FileType        Format           `json:"fileType"`
	ParsedAt        time.Time        `json:"parsedAt"`
	Error           string           `json:"error,omitempty"`
	ParseErrors     []ParseWarning   `json:"parseErrors"`
}
