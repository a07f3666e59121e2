package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/insightdelivered/diagnostic-report-parser/internal/models"
)

// Structural markers of multi-module reports.
var (
	// "Address 01: Engine (CBB)       Labels: 03L-906-022-CBB.clb"
	addressPattern = regexp.MustCompile(`^Address\s+([0-9A-Fa-f]{1,2}):\s*(.+)$`)
	// "2 Faults Found:" / "1 Fault Found:"
	faultsFoundPattern = regexp.MustCompile(`(?i)^(\d+)\s+faults?\s+found:?`)
	// "No fault code found."
	noFaultPattern   = regexp.MustCompile(`(?i)^no\s+fault\s+codes?\s+found`)
	separatorPattern = regexp.MustCompile(`^-{3,}$`)
	// "Readiness: 0000 0000", "End-----(Elapsed Time: 03:12)-----"
	reportTrailer = regexp.MustCompile(`(?i)^(?:readiness:|end\b)`)
	labelsSuffix     = regexp.MustCompile(`\s{2,}Labels?:.*$`)
	componentSuffix  = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
)

// Fault code shapes.
var (
	// VAG proprietary decimal codes, e.g. 17158 or 0295.
	vagCodePattern = regexp.MustCompile(`^\d{4,6}$`)
	// OBD-II codes. Hex digits in the last three places cover codes like P0A80.
	obdCodePattern = regexp.MustCompile(`^[PBCU]\d[0-9A-F]{3}$`)
	// Something shaped like a code header ("XXXX - text") that is not a valid code.
	codeHeaderShape = regexp.MustCompile(`^\S+\s+-\s+\S`)
	// Leading list enumerators in flat exports: "1. P0301 ..." or "2) P0171 ...".
	enumeratorPrefix = regexp.MustCompile(`^\d{1,3}[.)]\s+`)
	// OBD code quoted on an indented status line: "P0770 - 00 - Open or Short to Ground".
	relatedCodePattern = regexp.MustCompile(`^([PBCU]\d[0-9A-F]{3})\b(.*)$`)
	// Sub-code noise before the symptom text: " - 00 - ", " 00 [009] - ".
	subCodeNoise = regexp.MustCompile(`^(?:[\s\-:]|\d{2,3}\b|\[\d+\])*`)
)

// Header metadata.
var (
	vinPattern     = regexp.MustCompile(`(?i)\bVIN:\s*([A-Z0-9]{11,17})\b`)
	mileagePattern = regexp.MustCompile(`(?i)\b(?:Mileage|Odometer|Kilometerstand):\s*(\d[\d.,' ]*\d|\d)\s*(km|kms|miles|mi)?\b`)
	chassisPattern = regexp.MustCompile(`(?i)\bChassis\s+Type:\s*(.+?)(?:\s{2,}|$)`)
	toolPattern    = regexp.MustCompile(`(?i)^(VCDS|VAG-COM)\s+Version:\s*(.+)$`)
	toolLabel      = regexp.MustCompile(`(?i)^(?:Scan\s+Tool|Tool|Software):\s*(.+)$`)
	datePattern    = regexp.MustCompile(`(?i)^(?:(?:mon|tues|wednes|thurs|fri|satur|sun)day,.+|(?:Scan\s+)?Date:\s*.+)$`)
	milPattern     = regexp.MustCompile(`(?i)\bMIL(?:\s+status)?\s*[:=]?\s*ON\b`)
)

// isIndented reports whether a line starts with whitespace.
func isIndented(text string) bool {
	return text != "" && (text[0] == ' ' || text[0] == '\t')
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// codeToken returns the first token of a line with trailing separators removed.
func codeToken(text string) (token, rest string) {
	text = strings.TrimSpace(text)
	idx := strings.IndexAny(text, " \t")
	if idx < 0 {
		return strings.TrimRight(text, ":-"), ""
	}
	return strings.TrimRight(text[:idx], ":-"), text[idx:]
}

// cleanDescription strips the separator between a code and its description.
func cleanDescription(rest string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(rest), "-:"))
}

// splitCodeLine splits a fault header line into code and description.
// ok is false when the first token is not a recognized fault code.
func splitCodeLine(text string, accept func(string) bool) (code, description string, ok bool) {
	token, rest := codeToken(text)
	if !accept(token) {
		return "", "", false
	}
	return token, cleanDescription(rest), true
}

func isVAGCode(token string) bool { return vagCodePattern.MatchString(token) || isOBDCode(token) }

func isOBDCode(token string) bool { return obdCodePattern.MatchString(token) }

// parseRelatedCode picks an OBD code and its symptom text off a status line.
func parseRelatedCode(text string) (code, detail string, ok bool) {
	m := relatedCodePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(subCodeNoise.ReplaceAllString(m[2], "")), true
}

// statusFlags matches status keywords case-insensitively. Negated forms
// ("not confirmed", "unconfirmed") are ignored.
func statusFlags(text string) models.StatusFlags {
	lower := strings.ToLower(text)
	lower = strings.NewReplacer("not confirmed", "", "unconfirmed", "").Replace(lower)
	return models.StatusFlags{
		Confirmed:    strings.Contains(lower, "confirmed"),
		Intermittent: strings.Contains(lower, "intermittent"),
		MILOn:        strings.Contains(lower, "mil on"),
	}
}

func mergeFlags(a, b models.StatusFlags) models.StatusFlags {
	return models.StatusFlags{
		Confirmed:    a.Confirmed || b.Confirmed,
		Intermittent: a.Intermittent || b.Intermittent,
		MILOn:        a.MILOn || b.MILOn,
	}
}

// parseMileage reads "22291km-13851miles", "85,000 miles" or "12.345 km".
// The first reading on the line wins.
func parseMileage(text string) (int, models.MileageUnit, bool) {
	m := mileagePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.Atoi(mileageDigits(m[1]))
	if err != nil {
		return 0, "", false
	}
	var unit models.MileageUnit
	switch strings.ToLower(m[2]) {
	case "km", "kms":
		unit = models.MileageKM
	case "miles", "mi":
		unit = models.MileageMiles
	}
	return n, unit, true
}

// mileageDigits drops thousands separators. A dot counts as one only when
// exactly three digits follow it; otherwise it starts a fraction, which is
// truncated.
func mileageDigits(reading string) string {
	reading = strings.NewReplacer(",", "", "'", "", " ", "").Replace(reading)
	groups := strings.Split(reading, ".")
	digits := groups[0]
	for _, g := range groups[1:] {
		if len(g) != 3 {
			break
		}
		digits += g
	}
	return digits
}

// scanHeaderLine fills in vehicle and scan metadata from a header line.
// Fields already set are kept, so the first occurrence wins.
func scanHeaderLine(text string, vehicle *models.VehicleInfo, diag *models.DiagnosticInfo) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}

	if vehicle.VIN == "" {
		if m := vinPattern.FindStringSubmatch(trimmed); m != nil {
			vehicle.VIN = strings.ToUpper(m[1])
		}
	}
	if vehicle.Mileage == nil {
		if n, unit, ok := parseMileage(trimmed); ok {
			vehicle.Mileage = &n
			vehicle.MileageUnit = unit
		}
	}
	if vehicle.ChassisType == "" {
		if m := chassisPattern.FindStringSubmatch(trimmed); m != nil {
			vehicle.ChassisType = strings.TrimSpace(m[1])
		}
	}
	if diag.ScanTool == "" {
		if m := toolPattern.FindStringSubmatch(trimmed); m != nil {
			diag.ScanTool = m[1] + " " + strings.TrimSpace(m[2])
		} else if m := toolLabel.FindStringSubmatch(trimmed); m != nil {
			diag.ScanTool = strings.TrimSpace(m[1])
		}
	}
	if diag.ScanDate == "" && datePattern.MatchString(trimmed) {
		if idx := strings.Index(trimmed, ":"); idx >= 0 && strings.Contains(strings.ToLower(trimmed[:idx]), "date") {
			diag.ScanDate = strings.TrimSpace(trimmed[idx+1:])
		} else {
			diag.ScanDate = trimmed
		}
	}
}

// parseAddress reads a module marker into its address and display name.
func parseAddress(text string) (address, name string, ok bool) {
	m := addressPattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	name = labelsSuffix.ReplaceAllString(m[2], "")
	name = componentSuffix.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if len(m[1]) == 1 {
		m[1] = "0" + m[1]
	}
	return strings.ToUpper(m[1]), name, true
}

// parsePartNumbers records "Part No SW: x  HW: y", "Part No: x" and
// "Component: x" lines into parts.
func parsePartNumbers(text string, parts map[string]string) bool {
	trimmed := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(trimmed, "Part No SW:"):
		rest := strings.TrimPrefix(trimmed, "Part No SW:")
		if sw, hw, found := strings.Cut(rest, "HW:"); found {
			parts["SW"] = collapseSpaces(sw)
			parts["HW"] = collapseSpaces(hw)
		} else {
			parts["SW"] = collapseSpaces(rest)
		}
		return true
	case strings.HasPrefix(trimmed, "Part No:"):
		parts["Part No"] = collapseSpaces(strings.TrimPrefix(trimmed, "Part No:"))
		return true
	case strings.HasPrefix(trimmed, "Component:"):
		parts["Component"] = collapseSpaces(strings.TrimPrefix(trimmed, "Component:"))
		return true
	}
	return false
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
