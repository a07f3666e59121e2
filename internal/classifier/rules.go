package classifier

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/diagnostic-report-parser/internal/models"
)

// CategoryRule assigns a category when the code matches Codes or the text
// contains one of the keywords as a whole word.
type CategoryRule struct {
	Name     string
	Category models.Category
	Codes    *regexp.Regexp
	Keywords *regexp.Regexp
}

func (r CategoryRule) matches(code, text string) bool {
	if r.Codes != nil && code != "" && r.Codes.MatchString(code) {
		return true
	}
	return r.Keywords != nil && r.Keywords.MatchString(text)
}

// SeverityRule assigns a severity when the fault's category is listed in
// Categories or the text contains one of the keywords.
type SeverityRule struct {
	Name       string
	Severity   models.Severity
	Categories []models.Category
	Keywords   *regexp.Regexp
}

func (r SeverityRule) matches(category models.Category, text string) bool {
	for _, c := range r.Categories {
		if c == category {
			return true
		}
	}
	return r.Keywords != nil && r.Keywords.MatchString(text)
}

// keywords compiles a case-insensitive whole-word alternation.
func keywords(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// CategoryRules is evaluated top to bottom; the first match wins.
// Fuel delivery comes before the generic engine rule so that "fuel pressure"
// lands in FuelSystem while a bare "fuel" mention stays Engine.
var CategoryRules = []CategoryRule{
	{
		Name:     "fuel-delivery",
		Category: models.CategoryFuelSystem,
		Codes:    regexp.MustCompile(`^P0(08[7-9]|09[0-3]|17\d|2[0-2]\d|4[4-5]\d)$`),
		Keywords: keywords("fuel pressure", "fuel pump", "fuel level", "fuel tank", "fuel trim",
			"fuel rail", "fuel filter", "injector", "injectors", "evap", "evaporative",
			"too lean", "too rich"),
	},
	{
		Name:     "engine",
		Category: models.CategoryEngine,
		Codes:    regexp.MustCompile(`^P[0-3](0\d|1\d|3\d|4\d|5\d)\d$`),
		Keywords: keywords("misfire", "fuel", "cylinder", "engine", "ignition", "camshaft",
			"crankshaft", "throttle", "turbo", "turbocharger", "boost", "knock", "glow plug",
			"egr", "lambda", "oxygen sensor", "o2 sensor", "catalyst", "coolant", "intake",
			"manifold", "mass air flow", "maf", "particulate", "dpf", "timing", "idle"),
	},
	{
		Name:     "transmission",
		Category: models.CategoryTransmission,
		Codes:    regexp.MustCompile(`^P[0-3]7\d\d$|^P[0-3]8\d\d$|^P[0-3]9\d\d$`),
		Keywords: keywords("transmission", "gear", "gears", "gearbox", "clutch", "shift",
			"shifting", "torque converter", "mechatronic", "mechatronics", "selector"),
	},
	{
		Name:     "brakes",
		Category: models.CategoryBrakes,
		Codes:    regexp.MustCompile(`^C0[0-2]\d\d$`),
		Keywords: keywords("brake", "brakes", "braking", "abs", "esc", "esp", "wheel speed",
			"traction control", "parking brake", "brake pad", "brake pressure"),
	},
	{
		Name:     "network-and-power",
		Category: models.CategoryElectrical,
		Codes:    regexp.MustCompile(`^U\d[0-9A-F]{3}$`),
		Keywords: keywords("databus", "data bus", "can bus", "communication", "voltage",
			"battery", "terminal 30", "terminal 15", "short to ground", "short to plus",
			"open circuit", "wiring", "fuse", "alternator", "generator", "control module",
			"antenna", "supply voltage"),
	},
	{
		Name:     "chassis",
		Category: models.CategorySuspension,
		Codes:    regexp.MustCompile(`^C0[4-5]\d\d$`),
		Keywords: keywords("steering", "suspension", "level control", "shock absorber",
			"damper", "dampers", "ride height", "wheel alignment", "tie rod", "power steering"),
	},
}

// DefaultCategory applies when no category rule matches.
const DefaultCategory = models.CategoryOther

// SeverityRules is evaluated top to bottom; the first match wins.
var SeverityRules = []SeverityRule{
	{
		Name:     "critical-wording",
		Severity: models.SeverityHigh,
		Keywords: keywords("critical", "failure", "failed", "overheat", "overheating", "misfire"),
	},
	{
		Name:     "safety-systems",
		Severity: models.SeverityHigh,
		Keywords: keywords("airbag", "airbags", "crash", "seat belt", "belt tensioner",
			"steering", "brake", "brakes"),
	},
	{
		Name:       "safety-categories",
		Severity:   models.SeverityHigh,
		Categories: []models.Category{models.CategoryBrakes},
	},
	{
		Name:     "degraded-operation",
		Severity: models.SeverityMedium,
		Keywords: keywords("performance", "range", "implausible", "malfunction", "open circuit",
			"short to ground", "short to plus", "no signal", "communication", "signal too low",
			"signal too high"),
	},
	{
		Name:     "housekeeping",
		Severity: models.SeverityLow,
		Keywords: keywords("coding", "coded", "basic setting", "adaptation", "readiness",
			"information", "bulb", "lamp", "convenience", "comfort", "service reminder"),
	},
}

// DefaultSeverity applies when no severity rule matches. Unknown faults are
// reported as medium, never low.
const DefaultSeverity = models.SeverityMedium
