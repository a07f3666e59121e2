package parser

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/diagnostic-report-parser/internal/models"
)

// OBDParser handles flat OBD-II exports from generic scan tools and apps.
// The whole document is one implicit module; codes may appear under
// "Stored", "Pending" or "Permanent" headings.
//
// Example:
//
//	VIN: 1HGCM82633A004352
//	Odometer: 85,000 miles
//	MIL status: ON
//	Stored DTCs:
//	P0301 - Cylinder 1 Misfire Detected
//	   Confirmed
//	P0171 System Too Lean (Bank 1)
type OBDParser struct{}

const obdModuleName = "OBD-II"

// "Stored DTCs:", "Confirmed codes", "Permanent Trouble Codes:" mark confirmed lists.
var confirmedHeading = regexp.MustCompile(`(?i)^(stored|confirmed|permanent)\b.*\b(dtcs?|codes?)\b`)

// Anything that starts like an OBD code but does not validate, e.g. "P03X1".
var obdLookalike = regexp.MustCompile(`^[PBCU][0-9A-Z]{3,5}$`)

func looksLikeOBDCode(token string) bool {
	return obdLookalike.MatchString(token) && strings.ContainsAny(token[1:], "0123456789")
}

func (p *OBDParser) Name() string { return "OBD-II code listing" }

func (p *OBDParser) Dialect() models.Dialect { return models.DialectOBD }

func (p *OBDParser) Parse(lines []models.Line) *models.Report {
	report := &models.Report{Diagnostics: models.DiagnosticInfo{Dialect: models.DialectOBD}}
	c := newFaultCollector(obdModuleName)

	milOn := false
	inConfirmedList := false

	for _, line := range lines {
		text := line.Text
		if isBlank(text) {
			c.flush()
			continue
		}
		if isIndented(text) && c.open() {
			c.status(line)
			continue
		}

		body := enumeratorPrefix.ReplaceAllString(strings.TrimSpace(text), "")
		if code, desc, ok := splitCodeLine(body, isOBDCode); ok {
			c.start(line, code, desc)
			if inConfirmedList {
				c.current.Status.Confirmed = true
			}
			continue
		}
		if token, _ := codeToken(body); looksLikeOBDCode(token) {
			c.malformed(line, "unrecognized OBD-II code")
			continue
		}

		c.flush()
		if strings.HasSuffix(body, ":") || confirmedHeading.MatchString(body) {
			inConfirmedList = confirmedHeading.MatchString(body)
		}
		if milPattern.MatchString(body) {
			milOn = true
		}
		scanHeaderLine(text, &report.Vehicle, &report.Diagnostics)
	}
	c.flush()

	if milOn {
		for i := range c.faults {
			c.faults[i].Status.MILOn = true
		}
	}

	report.Faults = c.faults
	report.Warnings = c.warnings
	report.Diagnostics.Modules = []models.ModuleInfo{{
		Name:               obdModuleName,
		FaultCount:         len(c.faults),
		DeclaredFaultCount: len(c.faults),
	}}
	finishDiagnostics(&report.Diagnostics)
	return report
}
