package parser

import (
	"fmt"
	"strings"

	"github.com/insightdelivered/diagnostic-report-parser/internal/models"
)

// Parser turns normalized report lines into modules, raw faults and header
// metadata. Problems with individual blocks are reported as warnings on the
// returned report; a parser never fails as a whole.
type Parser interface {
	Parse(lines []models.Line) *models.Report
	// Name returns a human-readable name of the layout.
	Name() string
	Dialect() models.Dialect
}

// New returns the parser for the given dialect.
func New(dialect models.Dialect) (Parser, error) {
	switch dialect {
	case models.DialectVAG:
		return &VAGParser{}, nil
	case models.DialectOBD:
		return &OBDParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported report dialect: %q", dialect)
	}
}

// AutoDetect identifies the report layout. Module markers or a VCDS banner
// mean a VAG report; code-leading lines without them mean a flat OBD-II
// listing. ok is false when neither is present, in which case the VAG dialect
// is returned as the fallback.
func AutoDetect(lines []models.Line) (dialect models.Dialect, ok bool) {
	sawOBDCode := false
	for _, line := range lines {
		text := line.Text
		if _, _, isModule := parseAddress(text); isModule {
			return models.DialectVAG, true
		}
		upper := strings.ToUpper(text)
		if strings.Contains(upper, "VCDS") || strings.Contains(upper, "VAG-COM") {
			return models.DialectVAG, true
		}
		if !isIndented(text) {
			body := enumeratorPrefix.ReplaceAllString(strings.TrimSpace(text), "")
			if token, _ := codeToken(body); isOBDCode(token) {
				sawOBDCode = true
			}
		}
	}
	if sawOBDCode {
		return models.DialectOBD, true
	}
	return models.DialectVAG, false
}
