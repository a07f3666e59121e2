package parser

import (
	"fmt"

	"github.com/insightdelivered/diagnostic-report-parser/internal/models"
)

// faultCollector accumulates fault blocks for one module section.
// A block opens on a code-leading line, collects its indented status lines
// and closes on the next code line, a blank line or the end of the section.
type faultCollector struct {
	module   string
	current  *models.RawFault
	skipping bool

	faults   []models.RawFault
	warnings []models.ParseWarning
}

func newFaultCollector(module string) *faultCollector {
	return &faultCollector{module: module}
}

// start opens a new fault block, closing the previous one.
func (c *faultCollector) start(line models.Line, code, description string) {
	c.flush()
	c.current = &models.RawFault{
		Code:        code,
		Description: description,
		Module:      c.module,
		Line:        line.Num,
	}
}

// status folds an indented line into the open block. Lines with no open
// block are ignored.
func (c *faultCollector) status(line models.Line) {
	if c.current == nil {
		return
	}
	c.current.Status = mergeFlags(c.current.Status, statusFlags(line.Text))
	if c.current.RelatedCode == "" {
		if code, detail, ok := parseRelatedCode(line.Text); ok {
			c.current.RelatedCode = code
			c.current.Detail = detail
		}
	}
}

// malformed records a block whose header has no parseable code. Its status
// lines are skipped until the next block opens.
func (c *faultCollector) malformed(line models.Line, reason string) {
	c.flush()
	c.skipping = true
	c.warnings = append(c.warnings, models.ParseWarning{
		Line:    line.Num,
		Module:  c.module,
		Message: fmt.Sprintf("%s: %q", reason, line.Text),
	})
}

func (c *faultCollector) flush() {
	if c.current != nil {
		c.faults = append(c.faults, *c.current)
		c.current = nil
	}
	c.skipping = false
}

func (c *faultCollector) open() bool {
	return c.current != nil || c.skipping
}
