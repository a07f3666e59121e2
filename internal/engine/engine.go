// Package engine runs the diagnostic report pipeline:
// bytes -> normalized lines -> sections -> raw faults -> classified faults
// -> costed faults -> summary.
//
// An Engine holds no per-report state and is safe for concurrent use.
package engine

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/diagnostic-report-parser/internal/classifier"
	"github.com/insightdelivered/diagnostic-report-parser/internal/estimator"
	"github.com/insightdelivered/diagnostic-report-parser/internal/extractor"
	"github.com/insightdelivered/diagnostic-report-parser/internal/models"
	"github.com/insightdelivered/diagnostic-report-parser/internal/parser"
	"github.com/insightdelivered/diagnostic-report-parser/internal/summary"
)

// Engine parses diagnostic reports.
type Engine struct {
	now func() time.Time
	log zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the source of ParseResult.ParsedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger for warnings and failures.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		now: time.Now,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = New()

// Parse parses content with a default Engine.
func Parse(content []byte, declaredFormat string) *models.ParseResult {
	return defaultEngine.Parse(content, declaredFormat)
}

// ParseFile parses a file with a default Engine.
func ParseFile(path, declaredFormat string) *models.ParseResult {
	return defaultEngine.ParseFile(path, declaredFormat)
}

// Parse converts a raw report into a ParseResult. Only an unsupported format
// or missing/unreadable content fail the call; every other problem is
// reported in ParseErrors alongside Success=true.
func (e *Engine) Parse(content []byte, declaredFormat string) *models.ParseResult {
	format, err := extractor.ParseFormat(declaredFormat)
	if err != nil {
		return e.fail(declaredFormat, err)
	}

	lines, err := extractor.Normalize(content, format)
	if err != nil {
		return e.fail(declaredFormat, err)
	}

	return e.parseLines(lines, format)
}

// ParseFile reads and parses a report file. An empty declaredFormat is
// derived from the file extension.
func (e *Engine) ParseFile(path, declaredFormat string) *models.ParseResult {
	if declaredFormat == "" {
		format, err := extractor.FormatFromPath(path)
		if err != nil {
			return e.fail(declaredFormat, err)
		}
		declaredFormat = string(format)
	}
	format, err := extractor.ParseFormat(declaredFormat)
	if err != nil {
		return e.fail(declaredFormat, err)
	}

	var lines []models.Line
	if format == models.FormatPDF && strings.EqualFold(filepath.Ext(path), ".pdf") {
		lines, err = e.pdfLines(path)
	} else {
		var content []byte
		content, err = extractor.ReadSource(path)
		if err == nil {
			lines, err = extractor.Normalize(content, format)
		}
	}
	if err != nil {
		return e.fail(declaredFormat, err)
	}

	return e.parseLines(lines, format)
}

func (e *Engine) pdfLines(path string) ([]models.Line, error) {
	content, err := extractor.ReadSource(path)
	if err != nil {
		return nil, err
	}
	lines, err := extractor.Normalize(content, models.FormatPDF)
	if err == nil {
		return lines, nil
	}
	// Fall back to the file-based path, which can use poppler.
	pages, pdfErr := extractor.ExtractText(path)
	if pdfErr != nil {
		return nil, &extractor.SourceReadError{Source: path, Err: pdfErr}
	}
	return extractor.Normalize([]byte(strings.Join(pages, "\n")), models.FormatTXT)
}

func (e *Engine) parseLines(lines []models.Line, format models.Format) *models.ParseResult {
	var warnings []models.ParseWarning

	dialect, detected := parser.AutoDetect(lines)
	if !detected {
		warnings = append(warnings, models.ParseWarning{
			Message: "could not recognize the report layout; no module markers or fault codes found",
		})
	}
	p, err := parser.New(dialect)
	if err != nil {
		// AutoDetect only returns known dialects.
		return e.fail(string(format), err)
	}

	report := p.Parse(lines)
	warnings = append(warnings, report.Warnings...)

	entries := Analyze(report.Faults)
	result := &models.ParseResult{
		Success:         true,
		ErrorCodes:      entries,
		VehicleInfo:     report.Vehicle,
		DiagnosticInfo:  report.Diagnostics,
		AnalysisSummary: summary.Summarize(entries, report.Vehicle, report.Diagnostics),
		FileType:        format,
		ParsedAt:        e.now(),
		ParseErrors:     warnings,
	}
	if result.ParseErrors == nil {
		result.ParseErrors = []models.ParseWarning{}
	}

	for _, w := range warnings {
		e.log.Debug().Int("line", w.Line).Str("module", w.Module).Msg(w.Message)
	}
	e.log.Info().
		Str("dialect", string(dialect)).
		Str("parser", p.Name()).
		Int("faults", len(entries)).
		Int("warnings", len(warnings)).
		Msg("diagnostic report parsed")

	return result
}

// Analyze classifies and prices raw faults, keeping document order and
// duplicates.
func Analyze(faults []models.RawFault) []models.ErrorCodeEntry {
	entries := make([]models.ErrorCodeEntry, 0, len(faults))
	for _, f := range faults {
		c := classifier.Classify(f.Code, f.Description, classifier.SurroundingText(f))
		entries = append(entries, estimator.Apply(models.ErrorCodeEntry{
			Code:        f.Code,
			Description: f.Description,
			Category:    c.Category,
			Severity:    c.Severity,
			StatusFlags: f.Status,
			Module:      f.Module,
			RelatedCode: f.RelatedCode,
			Detail:      f.Detail,
		}))
	}
	return entries
}

// fail builds the result for a hard failure.
func (e *Engine) fail(declaredFormat string, err error) *models.ParseResult {
	kind := "parse"
	switch {
	case errors.Is(err, extractor.ErrUnsupportedFormat):
		kind = "unsupported_format"
	case errors.Is(err, extractor.ErrSourceRead):
		kind = "source_read"
	}
	e.log.Warn().Err(err).Str("kind", kind).Str("format", declaredFormat).Msg("diagnostic report rejected")

	return &models.ParseResult{
		Success:    false,
		ErrorCodes: []models.ErrorCodeEntry{},
		DiagnosticInfo: models.DiagnosticInfo{
			Modules: []models.ModuleInfo{},
		},
		AnalysisSummary: models.AnalysisSummary{
			Priority:        models.PriorityLow,
			Categories:      map[models.Category]models.CategoryTotal{},
			Recommendations: []string{},
		},
		FileType:    models.Format(strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(declaredFormat), "."))),
		ParsedAt:    e.now(),
		Error:       err.Error(),
		ParseErrors: []models.ParseWarning{},
	}
}
