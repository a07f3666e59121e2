package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/insightdelivered/diagnostic-report-parser/internal/models"
)

// VAGParser handles multi-module reports from VCDS and compatible tools.
//
// Layout:
//
//	VIN: WVWZZZ3CZEE123456   License Plate:
//	Mileage: 22291km-13851miles
//	Chassis Type: 3C0
//	-----------------------------------------------------------
//	Address 01: Engine (CBB)       Labels: 03L-906-022-CBB.clb
//	   Part No SW: 03L 906 022 B     HW: 03L 906 022 B
//	2 Faults Found:
//	17158 - Databus
//	            U0001 00 [009] - Missing Message
//	            Confirmed - Tested Since Memory Clear
//	...
type VAGParser struct{}

func (p *VAGParser) Name() string { return "VAG multi-module report" }

func (p *VAGParser) Dialect() models.Dialect { return models.DialectVAG }

type scanState int

const (
	stateHeader       scanState = iota // before the first module marker
	stateInModule                      // inside "Address NN:" before or after its fault list
	stateInFaultBlock                  // inside "N Faults Found:"
	stateBetween                       // after a separator, no module open
	stateOrphan                        // fault list with no module marker, skipped
)

// vagScanner is the per-call state of one VAGParser.Parse invocation.
type vagScanner struct {
	state  scanState
	report *models.Report

	module    *models.ModuleInfo
	collector *faultCollector
}

func (p *VAGParser) Parse(lines []models.Line) *models.Report {
	s := &vagScanner{
		state:  stateHeader,
		report: &models.Report{Diagnostics: models.DiagnosticInfo{Dialect: models.DialectVAG}},
	}
	for _, line := range lines {
		s.step(line)
	}
	s.closeModule()
	finishDiagnostics(&s.report.Diagnostics)
	return s.report
}

func (s *vagScanner) step(line models.Line) {
	text := line.Text

	if !isIndented(text) {
		if address, name, ok := parseAddress(text); ok {
			s.closeModule()
			s.openModule(address, name)
			return
		}
		if separatorPattern.MatchString(text) {
			if s.state != stateHeader {
				s.closeModule()
				s.state = stateBetween
			}
			return
		}
	}

	switch s.state {
	case stateHeader:
		if s.orphanFaultList(line) {
			return
		}
		scanHeaderLine(text, &s.report.Vehicle, &s.report.Diagnostics)
	case stateBetween:
		s.unmarkedSection(line)
	case stateOrphan:
		// skipped until the next separator or module marker
	case stateInModule:
		s.moduleLine(line)
	case stateInFaultBlock:
		s.faultLine(line)
	}
}

// orphanFaultList detects a fault list that has no module marker above it.
func (s *vagScanner) orphanFaultList(line models.Line) bool {
	trimmed := strings.TrimSpace(line.Text)
	if !faultsFoundPattern.MatchString(trimmed) {
		return false
	}
	s.warn(line.Num, "", "fault list without an Address header; section skipped")
	s.state = stateOrphan
	return true
}

// unmarkedSection handles the first content after a separator that is not a
// module marker. The section up to the next separator or marker is skipped.
func (s *vagScanner) unmarkedSection(line models.Line) {
	text := line.Text
	if isBlank(text) || reportTrailer.MatchString(strings.TrimSpace(text)) {
		return
	}
	if s.orphanFaultList(line) {
		return
	}
	if code, _, ok := splitCodeLine(text, isVAGCode); ok && !isIndented(text) {
		s.warn(line.Num, "", fmt.Sprintf("fault code %s outside any Address section; section skipped", code))
	} else {
		s.warn(line.Num, "", fmt.Sprintf("unrecognized section header %q; section skipped", strings.TrimSpace(text)))
	}
	s.state = stateOrphan
}

func (s *vagScanner) moduleLine(line models.Line) {
	trimmed := strings.TrimSpace(line.Text)
	if m := faultsFoundPattern.FindStringSubmatch(trimmed); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			s.warn(line.Num, s.collector.module, fmt.Sprintf("unreadable fault count %q", m[1]))
			n = 0
		}
		s.module.DeclaredFaultCount += n
		s.state = stateInFaultBlock
		return
	}
	if noFaultPattern.MatchString(trimmed) {
		return
	}
	parsePartNumbers(line.Text, s.module.PartNumbers)
}

func (s *vagScanner) faultLine(line models.Line) {
	text := line.Text
	c := s.collector

	switch {
	case isBlank(text):
		c.flush()
	case isIndented(text):
		c.status(line)
	default:
		if code, desc, ok := splitCodeLine(text, isVAGCode); ok {
			c.start(line, code, desc)
			return
		}
		if codeHeaderShape.MatchString(text) {
			c.malformed(line, "fault block without a parseable code")
			return
		}
		if closesFaultList(text) {
			c.flush()
			s.state = stateInModule
			s.moduleLine(line)
			return
		}
		c.malformed(line, "unrecognized line in fault list")
	}
}

// closesFaultList reports whether an un-indented line is a known module
// trailer or count line that ends a fault list.
func closesFaultList(text string) bool {
	trimmed := strings.TrimSpace(text)
	return reportTrailer.MatchString(trimmed) ||
		faultsFoundPattern.MatchString(trimmed) ||
		noFaultPattern.MatchString(trimmed)
}

func (s *vagScanner) openModule(address, name string) {
	s.module = &models.ModuleInfo{
		Address:     address,
		Name:        name,
		PartNumbers: make(map[string]string),
	}
	s.collector = newFaultCollector(moduleLabel(address, name))
	s.state = stateInModule
}

func (s *vagScanner) closeModule() {
	if s.module == nil {
		return
	}
	c := s.collector
	c.flush()

	s.module.FaultCount = len(c.faults)
	if len(s.module.PartNumbers) == 0 {
		s.module.PartNumbers = nil
	}
	if s.module.DeclaredFaultCount != s.module.FaultCount {
		c.warnings = append(c.warnings, models.ParseWarning{
			Module: c.module,
			Message: fmt.Sprintf("module declares %d fault(s) but %d were extracted",
				s.module.DeclaredFaultCount, s.module.FaultCount),
		})
	}

	s.report.Faults = append(s.report.Faults, c.faults...)
	s.report.Warnings = append(s.report.Warnings, c.warnings...)
	s.report.Diagnostics.Modules = append(s.report.Diagnostics.Modules, *s.module)
	s.module = nil
	s.collector = nil
}

func (s *vagScanner) warn(lineNum int, module, msg string) {
	s.report.Warnings = append(s.report.Warnings, models.ParseWarning{Line: lineNum, Module: module, Message: msg})
}

func moduleLabel(address, name string) string {
	if address == "" {
		return name
	}
	return address + " " + name
}

// finishDiagnostics derives the module counters.
func finishDiagnostics(d *models.DiagnosticInfo) {
	d.ModulesScanned = len(d.Modules)
	d.ModulesWithFaults = 0
	for _, m := range d.Modules {
		if m.FaultCount > 0 {
			d.ModulesWithFaults++
		}
	}
	if d.Modules == nil {
		d.Modules = []models.ModuleInfo{}
	}
}
