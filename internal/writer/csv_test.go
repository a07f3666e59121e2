package writer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/insightdelivered/diagnostic-report-parser/internal/models"
)

func sampleResult() *models.ParseResult {
	mileage := 22291
	return &models.ParseResult{
		Success: true,
		VehicleInfo: models.VehicleInfo{
			VIN:         "WVWZZZ3CZEE123456",
			Mileage:     &mileage,
			MileageUnit: models.MileageKM,
			ChassisType: "3C0",
		},
		DiagnosticInfo: models.DiagnosticInfo{ScanTool: "VCDS Release 20.4.1"},
		ErrorCodes: []models.ErrorCodeEntry{
			{
				Code: "17158", Description: "Databus", Category: models.CategoryElectrical,
				Severity: models.SeverityMedium, EstimatedCost: 6000,
				StatusFlags: models.StatusFlags{Confirmed: true}, Module: "01 Engine",
			},
			{
				Code: "4716", Description: "ABS Wheel Speed Sensor; Rear Left", Category: models.CategoryBrakes,
				Severity: models.SeverityHigh, EstimatedCost: 25000,
				StatusFlags: models.StatusFlags{Confirmed: true, MILOn: true}, Module: "03 ABS Brakes",
			},
		},
		AnalysisSummary: models.AnalysisSummary{
			EstimatedTotalCost: 31000,
			Priority:           models.PriorityHigh,
		},
	}
}

func TestCSVWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: true}
	err := w.Write(&buf, sampleResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()

	// Check metadata headers
	if !strings.Contains(output, "# VIN,WVWZZZ3CZEE123456") {
		t.Error("expected VIN metadata header")
	}
	if !strings.Contains(output, "# Mileage,22291 km") {
		t.Error("expected mileage metadata")
	}

	// Check column headers
	if !strings.Contains(output, "Code,Description,Category,Severity,EstimatedCost,Status,Module") {
		t.Error("expected column headers")
	}

	// Check fault data
	if !strings.Contains(output, "17158,Databus,Electrical,medium,60.00,confirmed,01 Engine") {
		t.Error("expected first fault row")
	}
	if !strings.Contains(output, "4716,ABS Wheel Speed Sensor; Rear Left,Brakes,high,250.00") {
		t.Error("expected second fault description")
	}
	if !strings.Contains(output, "confirmed;milOn") {
		t.Error("expected combined status flags")
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	// 6 metadata lines + 1 header + 2 faults = 9
	if len(lines) != 9 {
		t.Errorf("expected 9 lines, got %d", len(lines))
	}
}

func TestCSVWriter_WriteNoHeader(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: false}
	err := w.Write(&buf, sampleResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()

	// Should NOT have metadata
	if strings.Contains(output, "# VIN") {
		t.Error("should not have VIN metadata when header=false")
	}

	// Should still have column headers
	if !strings.HasPrefix(output, "Code,Description,Category,Severity,EstimatedCost,Status,Module") {
		t.Error("expected column headers even without metadata")
	}
}

func TestCSVWriter_WriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: false}
	if err := w.Write(&buf, &models.ParseResult{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Errorf("expected header only, got %d lines", len(lines))
	}
}

func TestFormatCost(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{6000, "60.00"},
		{31250, "312.50"},
		{0, "0.00"},
		{5, "0.05"},
		{-150, "-1.50"},
	}

	for _, tt := range tests {
		got := formatCost(tt.input)
		if got != tt.expected {
			t.Errorf("formatCost(%d): got %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		input    models.StatusFlags
		expected string
	}{
		{models.StatusFlags{}, ""},
		{models.StatusFlags{Intermittent: true}, "intermittent"},
		{models.StatusFlags{Confirmed: true, Intermittent: true, MILOn: true}, "confirmed;intermittent;milOn"},
	}

	for _, tt := range tests {
		got := formatStatus(tt.input)
		if got != tt.expected {
			t.Errorf("formatStatus(%+v): got %q, want %q", tt.input, got, tt.expected)
		}
	}
}
