package parser

import (
	"testing"

	"github.com/insightdelivered/diagnostic-report-parser/internal/models"
)

func TestParseMileage(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		unit     models.MileageUnit
		ok       bool
	}{
		{"Mileage: 22291km-13851miles", 22291, models.MileageKM, true},
		{"Odometer: 85,000 miles", 85000, models.MileageMiles, true},
		{"Mileage: 12.345 km", 12345, models.MileageKM, true},
		{"Mileage: 1.234.567 km", 1234567, models.MileageKM, true},
		{"Odometer: 123.4 miles", 123, models.MileageMiles, true},
		{"Odometer: 85,000.5 miles", 85000, models.MileageMiles, true},
		{"Kilometerstand: 98765", 98765, "", true},
		{"VIN: WVWZZZ3CZEE123456   Mileage: 22291km-13851miles", 22291, models.MileageKM, true},
		{"Mileage:", 0, "", false},
		{"no reading here", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, unit, ok := parseMileage(tt.input)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if got != tt.expected {
				t.Errorf("got %d, want %d", got, tt.expected)
			}
			if unit != tt.unit {
				t.Errorf("unit: got %q, want %q", unit, tt.unit)
			}
		})
	}
}

func TestSplitCodeLine(t *testing.T) {
	tests := []struct {
		input string
		code  string
		desc  string
		ok    bool
	}{
		{"17158 - Databus", "17158", "Databus", true},
		{"0295 - Lost Communication with Instrument Cluster", "0295", "Lost Communication with Instrument Cluster", true},
		{"P0301 - Cylinder 1 Misfire Detected", "P0301", "Cylinder 1 Misfire Detected", true},
		{"P0A80: Replace Hybrid Battery Pack", "P0A80", "Replace Hybrid Battery Pack", true},
		{"01314 ", "01314", "", true},
		{"123 - Too short", "", "", false},
		{"Readiness: 0000 0000", "", "", false},
		{"XXXX - Unknown", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			code, desc, ok := splitCodeLine(tt.input, isVAGCode)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if code != tt.code {
				t.Errorf("code: got %q, want %q", code, tt.code)
			}
			if desc != tt.desc {
				t.Errorf("description: got %q, want %q", desc, tt.desc)
			}
		})
	}
}

func TestStatusFlags(t *testing.T) {
	tests := []struct {
		input    string
		expected models.StatusFlags
	}{
		{"Confirmed - Tested Since Memory Clear", models.StatusFlags{Confirmed: true}},
		{"Intermittent - Not Confirmed - Tested Since Memory Clear", models.StatusFlags{Intermittent: true}},
		{"MIL ON", models.StatusFlags{MILOn: true}},
		{"confirmed - mil on", models.StatusFlags{Confirmed: true, MILOn: true}},
		{"Unconfirmed", models.StatusFlags{}},
		{"Freeze Frame:", models.StatusFlags{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := statusFlags(tt.input)
			if got != tt.expected {
				t.Errorf("statusFlags(%q): got %+v, want %+v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseRelatedCode(t *testing.T) {
	tests := []struct {
		input  string
		code   string
		detail string
		ok     bool
	}{
		{"            U0001 00 [009] - Missing Message", "U0001", "Missing Message", true},
		{"            P0089 - 00 - Performance", "P0089", "Performance", true},
		{"   C0040 - 00 - Open or Short to Ground", "C0040", "Open or Short to Ground", true},
		{"   P0705", "P0705", "", true},
		{"   Confirmed - Tested Since Memory Clear", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			code, detail, ok := parseRelatedCode(tt.input)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if code != tt.code {
				t.Errorf("code: got %q, want %q", code, tt.code)
			}
			if detail != tt.detail {
				t.Errorf("detail: got %q, want %q", detail, tt.detail)
			}
		})
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		input   string
		address string
		name    string
		ok      bool
	}{
		{"Address 01: Engine (CBB)       Labels: 03L-906-022-CBB.clb", "01", "Engine", true},
		{"Address 19: CAN Gateway (J533)       Labels: 7N0-907-530-V1.clb", "19", "CAN Gateway", true},
		{"Address 3: ABS Brakes", "03", "ABS Brakes", true},
		{"Address 5f: Info Electr.", "5F", "Info Electr.", true},
		{"Address: Engine", "", "", false},
		{"   Address 01: Engine", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			address, name, ok := parseAddress(tt.input)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if address != tt.address {
				t.Errorf("address: got %q, want %q", address, tt.address)
			}
			if name != tt.name {
				t.Errorf("name: got %q, want %q", name, tt.name)
			}
		})
	}
}

func TestParsePartNumbers(t *testing.T) {
	parts := make(map[string]string)

	if !parsePartNumbers("   Part No SW: 03L 906 022 B     HW: 03L 906 022 B", parts) {
		t.Fatal("expected SW/HW line to be recognized")
	}
	if !parsePartNumbers("   Component: R4 2,0L EDC G000SG  5437", parts) {
		t.Fatal("expected component line to be recognized")
	}
	if parsePartNumbers("   Coding: 0000073", parts) {
		t.Error("coding line should not be recognized")
	}

	want := map[string]string{
		"SW":        "03L 906 022 B",
		"HW":        "03L 906 022 B",
		"Component": "R4 2,0L EDC G000SG 5437",
	}
	if len(parts) != len(want) {
		t.Fatalf("got %d entries, want %d: %v", len(parts), len(want), parts)
	}
	for k, v := range want {
		if parts[k] != v {
			t.Errorf("%s: got %q, want %q", k, parts[k], v)
		}
	}
}

func TestScanHeaderLine(t *testing.T) {
	var vehicle models.VehicleInfo
	var diag models.DiagnosticInfo

	for _, line := range []string{
		"Tuesday,14,March,2023,10:22:37:13487",
		"VCDS Version: Release 20.4.1 (x64)",
		"VIN: WVWZZZ3CZEE123456   License Plate:",
		"Mileage: 22291km-13851miles",
		"Chassis Type: 3C0",
		"VIN: AAAAAAAAAAAAAAAAA   Mileage: 1km",
	} {
		scanHeaderLine(line, &vehicle, &diag)
	}

	if vehicle.VIN != "WVWZZZ3CZEE123456" {
		t.Errorf("VIN: got %q", vehicle.VIN)
	}
	if vehicle.Mileage == nil || *vehicle.Mileage != 22291 {
		t.Errorf("mileage: got %v, want 22291", vehicle.Mileage)
	}
	if vehicle.MileageUnit != models.MileageKM {
		t.Errorf("unit: got %q", vehicle.MileageUnit)
	}
	if vehicle.ChassisType != "3C0" {
		t.Errorf("chassis: got %q", vehicle.ChassisType)
	}
	if diag.ScanTool != "VCDS Release 20.4.1 (x64)" {
		t.Errorf("scan tool: got %q", diag.ScanTool)
	}
	if diag.ScanDate != "Tuesday,14,March,2023,10:22:37:13487" {
		t.Errorf("scan date: got %q", diag.ScanDate)
	}
}

func TestScanHeaderLine_MissingFieldsStayEmpty(t *testing.T) {
	var vehicle models.VehicleInfo
	var diag models.DiagnosticInfo
	scanHeaderLine("Repair Order:", &vehicle, &diag)

	if vehicle.VIN != "" || vehicle.Mileage != nil || vehicle.MileageUnit != "" || vehicle.ChassisType != "" {
		t.Errorf("expected empty vehicle info, got %+v", vehicle)
	}
}
