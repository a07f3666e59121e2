package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/insightdelivered/diagnostic-report-parser/internal/models"
)

// CSVWriter writes fault codes to CSV format.
type CSVWriter struct {
	IncludeHeader bool
}

// WriteToFile writes fault codes to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, result *models.ParseResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	if err := w.Write(f, result); err != nil {
		return err
	}
	return f.Close()
}

// Write writes fault codes in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, result *models.ParseResult) error {
	writer := csv.NewWriter(out)

	// Vehicle and scan metadata as comment rows
	if w.IncludeHeader {
		v := result.VehicleInfo
		if v.VIN != "" {
			writer.Write([]string{"# VIN", v.VIN})
		}
		if v.Mileage != nil {
			writer.Write([]string{"# Mileage", formatMileage(v)})
		}
		if v.ChassisType != "" {
			writer.Write([]string{"# Chassis Type", v.ChassisType})
		}
		if result.DiagnosticInfo.ScanTool != "" {
			writer.Write([]string{"# Scan Tool", result.DiagnosticInfo.ScanTool})
		}
		writer.Write([]string{"# Estimated Total Cost", formatCost(result.AnalysisSummary.EstimatedTotalCost)})
		writer.Write([]string{"# Priority", string(result.AnalysisSummary.Priority)})
	}

	header := []string{"Code", "Description", "Category", "Severity", "EstimatedCost", "Status", "Module"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, e := range result.ErrorCodes {
		row := []string{
			e.Code,
			e.Description,
			string(e.Category),
			string(e.Severity),
			formatCost(e.EstimatedCost),
			formatStatus(e.StatusFlags),
			e.Module,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// formatCost renders minor currency units as a decimal amount.
func formatCost(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

func formatMileage(v models.VehicleInfo) string {
	s := strconv.Itoa(*v.Mileage)
	if v.MileageUnit != "" {
		s += " " + string(v.MileageUnit)
	}
	return s
}

func formatStatus(f models.StatusFlags) string {
	var parts []string
	if f.Confirmed {
		parts = append(parts, "confirmed")
	}
	if f.Intermittent {
		parts = append(parts, "intermittent")
	}
	if f.MILOn {
		parts = append(parts, "milOn")
	}
	return strings.Join(parts, ";")
}
