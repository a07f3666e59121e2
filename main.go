package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/insightdelivered/diagnostic-report-parser/internal/api"
	"github.com/insightdelivered/diagnostic-report-parser/internal/classifier"
	"github.com/insightdelivered/diagnostic-report-parser/internal/config"
	"github.com/insightdelivered/diagnostic-report-parser/internal/engine"
	"github.com/insightdelivered/diagnostic-report-parser/internal/events"
	"github.com/insightdelivered/diagnostic-report-parser/internal/logger"
	"github.com/insightdelivered/diagnostic-report-parser/internal/models"
	"github.com/insightdelivered/diagnostic-report-parser/internal/writer"
)

const version = "1.0.0"

func main() {
	// CLI flags
	formatFlag := flag.String("format", "", "Declared report format: txt, xml, pdf (derived from the file extension if omitted)")
	outputFlag := flag.String("output", "", "Output file path (defaults to input filename with .csv or .json extension)")
	jsonFlag := flag.Bool("json", false, "Write the full parse result as JSON instead of CSV")
	headerFlag := flag.Bool("header", true, "Include vehicle metadata header rows in CSV")
	explainFlag := flag.Bool("explain", false, "Print the classification rules that fired for each fault")
	serveFlag := flag.Bool("serve", false, "Start the HTTP API instead of converting files")
	configFlag := flag.String("config", "", "Config file path (defaults to ./config/diagparse.yaml or /etc/diagparse/diagparse.yaml)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Diagnostic Report Parser
by Insight Delivered (QEA AutoLens)

Parses vehicle diagnostic scanner exports (VCDS / VAG-COM multi-module
reports and OBD-II code lists) into classified, costed fault codes.

Usage:
  diagnostic-report-parser [flags] <report.txt> [report2.txt ...]
  diagnostic-report-parser --serve

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Parse a VCDS auto-scan and write scan.csv
  diagnostic-report-parser scan.txt

  # Write the full result as JSON
  diagnostic-report-parser --json --output=result.json scan.txt

  # Text extracted from a PDF export
  diagnostic-report-parser --format=pdf extracted.txt

  # Run the HTTP API (POST /api/parse, GET /api/health)
  DIAGPARSE_SERVER_PORT=9000 diagnostic-report-parser --serve
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("diagnostic-report-parser v%s\n", version)
		os.Exit(0)
	}

	if *helpFlag || (flag.NArg() == 0 && !*serveFlag) {
		flag.Usage()
		os.Exit(0)
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		fatalf("Configuration error: %v\n", err)
	}

	log := logger.New("diagnostic-report-parser", cfg.Server.Environment, cfg.Log.Level)
	eng := engine.New(engine.WithLogger(log.WithComponent("engine").Logger))

	if *serveFlag {
		if err := serve(cfg, eng, log); err != nil {
			fatalf("Server error: %v\n", err)
		}
		return
	}

	opts := outputOptions{
		path:    *outputFlag,
		json:    *jsonFlag,
		header:  *headerFlag,
		explain: *explainFlag,
	}
	if opts.path != "" && flag.NArg() > 1 {
		fatalf("--output can only be used with a single input file\n")
	}

	// Process each input file
	failed := false
	for _, inputPath := range flag.Args() {
		if err := processFile(eng, inputPath, *formatFlag, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", inputPath, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

type outputOptions struct {
	path    string
	json    bool
	header  bool
	explain bool
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func serve(cfg *config.Config, eng *engine.Engine, log *logger.Logger) error {
	pub, err := events.Connect(cfg.NATS.URL, cfg.NATS.Subject)
	if err != nil {
		return err
	}
	defer pub.Close()

	api.Version = version
	app := api.NewApp(api.NewHandler(eng, pub, log, cfg), cfg.Server)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		_ = app.Shutdown()
	}()

	log.Info().Str("addr", cfg.Server.Addr()).Bool("events", cfg.NATS.URL != "").Msg("listening")
	return app.Listen(cfg.Server.Addr())
}

func processFile(eng *engine.Engine, inputPath, format string, opts outputOptions) error {
	fmt.Printf("Processing: %s\n", inputPath)

	result := eng.ParseFile(inputPath, format)
	if !result.Success {
		return errors.New(result.Error)
	}

	fmt.Printf("  Dialect: %s\n", result.DiagnosticInfo.Dialect)
	if result.DiagnosticInfo.ScanTool != "" {
		fmt.Printf("  Scan tool: %s\n", result.DiagnosticInfo.ScanTool)
	}
	if v := result.VehicleInfo; v.VIN != "" {
		fmt.Printf("  VIN: %s\n", v.VIN)
	}
	if v := result.VehicleInfo; v.Mileage != nil {
		fmt.Printf("  Mileage: %d %s\n", *v.Mileage, v.MileageUnit)
	}
	fmt.Printf("  Modules scanned: %d (%d with faults)\n",
		result.DiagnosticInfo.ModulesScanned, result.DiagnosticInfo.ModulesWithFaults)
	fmt.Printf("  Found %d fault code(s)\n", len(result.ErrorCodes))

	if opts.explain {
		printExplanations(result)
	}

	for _, w := range result.ParseErrors {
		if w.Line > 0 {
			fmt.Printf("  Warning (line %d): %s\n", w.Line, w.Message)
		} else {
			fmt.Printf("  Warning: %s\n", w.Message)
		}
	}

	outPath := opts.path
	if outPath == "" {
		ext := ".csv"
		if opts.json {
			ext = ".json"
		}
		outPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ext
	}

	if opts.json {
		if err := writeJSON(outPath, result); err != nil {
			return fmt.Errorf("JSON write failed: %w", err)
		}
	} else {
		w := &writer.CSVWriter{IncludeHeader: opts.header}
		if err := w.WriteToFile(outPath, result); err != nil {
			return fmt.Errorf("CSV write failed: %w", err)
		}
	}

	fmt.Printf("  Output: %s\n", outPath)

	// Print summary
	s := result.AnalysisSummary
	fmt.Printf("  Priority: %s (%d critical, %d medium, %d low)\n", s.Priority, s.CriticalErrors, s.MediumErrors, s.LowErrors)
	fmt.Printf("  Estimated total cost: %d.%02d\n", s.EstimatedTotalCost/100, s.EstimatedTotalCost%100)
	for _, rec := range s.Recommendations {
		fmt.Printf("  - %s\n", rec)
	}

	fmt.Println("  Done.")
	return nil
}

func printExplanations(result *models.ParseResult) {
	for _, e := range result.ErrorCodes {
		ctx := classifier.SurroundingText(models.RawFault{Module: e.Module, RelatedCode: e.RelatedCode, Detail: e.Detail})
		ex := classifier.Explain(e.Code, e.Description, ctx)
		catRule := ex.CategoryRule
		if catRule == "" {
			catRule = "default"
		}
		sevRule := ex.SeverityRule
		if sevRule == "" {
			sevRule = "default"
		}
		fmt.Printf("  %-6s %-13s [%s] %-6s [%s]\n", e.Code, e.Category, catRule, e.Severity, sevRule)
	}
}

func writeJSON(path string, result *models.ParseResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
