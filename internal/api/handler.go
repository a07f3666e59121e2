package api

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/insightdelivered/diagnostic-report-parser/internal/config"
	"github.com/insightdelivered/diagnostic-report-parser/internal/engine"
	"github.com/insightdelivered/diagnostic-report-parser/internal/events"
	"github.com/insightdelivered/diagnostic-report-parser/internal/extractor"
	"github.com/insightdelivered/diagnostic-report-parser/internal/logger"
	"github.com/insightdelivered/diagnostic-report-parser/internal/models"
	"github.com/insightdelivered/diagnostic-report-parser/internal/writer"
)

// Version is reported by the health endpoint.
var Version = "dev"

// multipartOverhead is allowed on top of MaxInputBytes for form framing.
const multipartOverhead = 1 << 20

// ParseResponse is the JSON response from the /api/parse endpoint.
type ParseResponse struct {
	ReportID string `json:"reportId,omitempty"`
	*models.ParseResult
}

// ErrorResponse is returned when a request is rejected before parsing.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// ParseRequest holds the query and form options of a parse request.
type ParseRequest struct {
	Format string `validate:"max=32"`
	Output string `validate:"omitempty,oneof=json csv"`
	Header bool
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Engine        *engine.Engine
	Publisher     events.Publisher
	Log           *logger.Logger
	MaxInputBytes int
	DefaultFormat string

	limiter  *rate.Limiter
	validate *validator.Validate
}

// NewHandler creates a Handler from the parser and server configuration.
func NewHandler(eng *engine.Engine, pub events.Publisher, log *logger.Logger, cfg *config.Config) *Handler {
	h := &Handler{
		Engine:        eng,
		Publisher:     pub,
		Log:           log.WithComponent("api"),
		MaxInputBytes: cfg.Parser.MaxInputBytes,
		DefaultFormat: cfg.Parser.DefaultFormat,
		validate:      validator.New(),
	}
	if cfg.Server.RateLimit > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)
	}
	return h
}

// NewApp builds the fiber application with middleware and routes.
func NewApp(h *Handler, cfg config.ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "diagnostic-report-parser",
		BodyLimit:             h.MaxInputBytes + multipartOverhead,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          h.errorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "POST, GET, OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	app.Use(h.logRequests)

	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/parse", h.rateLimit, h.HandleParse)
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": Version,
	})
}

// HandleParse accepts a report either as a multipart upload (field "file",
// optional field "format") or as a raw body with ?format=. The response is
// the ParseResult as JSON, or the fault list as CSV when ?output=csv.
func (h *Handler) HandleParse(c *fiber.Ctx) error {
	req := ParseRequest{
		Format: c.Query("format"),
		Output: c.Query("output", "json"),
		Header: c.Query("header") != "false",
	}

	var content []byte
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
		}
		if fh.Size > int64(h.MaxInputBytes) {
			return h.tooLarge(c)
		}
		if f := c.FormValue("format"); f != "" {
			req.Format = f
		}
		if req.Format == "" {
			req.Format = strings.TrimPrefix(filepath.Ext(fh.Filename), ".")
		}

		file, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, fmt.Sprintf("Failed to read upload: %v", err))
		}
		defer file.Close()

		content, err = io.ReadAll(io.LimitReader(file, int64(h.MaxInputBytes)+1))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, fmt.Sprintf("Failed to read upload: %v", err))
		}
	} else {
		content = c.Body()
	}
	if len(content) > h.MaxInputBytes {
		return h.tooLarge(c)
	}
	if req.Format == "" {
		req.Format = h.DefaultFormat
	}

	if err := h.validate.Struct(req); err != nil {
		return writeValidationError(c, err)
	}
	if _, err := extractor.ParseFormat(req.Format); err != nil {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(ErrorResponse{Error: err.Error()})
	}

	result := h.Engine.Parse(content, req.Format)
	if !result.Success {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ParseResponse{ParseResult: result})
	}

	reportID := uuid.NewString()
	if h.Publisher != nil {
		if err := h.Publisher.PublishReportParsed(c.UserContext(), events.NewReportParsed(reportID, result)); err != nil {
			h.Log.WithError(err).Warn().Str("report_id", reportID).Msg("failed to publish report.parsed")
		}
	}

	if req.Output == "csv" {
		var buf bytes.Buffer
		w := &writer.CSVWriter{IncludeHeader: req.Header}
		if err := w.Write(&buf, result); err != nil {
			return writeError(c, fiber.StatusInternalServerError, fmt.Sprintf("CSV generation failed: %v", err))
		}
		c.Set("X-Report-Id", reportID)
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return c.Send(buf.Bytes())
	}

	return c.JSON(ParseResponse{ReportID: reportID, ParseResult: result})
}

func (h *Handler) tooLarge(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusRequestEntityTooLarge,
		fmt.Sprintf("Report exceeds the %d byte limit.", h.MaxInputBytes))
}

func (h *Handler) rateLimit(c *fiber.Ctx) error {
	if h.limiter != nil && !h.limiter.Allow() {
		return writeError(c, fiber.StatusTooManyRequests, "Too many requests.")
	}
	return c.Next()
}

func (h *Handler) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	rid, _ := c.Locals("requestid").(string)
	h.Log.WithRequestID(rid).Info().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("duration", time.Since(start)).
		Msg("request")
	return err
}

// errorHandler keeps every error response JSON, including fiber's own 413.
func (h *Handler) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	if code == fiber.StatusInternalServerError {
		h.Log.WithError(err).Error().Str("path", c.Path()).Msg("request failed")
	}
	return writeError(c, code, err.Error())
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ErrorResponse{
		Success: false,
		Error:   msg,
	})
}

func writeValidationError(c *fiber.Ctx, err error) error {
	details := make(map[string]string)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range verrs {
			switch e.Tag() {
			case "oneof":
				details[e.Field()] = "must be one of: " + e.Param()
			case "max":
				details[e.Field()] = "must be at most " + e.Param() + " characters"
			default:
				details[e.Field()] = "invalid value"
			}
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "Invalid request parameters.",
		Details: details,
	})
}
