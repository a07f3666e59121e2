// Package events publishes report notifications over NATS with
// OpenTelemetry trace propagation.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/insightdelivered/diagnostic-report-parser/internal/models"
)

// ReportParsed is published after a report has been parsed successfully.
type ReportParsed struct {
	ReportID           string          `json:"reportId"`
	VIN                string          `json:"vin,omitempty"`
	FileType           models.Format   `json:"fileType"`
	TotalErrors        int             `json:"totalErrors"`
	CriticalErrors     int             `json:"criticalErrors"`
	EstimatedTotalCost int64           `json:"estimatedTotalCost"`
	Priority           models.Priority `json:"priority"`
	Codes              []string        `json:"codes"`
	Warnings           int             `json:"warnings"`
	ParsedAt           time.Time       `json:"parsedAt"`
}

// NewReportParsed builds the event for a parse result.
func NewReportParsed(reportID string, result *models.ParseResult) ReportParsed {
	codes := make([]string, 0, len(result.ErrorCodes))
	for _, e := range result.ErrorCodes {
		codes = append(codes, e.Code)
	}
	return ReportParsed{
		ReportID:           reportID,
		VIN:                result.VehicleInfo.VIN,
		FileType:           result.FileType,
		TotalErrors:        result.AnalysisSummary.TotalErrors,
		CriticalErrors:     result.AnalysisSummary.CriticalErrors,
		EstimatedTotalCost: result.AnalysisSummary.EstimatedTotalCost,
		Priority:           result.AnalysisSummary.Priority,
		Codes:              codes,
		Warnings:           len(result.ParseErrors),
		ParsedAt:           result.ParsedAt,
	}
}

// Publisher sends ReportParsed events.
type Publisher interface {
	PublishReportParsed(ctx context.Context, ev ReportParsed) error
	Close()
}

// NopPublisher drops every event. It is used when NATS is not configured.
type NopPublisher struct{}

func (NopPublisher) PublishReportParsed(context.Context, ReportParsed) error { return nil }
func (NopPublisher) Close()                                                 {}

// NATSPublisher publishes events to a NATS subject.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

// Connect dials NATS and returns a publisher for subject. An empty url
// returns a NopPublisher.
func Connect(url, subject string) (Publisher, error) {
	if url == "" {
		return NopPublisher{}, nil
	}
	nc, err := nats.Connect(url, nats.Name("diagnostic-report-parser"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats %q: %w", url, err)
	}
	return NewNATSPublisher(nc, subject), nil
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{nc: nc, subject: subject}
}

// PublishReportParsed publishes ev. Trace context from ctx is injected into
// the message headers.
func (p *NATSPublisher) PublishReportParsed(ctx context.Context, ev ReportParsed) error {
	msg, err := newMsg(ctx, p.subject, ev)
	if err != nil {
		return err
	}
	return p.nc.PublishMsg(msg)
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}

func newMsg(ctx context.Context, subject string, v any) (*nats.Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return msg, nil
}

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}
