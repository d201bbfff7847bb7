package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/telemetry"
)

// UsageEvent records per-request cost and latency for observability.
type UsageEvent struct {
	QueryID          string                  `json:"query_id"`
	ChatbotID        string                  `json:"chatbot_id"`
	Model            string                  `json:"model"`
	PromptTokens     int                     `json:"prompt_tokens"`
	CompletionTokens int                     `json:"completion_tokens"`
	Cost             float64                 `json:"cost"`
	Latency          domain.LatencyBreakdown `json:"latency"`
	CreatedAt        time.Time               `json:"created_at"`
}

// Observer receives pipeline audit events. Violations are never dropped;
// usage events are best-effort observability.
type Observer interface {
	RecordViolation(ctx context.Context, report domain.PrivacyViolationReport)
	RecordUsage(ctx context.Context, event UsageEvent)
}

// NopObserver discards all events. Used in tests and degraded startup.
type NopObserver struct{}

func (NopObserver) RecordViolation(ctx context.Context, report domain.PrivacyViolationReport) {}
func (NopObserver) RecordUsage(ctx context.Context, event UsageEvent)                         {}

// ViolationSink persists privacy violation reports.
type ViolationSink interface {
	SaveViolation(ctx context.Context, report *domain.PrivacyViolationReport) error
}

// ViolationArchiver writes violation reports to long-term audit storage.
type ViolationArchiver interface {
	ArchiveViolation(ctx context.Context, report *domain.PrivacyViolationReport) error
}

// AuditObserver fans violation reports out to the structured log, Sentry,
// the database sink and the archive. Sink failures are logged, never
// propagated: a broken audit path must not take down the answer path,
// and the log line itself guarantees no detection goes unrecorded.
type AuditObserver struct {
	sink     ViolationSink
	archiver ViolationArchiver
}

// NewAuditObserver creates an AuditObserver. Both sink and archiver may be
// nil, in which case only log and Sentry records are produced.
func NewAuditObserver(sink ViolationSink, archiver ViolationArchiver) *AuditObserver {
	return &AuditObserver{sink: sink, archiver: archiver}
}

// RecordViolation records one detection across every configured channel.
func (o *AuditObserver) RecordViolation(ctx context.Context, report domain.PrivacyViolationReport) {
	entry, err := json.Marshal(map[string]any{
		"event":           "privacy_violation",
		"violation_id":    report.ID,
		"query_id":        report.QueryID,
		"chatbot_id":      report.ChatbotID,
		"source_chunk_id": report.SourceChunkID,
		"action":          string(report.Action),
		"fragment_length": len(report.LeakedFragment),
		"created_at":      report.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err == nil {
		log.Printf("AUDIT %s", entry)
	}

	telemetry.CaptureMessage(ctx, "privacy violation detected: chunk "+report.SourceChunkID+" action "+string(report.Action))

	if o.sink != nil {
		if err := o.sink.SaveViolation(ctx, &report); err != nil {
			log.Printf("audit: failed to persist violation %s: %v", report.ID, err)
			telemetry.CaptureError(ctx, err)
		}
	}
	if o.archiver != nil {
		if err := o.archiver.ArchiveViolation(ctx, &report); err != nil {
			log.Printf("audit: failed to archive violation %s: %v", report.ID, err)
			telemetry.CaptureError(ctx, err)
		}
	}
}

// RecordUsage emits one structured usage log line per completed request.
func (o *AuditObserver) RecordUsage(ctx context.Context, event UsageEvent) {
	entry, err := json.Marshal(struct {
		Event string `json:"event"`
		UsageEvent
	}{Event: "usage", UsageEvent: event})
	if err != nil {
		return
	}
	log.Printf("USAGE %s", entry)
}
