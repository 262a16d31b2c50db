package api

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditUnlockSuccess   AuditEvent = "unlock_success"
	AuditUnlockFailure   AuditEvent = "unlock_failure"
	AuditUnlockThrottled AuditEvent = "unlock_throttled"
	AuditLock            AuditEvent = "lock"
	AuditLoad            AuditEvent = "document_loaded"
	AuditLoadFailure     AuditEvent = "document_load_failure"
	AuditSave            AuditEvent = "document_saved"
	AuditConflict        AuditEvent = "document_conflict"
	AuditGateGenerated   AuditEvent = "gate_generated"
	AuditGateDisabled    AuditEvent = "gate_disabled"
	AuditReviewsImported AuditEvent = "reviews_imported"
	AuditLogout          AuditEvent = "logout"
)

// auditLogger wraps slog.Logger for structured security audit logging.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
}

func newAuditLogger(logger *slog.Logger, alertFn AlertFunc) *auditLogger {
	return &auditLogger{
		logger:  logger.With("component", "audit"),
		metrics: newMetricsCollector(alertFn),
	}
}

func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
	al.metrics.recordEvent(event)
}

// logFailure logs a refused or failed action.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, err error, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("reason", err.Error()),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}
