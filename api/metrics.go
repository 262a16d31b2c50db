package api

import (
	"sync"
	"time"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	AlertUnlockFailureSpike AlertType = "unlock_failure_spike"
	AlertConflictSpike      AlertType = "document_conflict_spike"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

const (
	defaultUnlockFailureWindow    = time.Minute
	defaultUnlockFailureThreshold = 20
	defaultConflictWindow         = 10 * time.Minute
	defaultConflictThreshold      = 5
)

// window counts occurrences of one audit event over a sliding period.
type window struct {
	alert     AlertType
	message   string
	period    time.Duration
	threshold int
	hits      []time.Time
}

// metricsCollector watches audit events for bursts: many wrong passwords
// across sessions, or repeated save conflicts on the same document.
type metricsCollector struct {
	mu      sync.Mutex
	windows map[AuditEvent]*window
	now     func() time.Time
	alertFn AlertFunc
}

func newMetricsCollector(alertFn AlertFunc) *metricsCollector {
	return &metricsCollector{
		windows: map[AuditEvent]*window{
			AuditUnlockFailure: {
				alert:     AlertUnlockFailureSpike,
				message:   "unlock failure rate exceeds threshold",
				period:    defaultUnlockFailureWindow,
				threshold: defaultUnlockFailureThreshold,
			},
			AuditConflict: {
				alert:     AlertConflictSpike,
				message:   "save conflicts exceed threshold",
				period:    defaultConflictWindow,
				threshold: defaultConflictThreshold,
			},
		},
		now:     time.Now,
		alertFn: alertFn,
	}
}

// recordEvent inspects an audit event and updates the matching window.
func (m *metricsCollector) recordEvent(event AuditEvent) {
	if m == nil || m.alertFn == nil {
		return
	}
	m.mu.Lock()
	w, ok := m.windows[event]
	if !ok {
		m.mu.Unlock()
		return
	}
	now := m.now()
	w.hits = trimWindow(append(w.hits, now), now, w.period)
	if len(w.hits) < w.threshold {
		m.mu.Unlock()
		return
	}
	alert := AlertEvent{
		Type:      w.alert,
		Message:   w.message,
		Count:     len(w.hits),
		Threshold: w.threshold,
		Timestamp: now,
	}
	// Start over so one burst raises one alert.
	w.hits = w.hits[:0]
	m.mu.Unlock()

	m.alertFn(alert)
}

// trimWindow removes entries older than (now - period) from the sorted slice.
func trimWindow(times []time.Time, now time.Time, period time.Duration) []time.Time {
	cutoff := now.Add(-period)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
