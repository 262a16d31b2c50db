package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alertRecorder struct {
	alerts []AlertEvent
}

func (r *alertRecorder) record(e AlertEvent) { r.alerts = append(r.alerts, e) }

func newTestCollector(rec *alertRecorder, now *time.Time) *metricsCollector {
	c := newMetricsCollector(rec.record)
	c.now = func() time.Time { return *now }
	return c
}

func TestUnlockFailureSpikeAlert(t *testing.T) {
	rec := &alertRecorder{}
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	collector := newTestCollector(rec, &now)
	collector.windows[AuditUnlockFailure].threshold = 5

	for range 4 {
		collector.recordEvent(AuditUnlockFailure)
	}
	assert.Empty(t, rec.alerts, "no alert below threshold")

	collector.recordEvent(AuditUnlockFailure)
	require.Len(t, rec.alerts, 1)
	assert.Equal(t, AlertUnlockFailureSpike, rec.alerts[0].Type)
	assert.Equal(t, 5, rec.alerts[0].Count)
	assert.Equal(t, 5, rec.alerts[0].Threshold)
}

func TestConflictSpikeAlert(t *testing.T) {
	rec := &alertRecorder{}
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	collector := newTestCollector(rec, &now)

	for range defaultConflictThreshold - 1 {
		collector.recordEvent(AuditConflict)
		now = now.Add(time.Minute)
	}
	assert.Empty(t, rec.alerts)

	collector.recordEvent(AuditConflict)
	require.Len(t, rec.alerts, 1)
	assert.Equal(t, AlertConflictSpike, rec.alerts[0].Type)
}

func TestMetricsIgnoresOtherEvents(t *testing.T) {
	rec := &alertRecorder{}
	now := time.Now()
	collector := newTestCollector(rec, &now)
	collector.windows[AuditUnlockFailure].threshold = 1

	collector.recordEvent(AuditSave)
	collector.recordEvent(AuditUnlockSuccess)
	assert.Empty(t, rec.alerts)
}

func TestMetricsNoAlertWithoutCallback(t *testing.T) {
	collector := newMetricsCollector(nil)
	collector.recordEvent(AuditUnlockFailure)
}

func TestMetricsNilCollector(t *testing.T) {
	var collector *metricsCollector
	collector.recordEvent(AuditUnlockFailure)
}

func TestMetricsSlidingWindowExpiry(t *testing.T) {
	rec := &alertRecorder{}
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	collector := newTestCollector(rec, &now)
	collector.windows[AuditUnlockFailure].threshold = 5

	for range 4 {
		collector.recordEvent(AuditUnlockFailure)
	}
	now = now.Add(defaultUnlockFailureWindow + time.Second)

	collector.recordEvent(AuditUnlockFailure)
	assert.Empty(t, rec.alerts, "old failures should not count after window expiry")
}

func TestMetricsResetAfterAlert(t *testing.T) {
	rec := &alertRecorder{}
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	collector := newTestCollector(rec, &now)
	collector.windows[AuditUnlockFailure].threshold = 3

	for range 3 {
		collector.recordEvent(AuditUnlockFailure)
	}
	require.Len(t, rec.alerts, 1, "first alert triggered")

	for range 2 {
		collector.recordEvent(AuditUnlockFailure)
	}
	assert.Len(t, rec.alerts, 1, "no second alert yet")

	collector.recordEvent(AuditUnlockFailure)
	assert.Len(t, rec.alerts, 2, "second alert triggered")
}
