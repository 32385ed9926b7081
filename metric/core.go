package metric

import (
	"time"
)

// Pass statuses reported by RecordPass.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// RecordCollected counts records an input segment produced.
func (r *Registry) RecordCollected(segment string, count int) {
	if r == nil || count <= 0 {
		return
	}
	r.recordsCollected.WithLabelValues(segment).Add(float64(count))
}

// RecordStaged counts records a storage segment wrote to its cache.
func (r *Registry) RecordStaged(segment string, count int) {
	if r == nil || count <= 0 {
		return
	}
	r.recordsStaged.WithLabelValues(segment).Add(float64(count))
}

// RecordDelivered counts records an output segment delivered.
func (r *Registry) RecordDelivered(segment string, count int) {
	if r == nil || count <= 0 {
		return
	}
	r.recordsDelivered.WithLabelValues(segment).Add(float64(count))
}

// RecordFailed counts records an output segment rejected definitively.
func (r *Registry) RecordFailed(segment string, count int) {
	if r == nil || count <= 0 {
		return
	}
	r.recordsFailed.WithLabelValues(segment).Add(float64(count))
}

// RecordArchived counts records a storage segment moved to the archive.
func (r *Registry) RecordArchived(segment string, count int) {
	if r == nil || count <= 0 {
		return
	}
	r.recordsArchived.WithLabelValues(segment).Add(float64(count))
}

// RecordJunked counts records a storage segment moved to the junk area.
func (r *Registry) RecordJunked(segment string, count int) {
	if r == nil || count <= 0 {
		return
	}
	r.recordsJunked.WithLabelValues(segment).Add(float64(count))
}

// RecordPass records one finished pipeline pass with its outcome and
// wall-clock duration.
func (r *Registry) RecordPass(action string, failed bool, duration time.Duration) {
	if r == nil {
		return
	}
	status := StatusSuccess
	if failed {
		status = StatusFailure
	}
	r.passRuns.WithLabelValues(action, status).Inc()
	r.passDuration.WithLabelValues(action).Observe(duration.Seconds())
}
