package monitoring

import (
	"time"
)

type UploadStats struct {
	RequestsTotal uint64
	FailedTotal   uint64
	BytesTotal    int64
	AvgDurationMS float64
}

// RecordUpload tracks one image upload attempt. reason is empty on success.
func (m *Metrics) RecordUpload(bytes int64, duration time.Duration, success bool, reason string) {
	m.uploadRequestsTotal.Add(1)
	outcome := "success"
	if !success {
		m.uploadRequestsFailed.Add(1)
		outcome = "failure"
	}
	m.uploads.WithLabelValues(outcome, reason).Inc()

	if bytes > 0 && success {
		m.uploadBytesTotal.Add(bytes)
		m.uploadBytes.Add(float64(bytes))
	}
	if duration > 0 {
		m.uploadDurationMicrosTotal.Add(uint64(duration / time.Microsecond))
		m.uploadDuration.Observe(duration.Seconds())
	}
}

// RecordPlaceWrite counts a create, update or delete of a place.
func (m *Metrics) RecordPlaceWrite(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.placeWrites.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) uploadStats() UploadStats {
	total := m.uploadRequestsTotal.Load()
	totalDurationMicros := m.uploadDurationMicrosTotal.Load()
	avgDurationMS := 0.0
	if total > 0 {
		avgDurationMS = float64(totalDurationMicros) / float64(total) / 1000.0
	}

	return UploadStats{
		RequestsTotal: total,
		FailedTotal:   m.uploadRequestsFailed.Load(),
		BytesTotal:    m.uploadBytesTotal.Load(),
		AvgDurationMS: avgDurationMS,
	}
}
