package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks clock-ins, penalties, finalization and scheduled jobs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ClockIns          *prometheus.CounterVec
	ClockInRejections *prometheus.CounterVec
	PenaltiesIssued   *prometheus.CounterVec
	RecordsFinalized  *prometheus.CounterVec
	JobRuns           *prometheus.CounterVec
	JobDuration       *prometheus.HistogramVec
	NotificationsSent prometheus.Counter
}

// New registers all collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ClockIns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_clock_ins_total",
			Help: "Accepted clock-ins by slot and slot status",
		}, []string{"slot", "status"}),
		ClockInRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_clock_in_rejections_total",
			Help: "Rejected clock-ins by reason",
		}, []string{"reason"}),
		PenaltiesIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_penalties_issued_total",
			Help: "Penalties written by violation type and kind (warning or fine)",
		}, []string{"violation_type", "kind"}),
		RecordsFinalized: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_records_finalized_total",
			Help: "Attendance records touched by end-of-day finalization",
		}, []string{"outcome"}),
		JobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_job_runs_total",
			Help: "Scheduled job executions by job and result",
		}, []string{"job", "result"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "presence_job_duration_seconds",
			Help:    "Duration of scheduled job executions",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"job"}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "presence_notifications_persisted_total",
			Help: "Notifications written by the notification workers",
		}),
	}
}

func (m *Metrics) ObserveClockIn(slot, status string) {
	if m == nil {
		return
	}
	m.ClockIns.WithLabelValues(slot, status).Inc()
}

func (m *Metrics) ObserveClockInRejected(reason string) {
	if m == nil {
		return
	}
	m.ClockInRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObservePenalty(violationType string, warning bool) {
	if m == nil {
		return
	}
	kind := "fine"
	if warning {
		kind = "warning"
	}
	m.PenaltiesIssued.WithLabelValues(violationType, kind).Inc()
}

func (m *Metrics) ObserveFinalized(created, updated int) {
	if m == nil {
		return
	}
	m.RecordsFinalized.WithLabelValues("created").Add(float64(created))
	m.RecordsFinalized.WithLabelValues("updated").Add(float64(updated))
}

// ObserveJob records one job execution. Call with time.Now() taken at the start.
func (m *Metrics) ObserveJob(job, result string, start time.Time) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job, result).Inc()
	m.JobDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveNotificationsPersisted(n int) {
	if m == nil {
		return
	}
	m.NotificationsSent.Add(float64(n))
}
