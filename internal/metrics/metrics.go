package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Check-in outcomes used as the "result" label.
const (
	ResultAccepted   = "accepted"
	ResultRejected   = "rejected"
	ResultInvalid    = "invalid"
	ResultNotFound   = "not_found"
	ResultStorageErr = "storage_error"
)

var (
	CheckIns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qrattend", Name: "checkins_total", Help: "Check-in attempts by outcome",
	}, []string{"result"})
	CheckInDistance = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "qrattend", Name: "checkin_distance_meters", Help: "Measured student-to-classroom distance",
		Buckets: []float64{5, 10, 25, 50, 75, 100, 250, 500, 1000, 5000},
	})
	HTTPErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qrattend", Name: "http_errors_total", Help: "Error responses by status code",
	}, []string{"code"})
	WorkerEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qrattend", Name: "worker_events_total", Help: "Queue events handled by the worker",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(CheckIns, CheckInDistance, HTTPErrors, WorkerEvents)
}

func Handler() http.Handler { return promhttp.Handler() }
