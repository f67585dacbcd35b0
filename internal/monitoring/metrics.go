// Package monitoring exposes Prometheus metrics for the HTTP surface and the
// loan lifecycle.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	ApplicationsTotal    *prometheus.CounterVec
	LoansDisbursedTotal  prometheus.Counter
	RepaymentsTotal      *prometheus.CounterVec
	RepaymentAmountTotal prometheus.Counter
	LoansClosedTotal     prometheus.Counter
	ReamortizationsTotal prometheus.Counter
	RemindersSentTotal   *prometheus.CounterVec
}

var (
	HTTP = HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lending_engine_http_requests_total",
				Help: "Total number of HTTP requests received.",
			},
			[]string{"method", "path", "code"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lending_engine_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "code"},
		),
	}

	Business = BusinessMetrics{
		ApplicationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lending_engine_applications_total",
				Help: "Loan applications by decision.",
			},
			[]string{"status"},
		),
		LoansDisbursedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lending_engine_loans_disbursed_total",
				Help: "Total number of loans disbursed.",
			},
		),
		RepaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lending_engine_repayments_total",
				Help: "Repayments by final status.",
			},
			[]string{"status"},
		),
		RepaymentAmountTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lending_engine_repayment_amount_total",
				Help: "Sum of applied repayment amounts.",
			},
		),
		LoansClosedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lending_engine_loans_closed_total",
				Help: "Total number of loans repaid in full.",
			},
		),
		ReamortizationsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lending_engine_reamortizations_total",
				Help: "Total number of schedule re-amortizations.",
			},
		),
		RemindersSentTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lending_engine_reminders_total",
				Help: "Installment reminders by outcome.",
			},
			[]string{"outcome"},
		),
	}
)

func RecordHTTPRequest(method, path, code string, duration time.Duration) {
	HTTP.RequestsTotal.WithLabelValues(method, path, code).Inc()
	HTTP.RequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

func RecordApplication(status string) {
	Business.ApplicationsTotal.WithLabelValues(status).Inc()
}

func RecordDisbursement() {
	Business.LoansDisbursedTotal.Inc()
}

// RecordRepayment counts a finalized repayment; only applied amounts are summed.
func RecordRepayment(status string, amount decimal.Decimal) {
	Business.RepaymentsTotal.WithLabelValues(status).Inc()
	if status == "APPLIED" {
		Business.RepaymentAmountTotal.Add(amount.InexactFloat64())
	}
}

func RecordSettlement(reamortized, closed bool) {
	if reamortized {
		Business.ReamortizationsTotal.Inc()
	}
	if closed {
		Business.LoansClosedTotal.Inc()
	}
}

func RecordReminder(outcome string) {
	Business.RemindersSentTotal.WithLabelValues(outcome).Inc()
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency labelled by the matched mux
// route template, so path parameters do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		path := "unmatched"
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		RecordHTTPRequest(r.Method, path, strconv.Itoa(rw.status), time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
