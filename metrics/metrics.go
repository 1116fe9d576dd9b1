// Package metrics exposes Prometheus counters for registry operations and the
// metrics HTTP server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ruteri/credential-registry/interfaces"
)

// Recorder counts registry operations by outcome. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registrations     *prometheus.CounterVec
	uploads           *prometheus.CounterVec
	endorsements      *prometheus.CounterVec
	orphans           prometheus.Counter
	signedURLFailures prometheus.Counter
	httpRequests      *prometheus.CounterVec
}

// NewRecorder registers the registry metrics with reg under namespace.
func NewRecorder(reg prometheus.Registerer, namespace string) *Recorder {
	if reg == nil {
		return nil
	}
	namespace = sanitize(namespace)
	factory := promauto.With(reg)

	return &Recorder{
		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Student registrations by outcome",
		}, []string{"outcome"}),
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Document uploads by outcome",
		}, []string{"outcome"}),
		endorsements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "endorsements_total",
			Help:      "Document endorsements by outcome",
		}, []string{"outcome"}),
		orphans: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphaned_content_total",
			Help:      "Stored documents whose ledger write failed",
		}),
		signedURLFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signed_url_failures_total",
			Help:      "Signed URL resolutions that failed while listing documents",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(interfaces.KindOf(err))
}

// ObserveRegistration counts one registration attempt.
func (r *Recorder) ObserveRegistration(err error) {
	if r == nil {
		return
	}
	r.registrations.WithLabelValues(outcome(err)).Inc()
}

// ObserveUpload counts one upload attempt.
func (r *Recorder) ObserveUpload(err error) {
	if r == nil {
		return
	}
	r.uploads.WithLabelValues(outcome(err)).Inc()
}

// ObserveEndorsement counts one endorsement attempt.
func (r *Recorder) ObserveEndorsement(err error) {
	if r == nil {
		return
	}
	r.endorsements.WithLabelValues(outcome(err)).Inc()
}

// IncOrphan counts one orphaned upload.
func (r *Recorder) IncOrphan() {
	if r == nil {
		return
	}
	r.orphans.Inc()
}

// IncSignedURLFailure counts one document listed without a URL.
func (r *Recorder) IncSignedURLFailure() {
	if r == nil {
		return
	}
	r.signedURLFailures.Inc()
}

// HTTPMiddleware counts requests by chi route pattern.
func (r *Recorder) HTTPMiddleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		route := req.URL.Path
		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.httpRequests.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
	})
}

func sanitize(name string) string {
	return strings.NewReplacer("-", "_", ".", "_", "/", "_").Replace(name)
}
