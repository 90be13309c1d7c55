// This file defines the middleware chain and router. Every response carries
// the headers in responseHeaders; requests are logged through logrus.
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// responseHeaders are set on every response. The API serves no active
// content so the Content Security Policy denies everything.
var responseHeaders = [][2]string{
	{"Content-Security-Policy", "default-src 'none'"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "same-origin"},
}

const hsts = "max-age=63072000; includeSubDomains"

// strictTransport adds HSTS to responses served over TLS.
func strictTransport(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs one line per request at info level, skipping /metrics
// which is polled by the scraper.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("http request")
		})
	}
}

// NewRouter registers the API routes. gatherer backs the /metrics endpoint and
// may be nil to leave it out.
func NewRouter(app *Application, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(app.logger()))
	r.Use(middleware.Recoverer)
	for _, h := range responseHeaders {
		r.Use(middleware.SetHeader(h[0], h[1]))
	}
	r.Use(strictTransport)

	r.Get("/api/search/{kind}", app.Search)
	r.Get("/api/lookup/{kind}/{id}", app.Lookup)
	r.Get("/api/tracks", app.Tracks)
	r.Get("/api/history", app.History)
	r.Get("/api/history/outcomes", app.Outcomes)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
