// Package handlers exposes the Spotify Metadata client over a small JSON HTTP
// API. Search and lookup bodies are passed through exactly as the upstream
// service returned them, with the content type of the configured response
// format. The journal endpoints report what has been queried so far.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"Spotify-Metadata-Go/pkg/db"
	"Spotify-Metadata-Go/pkg/music"
	"Spotify-Metadata-Go/pkg/spotify"
)

// maxPages caps the pages parameter of the tracks endpoint.
const maxPages = 10

// Metadata is the subset of spotify.Client used by the handlers.
type Metadata interface {
	music.Searcher
	Search(ctx context.Context, kind spotify.Kind, name string, page int) (*spotify.Result, error)
	Lookup(ctx context.Context, kind spotify.Kind, id, detail string) (*spotify.Result, error)
}

// Journal exposes the query history stored by the db package.
type Journal interface {
	RecentQueries(ctx context.Context, limit int) ([]db.Query, error)
	OutcomeCounts(ctx context.Context) ([]db.OutcomeCount, error)
}

// Application bundles the dependencies used by the HTTP handlers. Journal may
// be nil in which case the history endpoints answer 500.
type Application struct {
	Metadata Metadata
	Journal  Journal
	Log      logrus.FieldLogger
}

func (app *Application) logger() logrus.FieldLogger {
	if app.Log == nil {
		return logrus.StandardLogger()
	}
	return app.Log
}

// Search handles GET /api/search/{kind}?q=&page=.
func (app *Application) Search(w http.ResponseWriter, r *http.Request) {
	kind, err := spotify.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		app.respondJSONError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	page, ok := app.intParam(w, r, "page", spotify.DefaultPage)
	if !ok {
		return
	}
	res, err := app.Metadata.Search(r.Context(), kind, q, page)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	app.writeResult(w, r, res)
}

// Lookup handles GET /api/lookup/{kind}/{id}?detail=.
func (app *Application) Lookup(w http.ResponseWriter, r *http.Request) {
	kind, err := spotify.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	res, err := app.Metadata.Lookup(r.Context(), kind, chi.URLParam(r, "id"), r.URL.Query().Get("detail"))
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	app.writeResult(w, r, res)
}

// Tracks handles GET /api/tracks?q=&pages= returning typed tracks collected
// from the first pages result pages.
func (app *Application) Tracks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		app.respondJSONError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	pages, ok := app.intParam(w, r, "pages", 1)
	if !ok {
		return
	}
	if pages < 1 || pages > maxPages {
		app.respondJSONError(w, http.StatusBadRequest, "pages must be between 1 and "+strconv.Itoa(maxPages))
		return
	}
	tracks, err := music.CollectTracks(r.Context(), app.Metadata, q, pages)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	if tracks == nil {
		tracks = []music.Track{}
	}
	app.writeJSON(w, tracks)
}

// History handles GET /api/history?limit= listing recent journal entries.
func (app *Application) History(w http.ResponseWriter, r *http.Request) {
	if app.Journal == nil {
		app.respondJSONError(w, http.StatusInternalServerError, "journal not configured")
		return
	}
	limit, ok := app.intParam(w, r, "limit", 50)
	if !ok {
		return
	}
	qs, err := app.Journal.RecentQueries(r.Context(), limit)
	if err != nil {
		app.logger().WithError(err).Error("load query history")
		app.respondJSONError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if qs == nil {
		qs = []db.Query{}
	}
	app.writeJSON(w, qs)
}

// Outcomes handles GET /api/history/outcomes.
func (app *Application) Outcomes(w http.ResponseWriter, r *http.Request) {
	if app.Journal == nil {
		app.respondJSONError(w, http.StatusInternalServerError, "journal not configured")
		return
	}
	counts, err := app.Journal.OutcomeCounts(r.Context())
	if err != nil {
		app.logger().WithError(err).Error("load outcome counts")
		app.respondJSONError(w, http.StatusInternalServerError, "failed to load outcomes")
		return
	}
	if counts == nil {
		counts = []db.OutcomeCount{}
	}
	app.writeJSON(w, counts)
}

// writeResult passes the upstream body through. A not found result becomes a
// 404 JSON error.
func (app *Application) writeResult(w http.ResponseWriter, r *http.Request, res *spotify.Result) {
	if !res.Found() {
		app.respondJSONError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Type", res.Format().ContentType())
	if _, err := w.Write(res.Raw()); err != nil {
		app.logger().WithError(err).WithField("path", r.URL.Path).Error("write result")
	}
}

func (app *Application) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.logger().WithError(err).Error("encode response")
	}
}

// respondError maps client errors onto HTTP status codes.
func (app *Application) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		reqErr *spotify.RequestError
		decErr *spotify.DecodeError
	)
	switch {
	case errors.Is(err, spotify.ErrInvalidArgument):
		app.respondJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, spotify.ErrRateLimited):
		app.respondJSONError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &reqErr), errors.As(err, &decErr):
		app.logger().WithError(err).WithField("path", r.URL.Path).Warn("upstream failure")
		app.respondJSONError(w, http.StatusBadGateway, err.Error())
	default:
		app.logger().WithError(err).WithField("path", r.URL.Path).Error("request failed")
		app.respondJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

// respondJSONError writes {"error": msg} with the given status.
func (app *Application) respondJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		app.logger().WithError(err).WithField("status", status).Error("encode error response")
	}
}

// intParam reads an integer query parameter, falling back to def when it is
// absent. A malformed value writes a 400 and returns false.
func (app *Application) intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		app.respondJSONError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return n, true
}
