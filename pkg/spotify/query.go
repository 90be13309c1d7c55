package spotify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Known API paths.
const (
	PathArtistSearch = "/search/1/artist"
	PathAlbumSearch  = "/search/1/album"
	PathTrackSearch  = "/search/1/track"
	PathLookup       = "/lookup/1/"
)

// Query outcomes reported to a Recorder.
const (
	OutcomeOK          = "ok"
	OutcomeNotFound    = "not_found"
	OutcomeRateLimited = "rate_limited"
	OutcomeBadStatus   = "bad_status"
	OutcomeDecodeError = "decode_error"
	OutcomeTransport   = "transport_error"
)

// QueryRecord describes one executed query.
type QueryRecord struct {
	ID          string
	Path        string
	Params      url.Values
	Format      Format
	Status      int
	Outcome     string
	Duration    time.Duration
	RequestedAt time.Time
}

// Recorder receives a QueryRecord after every request sent to the service.
// Errors are logged and otherwise ignored.
type Recorder interface {
	RecordQuery(ctx context.Context, rec QueryRecord) error
}

// endpoint is the absolute URL a path resolves to.
type endpoint struct {
	path string
	url  *url.URL
}

// request returns a new GET request for params. Nothing from a previous call
// is carried over.
func (e *endpoint) request(ctx context.Context, params url.Values) (*http.Request, error) {
	u := *e.url
	u.RawQuery = params.Encode()
	return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
}

// endpointFor returns the cached endpoint for path, creating it on first use.
func (c *Client) endpointFor(path string) (*endpoint, error) {
	c.endpointsMu.Lock()
	defer c.endpointsMu.Unlock()
	if e, ok := c.endpoints[path]; ok {
		return e, nil
	}
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("%w: bad endpoint %q: %v", ErrConfiguration, c.baseURL+path, err)
	}
	e := &endpoint{path: path, url: u}
	c.endpoints[path] = e
	return e, nil
}

// execute sends a GET for path with params and interprets the response.
func (c *Client) execute(ctx context.Context, path string, params url.Values) (*Result, error) {
	ep, err := c.endpointFor(path)
	if err != nil {
		return nil, err
	}
	format := c.Config().Format
	if format == "" {
		return nil, fmt.Errorf("%w: response format is not set", ErrConfiguration)
	}
	req, err := ep.request(ctx, params)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", format.acceptHeader())

	rec := QueryRecord{
		ID:          uuid.NewString(),
		Path:        path,
		Params:      params,
		Format:      format,
		RequestedAt: time.Now(),
	}
	logger := c.log.WithFields(logrus.Fields{"request_id": rec.ID, "path": path})

	res, err := c.do(req, format, &rec)
	rec.Duration = time.Since(rec.RequestedAt)
	c.metrics.observe(path, rec.Status, rec.Duration)
	c.record(ctx, logger, rec)

	logger = logger.WithFields(logrus.Fields{"status": rec.Status, "duration": rec.Duration})
	switch rec.Outcome {
	case OutcomeRateLimited:
		logger.Warn("spotify rate limiting has kicked in")
	case OutcomeOK, OutcomeNotFound:
		logger.Debug("spotify query complete")
	default:
		logger.WithError(err).Debug("spotify query failed")
	}
	return res, err
}

// do performs the round trip and fills in rec.Status and rec.Outcome.
func (c *Client) do(req *http.Request, format Format, rec *QueryRecord) (*Result, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		rec.Outcome = OutcomeTransport
		return nil, fmt.Errorf("spotify %s: %w", rec.Path, err)
	}
	defer resp.Body.Close()
	rec.Status = resp.StatusCode

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNotModified:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			rec.Outcome = OutcomeTransport
			return nil, fmt.Errorf("spotify %s: read body: %w", rec.Path, err)
		}
		res, err := decodeBody(format, resp.StatusCode, body)
		if err != nil {
			rec.Outcome = OutcomeDecodeError
			return nil, err
		}
		rec.Outcome = OutcomeOK
		return res, nil
	case http.StatusNotFound:
		rec.Outcome = OutcomeNotFound
		return notFound(format), nil
	case http.StatusForbidden:
		rec.Outcome = OutcomeRateLimited
		return nil, ErrRateLimited
	default:
		rec.Outcome = OutcomeBadStatus
		return nil, &RequestError{StatusCode: resp.StatusCode}
	}
}

func (c *Client) record(ctx context.Context, logger logrus.FieldLogger, rec QueryRecord) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordQuery(ctx, rec); err != nil {
		logger.WithError(err).Warn("record spotify query")
	}
}
