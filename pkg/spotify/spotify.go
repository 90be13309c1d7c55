// Package spotify is a client for the Spotify Metadata web service hosted at
// ws.spotify.com. It exposes artist, album and track search plus URI lookups
// and hands back the decoded response body as either a JSON value tree or an
// XML element tree depending on the configured response format.
//
// The service is unauthenticated so no credentials are required. Every public
// method issues exactly one GET request and blocks until the body has been
// decoded. A 404 from the service is not treated as an error; callers check
// Result.Found instead.
package spotify

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// BaseURL is the root of the Spotify Metadata API.
const BaseURL = "http://ws.spotify.com"

// Format selects the representation requested from the service.
type Format string

const (
	FormatJSON Format = "JSON"
	FormatXML  Format = "XML"

	// DefaultFormat is used when New is given an empty format.
	DefaultFormat = FormatXML
)

// acceptHeader returns the Accept header value sent for f.
func (f Format) acceptHeader() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "application/xml, text/xml"
}

// ContentType is the media type used when re-serving a body of this format.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "application/xml"
}

// Config is the validated client configuration. It is a value type; updates
// produce a new Config rather than modifying an existing one.
type Config struct {
	Format Format
}

// NewConfig validates format and returns the resulting configuration.
func NewConfig(format string) (Config, error) {
	return Config{}.WithResponseFormat(format)
}

// WithResponseFormat returns a copy of c using format. The comparison is case
// insensitive and the canonical upper case form is stored. c is left untouched
// when the format is rejected.
func (c Config) WithResponseFormat(format string) (Config, error) {
	switch f := Format(strings.ToUpper(strings.TrimSpace(format))); f {
	case FormatJSON, FormatXML:
		c.Format = f
		return c, nil
	default:
		return c, fmt.Errorf("%w: invalid response format %q, supported formats: JSON, XML", ErrConfiguration, format)
	}
}

// Option customises a Client created by New.
type Option func(*Client)

// WithBaseURL points the client at a different host, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default http.Client which has a 10 second
// timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for per request diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRecorder registers a journal that is told about every executed query.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// Client talks to the Spotify Metadata API. It is safe for concurrent use:
// each call builds its own request so no header or parameter state is shared
// between calls.
type Client struct {
	baseURL  string
	http     *http.Client
	log      logrus.FieldLogger
	metrics  *Metrics
	recorder Recorder

	mu  sync.RWMutex
	cfg Config

	// endpoints caches the parsed URL for each path queried so far.
	endpointsMu sync.Mutex
	endpoints   map[string]*endpoint
}

// New returns a Client requesting the given response format. An empty format
// selects DefaultFormat. ErrConfiguration is returned for anything other than
// JSON or XML.
func New(format string, opts ...Option) (*Client, error) {
	if format == "" {
		format = string(DefaultFormat)
	}
	cfg, err := NewConfig(format)
	if err != nil {
		return nil, err
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Client{
		baseURL:   BaseURL,
		http:      &http.Client{Timeout: 10 * time.Second},
		log:       discard,
		cfg:       cfg,
		endpoints: make(map[string]*endpoint),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the configuration currently in effect.
func (c *Client) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// SetResponseFormat switches the format used by subsequent queries. Results
// already returned are unaffected. On error the previous format is kept.
func (c *Client) SetResponseFormat(format string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg, err := c.cfg.WithResponseFormat(format)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}
