package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// roundTripper returns a canned response and remembers every request.
type roundTripper struct {
	mu       sync.Mutex
	status   int
	body     string
	requests []*http.Request
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	rt.requests = append(rt.requests, req)
	rt.mu.Unlock()
	rec := httptest.NewRecorder()
	rec.WriteHeader(rt.status)
	if rt.body != "" {
		rec.WriteString(rt.body)
	}
	return rec.Result(), nil
}

func (rt *roundTripper) last(t *testing.T) *http.Request {
	t.Helper()
	if len(rt.requests) == 0 {
		t.Fatal("no request sent")
	}
	return rt.requests[len(rt.requests)-1]
}

func newTestClient(t *testing.T, format string, rt *roundTripper, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: rt})}, opts...)
	c, err := New(format, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNewDefaultsToXML(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Config().Format != FormatXML {
		t.Errorf("expected XML got %s", c.Config().Format)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New("yaml")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error got %v", err)
	}
	if !strings.Contains(err.Error(), "JSON, XML") {
		t.Errorf("message should list valid formats: %v", err)
	}
}

// TestSetResponseFormat checks normalisation and that a rejected format
// leaves the client unchanged.
func TestSetResponseFormat(t *testing.T) {
	c, _ := New("xml")
	if err := c.SetResponseFormat("json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Config().Format != FormatJSON {
		t.Fatalf("expected JSON got %s", c.Config().Format)
	}
	if err := c.SetResponseFormat("bogus"); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error got %v", err)
	}
	if c.Config().Format != FormatJSON {
		t.Errorf("format changed after rejected update: %s", c.Config().Format)
	}
}

func TestConfigWithResponseFormatIsCopy(t *testing.T) {
	base, _ := NewConfig("XML")
	next, err := base.WithResponseFormat("Json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.Format != FormatXML || next.Format != FormatJSON {
		t.Errorf("unexpected configs %+v %+v", base, next)
	}
}

func TestSearchInvalidPage(t *testing.T) {
	rt := &roundTripper{status: 200, body: `{}`}
	c := newTestClient(t, "JSON", rt)
	searches := []func(context.Context, string, int) (*Result, error){
		c.SearchByArtist, c.SearchByAlbum, c.SearchByTrack,
	}
	for _, search := range searches {
		for _, p := range []int{0, -1, -100} {
			_, err := search(context.Background(), "x", p)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("page %d: expected invalid argument got %v", p, err)
			}
			if err != nil && !strings.Contains(err.Error(), "page must be an integer of 1 or higher") {
				t.Errorf("unexpected message %v", err)
			}
		}
	}
	if len(rt.requests) != 0 {
		t.Errorf("expected no requests got %d", len(rt.requests))
	}
}

func TestSearchRequest(t *testing.T) {
	cases := []struct {
		kind Kind
		path string
	}{
		{KindArtist, "/search/1/artist"},
		{KindAlbum, "/search/1/album"},
		{KindTrack, "/search/1/track"},
	}
	for _, tc := range cases {
		rt := &roundTripper{status: 200, body: `{"info":{}}`}
		c := newTestClient(t, "JSON", rt)
		if _, err := c.Search(context.Background(), tc.kind, "foo bar", 2); err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.kind, err)
		}
		req := rt.last(t)
		if req.Method != http.MethodGet {
			t.Errorf("expected GET got %s", req.Method)
		}
		if req.URL.Host != "ws.spotify.com" || req.URL.Path != tc.path {
			t.Errorf("%s: unexpected url %s", tc.kind, req.URL)
		}
		q := req.URL.Query()
		if q.Get("q") != "foo bar" || q.Get("page") != "2" || len(q) != 2 {
			t.Errorf("%s: unexpected query %v", tc.kind, q)
		}
	}
}

// TestKindAnyCase ensures a Kind built from user input routes the same way
// as the lowercase constants.
func TestKindAnyCase(t *testing.T) {
	rt := &roundTripper{status: 200, body: `{}`}
	c := newTestClient(t, "JSON", rt)
	for kind, path := range map[Kind]string{
		"Artist": "/search/1/artist",
		"ALBUM":  "/search/1/album",
		"Track":  "/search/1/track",
	} {
		if _, err := c.Search(context.Background(), kind, "x", 1); err != nil {
			t.Fatalf("%s: unexpected error: %v", kind, err)
		}
		if got := rt.last(t).URL.Path; got != path {
			t.Errorf("%s: expected %s got %s", kind, path, got)
		}
	}

	if _, err := c.Lookup(context.Background(), Kind("Album"), "id", "track"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q := rt.last(t).URL.Query()
	if q.Get("uri") != "spotify:album:id" || q.Get("extras") != "track" {
		t.Errorf("unexpected query %v", q)
	}

	if _, err := c.Search(context.Background(), Kind("playlist"), "x", 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected invalid argument got %v", err)
	}
}

func TestLookupQueryParameters(t *testing.T) {
	path, params, err := lookupQuery(KindArtist, "abc123xyz", "basic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/lookup/1/" {
		t.Errorf("unexpected path %s", path)
	}
	if params.Get("uri") != "spotify:artist:abc123xyz" || params.Get("extras") != "" || len(params) != 2 {
		t.Errorf("unexpected params %v", params)
	}

	_, params, err = lookupQuery(KindAlbum, "abc123xyz", "TrackDetail")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Get("uri") != "spotify:album:abc123xyz" || params.Get("extras") != "trackdetail" {
		t.Errorf("unexpected params %v", params)
	}

	_, params, _ = lookupQuery(KindArtist, "id", "")
	if params.Get("extras") != "" {
		t.Errorf("empty detail should mean basic, got %v", params)
	}
}

func TestLookupInvalidDetail(t *testing.T) {
	rt := &roundTripper{status: 200, body: `{}`}
	c := newTestClient(t, "JSON", rt)
	cases := []struct {
		lookup func(context.Context, string, string) (*Result, error)
		detail string
		hint   string
	}{
		{c.LookupArtist, "track", "basic, album, albumdetail"},
		{c.LookupArtist, "everything", "basic, album, albumdetail"},
		{c.LookupAlbum, "album", "basic, track, trackdetail"},
		{c.LookupAlbum, "albumdetail", "basic, track, trackdetail"},
		{c.LookupTrack, "track", "basic"},
	}
	for _, tc := range cases {
		_, err := tc.lookup(context.Background(), "id", tc.detail)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: expected invalid argument got %v", tc.detail, err)
			continue
		}
		if !strings.Contains(err.Error(), tc.hint) {
			t.Errorf("%s: message should list %q: %v", tc.detail, tc.hint, err)
		}
	}
	if len(rt.requests) != 0 {
		t.Errorf("expected no requests got %d", len(rt.requests))
	}
}

func TestLookupRequest(t *testing.T) {
	rt := &roundTripper{status: 200, body: `{"artist":{"name":"A"}}`}
	c := newTestClient(t, "JSON", rt)
	if _, err := c.LookupArtist(context.Background(), "4YrKBkKSVeqDamzBPWVnSJ", "AlbumDetail"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := rt.last(t)
	if req.URL.Path != "/lookup/1/" {
		t.Errorf("unexpected path %s", req.URL.Path)
	}
	q := req.URL.Query()
	if q.Get("uri") != "spotify:artist:4YrKBkKSVeqDamzBPWVnSJ" || q.Get("extras") != "albumdetail" {
		t.Errorf("unexpected query %v", q)
	}
}

func TestAcceptHeader(t *testing.T) {
	rt := &roundTripper{status: 200, body: `<artists/>`}
	c := newTestClient(t, "XML", rt)
	if _, err := c.SearchByArtist(context.Background(), "a", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rt.last(t).Header.Get("Accept"); got != "application/xml, text/xml" {
		t.Errorf("unexpected xml accept header %q", got)
	}

	rt.body = `{}`
	if err := c.SetResponseFormat("JSON"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SearchByArtist(context.Background(), "a", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rt.last(t).Header.Get("Accept"); got != "application/json" {
		t.Errorf("unexpected json accept header %q", got)
	}
}

// TestJSONResult verifies the decoded tree equals the body's structure.
func TestJSONResult(t *testing.T) {
	body := `{"info":{"num_results":1,"page":1},"artists":[{"href":"spotify:artist:1","name":"Foo","popularity":"0.5"}]}`
	rt := &roundTripper{status: 200, body: body}
	c := newTestClient(t, "JSON", rt)
	res, err := c.SearchByArtist(context.Background(), "foo", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Found() || res.Format() != FormatJSON {
		t.Fatalf("unexpected result %+v", res)
	}
	var want any
	if err := json.Unmarshal([]byte(body), &want); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.JSON(), want) {
		t.Errorf("tree mismatch: %#v", res.JSON())
	}
	if res.XML() != nil {
		t.Error("json result should not carry an xml tree")
	}
}

func TestXMLResult(t *testing.T) {
	body := `<?xml version="1.0" encoding="utf-8"?>
<artists xmlns="http://www.spotify.com/ns/music/1"><artist href="spotify:artist:1"><name>Foo</name></artist></artists>`
	rt := &roundTripper{status: 200, body: body}
	c := newTestClient(t, "XML", rt)
	res, err := c.SearchByArtist(context.Background(), "foo", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root := res.XML().Root()
	if root == nil || root.Tag != "artists" {
		t.Fatalf("unexpected root %v", root)
	}
	artist := root.SelectElement("artist")
	if artist == nil || artist.SelectAttrValue("href", "") != "spotify:artist:1" {
		t.Fatalf("artist element missing")
	}
	if name := artist.SelectElement("name"); name == nil || name.Text() != "Foo" {
		t.Errorf("unexpected name element")
	}
}

func TestStatusHandling(t *testing.T) {
	t.Run("not modified", func(t *testing.T) {
		c := newTestClient(t, "JSON", &roundTripper{status: 304})
		res, err := c.SearchByTrack(context.Background(), "x", 1)
		if err != nil || !res.Found() || res.JSON() != nil {
			t.Fatalf("unexpected result %+v %v", res, err)
		}
	})
	t.Run("not found", func(t *testing.T) {
		c := newTestClient(t, "JSON", &roundTripper{status: 404, body: "missing"})
		res, err := c.LookupAlbum(context.Background(), "nope", "basic")
		if err != nil {
			t.Fatalf("404 must not be an error: %v", err)
		}
		if res.Found() {
			t.Error("expected not found result")
		}
	})
	t.Run("rate limited", func(t *testing.T) {
		c := newTestClient(t, "JSON", &roundTripper{status: 403})
		_, err := c.SearchByAlbum(context.Background(), "x", 1)
		if !errors.Is(err, ErrRateLimited) {
			t.Fatalf("expected rate limit error got %v", err)
		}
	})
	t.Run("server error", func(t *testing.T) {
		c := newTestClient(t, "JSON", &roundTripper{status: 500})
		_, err := c.SearchByAlbum(context.Background(), "x", 1)
		var reqErr *RequestError
		if !errors.As(err, &reqErr) || reqErr.StatusCode != 500 {
			t.Fatalf("expected request error 500 got %v", err)
		}
	})
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		format string
		body   string
	}{
		{"JSON", `{"artists":[`},
		{"JSON", ``},
		{"XML", `this is not xml`},
		{"XML", ``},
		{"XML", `<a/><b/>`},
		{"XML", `<a/>garbage`},
		{"XML", `<?xml version="1.0"?> <!-- no root -->`},
	}
	for _, tc := range cases {
		c := newTestClient(t, tc.format, &roundTripper{status: 200, body: tc.body})
		_, err := c.SearchByArtist(context.Background(), "x", 1)
		var decErr *DecodeError
		if !errors.As(err, &decErr) {
			t.Errorf("%s %q: expected decode error got %v", tc.format, tc.body, err)
			continue
		}
		if string(decErr.Format) != tc.format {
			t.Errorf("unexpected format on error %s", decErr.Format)
		}
	}
}

// TestFormatSwitchKeepsPriorResults ensures changing format affects only
// later calls.
func TestFormatSwitchKeepsPriorResults(t *testing.T) {
	rt := &roundTripper{status: 200, body: `{"a":1}`}
	c := newTestClient(t, "JSON", rt)
	first, err := c.SearchByTrack(context.Background(), "x", 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetResponseFormat("XML"); err != nil {
		t.Fatal(err)
	}
	rt.body = `<tracks/>`
	second, err := c.SearchByTrack(context.Background(), "x", 1)
	if err != nil {
		t.Fatal(err)
	}
	if first.Format() != FormatJSON || !reflect.DeepEqual(first.JSON(), map[string]any{"a": float64(1)}) {
		t.Errorf("first result changed: %+v", first)
	}
	if second.Format() != FormatXML || second.XML().Root().Tag != "tracks" {
		t.Errorf("unexpected second result %+v", second)
	}
}

func TestEndpointCacheRebinds(t *testing.T) {
	rt := &roundTripper{status: 200, body: `{}`}
	c := newTestClient(t, "JSON", rt)
	ctx := context.Background()
	c.SearchByArtist(ctx, "a", 1)
	c.SearchByArtist(ctx, "b", 3)
	c.LookupArtist(ctx, "id", "album")
	c.SearchByArtist(ctx, "c", 1)

	if len(c.endpoints) != 2 {
		t.Errorf("expected 2 cached endpoints got %d", len(c.endpoints))
	}
	// parameters from earlier calls must not leak into later ones
	q := rt.last(t).URL.Query()
	if q.Get("q") != "c" || q.Get("page") != "1" || q.Has("extras") || q.Has("uri") {
		t.Errorf("parameters leaked: %v", q)
	}
}

type fakeRecorder struct {
	records []QueryRecord
	err     error
}

func (f *fakeRecorder) RecordQuery(_ context.Context, rec QueryRecord) error {
	f.records = append(f.records, rec)
	return f.err
}

func TestRecorderAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	rec := &fakeRecorder{err: errors.New("disk full")}
	rt := &roundTripper{status: 404}
	c := newTestClient(t, "XML", rt, WithRecorder(rec), WithMetrics(m))

	if _, err := c.LookupTrack(context.Background(), "t1", "BASIC"); err != nil {
		t.Fatalf("recorder failure must not surface: %v", err)
	}
	c.SearchByArtist(context.Background(), "x", 0)

	if len(rec.records) != 1 {
		t.Fatalf("expected one record got %d", len(rec.records))
	}
	r := rec.records[0]
	if r.Path != PathLookup || r.Status != 404 || r.Outcome != OutcomeNotFound || r.Format != FormatXML {
		t.Errorf("unexpected record %+v", r)
	}
	if r.ID == "" || r.RequestedAt.IsZero() || r.Duration < 0 || r.Duration > time.Minute {
		t.Errorf("record metadata missing %+v", r)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues(PathLookup, "404")); got != 1 {
		t.Errorf("expected counter 1 got %v", got)
	}
}

func TestAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lookup/1/" || r.URL.Query().Get("uri") != "spotify:album:xyz" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"album":{"name":"Album"}}`))
	}))
	defer srv.Close()

	c, err := New("json", WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.LookupAlbum(context.Background(), "xyz", "track")
	if err != nil || !res.Found() {
		t.Fatalf("unexpected %+v %v", res, err)
	}
	var body struct {
		Album struct {
			Name string `json:"name"`
		} `json:"album"`
	}
	if err := res.Decode(&body); err != nil || body.Album.Name != "Album" {
		t.Errorf("decode: %v %+v", err, body)
	}
	miss, err := c.LookupAlbum(context.Background(), "other", "")
	if err != nil || miss.Found() {
		t.Errorf("expected not found got %+v %v", miss, err)
	}
}
