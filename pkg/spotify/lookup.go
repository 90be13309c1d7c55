package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Detail controls how much related data a lookup includes.
type Detail string

const (
	DetailBasic       Detail = "basic"
	DetailAlbum       Detail = "album"
	DetailAlbumDetail Detail = "albumdetail"
	DetailTrack       Detail = "track"
	DetailTrackDetail Detail = "trackdetail"
)

// lookupDetails lists the detail levels each kind accepts, basic first.
var lookupDetails = map[Kind][]Detail{
	KindArtist: {DetailBasic, DetailAlbum, DetailAlbumDetail},
	KindAlbum:  {DetailBasic, DetailTrack, DetailTrackDetail},
	KindTrack:  {DetailBasic},
}

// URI returns the qualified catalogue identifier for id,
// e.g. "spotify:artist:4YrKBkKSVeqDamzBPWVnSJ".
func (k Kind) URI(id string) string {
	return "spotify:" + string(k) + ":" + id
}

// LookupArtist fetches an artist. detail is one of basic, album or
// albumdetail in any case; an empty detail means basic.
func (c *Client) LookupArtist(ctx context.Context, id, detail string) (*Result, error) {
	return c.Lookup(ctx, KindArtist, id, detail)
}

// LookupAlbum fetches an album. detail is one of basic, track or trackdetail
// in any case; an empty detail means basic.
func (c *Client) LookupAlbum(ctx context.Context, id, detail string) (*Result, error) {
	return c.Lookup(ctx, KindAlbum, id, detail)
}

// LookupTrack fetches a track. Tracks only support the basic detail level.
func (c *Client) LookupTrack(ctx context.Context, id, detail string) (*Result, error) {
	return c.Lookup(ctx, KindTrack, id, detail)
}

// Lookup fetches the entity of the given kind identified by id. Invalid
// detail levels are rejected with ErrInvalidArgument before any request.
func (c *Client) Lookup(ctx context.Context, kind Kind, id, detail string) (*Result, error) {
	path, params, err := lookupQuery(kind, id, detail)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, path, params)
}

func lookupQuery(kind Kind, id, detail string) (string, url.Values, error) {
	kind, err := ParseKind(string(kind))
	if err != nil {
		return "", nil, err
	}
	extras, err := extrasFor(kind, detail)
	if err != nil {
		return "", nil, err
	}
	return PathLookup, url.Values{
		"uri":    {kind.URI(id)},
		"extras": {extras},
	}, nil
}

// extrasFor maps a detail level onto the extras query parameter.
func extrasFor(kind Kind, detail string) (string, error) {
	d := Detail(strings.ToLower(detail))
	if d == "" {
		d = DetailBasic
	}
	allowed := lookupDetails[kind]
	for _, a := range allowed {
		if a != d {
			continue
		}
		if d == DetailBasic {
			return "", nil
		}
		return string(d), nil
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return "", fmt.Errorf("%w: invalid %s detail level %q, supported: %s", ErrInvalidArgument, kind, detail, strings.Join(names, ", "))
}
