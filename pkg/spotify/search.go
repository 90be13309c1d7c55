package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Kind identifies the catalogue entity a query is about.
type Kind string

const (
	KindArtist Kind = "artist"
	KindAlbum  Kind = "album"
	KindTrack  Kind = "track"
)

// ParseKind accepts "artist", "album" or "track" in any case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindArtist, KindAlbum, KindTrack:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q, expected artist, album or track", ErrInvalidArgument, s)
}

// searchPath returns the search endpoint for k.
func (k Kind) searchPath() string {
	switch k {
	case KindArtist:
		return PathArtistSearch
	case KindAlbum:
		return PathAlbumSearch
	case KindTrack:
		return PathTrackSearch
	}
	return ""
}

// DefaultPage is the first result page.
const DefaultPage = 1

// SearchByArtist searches artists by name. page starts at 1.
func (c *Client) SearchByArtist(ctx context.Context, name string, page int) (*Result, error) {
	return c.Search(ctx, KindArtist, name, page)
}

// SearchByTrack searches tracks by name. page starts at 1.
func (c *Client) SearchByTrack(ctx context.Context, name string, page int) (*Result, error) {
	return c.Search(ctx, KindTrack, name, page)
}

// SearchByAlbum searches albums by name. page starts at 1.
func (c *Client) SearchByAlbum(ctx context.Context, name string, page int) (*Result, error) {
	return c.Search(ctx, KindAlbum, name, page)
}

// Search runs a search for the given kind. ErrInvalidArgument is returned
// without contacting the service when page is below 1.
func (c *Client) Search(ctx context.Context, kind Kind, name string, page int) (*Result, error) {
	path, params, err := searchQuery(kind, name, page)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, path, params)
}

func searchQuery(kind Kind, name string, page int) (string, url.Values, error) {
	kind, err := ParseKind(string(kind))
	if err != nil {
		return "", nil, err
	}
	if page < 1 {
		return "", nil, fmt.Errorf("%w: page must be an integer of 1 or higher", ErrInvalidArgument)
	}
	return kind.searchPath(), url.Values{
		"q":    {name},
		"page": {strconv.Itoa(page)},
	}, nil
}
