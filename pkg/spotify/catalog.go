package spotify

import (
	"context"
	"strconv"
	"strings"

	libspotify "github.com/zmb3/spotify"

	"Spotify-Metadata-Go/pkg/music"
)

// Client satisfies music.Searcher so pages can be collected concurrently.
var _ music.Searcher = (*Client)(nil)

// The wire types below mirror the search responses. Each field carries both
// a json and an xml tag so the same structs decode either format: JSON wraps
// results in a named array while the XML root element holds the repeated
// child elements directly.

// number holds a numeric field as sent. The service quotes most numbers in
// JSON but not all of them, and some items carry an empty string.
type number string

func (n *number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = ""
		return nil
	}
	if s, err := strconv.Unquote(string(b)); err == nil {
		*n = number(s)
		return nil
	}
	*n = number(b)
	return nil
}

type wireArtist struct {
	Href       string `json:"href" xml:"href,attr"`
	Name       string `json:"name" xml:"name"`
	Popularity number `json:"popularity" xml:"popularity"`
}

type wireAlbum struct {
	Href    string       `json:"href" xml:"href,attr"`
	Name    string       `json:"name" xml:"name"`
	Artists []wireArtist `json:"artists" xml:"artist"`
}

type wireTrack struct {
	Href        string       `json:"href" xml:"href,attr"`
	Name        string       `json:"name" xml:"name"`
	Artists     []wireArtist `json:"artists" xml:"artist"`
	Album       wireAlbum    `json:"album" xml:"album"`
	TrackNumber number       `json:"track-number" xml:"track-number"`
	Popularity  number       `json:"popularity" xml:"popularity"`
}

type artistSearch struct {
	Artists []wireArtist `json:"artists" xml:"artist"`
}

type albumSearch struct {
	Albums []wireAlbum `json:"albums" xml:"album"`
}

type trackSearch struct {
	Tracks []wireTrack `json:"tracks" xml:"track"`
}

// SearchTracks runs a track search and converts the results into
// music.Track values. A page the service does not know yields no tracks.
func (c *Client) SearchTracks(ctx context.Context, name string, page int) ([]music.Track, error) {
	var body trackSearch
	if ok, err := c.searchInto(ctx, KindTrack, name, page, &body); err != nil || !ok {
		return nil, err
	}
	tracks := make([]music.Track, len(body.Tracks))
	for i, t := range body.Tracks {
		tracks[i] = t.track()
	}
	return tracks, nil
}

// SearchArtists runs an artist search and converts the results.
func (c *Client) SearchArtists(ctx context.Context, name string, page int) ([]music.Artist, error) {
	var body artistSearch
	if ok, err := c.searchInto(ctx, KindArtist, name, page, &body); err != nil || !ok {
		return nil, err
	}
	artists := make([]music.Artist, len(body.Artists))
	for i, a := range body.Artists {
		artists[i] = a.artist()
	}
	return artists, nil
}

// SearchAlbums runs an album search and converts the results.
func (c *Client) SearchAlbums(ctx context.Context, name string, page int) ([]music.Album, error) {
	var body albumSearch
	if ok, err := c.searchInto(ctx, KindAlbum, name, page, &body); err != nil || !ok {
		return nil, err
	}
	albums := make([]music.Album, len(body.Albums))
	for i, a := range body.Albums {
		albums[i] = a.album()
	}
	return albums, nil
}

// searchInto decodes a search response into v. ok is false for a 404.
func (c *Client) searchInto(ctx context.Context, kind Kind, name string, page int, v any) (bool, error) {
	res, err := c.Search(ctx, kind, name, page)
	if err != nil {
		return false, err
	}
	if !res.Found() {
		return false, nil
	}
	return true, res.Decode(v)
}

func (a wireArtist) artist() music.Artist {
	return libspotify.SimpleArtist{
		Name: a.Name,
		ID:   idFromURI(a.Href),
		URI:  libspotify.URI(a.Href),
	}
}

func (a wireAlbum) album() music.Album {
	album := libspotify.SimpleAlbum{
		Name: a.Name,
		ID:   idFromURI(a.Href),
		URI:  libspotify.URI(a.Href),
	}
	for _, ar := range a.Artists {
		album.Artists = append(album.Artists, ar.artist())
	}
	return album
}

func (t wireTrack) track() music.Track {
	track := libspotify.FullTrack{
		SimpleTrack: libspotify.SimpleTrack{
			Name:        t.Name,
			ID:          idFromURI(t.Href),
			URI:         libspotify.URI(t.Href),
			TrackNumber: atoi(t.TrackNumber),
		},
		Album:      t.Album.album(),
		Popularity: popularity(t.Popularity),
	}
	for _, ar := range t.Artists {
		track.Artists = append(track.Artists, ar.artist())
	}
	return track
}

// idFromURI returns the last segment of a "spotify:<kind>:<id>" URI.
func idFromURI(uri string) libspotify.ID {
	if i := strings.LastIndexByte(uri, ':'); i >= 0 {
		return libspotify.ID(uri[i+1:])
	}
	return libspotify.ID(uri)
}

// popularity converts the service's 0..1 score to the 0..100 scale used by
// the Web API types. Missing or malformed values become 0.
func popularity(n number) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
	if err != nil {
		return 0
	}
	return int(f*100 + 0.5)
}

func atoi(n number) int {
	i, _ := strconv.Atoi(strings.TrimSpace(string(n)))
	return i
}
