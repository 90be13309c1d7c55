// Package music defines the catalogue types and provider interfaces shared by
// the rest of the application. Tracks, artists and albums are aliases of the
// zmb3/spotify types so handlers encode them with familiar field names
// (Name, URI, Artists, Album etc). Providers fill in what their API returns
// and leave the rest zero.
package music

import (
	"context"

	libspotify "github.com/zmb3/spotify"
)

// Track represents a track returned by a music service.
type Track = libspotify.FullTrack

// Artist is the artist summary attached to tracks and search results.
type Artist = libspotify.SimpleArtist

// Album is the album summary attached to tracks and search results.
type Album = libspotify.SimpleAlbum

// Searcher returns one page of track search results. Pages start at 1. An
// empty slice with a nil error means the page holds no tracks.
type Searcher interface {
	SearchTracks(ctx context.Context, query string, page int) ([]Track, error)
}
