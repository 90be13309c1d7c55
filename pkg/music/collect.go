package music

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// maxConcurrentPages bounds the number of page requests in flight.
const maxConcurrentPages = 4

// CollectTracks fetches pages 1 through pages from s concurrently and merges
// them in page order. Duplicates are removed based on track ID, keeping the
// first occurrence. Any page failing fails the whole collection.
func CollectTracks(ctx context.Context, s Searcher, query string, pages int) ([]Track, error) {
	if pages < 1 {
		return nil, fmt.Errorf("pages must be 1 or higher")
	}
	results := make([][]Track, pages)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPages)
	for i := range results {
		i := i
		g.Go(func() error {
			tracks, err := s.SearchTracks(ctx, query, i+1)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			results[i] = tracks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var merged []Track
	for _, page := range results {
		for _, t := range page {
			id := string(t.ID)
			if id != "" {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
			}
			merged = append(merged, t)
		}
	}
	return merged, nil
}
