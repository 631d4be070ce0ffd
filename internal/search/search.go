package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/plumekit/plume/internal/domain"
)

// PostSource supplies the searchable feed.
type PostSource interface {
	GetPosts(ctx context.Context) ([]domain.Post, error)
}

// MediaSource supplies the searchable media files.
type MediaSource interface {
	GetFiles(ctx context.Context) ([]domain.MediaFile, error)
}

// ResultKind distinguishes what a search hit points at.
type ResultKind string

const (
	KindPost  ResultKind = "post"
	KindMedia ResultKind = "media"
)

// Result is one fuzzy search hit.
type Result struct {
	Kind     ResultKind
	Title    string // post preview or media file name
	PostID   int64  // set for posts
	URL      string // set for media files
	Distance int    // rank distance, lower is better
}

// Service fuzzy-matches a query against cached posts and media names. Both
// sources are cache-aside reads, so a warm search costs no round trips.
type Service struct {
	posts  PostSource
	media  MediaSource
	logger *slog.Logger
}

// NewService creates a new search service.
func NewService(posts PostSource, media MediaSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{posts: posts, media: media, logger: logger}
}

// Search returns posts and media files matching the query, best first.
func (s *Service) Search(ctx context.Context, query string) ([]Result, error) {
	if query == "" {
		return nil, nil
	}

	posts, err := s.posts.GetPosts(ctx)
	if err != nil {
		return nil, err
	}
	files, err := s.media.GetFiles(ctx)
	if err != nil {
		s.logger.Warn("media unavailable for search, matching posts only", "error", err)
		files = nil
	}

	candidates := make([]Result, 0, len(posts)+len(files))
	targets := make([]string, 0, len(posts)+len(files))
	for _, p := range posts {
		candidates = append(candidates, Result{Kind: KindPost, Title: p.Preview(80), PostID: p.ID})
		targets = append(targets, p.Content)
	}
	for _, f := range files {
		candidates = append(candidates, Result{Kind: KindMedia, Title: f.Name, URL: f.URL})
		targets = append(targets, f.Name)
	}

	ranks := fuzzy.RankFindNormalizedFold(query, targets)

	results := make([]Result, 0, len(ranks))
	for _, r := range ranks {
		hit := candidates[r.OriginalIndex]
		hit.Distance = r.Distance
		results = append(results, hit)
	}

	// Sort by score (lower is better)
	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	s.logger.Debug("search finished", "query", query, "hits", len(results))
	return results, nil
}
