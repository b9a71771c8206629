// Package rerank turns raw candidates from semantic search or a catalog
// fallback into a scored, explained, truncated recommendation list.
package rerank

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	catalogx "github.com/stylora/concierge/agent/catalog"
	contractx "github.com/stylora/concierge/agent/contract"
	vectorsearchx "github.com/stylora/concierge/pkg/vectorsearch"
)

const (
	defaultTopK      = 50
	defaultRerankTop = 10
)

// Embedder turns query text into a fixed-length vector. Optional capability.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// VectorIndex returns nearest neighbors for an embedding. Optional capability.
type VectorIndex interface {
	Query(ctx context.Context, vector []float64, topK int) ([]vectorsearchx.Match, error)
}

// TrendSource reports a normalized interest score in [0,1] per keyword.
// Optional capability.
type TrendSource interface {
	Scores(ctx context.Context, keywords []string) (map[string]float64, error)
}

// Query carries the personalization request context.
type Query struct {
	Text     string
	Category string
}

// Options bound candidate retrieval and the returned list size.
type Options struct {
	TopK      int
	RerankTop int
}

// Ranker scores candidates against a user profile. Collaborator failures
// degrade to the next fallback tier; the ranker itself is deterministic.
type Ranker struct {
	profiles contractx.ProfileSource
	catalog  catalogx.Store
	embedder Embedder
	index    VectorIndex
	trends   TrendSource

	now func() time.Time
}

// Option configures optional Ranker capabilities.
type Option func(*Ranker)

// WithTrendSource adds a trend-signal source. Scored candidates whose category
// is currently trending receive an extra bonus proportional to the trend.
func WithTrendSource(src TrendSource) Option {
	return func(r *Ranker) {
		r.trends = src
	}
}

func New(profiles contractx.ProfileSource, catalog catalogx.Store, embedder Embedder, index VectorIndex, opts ...Option) (*Ranker, error) {
	if profiles == nil {
		return nil, errors.New("profile source is required")
	}
	r := &Ranker{
		profiles: profiles,
		catalog:  catalog,
		embedder: embedder,
		index:    index,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// PersonalizedRecommendations resolves candidates, scores them against the
// user's profile, and returns the top results ordered by score.
func (r *Ranker) PersonalizedRecommendations(ctx context.Context, userID string, q Query, opts Options) ([]contractx.Recommendation, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	rerankTop := opts.RerankTop
	if rerankTop <= 0 {
		rerankTop = defaultRerankTop
	}

	prof := r.profiles.Profile(ctx, userID)

	candidates, err := r.resolveCandidates(ctx, q, topK)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []contractx.Recommendation{}, nil
	}

	trends := r.trendScores(ctx, candidates)

	now := r.now().UTC()
	recs := make([]contractx.Recommendation, 0, len(candidates))
	for _, c := range candidates {
		score, reasons := r.score(c, prof, trends, now)
		recs = append(recs, contractx.Recommendation{
			ID:          c.id,
			Score:       score,
			Metadata:    c.meta,
			Explanation: explain(reasons),
		})
	}

	sortRecommendations(recs)
	if len(recs) > rerankTop {
		recs = recs[:rerankTop]
	}
	return recs, nil
}

// resolveCandidates walks the fallback chain: semantic search when both the
// embedder and the index are available, otherwise a rating-ordered catalog
// scan. Only a hard failure of every tier is an error.
func (r *Ranker) resolveCandidates(ctx context.Context, q Query, topK int) ([]candidate, error) {
	var failures []error

	if q.Text != "" && r.embedder != nil && r.index != nil {
		candidates, err := r.semanticCandidates(ctx, q.Text, topK)
		if err == nil {
			return filterByCategory(candidates, q.Category), nil
		}
		failures = append(failures, err)
		log.Warn().Err(err).Msg("semantic search unavailable, falling back to catalog scan")
	}

	if r.catalog != nil {
		products, err := r.catalog.TopRated(ctx, topK)
		if err == nil {
			candidates := make([]candidate, 0, len(products))
			for _, p := range products {
				candidates = append(candidates, fromProduct(p))
			}
			return filterByCategory(candidates, q.Category), nil
		}
		failures = append(failures, err)
		log.Warn().Err(err).Msg("catalog scan failed")
	}

	if len(failures) > 0 {
		return nil, &contractx.ExternalServiceError{
			Source:  "recommendation candidates",
			Message: "all candidate sources failed",
			Err:     errors.Join(failures...),
		}
	}
	return nil, nil
}

// filterByCategory drops candidates whose category explicitly mismatches the
// requested one. Candidates without category metadata are kept: losing the
// label must not lose the product.
func filterByCategory(candidates []candidate, category string) []candidate {
	category = strings.TrimSpace(category)
	if category == "" {
		return candidates
	}
	kept := candidates[:0]
	for _, c := range candidates {
		if c.category == "" || strings.EqualFold(c.category, category) {
			kept = append(kept, c)
		}
	}
	return kept
}

// trendScores fetches one trend score per distinct candidate category. Trend
// failures only cost the bonus, never the recommendation list.
func (r *Ranker) trendScores(ctx context.Context, candidates []candidate) map[string]float64 {
	if r.trends == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var keywords []string
	for _, c := range candidates {
		key := strings.ToLower(strings.TrimSpace(c.category))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keywords = append(keywords, key)
	}
	if len(keywords) == 0 {
		return nil
	}
	sort.Strings(keywords)

	scores, err := r.trends.Scores(ctx, keywords)
	if err != nil {
		log.Warn().Err(err).Msg("trend scores unavailable")
		return nil
	}

	normalized := make(map[string]float64, len(scores))
	for kw, v := range scores {
		normalized[strings.ToLower(strings.TrimSpace(kw))] = clampScore(v)
	}
	return normalized
}

func (r *Ranker) semanticCandidates(ctx context.Context, text string, topK int) ([]candidate, error) {
	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	matches, err := r.index.Query(ctx, vector, topK)
	if err != nil {
		return nil, err
	}

	candidates := make([]candidate, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, fromMatch(m))
	}
	return r.hydrateFromCatalog(ctx, candidates), nil
}

// hydrateFromCatalog backfills candidates the index returned without metadata.
// A catalog miss here only loses scoring signal, never the candidate.
func (r *Ranker) hydrateFromCatalog(ctx context.Context, candidates []candidate) []candidate {
	if r.catalog == nil {
		return candidates
	}

	var missing []string
	for _, c := range candidates {
		if c.meta == nil {
			missing = append(missing, c.id)
		}
	}
	if len(missing) == 0 {
		return candidates
	}

	products, err := r.catalog.ByIDs(ctx, missing)
	if err != nil {
		log.Debug().Err(err).Int("count", len(missing)).Msg("candidate hydration skipped")
		return candidates
	}

	byID := make(map[string]catalogx.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for i := range candidates {
		if candidates[i].meta != nil {
			continue
		}
		p, ok := byID[candidates[i].id]
		if !ok {
			continue
		}
		hydrated := fromProduct(p)
		hydrated.base = candidates[i].base
		candidates[i] = hydrated
	}
	return candidates
}

// MergeAndScore merges recommendation lists from multiple agents into one
// deterministic ranking: duplicates keep their best score, scores stay
// clamped to [0,1], and ordering depends only on score and id.
func (r *Ranker) MergeAndScore(lists [][]contractx.Recommendation, limit int) []contractx.Recommendation {
	if limit <= 0 {
		limit = defaultRerankTop
	}

	best := make(map[string]contractx.Recommendation)
	for _, list := range lists {
		for _, rec := range list {
			rec.Score = clampScore(rec.Score)
			if existing, ok := best[rec.ID]; !ok || rec.Score > existing.Score {
				best[rec.ID] = rec
			}
		}
	}

	merged := make([]contractx.Recommendation, 0, len(best))
	for _, rec := range best {
		merged = append(merged, rec)
	}

	sortRecommendations(merged)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func sortRecommendations(recs []contractx.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].ID < recs[j].ID
	})
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
