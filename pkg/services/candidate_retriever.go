package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sqless-io/sqless-engine/pkg/models"
	"github.com/sqless-io/sqless-engine/pkg/repositories"
)

// Scoring weights for candidate retrieval. A keyword hit dominates;
// verified specs get a freshness edge; heavy historical usage adds a
// small, capped bonus.
const (
	keywordWeight   = 0.6
	freshnessWeight = 0.3

	freshnessVerified = 1.0
	freshnessDraft    = 0.85

	usageBonusDivisor = 100.0
	usageBonusCap     = 0.1
)

// CandidateRetriever scores every catalog entry against intent keywords
// and returns a ranked, size-bounded candidate list.
type CandidateRetriever struct {
	catalog repositories.CatalogRepository
	topK    int
}

// NewCandidateRetriever creates a retriever over the given catalog.
// topK values below 1 fall back to 5.
func NewCandidateRetriever(catalog repositories.CatalogRepository, topK int) *CandidateRetriever {
	if topK < 1 {
		topK = 5
	}
	return &CandidateRetriever{catalog: catalog, topK: topK}
}

// Retrieve ranks all catalog entries by keyword overlap, freshness and
// usage. Ties keep catalog enumeration order (stable sort). An empty
// catalog yields an empty list, never an error.
func (r *CandidateRetriever) Retrieve(ctx context.Context, keywords []string) ([]models.Candidate, error) {
	specs, err := r.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate catalog: %w", err)
	}

	keywordSet := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		keywordSet[strings.ToLower(kw)] = struct{}{}
	}

	candidates := make([]models.Candidate, 0, len(specs))
	for _, spec := range specs {
		candidates = append(candidates, models.Candidate{
			Spec:  spec,
			Score: scoreSpec(spec, keywordSet),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > r.topK {
		candidates = candidates[:r.topK]
	}
	return candidates, nil
}

func scoreSpec(spec *models.MetricSpec, keywords map[string]struct{}) float64 {
	tokens := map[string]struct{}{
		strings.ToLower(spec.Meta.Name): {},
	}
	for _, alias := range spec.Meta.Aliases {
		tokens[strings.ToLower(alias)] = struct{}{}
	}
	for _, tag := range spec.Meta.Tags {
		tokens[strings.ToLower(tag)] = struct{}{}
	}

	overlap := 0
	for kw := range keywords {
		if _, ok := tokens[kw]; ok {
			overlap++
		}
	}

	freshness := freshnessDraft
	if spec.Meta.Status == models.SpecStatusVerified {
		freshness = freshnessVerified
	}

	usageBonus := float64(spec.Meta.UsageCount) / usageBonusDivisor
	if usageBonus > usageBonusCap {
		usageBonus = usageBonusCap
	}

	return float64(overlap)*keywordWeight + freshness*freshnessWeight + usageBonus
}
