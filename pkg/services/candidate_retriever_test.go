package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqless-io/sqless-engine/pkg/models"
	"github.com/sqless-io/sqless-engine/pkg/repositories"
)

func seededCatalog(t *testing.T) repositories.CatalogRepository {
	t.Helper()
	catalog := repositories.NewMemoryCatalogRepository()
	require.NoError(t, repositories.SeedDefaultSpecs(context.Background(), catalog))
	return catalog
}

func TestRetrieveRanksByKeywordAndFreshness(t *testing.T) {
	retriever := NewCandidateRetriever(seededCatalog(t), 5)

	candidates, err := retriever.Retrieve(context.Background(), []string{"gmv"})
	require.NoError(t, err)
	require.Len(t, candidates, 4)

	// Scores are non-increasing.
	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].Score, candidates[i].Score)
	}

	// Both verified payment specs match the keyword and outrank the
	// draft settlement spec; catalog order breaks their tie.
	assert.Equal(t, "spec_pay_gmv_v2", candidates[0].Spec.SpecID)
	assert.Equal(t, "spec_pay_gmv_v1", candidates[1].Spec.SpecID)
	assert.Equal(t, "spec_settle_gmv_v1", candidates[2].Spec.SpecID)

	// The order-count spec has no gmv keyword at all.
	assert.Equal(t, "spec_order_cnt_v1", candidates[3].Spec.SpecID)
	assert.Less(t, candidates[3].Score, 0.6)
}

func TestRetrieveTopKBound(t *testing.T) {
	retriever := NewCandidateRetriever(seededCatalog(t), 2)

	candidates, err := retriever.Retrieve(context.Background(), []string{"gmv"})
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestRetrieveEmptyCatalog(t *testing.T) {
	retriever := NewCandidateRetriever(repositories.NewMemoryCatalogRepository(), 5)

	candidates, err := retriever.Retrieve(context.Background(), []string{"gmv"})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestScoreSpecUsageBonusCapped(t *testing.T) {
	spec := &models.MetricSpec{
		SpecID: "s1",
		Meta: models.MetricMeta{
			Name:       "行业GMV",
			Tags:       []string{"gmv"},
			Status:     models.SpecStatusVerified,
			UsageCount: 5000,
		},
	}
	keywords := map[string]struct{}{"gmv": {}}

	// 1 keyword hit + verified freshness + capped usage bonus.
	assert.InDelta(t, 0.6+0.3+0.1, scoreSpec(spec, keywords), 1e-9)

	spec.Meta.UsageCount = 50
	assert.InDelta(t, 0.6+0.3+0.05, scoreSpec(spec, keywords), 1e-9)
}

func TestScoreSpecAliasMatch(t *testing.T) {
	spec := &models.MetricSpec{
		SpecID: "s1",
		Meta: models.MetricMeta{
			Name:    "行业GMV",
			Aliases: []string{"成交额"},
			Status:  models.SpecStatusDraft,
		},
	}

	score := scoreSpec(spec, map[string]struct{}{"成交额": {}})
	assert.InDelta(t, 0.6+0.85*0.3, score, 1e-9)
}
