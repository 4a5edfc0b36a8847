package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqless-io/sqless-engine/pkg/apperrors"
	"github.com/sqless-io/sqless-engine/pkg/models"
	"github.com/sqless-io/sqless-engine/pkg/testhelpers"
)

// newPostgresRepo returns a repository over the shared test container
// with the catalog table truncated, since tests reuse the container.
func newPostgresRepo(t *testing.T) CatalogRepository {
	t.Helper()
	engineDB := testhelpers.GetEngineDB(t)
	_, err := engineDB.DB.Exec(context.Background(), "TRUNCATE engine_metric_specs")
	require.NoError(t, err)
	return NewPostgresCatalogRepository(engineDB.DB)
}

func TestPostgresCatalogRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newPostgresRepo(t)

	specs := DefaultSpecs()
	for _, spec := range specs {
		require.NoError(t, repo.Insert(ctx, PoolCold, spec))
	}

	// Duplicate insert is rejected.
	err := repo.Insert(ctx, PoolCold, specs[0])
	assert.ErrorIs(t, err, apperrors.ErrSpecExists)

	listed, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, len(specs))
	for i, spec := range specs {
		assert.Equal(t, spec.SpecID, listed[i].SpecID)
	}

	got, err := repo.Get(ctx, "spec_pay_gmv_v2")
	require.NoError(t, err)
	assert.Equal(t, "行业GMV", got.Meta.Name)
	assert.Equal(t, models.SpecStatusVerified, got.Meta.Status)
	assert.Len(t, got.Semantics.Filters, 2)
	assert.Equal(t, "dws_trade_order_day", got.Physical.FactTable)

	_, err = repo.Get(ctx, "spec_missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgresCatalogPoolOrdering(t *testing.T) {
	ctx := context.Background()
	repo := newPostgresRepo(t)

	hot := DefaultSpecs()[0]
	require.NoError(t, repo.Insert(ctx, PoolHot, hot))
	cold := DefaultSpecs()[1]
	require.NoError(t, repo.Insert(ctx, PoolCold, cold))

	listed, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	// Cold pool enumerates before hot regardless of insert order.
	assert.Equal(t, cold.SpecID, listed[0].SpecID)
	assert.Equal(t, hot.SpecID, listed[1].SpecID)
}

func TestPostgresCatalogBumpUsageConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := newPostgresRepo(t)

	spec := DefaultSpecs()[0]
	require.NoError(t, repo.Insert(ctx, PoolCold, spec))

	const workers = 8
	const bumps = 10
	errs := make(chan error, workers*bumps)
	for w := 0; w < workers; w++ {
		go func() {
			for i := 0; i < bumps; i++ {
				errs <- repo.BumpUsage(ctx, spec.SpecID)
			}
		}()
	}
	for i := 0; i < workers*bumps; i++ {
		require.NoError(t, <-errs)
	}

	got, err := repo.Get(ctx, spec.SpecID)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*bumps), got.Meta.UsageCount)
}

func TestPostgresCatalogPromote(t *testing.T) {
	ctx := context.Background()
	repo := newPostgresRepo(t)

	draft := DefaultSpecs()[2]
	require.NoError(t, draft.Validate())
	require.Equal(t, models.SpecStatusDraft, draft.Meta.Status)
	require.NoError(t, repo.Insert(ctx, PoolCold, draft))

	require.NoError(t, repo.Promote(ctx, draft.SpecID))
	got, err := repo.Get(ctx, draft.SpecID)
	require.NoError(t, err)
	assert.Equal(t, models.SpecStatusVerified, got.Meta.Status)

	err = repo.Promote(ctx, "spec_missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgresCatalogSeedIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newPostgresRepo(t)

	require.NoError(t, SeedDefaultSpecs(ctx, repo))
	require.NoError(t, SeedDefaultSpecs(ctx, repo))

	listed, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, len(DefaultSpecs()))
}
