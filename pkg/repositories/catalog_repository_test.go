package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqless-io/sqless-engine/pkg/apperrors"
	"github.com/sqless-io/sqless-engine/pkg/models"
)

func testSpec(id, name string) *models.MetricSpec {
	return &models.MetricSpec{
		SpecID: id,
		Meta:   models.MetricMeta{Name: name, Status: models.SpecStatusDraft},
		Physical: models.PhysicalMapping{
			FactTable: "dws_test", TimeColumn: "dt", MeasureColumn: "amt",
		},
	}
}

func TestMemoryCatalog_InsertAndGet(t *testing.T) {
	repo := NewMemoryCatalogRepository()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, PoolCold, testSpec("s1", "GMV")))

	spec, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "GMV", spec.Meta.Name)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemoryCatalog_RejectsDuplicateID(t *testing.T) {
	repo := NewMemoryCatalogRepository()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, PoolCold, testSpec("s1", "a")))
	err := repo.Insert(ctx, PoolHot, testSpec("s1", "b"))
	assert.ErrorIs(t, err, apperrors.ErrSpecExists)
}

func TestMemoryCatalog_RejectsInvalidSpec(t *testing.T) {
	repo := NewMemoryCatalogRepository()
	err := repo.Insert(context.Background(), PoolCold, &models.MetricSpec{SpecID: "s1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidSpec)
}

func TestMemoryCatalog_ListOrderIsColdThenHotInsertion(t *testing.T) {
	repo := NewMemoryCatalogRepository()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, PoolHot, testSpec("h1", "hot one")))
	require.NoError(t, repo.Insert(ctx, PoolCold, testSpec("c1", "cold one")))
	require.NoError(t, repo.Insert(ctx, PoolCold, testSpec("c2", "cold two")))
	require.NoError(t, repo.Insert(ctx, PoolHot, testSpec("h2", "hot two")))

	specs, err := repo.List(ctx)
	require.NoError(t, err)

	var ids []string
	for _, s := range specs {
		ids = append(ids, s.SpecID)
	}
	assert.Equal(t, []string{"c1", "c2", "h1", "h2"}, ids)
}

func TestMemoryCatalog_EmptyList(t *testing.T) {
	repo := NewMemoryCatalogRepository()
	specs, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestMemoryCatalog_BumpUsageIsAtomicUnderConcurrency(t *testing.T) {
	repo := NewMemoryCatalogRepository()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, PoolCold, testSpec("s1", "GMV")))

	const workers = 16
	const bumpsPerWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < bumpsPerWorker; j++ {
				_ = repo.BumpUsage(ctx, "s1")
			}
		}()
	}
	wg.Wait()

	spec, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(workers*bumpsPerWorker), spec.Meta.UsageCount)
}

func TestMemoryCatalog_Promote(t *testing.T) {
	repo := NewMemoryCatalogRepository()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, PoolHot, testSpec("s1", "GMV")))

	require.NoError(t, repo.Promote(ctx, "s1"))
	spec, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.SpecStatusVerified, spec.Meta.Status)

	assert.ErrorIs(t, repo.Promote(ctx, "missing"), apperrors.ErrNotFound)
	assert.ErrorIs(t, repo.BumpUsage(ctx, "missing"), apperrors.ErrNotFound)
}

func TestSeedDefaultSpecs(t *testing.T) {
	repo := NewMemoryCatalogRepository()
	ctx := context.Background()

	require.NoError(t, SeedDefaultSpecs(ctx, repo))
	specs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, specs, 4)

	// Seeding twice must not duplicate or error.
	require.NoError(t, SeedDefaultSpecs(ctx, repo))
	specs, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, specs, 4)

	verified, err := repo.Get(ctx, "spec_pay_gmv_v2")
	require.NoError(t, err)
	assert.Equal(t, models.SpecStatusVerified, verified.Meta.Status)
	assert.Equal(t, models.CaliberPayment, verified.Semantics.MetricCaliber)
}

func TestSessionRegistry(t *testing.T) {
	reg := NewMemorySessionRegistry()
	session := models.NewSession("sess-1", "analyst", &models.ParsedIntent{RawQuery: "gmv"})
	reg.Put(session)

	got, err := reg.Get("sess-1")
	require.NoError(t, err)
	assert.Same(t, session, got)

	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = reg.WithSession("sess-1", func(s *models.Session) error {
		s.Confidence = 0.9
		return nil
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.9, session.Confidence, 1e-9)

	wantErr := errors.New("boom")
	err = reg.WithSession("sess-1", func(*models.Session) error { return wantErr })
	assert.ErrorIs(t, err, wantErr)

	assert.ErrorIs(t, reg.WithSession("missing", func(*models.Session) error { return nil }),
		apperrors.ErrNotFound)
}

func TestSessionRegistry_SerializesMutation(t *testing.T) {
	reg := NewMemorySessionRegistry()
	session := models.NewSession("sess-1", "analyst", &models.ParsedIntent{RawQuery: "gmv"})
	reg.Put(session)

	const workers = 8
	const rounds = 100

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				_ = reg.WithSession("sess-1", func(s *models.Session) error {
					s.Confidence++
					return nil
				})
			}
		}()
	}
	wg.Wait()

	assert.InDelta(t, float64(workers*rounds), session.Confidence, 1e-9)
}
