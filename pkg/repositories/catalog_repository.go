// Package repositories contains data access for metric specifications
// and resolution sessions.
package repositories

import (
	"context"
	"fmt"
	"sync"

	"github.com/sqless-io/sqless-engine/pkg/apperrors"
	"github.com/sqless-io/sqless-engine/pkg/models"
)

// CatalogPool identifies which of the two catalog partitions a spec
// lives in.
type CatalogPool string

const (
	// PoolCold holds the bulk of rarely-touched specifications.
	PoolCold CatalogPool = "cold"
	// PoolHot holds frequently revised or recently promoted specifications.
	PoolHot CatalogPool = "hot"
)

// CatalogRepository provides access to the governed metric catalog.
// Specs are immutable by convention; only the usage counter and the
// lifecycle status are ever mutated, and only through BumpUsage and
// Promote.
type CatalogRepository interface {
	// Insert adds a spec to the given pool. Returns ErrSpecExists if the
	// spec id is already present in either pool.
	Insert(ctx context.Context, pool CatalogPool, spec *models.MetricSpec) error

	// List enumerates the union of both pools in stable order: the cold
	// pool in insertion order, then the hot pool in insertion order.
	List(ctx context.Context) ([]*models.MetricSpec, error)

	// Get returns the spec with the given id from either pool.
	Get(ctx context.Context, specID string) (*models.MetricSpec, error)

	// BumpUsage atomically increments a spec's usage counter.
	BumpUsage(ctx context.Context, specID string) error

	// Promote moves a spec's lifecycle status to "verified".
	Promote(ctx context.Context, specID string) error
}

// memoryCatalogRepository is the default process-lifetime catalog store.
// A single mutex guards both pools; usage bumps from concurrent sessions
// are serialized by it.
type memoryCatalogRepository struct {
	mu    sync.Mutex
	specs map[string]*models.MetricSpec
	pools map[string]CatalogPool
	// Insertion order per pool drives stable enumeration, which in turn
	// drives the retriever's tie-break.
	coldOrder []string
	hotOrder  []string
}

// NewMemoryCatalogRepository creates an empty in-memory catalog.
func NewMemoryCatalogRepository() CatalogRepository {
	return &memoryCatalogRepository{
		specs: make(map[string]*models.MetricSpec),
		pools: make(map[string]CatalogPool),
	}
}

var _ CatalogRepository = (*memoryCatalogRepository)(nil)

func (r *memoryCatalogRepository) Insert(_ context.Context, pool CatalogPool, spec *models.MetricSpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidSpec, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[spec.SpecID]; exists {
		return fmt.Errorf("%w: %s", apperrors.ErrSpecExists, spec.SpecID)
	}

	r.specs[spec.SpecID] = spec
	r.pools[spec.SpecID] = pool
	switch pool {
	case PoolHot:
		r.hotOrder = append(r.hotOrder, spec.SpecID)
	default:
		r.coldOrder = append(r.coldOrder, spec.SpecID)
	}
	return nil
}

func (r *memoryCatalogRepository) List(_ context.Context) ([]*models.MetricSpec, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.MetricSpec, 0, len(r.specs))
	for _, id := range r.coldOrder {
		out = append(out, r.specs[id])
	}
	for _, id := range r.hotOrder {
		out = append(out, r.specs[id])
	}
	return out, nil
}

func (r *memoryCatalogRepository) Get(_ context.Context, specID string) (*models.MetricSpec, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	spec, ok := r.specs[specID]
	if !ok {
		return nil, fmt.Errorf("spec %s: %w", specID, apperrors.ErrNotFound)
	}
	return spec, nil
}

func (r *memoryCatalogRepository) BumpUsage(_ context.Context, specID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	spec, ok := r.specs[specID]
	if !ok {
		return fmt.Errorf("spec %s: %w", specID, apperrors.ErrNotFound)
	}
	spec.Meta.UsageCount++
	return nil
}

func (r *memoryCatalogRepository) Promote(_ context.Context, specID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	spec, ok := r.specs[specID]
	if !ok {
		return fmt.Errorf("spec %s: %w", specID, apperrors.ErrNotFound)
	}
	spec.Meta.Status = models.SpecStatusVerified
	return nil
}
