package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sqless-io/sqless-engine/pkg/apperrors"
	"github.com/sqless-io/sqless-engine/pkg/database"
	"github.com/sqless-io/sqless-engine/pkg/models"
)

// postgresCatalogRepository is the durable catalog backend. The spec
// document is stored as JSONB; the status and usage counter live in
// dedicated columns so that BumpUsage is a single atomic UPDATE and
// Promote never rewrites the document.
type postgresCatalogRepository struct {
	db *database.DB
}

// NewPostgresCatalogRepository creates a catalog repository backed by
// the engine_metric_specs table.
func NewPostgresCatalogRepository(db *database.DB) CatalogRepository {
	return &postgresCatalogRepository{db: db}
}

var _ CatalogRepository = (*postgresCatalogRepository)(nil)

func (r *postgresCatalogRepository) Insert(ctx context.Context, pool CatalogPool, spec *models.MetricSpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidSpec, err)
	}

	doc, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to marshal spec %s: %w", spec.SpecID, err)
	}

	query := `
		INSERT INTO engine_metric_specs (spec_id, pool, status, usage_count, doc)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (spec_id) DO NOTHING`

	tag, err := r.db.Exec(ctx, query, spec.SpecID, string(pool), spec.Meta.Status, spec.Meta.UsageCount, doc)
	if err != nil {
		return fmt.Errorf("failed to insert spec %s: %w", spec.SpecID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrSpecExists, spec.SpecID)
	}
	return nil
}

func (r *postgresCatalogRepository) List(ctx context.Context) ([]*models.MetricSpec, error) {
	query := `
		SELECT doc, status, usage_count
		FROM engine_metric_specs
		ORDER BY CASE pool WHEN 'cold' THEN 0 ELSE 1 END, seq`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list specs: %w", err)
	}
	defer rows.Close()

	var specs []*models.MetricSpec
	for rows.Next() {
		spec, err := scanSpec(rows)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate specs: %w", err)
	}
	return specs, nil
}

func (r *postgresCatalogRepository) Get(ctx context.Context, specID string) (*models.MetricSpec, error) {
	query := `SELECT doc, status, usage_count FROM engine_metric_specs WHERE spec_id = $1`

	row := r.db.QueryRow(ctx, query, specID)
	spec, err := scanSpec(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("spec %s: %w", specID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return spec, nil
}

func (r *postgresCatalogRepository) BumpUsage(ctx context.Context, specID string) error {
	query := `
		UPDATE engine_metric_specs
		SET usage_count = usage_count + 1, updated_at = now()
		WHERE spec_id = $1`

	tag, err := r.db.Exec(ctx, query, specID)
	if err != nil {
		return fmt.Errorf("failed to bump usage for spec %s: %w", specID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("spec %s: %w", specID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *postgresCatalogRepository) Promote(ctx context.Context, specID string) error {
	query := `
		UPDATE engine_metric_specs
		SET status = $2, updated_at = now()
		WHERE spec_id = $1`

	tag, err := r.db.Exec(ctx, query, specID, models.SpecStatusVerified)
	if err != nil {
		return fmt.Errorf("failed to promote spec %s: %w", specID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("spec %s: %w", specID, apperrors.ErrNotFound)
	}
	return nil
}

// scanSpec rebuilds a MetricSpec from a row. Status and usage live in
// their own columns and override whatever the stored document carried.
func scanSpec(row pgx.Row) (*models.MetricSpec, error) {
	var (
		doc        []byte
		status     string
		usageCount int64
	)
	if err := row.Scan(&doc, &status, &usageCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("failed to scan spec row: %w", err)
	}

	var spec models.MetricSpec
	if err := json.Unmarshal(doc, &spec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal spec document: %w", err)
	}
	spec.Meta.Status = status
	spec.Meta.UsageCount = usageCount
	return &spec, nil
}
