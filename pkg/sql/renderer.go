// Package sql renders governed metric SQL and provides structural
// fingerprinting and injection vetting for warehouse statements.
package sql

import (
	"strings"

	"github.com/sqless-io/sqless-engine/pkg/models"
)

// defaultTemplate is the built-in render template used when a spec has
// no physical SQL template override.
const defaultTemplate = `-- Show Your Work: {fact_table} / {time_column} / {measure_column}
SELECT {time_bucket} AS time_bucket, SUM({measure_column}) AS metric
FROM {fact_table}
WHERE {time_column} IS NOT NULL AND {where_clause}
GROUP BY {time_bucket}
ORDER BY {time_bucket};`

// Render produces the SQL statement for a finalized specification and
// the accumulated session context. Rendering is pure and deterministic;
// the caller must guarantee a concrete spec (generate_sql rejects
// sessions with no selection before getting here).
//
// The WHERE body concatenates, in fixed order: the spec's semantic
// filters, the time-range annotation, conflict-resolution adjustments,
// then the clarification answers as SQL comments. An empty body falls
// back to 1=1.
func Render(spec *models.MetricSpec, session *models.Session) string {
	var whereParts []string
	for _, f := range spec.Semantics.Filters {
		whereParts = append(whereParts, f.Expr)
	}

	intent := session.Intent
	if intent != nil {
		if intent.TimeRange != "" {
			whereParts = append(whereParts, "-- 时间范围: "+intent.TimeRange)
		}
		if caliber := intent.CaliberOverride(); caliber != "" {
			whereParts = append(whereParts, "-- 口径调整为"+caliber)
		}
	}

	if ans, ok := session.Answer(models.SlotMetricCaliber); ok {
		whereParts = append(whereParts, "-- 口径: "+ans.Value)
	}
	if ans, ok := session.Answer(models.SlotIndustryMapping); ok {
		whereParts = append(whereParts, "-- 行业映射: "+ans.Value)
	}
	if ans, ok := session.Answer(models.SlotTimeSemantics); ok {
		whereParts = append(whereParts, "-- 时间口径: "+ans.Value)
	}

	whereClause := "1=1"
	if len(whereParts) > 0 {
		whereClause = strings.Join(whereParts, "\n    AND ")
	}

	timeBucket := spec.Semantics.Grain.TimeGranularity
	if intent != nil {
		if override := intent.GranularityOverride(); override != "" {
			timeBucket = override
		}
	}

	template := spec.Physical.SQLTemplate
	if template == "" {
		template = defaultTemplate
	}

	replacer := strings.NewReplacer(
		"{time_bucket}", timeBucket,
		"{fact_table}", spec.Physical.FactTable,
		"{time_column}", spec.Physical.TimeColumn,
		"{measure_column}", spec.Physical.MeasureColumn,
		"{where_clause}", whereClause,
	)
	return replacer.Replace(template)
}
