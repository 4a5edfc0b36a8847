package sql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqless-io/sqless-engine/pkg/models"
)

func renderSpec() *models.MetricSpec {
	return &models.MetricSpec{
		SpecID: "spec_pay_gmv_v2",
		Meta:   models.MetricMeta{Name: "行业GMV"},
		Semantics: models.Semantics{
			Grain: models.Grain{TimeGranularity: "day"},
			Filters: []models.Filter{
				{Expr: "is_risk_order = 0", Desc: "剔除风控单"},
				{Expr: "is_refund = 0", Desc: "剔除退款单"},
			},
		},
		Physical: models.PhysicalMapping{
			FactTable:     "dws_trade_order_day",
			TimeColumn:    "pay_date",
			MeasureColumn: "pay_gmv_amt",
		},
	}
}

func TestRenderDefaultTemplate(t *testing.T) {
	spec := renderSpec()
	session := models.NewSession("s1", "u1", &models.ParsedIntent{TimeRange: "最近的 12 月"})

	rendered := Render(spec, session)

	assert.Contains(t, rendered, "-- Show Your Work: dws_trade_order_day / pay_date / pay_gmv_amt")
	assert.Contains(t, rendered, "SELECT day AS time_bucket, SUM(pay_gmv_amt) AS metric")
	assert.Contains(t, rendered, "FROM dws_trade_order_day")
	assert.Contains(t, rendered, "WHERE pay_date IS NOT NULL")
	assert.Contains(t, rendered, "GROUP BY day")
	assert.Contains(t, rendered, "ORDER BY day;")
}

func TestRenderWhereClauseOrdering(t *testing.T) {
	spec := renderSpec()
	session := models.NewSession("s1", "u1", &models.ParsedIntent{TimeRange: "最近的 12 月"})
	session.Clarifications[models.SlotMetricCaliber] = models.ClarificationAnswer{
		Slot: models.SlotMetricCaliber, Value: models.CaliberPayment,
	}
	session.Clarifications[models.SlotTimeSemantics] = models.ClarificationAnswer{
		Slot: models.SlotTimeSemantics, Value: "自然日(UTC+8)",
	}

	rendered := Render(spec, session)

	// Spec filters first, then the time range, then answers.
	iRisk := strings.Index(rendered, "is_risk_order = 0")
	iRefund := strings.Index(rendered, "is_refund = 0")
	iRange := strings.Index(rendered, "-- 时间范围: 最近的 12 月")
	iCaliber := strings.Index(rendered, "-- 口径: 支付")
	iTime := strings.Index(rendered, "-- 时间口径: 自然日(UTC+8)")
	require.NotEqual(t, -1, iRisk)
	assert.Less(t, iRisk, iRefund)
	assert.Less(t, iRefund, iRange)
	assert.Less(t, iRange, iCaliber)
	assert.Less(t, iCaliber, iTime)
	assert.Contains(t, rendered, "\n    AND ")
}

func TestRenderEmptyWhereFallsBackToTautology(t *testing.T) {
	spec := renderSpec()
	spec.Semantics.Filters = nil
	session := models.NewSession("s1", "u1", &models.ParsedIntent{})

	rendered := Render(spec, session)
	assert.Contains(t, rendered, "WHERE pay_date IS NOT NULL AND 1=1")
}

func TestRenderGranularityOverride(t *testing.T) {
	spec := renderSpec()
	session := models.NewSession("s1", "u1", &models.ParsedIntent{
		Adjustments: []models.AppliedAdjustment{
			{Kind: models.AdjustGranularity, Value: models.GranularityWeek},
		},
	})

	rendered := Render(spec, session)
	assert.Contains(t, rendered, "SELECT 周 AS time_bucket")
	assert.Contains(t, rendered, "GROUP BY 周")
	assert.NotContains(t, rendered, "GROUP BY day")
}

func TestRenderCaliberOverrideComment(t *testing.T) {
	spec := renderSpec()
	session := models.NewSession("s1", "u1", &models.ParsedIntent{
		Adjustments: []models.AppliedAdjustment{
			{Kind: models.AdjustCaliber, Value: models.CaliberPayment},
		},
	})

	rendered := Render(spec, session)
	assert.Contains(t, rendered, "-- 口径调整为支付")
	// A caliber override leaves the time bucket alone.
	assert.Contains(t, rendered, "GROUP BY day")
}

func TestRenderSpecTemplateOverride(t *testing.T) {
	spec := renderSpec()
	spec.Physical.SQLTemplate = "SELECT {measure_column} FROM {fact_table} WHERE {where_clause}"
	session := models.NewSession("s1", "u1", &models.ParsedIntent{})

	rendered := Render(spec, session)
	assert.Equal(t, "SELECT pay_gmv_amt FROM dws_trade_order_day WHERE is_risk_order = 0\n    AND is_refund = 0", rendered)
}

func TestRenderNilIntent(t *testing.T) {
	spec := renderSpec()
	session := &models.Session{SessionID: "s1"}

	rendered := Render(spec, session)
	assert.Contains(t, rendered, "GROUP BY day")
}
