package repositories

import (
	"context"
	"time"

	"github.com/sqless-io/sqless-engine/pkg/models"
)

// DefaultSpecs returns the sample specifications the engine ships with:
// two payment-caliber GMV variants, the settlement-caliber GMV, and the
// order count metric. They exercise every clarification slot and the
// settlement-vs-daily conflict rule.
func DefaultSpecs() []*models.MetricSpec {
	farFuture := time.Date(2099, 12, 31, 0, 0, 0, 0, time.UTC)

	payGMV := &models.MetricSpec{
		SpecID: "spec_pay_gmv_v2",
		Meta: models.MetricMeta{
			Name:        "行业GMV",
			Aliases:     []string{"GMV", "成交额", "行业成交额"},
			Domain:      "commerce.trade",
			Description: "支付口径 GMV，默认剔除退款与风控单",
			Status:      models.SpecStatusVerified,
			Owner:       "owner@datateam.com",
			VerifiedBy:  "lead@datateam.com",
			Tags:        []string{"gmv", "industry", "trend"},
		},
		Semantics: models.Semantics{
			MetricType:     "amount",
			DefaultMeasure: "pay_gmv_amt",
			MetricCaliber:  models.CaliberPayment,
			Grain:          models.Grain{TimeGranularity: "day", Dimensions: []string{"industry_id"}},
			TimeSemantics: models.TimeSemantics{
				EventTime: "pay_time", Timezone: "Asia/Shanghai", BusinessDayRule: "natural_day",
			},
			Filters: []models.Filter{
				{Expr: "is_risk_order = 0", Desc: "剔除风控单"},
				{Expr: "is_refund = 0", Desc: "剔除退款单"},
			},
			IndustryMapping: &models.IndustryMapping{
				Type: "category_tree", Version: "v3", DimTable: "dim_category_industry_v3", JoinKey: "category_id",
			},
			Attribution: &models.Attribution{Mode: "none", Desc: "不做渠道归因"},
		},
		Physical: models.PhysicalMapping{
			FactTable:     "dws_trade_order_day",
			TimeColumn:    "pay_date",
			MeasureColumn: "pay_gmv_amt",
			DimensionJoins: []models.DimensionJoin{{
				DimTable: "dim_category_industry_v3", FactKey: "category_id", DimKey: "category_id",
				SelectCols: []string{"industry_id", "industry_name"},
			}},
			PartitionHint: "pay_date",
		},
		Governance: models.Governance{
			Version:   "v2",
			ValidFrom: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
			ValidTo:   farFuture,
			Changelog: []models.ChangelogEntry{{
				Version: "v2", Change: "剔除退款与风控单", By: "lead@datateam.com",
				At: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
			}},
			ConflictPolicy: "prefer_latest_verified",
		},
		Security: models.Security{RowLevelPolicy: "org_scope", AllowedRoles: []string{"analyst", "biz_ops"}},
		Quality:  models.Quality{ValidationRules: []models.QualityRule{{Type: "sanity", Rule: "gmv>=0"}}},
	}

	payRawGMV := &models.MetricSpec{
		SpecID: "spec_pay_gmv_v1",
		Meta: models.MetricMeta{
			Name:        "行业GMV（支付含退款）",
			Aliases:     []string{"支付GMV（含退款）"},
			Domain:      "commerce.trade",
			Description: "支付口径 GMV，包含退款以便对账",
			Status:      models.SpecStatusVerified,
			Owner:       "owner@datateam.com",
			VerifiedBy:  "lead@datateam.com",
			Tags:        []string{"gmv", "industry", "attribution"},
		},
		Semantics: models.Semantics{
			MetricType:     "amount",
			DefaultMeasure: "pay_gmv_amt",
			MetricCaliber:  models.CaliberPayment,
			Grain:          models.Grain{TimeGranularity: "day", Dimensions: []string{"industry_id"}},
			TimeSemantics: models.TimeSemantics{
				EventTime: "pay_time", Timezone: "Asia/Shanghai", BusinessDayRule: "natural_day",
			},
			Filters: []models.Filter{{Expr: "is_risk_order = 0", Desc: "剔除风控单"}},
			IndustryMapping: &models.IndustryMapping{
				Type: "category_tree", Version: "v2", DimTable: "dim_category_industry_v2", JoinKey: "category_id",
			},
			Attribution: &models.Attribution{Mode: "content_channel", Desc: "按内容渠道归因"},
		},
		Physical: models.PhysicalMapping{
			FactTable:     "dws_trade_order_day",
			TimeColumn:    "pay_date",
			MeasureColumn: "pay_gmv_amt",
			DimensionJoins: []models.DimensionJoin{{
				DimTable: "dim_category_industry_v2", FactKey: "category_id", DimKey: "category_id",
				SelectCols: []string{"industry_id", "industry_name"},
			}},
			PartitionHint: "pay_date",
		},
		Governance: models.Governance{
			Version:   "v1",
			ValidFrom: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			ValidTo:   farFuture,
			Changelog: []models.ChangelogEntry{{
				Version: "v1", Change: "支付含退款版本", By: "owner@datateam.com",
				At: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
			}},
			ConflictPolicy: "prefer_latest_verified",
		},
		Security: models.Security{RowLevelPolicy: "org_scope", AllowedRoles: []string{"analyst", "biz_ops"}},
		Quality:  models.Quality{ValidationRules: []models.QualityRule{{Type: "sanity", Rule: "gmv>=0"}}},
	}

	settleGMV := &models.MetricSpec{
		SpecID: "spec_settle_gmv_v1",
		Meta: models.MetricMeta{
			Name:        "行业GMV（结算口径）",
			Aliases:     []string{"结算GMV", "行业结算额"},
			Domain:      "commerce.finance",
			Description: "按结算口径统计的行业 GMV，周粒度，默认剔除风控单",
			Status:      models.SpecStatusDraft,
			Owner:       "finance@datateam.com",
			Tags:        []string{"gmv", "settle", "industry"},
		},
		Semantics: models.Semantics{
			MetricType:     "amount",
			DefaultMeasure: "settle_gmv_amt",
			MetricCaliber:  models.CaliberSettlement,
			Grain:          models.Grain{TimeGranularity: "week", Dimensions: []string{"industry_id"}},
			TimeSemantics: models.TimeSemantics{
				EventTime: "settle_time", Timezone: "Asia/Shanghai", BusinessDayRule: "settlement_day",
			},
			Filters: []models.Filter{{Expr: "is_risk_order = 0", Desc: "剔除风控单"}},
			IndustryMapping: &models.IndustryMapping{
				Type: "category_tree", Version: "v3", DimTable: "dim_category_industry_v3", JoinKey: "category_id",
			},
		},
		Physical: models.PhysicalMapping{
			FactTable:     "dws_trade_settle_week",
			TimeColumn:    "settle_week",
			MeasureColumn: "settle_gmv_amt",
			DimensionJoins: []models.DimensionJoin{{
				DimTable: "dim_category_industry_v3", FactKey: "category_id", DimKey: "category_id",
				SelectCols: []string{"industry_id", "industry_name"},
			}},
			PartitionHint: "settle_week",
		},
		Governance: models.Governance{
			Version:   "v1",
			ValidFrom: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			ValidTo:   farFuture,
			Changelog: []models.ChangelogEntry{{
				Version: "v1", Change: "结算口径初版", By: "finance@datateam.com",
				At: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
			}},
			ConflictPolicy: "prefer_latest_verified",
		},
		Security: models.Security{RowLevelPolicy: "org_scope", AllowedRoles: []string{"finance", "analyst"}},
		Quality: models.Quality{ValidationRules: []models.QualityRule{
			{Type: "reconcile", Target: "finance_dashboard", Freq: "monthly"},
		}},
	}

	orderCnt := &models.MetricSpec{
		SpecID: "spec_order_cnt_v1",
		Meta: models.MetricMeta{
			Name:        "订单量",
			Aliases:     []string{"订单数"},
			Domain:      "commerce.trade",
			Description: "按行业统计订单量，默认剔除风控单",
			Status:      models.SpecStatusDraft,
			Owner:       "owner@datateam.com",
			Tags:        []string{"order", "industry"},
		},
		Semantics: models.Semantics{
			MetricType:     "count",
			DefaultMeasure: "order_cnt",
			MetricCaliber:  models.CaliberOrder,
			Grain:          models.Grain{TimeGranularity: "day", Dimensions: []string{"industry_id"}},
			TimeSemantics: models.TimeSemantics{
				EventTime: "order_time", Timezone: "Asia/Shanghai", BusinessDayRule: "natural_day",
			},
			Filters: []models.Filter{{Expr: "is_risk_order = 0", Desc: "剔除风控单"}},
			IndustryMapping: &models.IndustryMapping{
				Type: "category_tree", Version: "v2", DimTable: "dim_category_industry_v2", JoinKey: "category_id",
			},
		},
		Physical: models.PhysicalMapping{
			FactTable:     "dws_trade_order_day",
			TimeColumn:    "order_date",
			MeasureColumn: "order_cnt",
			DimensionJoins: []models.DimensionJoin{{
				DimTable: "dim_category_industry_v2", FactKey: "category_id", DimKey: "category_id",
				SelectCols: []string{"industry_id", "industry_name"},
			}},
			PartitionHint: "order_date",
		},
		Governance: models.Governance{
			Version:   "v1",
			ValidFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			ValidTo:   farFuture,
			Changelog: []models.ChangelogEntry{{
				Version: "v1", Change: "初始版本", By: "owner@datateam.com",
				At: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			}},
			ConflictPolicy: "prefer_latest_verified",
		},
		Security: models.Security{RowLevelPolicy: "org_scope", AllowedRoles: []string{"analyst", "biz_ops"}},
		Quality: models.Quality{ValidationRules: []models.QualityRule{
			{Type: "reconcile", Target: "official_dashboard", Freq: "weekly"},
		}},
	}

	return []*models.MetricSpec{payGMV, payRawGMV, settleGMV, orderCnt}
}

// SeedDefaultSpecs inserts the default specifications into the cold pool.
// Existing ids are left untouched so seeding a warm store is safe.
func SeedDefaultSpecs(ctx context.Context, repo CatalogRepository) error {
	for _, spec := range DefaultSpecs() {
		if _, err := repo.Get(ctx, spec.SpecID); err == nil {
			continue
		}
		if err := repo.Insert(ctx, PoolCold, spec); err != nil {
			return err
		}
	}
	return nil
}
