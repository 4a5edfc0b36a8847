package provenance

import (
	"time"

	"github.com/sqless-io/sqless-engine/pkg/models"
)

// SampleQueryLogs returns synthetic warehouse logs for mining demos and
// the offline CLI. The last entry is deliberate noise that the filter
// should drop.
func SampleQueryLogs(now time.Time) []models.QueryLogRecord {
	return []models.QueryLogRecord{
		{
			SQL: `
            SELECT date, region, sum(pay_gmv_amt) AS gmv
            FROM dws_trade_order_day
            WHERE region = '华东' AND date BETWEEN '2025-06-01' AND '2025-06-30' AND pay_status = 1
            GROUP BY date, region
        `,
			Status:      models.QueryLogStatusSuccess,
			ScannedRows: 120000,
			DurationMS:  2100,
			User:        "analyst@datateam.com",
			ExecutedAt:  now,
		},
		{
			SQL: `
            SELECT date, count(distinct user_id) AS new_pay_users
            FROM dws_trade_order_day
            WHERE province = 'beijing' AND is_new = 1 AND pay_status = 1
            GROUP BY date
        `,
			Status:      models.QueryLogStatusSuccess,
			ScannedRows: 240000,
			DurationMS:  3300,
			User:        "lead@datateam.com",
			ExecutedAt:  now,
		},
		{
			SQL: `
            SELECT settle_week, industry_id, sum(settle_gmv_amt)
            FROM dws_trade_settle_week
            WHERE settle_week BETWEEN '2025-05-01' AND '2025-06-30'
            GROUP BY settle_week, industry_id
        `,
			Status:      models.QueryLogStatusSuccess,
			ScannedRows: 310000,
			DurationMS:  4500,
			User:        "finance@datateam.com",
			ExecutedAt:  now,
		},
		{
			SQL:         `SELECT * FROM tmp_debug LIMIT 10`,
			Status:      models.QueryLogStatusSuccess,
			ScannedRows: 10,
			DurationMS:  50,
			User:        "random@corp.com",
			ExecutedAt:  now,
		},
	}
}

// SampleTableSchemas describes the warehouse tables referenced by the
// sample logs.
func SampleTableSchemas() map[string]models.TableSchema {
	return map[string]models.TableSchema{
		"dws_trade_order_day": {
			Table: "dws_trade_order_day",
			Columns: []models.ColumnDesc{
				{Name: "pay_gmv_amt", Description: "支付GMV金额"},
				{Name: "user_id", Description: "用户ID"},
				{Name: "province", Description: "省份"},
				{Name: "region", Description: "大区"},
				{Name: "pay_status", Description: "支付状态"},
				{Name: "is_new", Description: "是否新客"},
			},
		},
		"dws_trade_settle_week": {
			Table: "dws_trade_settle_week",
			Columns: []models.ColumnDesc{
				{Name: "settle_gmv_amt", Description: "结算金额"},
				{Name: "industry_id", Description: "行业ID"},
				{Name: "settle_week", Description: "结算周"},
			},
		},
	}
}

// SampleAuthorityMap weights the sample users by organizational
// authority.
func SampleAuthorityMap() map[string]float64 {
	return map[string]float64{
		"lead@datateam.com":    0.9,
		"analyst@datateam.com": 0.7,
		"finance@datateam.com": 0.6,
	}
}
