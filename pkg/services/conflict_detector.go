package services

import (
	"strings"

	"github.com/sqless-io/sqless-engine/pkg/models"
)

// Conflict codes and option ids for the settlement-vs-daily rule.
const (
	ConflictSettleVsDaily = "settle_vs_daily"

	OptionSettleWeekly = "settle_weekly"
	OptionSwitchPay    = "switch_pay"
)

// ConflictRule inspects a parsed intent for one class of contradictory
// ask. Rules are pure; adding a rule never changes the resolution
// protocol.
type ConflictRule interface {
	Detect(intent *models.ParsedIntent) *models.ConflictNotice
}

// ConflictDetector runs every registered rule against the parsed intent
// and reports the first conflict found.
type ConflictDetector struct {
	rules []ConflictRule
}

// NewConflictDetector creates a detector with the built-in rule set.
func NewConflictDetector(extra ...ConflictRule) *ConflictDetector {
	rules := append([]ConflictRule{settleVsDailyRule{}}, extra...)
	return &ConflictDetector{rules: rules}
}

// Detect returns a conflict notice, or nil when the intent looks
// consistent. Only the intent is inspected, never the candidate list.
func (d *ConflictDetector) Detect(intent *models.ParsedIntent) *models.ConflictNotice {
	for _, rule := range d.rules {
		if notice := rule.Detect(intent); notice != nil {
			return notice
		}
	}
	return nil
}

// settleVsDailyRule flags settlement-caliber asks at daily granularity:
// settlement lags by days, so daily settlement curves mislead.
type settleVsDailyRule struct{}

var dailyMarkers = []string{"当日", "当天", "日", "天"}

func (settleVsDailyRule) Detect(intent *models.ParsedIntent) *models.ConflictNotice {
	if !strings.Contains(intent.RawQuery, models.CaliberSettlement) {
		return nil
	}

	wantsDaily := intent.Granularity == models.GranularityDay || intent.Granularity == "日"
	for _, marker := range dailyMarkers {
		if strings.Contains(intent.RawQuery, marker) {
			wantsDaily = true
			break
		}
	}
	if !wantsDaily {
		return nil
	}

	return &models.ConflictNotice{
		Code:    ConflictSettleVsDaily,
		Message: "检测到潜在冲突：结算口径通常有延迟，按天看波动可能不准确。",
		Options: []models.ConflictOption{
			{
				OptionID:         OptionSettleWeekly,
				Label:            "保持结算口径，粒度改为周",
				Consequence:      "将时间粒度调整为周以匹配结算滞后",
				ApplyGranularity: models.GranularityWeek,
			},
			{
				OptionID:     OptionSwitchPay,
				Label:        "保持日粒度，改用支付口径",
				Consequence:  "改为支付/下单口径以获得当日数据",
				ApplyCaliber: models.CaliberPayment,
			},
		},
	}
}

// ApplyConflictOption mutates the intent with the option's overrides and
// records them in the structured adjustments list so the renderer and
// confirmation payloads see the change losslessly.
func ApplyConflictOption(intent *models.ParsedIntent, option models.ConflictOption) {
	if option.ApplyGranularity != "" {
		intent.Granularity = option.ApplyGranularity
		intent.Adjustments = append(intent.Adjustments, models.AppliedAdjustment{
			Kind:  models.AdjustGranularity,
			Value: option.ApplyGranularity,
		})
	}
	if option.ApplyCaliber != "" {
		intent.Adjustments = append(intent.Adjustments, models.AppliedAdjustment{
			Kind:  models.AdjustCaliber,
			Value: option.ApplyCaliber,
		})
	}
}
