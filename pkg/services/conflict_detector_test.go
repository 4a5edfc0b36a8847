package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqless-io/sqless-engine/pkg/models"
)

func TestDetectSettleVsDaily(t *testing.T) {
	detector := NewConflictDetector()
	parser := NewIntentParser()

	notice := detector.Detect(parser.Parse("看结算GMV的当日走势"))
	require.NotNil(t, notice)
	assert.Equal(t, ConflictSettleVsDaily, notice.Code)
	assert.Contains(t, notice.Message, "结算口径通常有延迟")
	require.Len(t, notice.Options, 2)
	assert.Equal(t, OptionSettleWeekly, notice.Options[0].OptionID)
	assert.Equal(t, models.GranularityWeek, notice.Options[0].ApplyGranularity)
	assert.Equal(t, OptionSwitchPay, notice.Options[1].OptionID)
	assert.Equal(t, models.CaliberPayment, notice.Options[1].ApplyCaliber)
}

func TestDetectNoConflictCases(t *testing.T) {
	detector := NewConflictDetector()
	parser := NewIntentParser()

	// Settlement without a daily ask is fine.
	assert.Nil(t, detector.Detect(parser.Parse("看结算GMV的周趋势")))
	// Daily without settlement is fine.
	assert.Nil(t, detector.Detect(parser.Parse("看支付GMV的当日走势")))
	assert.Nil(t, detector.Detect(parser.Parse("12月行业GMV走势")))
}

func TestDetectGranularityHintAlone(t *testing.T) {
	detector := NewConflictDetector()

	// A structured daily granularity triggers the rule even when the raw
	// text carries no explicit daily marker.
	notice := detector.Detect(&models.ParsedIntent{
		RawQuery:    "结算GMV走势",
		Granularity: models.GranularityDay,
	})
	assert.NotNil(t, notice)
}

type alwaysConflict struct{}

func (alwaysConflict) Detect(*models.ParsedIntent) *models.ConflictNotice {
	return &models.ConflictNotice{Code: "custom"}
}

func TestDetectorExtraRules(t *testing.T) {
	detector := NewConflictDetector(alwaysConflict{})

	notice := detector.Detect(&models.ParsedIntent{RawQuery: "随便"})
	require.NotNil(t, notice)
	assert.Equal(t, "custom", notice.Code)
}

func TestApplyConflictOptionGranularity(t *testing.T) {
	intent := &models.ParsedIntent{RawQuery: "结算GMV当日", Granularity: models.GranularityDay}

	ApplyConflictOption(intent, models.ConflictOption{
		OptionID:         OptionSettleWeekly,
		ApplyGranularity: models.GranularityWeek,
	})

	assert.Equal(t, models.GranularityWeek, intent.Granularity)
	assert.Equal(t, models.GranularityWeek, intent.GranularityOverride())
	assert.Empty(t, intent.CaliberOverride())
}

func TestApplyConflictOptionCaliber(t *testing.T) {
	intent := &models.ParsedIntent{RawQuery: "结算GMV当日", Granularity: models.GranularityDay}

	ApplyConflictOption(intent, models.ConflictOption{
		OptionID:     OptionSwitchPay,
		ApplyCaliber: models.CaliberPayment,
	})

	// Granularity stays; only the caliber adjustment is recorded.
	assert.Equal(t, models.GranularityDay, intent.Granularity)
	assert.Equal(t, models.CaliberPayment, intent.CaliberOverride())
	assert.Empty(t, intent.GranularityOverride())
}
