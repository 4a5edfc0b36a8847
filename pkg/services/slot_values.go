package services

import (
	"strings"

	"github.com/sqless-io/sqless-engine/pkg/models"
)

// Slot value labels presented to users.
const (
	IndustryMappingMerchant = "商家行业"
	IndustryMappingCategory = "类目行业"
	IndustryMappingContent  = "内容行业"

	TimeSemanticsNaturalDay  = "自然日(UTC+8)"
	TimeSemanticsBusinessDay = "业务日"
)

// SlotValues derives the clarification slot values implied by a spec.
// Slots the spec says nothing about are absent from the result.
func SlotValues(spec *models.MetricSpec) map[string]string {
	values := make(map[string]string)
	if spec.Semantics.MetricCaliber != "" {
		values[models.SlotMetricCaliber] = spec.Semantics.MetricCaliber
	}
	if spec.Semantics.IndustryMapping != nil {
		values[models.SlotIndustryMapping] = IndustryMappingLabel(spec.Semantics.IndustryMapping.DimTable)
	}
	if spec.Semantics.TimeSemantics.BusinessDayRule != "" {
		values[models.SlotTimeSemantics] = TimeSemanticsLabel(spec.Semantics.TimeSemantics.BusinessDayRule)
	}
	return values
}

// IndustryMappingLabel maps a dimension table name to the user-facing
// industry definition. Merchant-keyed tables are recognized by name;
// everything else is treated as the category tree.
func IndustryMappingLabel(dimTable string) string {
	if strings.Contains(dimTable, "merchant") || strings.Contains(dimTable, "shop") {
		return IndustryMappingMerchant
	}
	return IndustryMappingCategory
}

// TimeSemanticsLabel maps a business-day rule to the user-facing time
// semantics label.
func TimeSemanticsLabel(businessDayRule string) string {
	if strings.Contains(businessDayRule, "natural") {
		return TimeSemanticsNaturalDay
	}
	return TimeSemanticsBusinessDay
}
