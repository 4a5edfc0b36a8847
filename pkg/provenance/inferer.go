package provenance

import (
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/sqless-io/sqless-engine/pkg/models"
)

// IntentInferer reverse-engineers a human-readable intent description
// from a SQL template, optionally enriched with table schema metadata.
type IntentInferer struct {
	schemas map[string]models.TableSchema
}

// NewIntentInferer creates an inferer. Schemas are keyed by table name
// (case-insensitive).
func NewIntentInferer(schemas map[string]models.TableSchema) *IntentInferer {
	lowered := make(map[string]models.TableSchema, len(schemas))
	for name, schema := range schemas {
		lowered[strings.ToLower(name)] = schema
	}
	return &IntentInferer{schemas: lowered}
}

// Infer produces the intent description for a template: detected
// measures, data sources, and filter hints joined into one phrase.
func (i *IntentInferer) Infer(template models.SQLTemplate) string {
	tables := template.Tables
	if len(tables) == 0 {
		tables = []string{"unknown table"}
	}

	var parts []string
	if measures := detectMeasures(template.Template); len(measures) > 0 {
		parts = append(parts, strings.Join(measures, "、"))
	}

	descriptions := make([]string, 0, len(tables))
	for _, t := range tables {
		descriptions = append(descriptions, i.summarizeTable(t))
	}
	parts = append(parts, "数据来源"+strings.Join(descriptions, "、"))

	if filters := detectFilters(template.Template); len(filters) > 0 {
		parts = append(parts, "过滤"+strings.Join(filters, "、"))
	}
	return strings.Join(parts, "；")
}

// summarizeTable describes a table by its leading columns when a schema
// is known; otherwise the singularized table name has to do.
func (i *IntentInferer) summarizeTable(table string) string {
	schema, ok := i.schemas[strings.ToLower(table)]
	if !ok {
		return inflection.Singular(table)
	}

	leading := schema.Columns
	if len(leading) > 3 {
		leading = leading[:3]
	}
	cols := make([]string, 0, len(leading))
	for _, col := range leading {
		cols = append(cols, col.Name+"("+col.Description+")")
	}
	return schema.Table + "[" + strings.Join(cols, "、") + "]"
}

func detectMeasures(templateSQL string) []string {
	var measures []string
	switch {
	case strings.Contains(templateSQL, "count(distinct"):
		measures = append(measures, "去重用户数")
	case strings.Contains(templateSQL, "count("):
		measures = append(measures, "记录数")
	}
	if strings.Contains(templateSQL, "sum(") {
		measures = append(measures, "金额/求和指标")
	}
	if strings.Contains(templateSQL, "avg(") {
		measures = append(measures, "均值指标")
	}
	if len(measures) == 0 {
		measures = append(measures, "常规模型查询")
	}
	return measures
}

func detectFilters(templateSQL string) []string {
	if !strings.Contains(templateSQL, "where") {
		return nil
	}
	var filters []string
	if strings.Contains(templateSQL, "is_new") {
		filters = append(filters, "新客")
	}
	if strings.Contains(templateSQL, "region") || strings.Contains(templateSQL, "province") {
		filters = append(filters, "地区筛选")
	}
	if strings.Contains(templateSQL, "pay_status") {
		filters = append(filters, "支付订单")
	}
	return filters
}
