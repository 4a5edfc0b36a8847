// Package services contains the metric resolution session engine: intent
// parsing, candidate retrieval, conflict detection, confidence gating,
// clarification and expert escalation. All components are pure over the
// session record; the session registry serializes mutation.
package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sqless-io/sqless-engine/pkg/models"
)

// defaultMetricKeywords is the keyword vocabulary used when no custom
// list is configured.
var defaultMetricKeywords = []string{"gmv", "订单", "转化"}

// dimensionVocabulary is the fixed set of dimension hints recognized in
// raw queries.
var dimensionVocabulary = []string{"行业", "类目", "渠道"}

// timeRangePattern matches a month-count phrase like "12月".
var timeRangePattern = regexp.MustCompile(`(\d{1,2})月`)

// IntentParser turns a raw metric request into a structured intent.
// Parsing is a deterministic, pure function of the query string; absent
// matches yield empty fields, never an error.
type IntentParser struct {
	metricKeywords []string
}

// NewIntentParser creates a parser. With no keywords the default
// vocabulary is used.
func NewIntentParser(metricKeywords ...string) *IntentParser {
	return &IntentParser{metricKeywords: metricKeywords}
}

// Parse extracts metric keywords, dimension hints, a time-range phrase
// and a granularity hint from the query.
func (p *IntentParser) Parse(query string) *models.ParsedIntent {
	keywords := p.metricKeywords
	if len(keywords) == 0 {
		keywords = defaultMetricKeywords
	}

	lowered := strings.ToLower(query)
	var metrics []string
	for _, kw := range keywords {
		if strings.Contains(lowered, strings.ToLower(kw)) {
			metrics = append(metrics, kw)
		}
	}

	var dimensions []string
	for _, dim := range dimensionVocabulary {
		if strings.Contains(query, dim) {
			dimensions = append(dimensions, dim)
		}
	}

	granularity := ""
	if strings.Contains(query, "日") || strings.Contains(query, "天") {
		granularity = models.GranularityDay
	}

	return &models.ParsedIntent{
		RawQuery:    query,
		Metrics:     metrics,
		Dimensions:  dimensions,
		TimeRange:   extractTimeRange(query),
		Granularity: granularity,
	}
}

// extractTimeRange returns a normalized phrase for the first month-count
// match, or "" when the query has none.
func extractTimeRange(query string) string {
	match := timeRangePattern.FindStringSubmatch(query)
	if match == nil {
		return ""
	}
	return fmt.Sprintf("最近的 %s 月", match[1])
}
