// Package provenance mines historical warehouse query logs into trusted
// intent-SQL pairs. It is an offline pipeline; the resolution engine
// never depends on it, but its output can seed an auxiliary intent-SQL
// knowledge base.
package provenance

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/sqless-io/sqless-engine/pkg/models"
)

// piiPatterns matches values that must never leave the mining pipeline:
// mainland phone numbers, email addresses and national id numbers.
var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b1[3-9]\d{9}\b`),
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	regexp.MustCompile(`\b\d{15,18}[Xx]?\b`),
}

// MaskPII replaces common PII patterns in SQL text before any further
// processing or storage.
func MaskPII(sql string) string {
	masked := sql
	for _, pattern := range piiPatterns {
		masked = pattern.ReplaceAllString(masked, "<MASKED>")
	}
	return masked
}

// LogFilter drops low-value and untrusted query log entries before
// templating.
type LogFilter struct {
	MinScannedRows int64
	MinDurationMS  int64

	logger *zap.Logger
}

// NewLogFilter creates a filter with the default physical-layer
// thresholds.
func NewLogFilter(logger *zap.Logger) *LogFilter {
	return &LogFilter{
		MinScannedRows: 1000,
		MinDurationMS:  300,
		logger:         logger,
	}
}

// Filter keeps successful, expensive-enough queries from whitelisted
// users and masks PII. A nil whitelist admits every user.
func (f *LogFilter) Filter(logs []models.QueryLogRecord, authorityWhitelist map[string]struct{}) []models.QueryLogRecord {
	var filtered []models.QueryLogRecord
	for _, log := range logs {
		if log.Status != models.QueryLogStatusSuccess {
			continue
		}
		if log.ScannedRows < f.MinScannedRows || log.DurationMS < f.MinDurationMS {
			continue
		}
		if authorityWhitelist != nil {
			if _, ok := authorityWhitelist[log.User]; !ok {
				continue
			}
		}
		log.SQL = MaskPII(log.SQL)
		filtered = append(filtered, log)
	}
	return filtered
}
