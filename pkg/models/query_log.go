package models

import "time"

// QueryLogStatusSuccess marks a warehouse query that completed without error.
const QueryLogStatusSuccess = "SUCCESS"

// QueryLogRecord is a raw warehouse query log entry prior to cleaning
// and templating by the provenance pipeline.
type QueryLogRecord struct {
	SQL         string    `json:"sql"`
	Status      string    `json:"status"`
	ScannedRows int64     `json:"scanned_rows"`
	DurationMS  int64     `json:"duration_ms"`
	User        string    `json:"user"`
	ExecutedAt  time.Time `json:"executed_at"`
}

// ColumnDesc pairs a column name with its business description.
type ColumnDesc struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TableSchema carries minimal column metadata for semantic reverse
// engineering of mined SQL. Column order is meaningful: the leading
// columns stand in for the table in inferred intent descriptions.
type TableSchema struct {
	Table   string       `json:"table"`
	Columns []ColumnDesc `json:"columns"`
}

// SQLTemplate is a structurally fingerprinted SQL statement with its
// literals lifted into named parameters.
type SQLTemplate struct {
	Template    string            `json:"template"`
	Fingerprint string            `json:"fingerprint"`
	Tables      []string          `json:"tables,omitempty"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

// IntentSQLPair is a cleaned intent-SQL pairing mined from historical
// query logs, weighted by a trust score.
type IntentSQLPair struct {
	Intent           string            `json:"intent"`
	SQLTemplate      SQLTemplate       `json:"sql_template"`
	RawSQL           string            `json:"raw_sql"`
	InferredEntities map[string]string `json:"inferred_entities,omitempty"`
	TrustScore       float64           `json:"trust_score"`
	Frequency        int               `json:"frequency"`
	Authority        float64           `json:"authority"`
	RecencyDays      float64           `json:"recency_days"`
}
