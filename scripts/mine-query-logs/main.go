// mine-query-logs runs the offline provenance pipeline over historical
// warehouse query logs and emits ranked intent-SQL pairs as JSON:
// - Filters noise (failed queries, cheap scans, non-whitelisted users)
// - Lifts literals into templates and dedupes by structural fingerprint
// - Infers a Chinese business intent per template from schema metadata
// - Scores each pair by frequency, user authority, and recency
//
// Without arguments it mines the built-in sample logs, which is useful
// for demos and for eyeballing pipeline changes.
//
// Usage: go run ./scripts/mine-query-logs [-logs logs.json] [-authority authority.json] [-query "新客 支付"]
//
//	-logs       JSON array of query log records (sql, status, scanned_rows, duration_ms, user, executed_at)
//	-authority  JSON object mapping user to authority weight in [0,1]
//	-schemas    JSON object mapping table name to its schema (table, ordered column list)
//	-query      optional retrieval probe run against the mined store
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/sqless-io/sqless-engine/pkg/models"
	"github.com/sqless-io/sqless-engine/pkg/provenance"
)

// MiningResult is the full CLI output.
type MiningResult struct {
	RawLogs    int                    `json:"raw_logs"`
	MinedPairs int                    `json:"mined_pairs"`
	Pairs      []models.IntentSQLPair `json:"pairs"`
	Retrieval  []models.IntentSQLPair `json:"retrieval,omitempty"`
}

func main() {
	logsPath := flag.String("logs", "", "path to a JSON array of query log records (default: built-in samples)")
	authorityPath := flag.String("authority", "", "path to a JSON user-to-authority map (default: built-in samples)")
	schemasPath := flag.String("schemas", "", "path to a JSON table-to-schema map (default: built-in samples)")
	query := flag.String("query", "", "optional retrieval probe against the mined store")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	logs, err := loadLogs(*logsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load query logs: %v\n", err)
		os.Exit(1)
	}

	authority, err := loadAuthority(*authorityPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load authority map: %v\n", err)
		os.Exit(1)
	}

	schemas, err := loadSchemas(*schemasPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load table schemas: %v\n", err)
		os.Exit(1)
	}

	pipeline := provenance.NewPipeline(schemas, logger)
	pairs := pipeline.Mine(logs, authority)

	result := MiningResult{
		RawLogs:    len(logs),
		MinedPairs: len(pairs),
		Pairs:      pairs,
	}

	if *query != "" {
		store := provenance.NewIntentSQLStore()
		store.Load(pairs)
		result.Retrieval = store.Retrieve(*query)
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(output))
}

func loadLogs(path string) ([]models.QueryLogRecord, error) {
	if path == "" {
		return provenance.SampleQueryLogs(time.Now()), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var logs []models.QueryLogRecord
	if err := json.Unmarshal(raw, &logs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return logs, nil
}

func loadSchemas(path string) (map[string]models.TableSchema, error) {
	if path == "" {
		return provenance.SampleTableSchemas(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var schemas map[string]models.TableSchema
	if err := json.Unmarshal(raw, &schemas); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return schemas, nil
}

func loadAuthority(path string) (map[string]float64, error) {
	if path == "" {
		return provenance.SampleAuthorityMap(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var authority map[string]float64
	if err := json.Unmarshal(raw, &authority); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return authority, nil
}
