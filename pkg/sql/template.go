package sql

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sqless-io/sqless-engine/pkg/models"
)

var (
	commentPattern = regexp.MustCompile(`(?ms)--.*?$|/\*.*?\*/`)
	literalPattern = regexp.MustCompile(`'[^']*'|\b\d{4}-\d{2}-\d{2}\b|\b\d+\b`)
	tablePattern   = regexp.MustCompile(`(?i)\bfrom\s+([\w.]+)|\bjoin\s+([\w.]+)`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// TemplateBuilder lifts literals out of SQL statements and produces a
// structural fingerprint, so that mined query logs with differing
// parameters collapse to one template.
type TemplateBuilder struct{}

// NewTemplateBuilder creates a template builder.
func NewTemplateBuilder() *TemplateBuilder {
	return &TemplateBuilder{}
}

// Build strips comments, replaces every literal with a {param_N}
// placeholder, extracts referenced tables and fingerprints the
// normalized result (first 16 hex chars of sha256).
func (b *TemplateBuilder) Build(sql string) models.SQLTemplate {
	base := strings.TrimSpace(commentPattern.ReplaceAllString(sql, ""))

	parameters := make(map[string]string)
	counter := 0
	templated := literalPattern.ReplaceAllStringFunc(base, func(literal string) string {
		counter++
		name := fmt.Sprintf("param_%d", counter)
		parameters[name] = literal
		return "{" + name + "}"
	})

	normalized := strings.ToLower(spacePattern.ReplaceAllString(strings.TrimSpace(templated), " "))
	sum := sha256.Sum256([]byte(normalized))

	return models.SQLTemplate{
		Template:    normalized,
		Fingerprint: hex.EncodeToString(sum[:])[:16],
		Tables:      extractTables(base),
		Parameters:  parameters,
	}
}

// extractTables returns the sorted set of tables referenced in FROM and
// JOIN clauses.
func extractTables(sql string) []string {
	seen := make(map[string]struct{})
	for _, match := range tablePattern.FindAllStringSubmatch(sql, -1) {
		table := match[1]
		if table == "" {
			table = match[2]
		}
		if table != "" {
			seen[table] = struct{}{}
		}
	}

	tables := make([]string, 0, len(seen))
	for t := range seen {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}
