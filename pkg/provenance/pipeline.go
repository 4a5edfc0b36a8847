package provenance

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sqless-io/sqless-engine/pkg/logging"
	"github.com/sqless-io/sqless-engine/pkg/models"
	enginesql "github.com/sqless-io/sqless-engine/pkg/sql"
)

// Pipeline mines warehouse query logs into trusted intent-SQL pairs:
// filter, template, vet parameters, score trust, infer intent, dedupe.
type Pipeline struct {
	filter  *LogFilter
	builder *enginesql.TemplateBuilder
	scorer  *TrustScorer
	inferer *IntentInferer
	logger  *zap.Logger
	nowFunc func() time.Time
}

// NewPipeline assembles a mining pipeline. Schemas enrich intent
// inference; authority maps user -> [0,1] authority weight.
func NewPipeline(schemas map[string]models.TableSchema, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		filter:  NewLogFilter(logger),
		builder: enginesql.NewTemplateBuilder(),
		scorer:  NewTrustScorer(DefaultTrustWeights()),
		inferer: NewIntentInferer(schemas),
		logger:  logger,
		nowFunc: time.Now,
	}
}

// vetParameters scans lifted literals for injection patterns. String
// literals keep their quotes in the parameter map, so the quotes come
// off before the scan.
func vetParameters(params map[string]string) []*enginesql.InjectionCheckResult {
	unquoted := make(map[string]string, len(params))
	for name, value := range params {
		unquoted[name] = strings.Trim(value, "'")
	}
	return enginesql.CheckAllParameters(unquoted)
}

type minedCandidate struct {
	template models.SQLTemplate
	rawSQL   string
	user     string
	executed time.Time
}

// Mine runs the full pipeline over raw logs. Authority maps each user to
// an authority weight in [0,1]; unlisted users score 0. Output is sorted
// by trust score, best first, one pair per template fingerprint.
func (p *Pipeline) Mine(logs []models.QueryLogRecord, authority map[string]float64) []models.IntentSQLPair {
	// Only users with authority >= 0.5 pass the filtering phase.
	whitelist := make(map[string]struct{}, len(authority))
	for user, weight := range authority {
		if weight >= 0.5 {
			whitelist[user] = struct{}{}
		}
	}

	clean := p.filter.Filter(logs, whitelist)

	// Group templated candidates by fingerprint, dropping records whose
	// lifted parameters carry injection patterns.
	byFingerprint := make(map[string][]minedCandidate)
	for _, record := range clean {
		template := p.builder.Build(record.SQL)
		if hostile := vetParameters(template.Parameters); len(hostile) > 0 {
			p.logger.Warn("Dropping query log with hostile parameter",
				zap.String("user", record.User),
				zap.String("param", hostile[0].ParamName),
				zap.String("fingerprint", hostile[0].Fingerprint),
				zap.String("sql", logging.TruncateQuery(record.SQL)))
			continue
		}
		byFingerprint[template.Fingerprint] = append(byFingerprint[template.Fingerprint], minedCandidate{
			template: template,
			rawSQL:   record.SQL,
			user:     record.User,
			executed: record.ExecutedAt,
		})
	}

	maxFreq := 0
	for _, group := range byFingerprint {
		if len(group) > maxFreq {
			maxFreq = len(group)
		}
	}

	now := p.nowFunc()
	pairs := make([]models.IntentSQLPair, 0, len(byFingerprint))
	for _, group := range byFingerprint {
		// The most recent execution represents the group; its user's
		// authority and its recency feed the trust score.
		best := group[0]
		for _, c := range group[1:] {
			if c.executed.After(best.executed) {
				best = c
			}
		}

		recency := p.scorer.RecencyDays(best.executed, now)
		auth := authority[best.user]
		pairs = append(pairs, models.IntentSQLPair{
			Intent:           p.inferer.Infer(best.template),
			SQLTemplate:      best.template,
			RawSQL:           best.rawSQL,
			InferredEntities: best.template.Parameters,
			TrustScore:       p.scorer.Score(len(group), maxFreq, auth, recency),
			Frequency:        len(group),
			Authority:        auth,
			RecencyDays:      recency,
		})
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].TrustScore > pairs[j].TrustScore
	})

	p.logger.Info("Query log mining complete",
		zap.Int("raw_logs", len(logs)),
		zap.Int("kept_logs", len(clean)),
		zap.Int("pairs", len(pairs)))
	return pairs
}
