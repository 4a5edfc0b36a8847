package provenance

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/sqless-io/sqless-engine/pkg/models"
)

const retrieveLimit = 5

var tokenBoundary = regexp.MustCompile(`[^a-zA-Z0-9_\x{4e00}-\x{9fff}]+`)

// IntentSQLStore holds mined intent-SQL pairs and retrieves the ones
// most relevant to a natural-language query. It is an auxiliary
// knowledge base; the governed catalog remains the source of truth.
type IntentSQLStore struct {
	mu    sync.RWMutex
	pairs []models.IntentSQLPair
}

// NewIntentSQLStore creates an empty store.
func NewIntentSQLStore() *IntentSQLStore {
	return &IntentSQLStore{}
}

// Load replaces the store contents with freshly mined pairs.
func (s *IntentSQLStore) Load(pairs []models.IntentSQLPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs = append([]models.IntentSQLPair(nil), pairs...)
}

// Len reports the number of stored pairs.
func (s *IntentSQLStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pairs)
}

type scoredPair struct {
	pair  models.IntentSQLPair
	score float64
}

// Retrieve returns up to five pairs ranked by token overlap with the
// query blended with trust: overlap weighs 0.6, trust 0.4. A query with
// no tokens degrades to trust-only ranking.
func (s *IntentSQLStore) Retrieve(query string) []models.IntentSQLPair {
	queryTokens := tokenize(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]scoredPair, 0, len(s.pairs))
	for _, pair := range s.pairs {
		intentTokens := tokenize(pair.Intent)
		overlap := 0
		for token := range queryTokens {
			if _, ok := intentTokens[token]; ok {
				overlap++
			}
		}
		// Zero-overlap pairs stay in; trust alone can still rank them.
		relevance := float64(overlap) / float64(len(queryTokens)+1)
		scored = append(scored, scoredPair{
			pair:  pair,
			score: relevance*0.6 + pair.TrustScore*0.4,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if len(scored) > retrieveLimit {
		scored = scored[:retrieveLimit]
	}

	results := make([]models.IntentSQLPair, 0, len(scored))
	for _, sp := range scored {
		results = append(results, sp.pair)
	}
	return results
}

// tokenize splits text on non-word boundaries, keeping CJK runs intact.
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, token := range tokenBoundary.Split(strings.ToLower(text), -1) {
		if token != "" {
			tokens[token] = struct{}{}
		}
	}
	return tokens
}
