package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sqless-io/sqless-engine/pkg/models"
)

// questionBank is the fixed, ordered set of disambiguation questions.
// Bank order breaks information-gain ties.
var questionBank = []models.ClarificationQuestion{
	{
		Slot:        models.SlotMetricCaliber,
		Question:    "请选择 GMV 口径",
		Options:     []string{models.CaliberOrder, models.CaliberPayment, models.CaliberSettlement},
		Recommended: models.CaliberPayment,
	},
	{
		Slot:        models.SlotIndustryMapping,
		Question:    "请选择行业定义",
		Options:     []string{IndustryMappingCategory, IndustryMappingMerchant, IndustryMappingContent},
		Recommended: IndustryMappingCategory,
	},
	{
		Slot:        models.SlotTimeSemantics,
		Question:    "请选择时间口径",
		Options:     []string{TimeSemanticsNaturalDay, TimeSemanticsBusinessDay},
		Recommended: TimeSemanticsNaturalDay,
	},
}

// SlotFormEntry is one row of the full clarification form: the question
// plus the effective value (the given answer, else the recommendation).
type SlotFormEntry struct {
	Slot    string   `json:"slot"`
	Label   string   `json:"label"`
	Options []string `json:"options"`
	Value   string   `json:"value,omitempty"`
}

// ClarificationEngine proposes disambiguating questions ranked by
// information gain across the session's candidates and applies answers
// back into session state.
type ClarificationEngine struct {
	maxQuestions int
}

// NewClarificationEngine creates an engine returning at most
// maxQuestions questions per request (values below 1 fall back to 3).
func NewClarificationEngine(maxQuestions int) *ClarificationEngine {
	if maxQuestions < 1 {
		maxQuestions = 3
	}
	return &ClarificationEngine{maxQuestions: maxQuestions}
}

// NextQuestions returns the unanswered bank questions ranked by
// information gain (count of distinct slot values across candidates),
// descending with bank order as tie-break. A slot with no differentiating
// values is still offered as a confirmation question once a spec is
// selected. Each question carries a freshly computed recommendation.
func (e *ClarificationEngine) NextQuestions(session *models.Session) []models.ClarificationQuestion {
	type rankedQuestion struct {
		gain     int
		question models.ClarificationQuestion
	}

	var ranked []rankedQuestion
	for _, q := range questionBank {
		if _, answered := session.Answer(q.Slot); answered {
			continue
		}

		distinct := make(map[string]struct{})
		for _, cand := range session.Candidates {
			if v, ok := SlotValues(cand.Spec)[q.Slot]; ok {
				distinct[v] = struct{}{}
			}
		}

		gain := len(distinct)
		if gain == 0 && session.SelectedSpec != nil {
			gain = 1
		}
		if gain == 0 {
			continue
		}

		ranked = append(ranked, rankedQuestion{
			gain: gain,
			question: models.ClarificationQuestion{
				Slot:        q.Slot,
				Question:    q.Question,
				Options:     q.Options,
				Recommended: e.recommendedValue(q.Slot, session),
			},
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].gain > ranked[j].gain
	})

	if len(ranked) > e.maxQuestions {
		ranked = ranked[:e.maxQuestions]
	}

	out := make([]models.ClarificationQuestion, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.question)
	}
	return out
}

// ApplyAnswers records answers on the session. Each answer overwrites any
// prior answer for its slot, so re-applying is idempotent. Values are
// deliberately not validated against the option list: the form UI is not
// the only input path.
func (e *ClarificationEngine) ApplyAnswers(session *models.Session, answers []models.ClarificationAnswer) {
	if session.Clarifications == nil {
		session.Clarifications = make(map[string]models.ClarificationAnswer)
	}
	for _, ans := range answers {
		session.Clarifications[ans.Slot] = ans
	}
}

// SummarizeAnswers renders the accumulated answers as one line for
// reports and confirmation payloads.
func (e *ClarificationEngine) SummarizeAnswers(session *models.Session) string {
	if len(session.Clarifications) == 0 {
		return "暂无澄清答案"
	}

	parts := make([]string, 0, len(session.Clarifications))
	for _, q := range questionBank {
		if ans, ok := session.Answer(q.Slot); ok {
			parts = append(parts, fmt.Sprintf("%s: %s", q.Slot, ans.Value))
		}
	}
	return strings.Join(parts, " | ")
}

// SlotForm returns every bank question with its effective value for
// pre-filled form rendering.
func (e *ClarificationEngine) SlotForm(session *models.Session) []SlotFormEntry {
	form := make([]SlotFormEntry, 0, len(questionBank))
	for _, q := range questionBank {
		value := e.recommendedValue(q.Slot, session)
		if ans, ok := session.Answer(q.Slot); ok {
			value = ans.Value
		}
		form = append(form, SlotFormEntry{
			Slot:    q.Slot,
			Label:   q.Question,
			Options: q.Options,
			Value:   value,
		})
	}
	return form
}

// recommendedValue picks the best default for a slot: the selected
// spec's own value, else the most frequent value across candidates
// (first-seen wins ties), else the bank's static default.
func (e *ClarificationEngine) recommendedValue(slot string, session *models.Session) string {
	if session.SelectedSpec != nil {
		if v, ok := SlotValues(session.SelectedSpec)[slot]; ok {
			return v
		}
	}

	counts := make(map[string]int)
	var order []string
	for _, cand := range session.Candidates {
		v, ok := SlotValues(cand.Spec)[slot]
		if !ok {
			continue
		}
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}

	best := ""
	bestCount := 0
	for _, v := range order {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	if best != "" {
		return best
	}

	for _, q := range questionBank {
		if q.Slot == slot {
			return q.Recommended
		}
	}
	return ""
}
