package handlers

import (
	"fmt"
	"math"
	"strings"

	"github.com/sqless-io/sqless-engine/pkg/models"
	"github.com/sqless-io/sqless-engine/pkg/services"
	enginesql "github.com/sqless-io/sqless-engine/pkg/sql"
)

// snippetLines bounds the SQL preview embedded in summaries and expert
// cards.
const snippetLines = 4

// SpecSummary is the compact spec view embedded in candidate listings
// and confirmation screens.
type SpecSummary struct {
	SpecID          string   `json:"spec_id"`
	Name            string   `json:"name"`
	Summary         string   `json:"summary"`
	Status          string   `json:"status"`
	Owner           string   `json:"owner"`
	Version         string   `json:"version"`
	Domain          string   `json:"domain"`
	Tags            []string `json:"tags,omitempty"`
	TimeGranularity string   `json:"time_granularity"`
	Dimensions      []string `json:"dimensions,omitempty"`
	Filters         []string `json:"filters,omitempty"`
	DataSource      string   `json:"data_source"`
	TimeColumn      string   `json:"time_column"`
	Measure         string   `json:"measure"`
	MetricCaliber   string   `json:"metric_caliber,omitempty"`
	TimeSemantics   string   `json:"time_semantics,omitempty"`
	IndustryMapping string   `json:"industry_mapping,omitempty"`
	SQLSnippet      string   `json:"sql_snippet"`
}

// ScoredSpec pairs a retrieval score with the spec summary.
type ScoredSpec struct {
	Score float64     `json:"score"`
	Spec  SpecSummary `json:"spec"`
}

// ConfirmationPayload is the "确认口径" card shown once a spec is locked
// in.
type ConfirmationPayload struct {
	Metric          string            `json:"metric"`
	Version         string            `json:"version"`
	Grain           string            `json:"grain"`
	TimeRange       string            `json:"time_range"`
	TimeSemantics   string            `json:"time_semantics"`
	IndustryMapping string            `json:"industry_mapping"`
	Filters         []string          `json:"filters,omitempty"`
	Source          string            `json:"source"`
	Owner           string            `json:"owner"`
	Caliber         string            `json:"caliber,omitempty"`
	Clarifications  map[string]string `json:"clarifications"`
}

// ExpertCardOption is one interpretation offered to the reviewing
// expert.
type ExpertCardOption struct {
	Label        string   `json:"label"`
	Confidence   float64  `json:"confidence"`
	Definition   string   `json:"definition"`
	BusinessHint string   `json:"business_hint"`
	Source       string   `json:"source"`
	Filters      []string `json:"filters,omitempty"`
	SpecID       string   `json:"spec_id"`
	Snippet      []string `json:"snippet"`
}

// ExpertCard is the escalation request sent to data owners.
type ExpertCard struct {
	Title         string             `json:"title"`
	SourceUser    string             `json:"source_user"`
	OriginalQuery string             `json:"original_query"`
	Reason        string             `json:"reason"`
	Options       []ExpertCardOption `json:"options"`
	Owners        []string           `json:"owners"`
	ForwardedTo   string             `json:"forwarded_to,omitempty"`
}

// SessionPayload is the full session view returned by every session
// endpoint.
type SessionPayload struct {
	SessionID      string                                `json:"session_id"`
	User           string                                `json:"user"`
	Intent         *models.ParsedIntent                  `json:"intent"`
	Candidates     []ScoredSpec                          `json:"candidates"`
	Clarifications map[string]models.ClarificationAnswer `json:"clarifications"`
	SelectedSpec   *SpecSummary                          `json:"selected_spec,omitempty"`
	Confidence     float64                               `json:"confidence"`
	RouteExpert    bool                                  `json:"route_expert"`
	Conflict       *models.ConflictNotice                `json:"conflict,omitempty"`
	ExpertCard     *ExpertCard                           `json:"expert_card,omitempty"`
	Questions      []models.ClarificationQuestion        `json:"questions"`
	SlotForm       []services.SlotFormEntry              `json:"slot_form"`
	Confirmation   *ConfirmationPayload                  `json:"confirmation,omitempty"`
	SQL            string                                `json:"sql,omitempty"`
}

// PayloadBuilder assembles user-facing session views from engine state.
type PayloadBuilder struct {
	svc                 services.ResolutionService
	clarifyingThreshold float64
}

// NewPayloadBuilder creates a builder; the clarifying threshold feeds
// the low-confidence escalation reason.
func NewPayloadBuilder(svc services.ResolutionService, clarifyingThreshold float64) *PayloadBuilder {
	return &PayloadBuilder{svc: svc, clarifyingThreshold: clarifyingThreshold}
}

// SummarizeSpec builds the compact spec view. The session provides the
// context for the SQL preview; nil renders a context-free preview.
func (b *PayloadBuilder) SummarizeSpec(spec *models.MetricSpec, session *models.Session) SpecSummary {
	if session == nil {
		session = models.NewSession("preview", "preview", &models.ParsedIntent{})
	}
	preview := strings.SplitN(enginesql.Render(spec, session), "\n", snippetLines+1)
	if len(preview) > snippetLines {
		preview = preview[:snippetLines]
	}

	slots := services.SlotValues(spec)
	summary := SpecSummary{
		SpecID:          spec.SpecID,
		Name:            spec.Meta.Name,
		Summary:         spec.Summary(),
		Status:          spec.Meta.Status,
		Owner:           spec.Meta.Owner,
		Version:         spec.Governance.Version,
		Domain:          spec.Meta.Domain,
		Tags:            spec.Meta.Tags,
		TimeGranularity: spec.Semantics.Grain.TimeGranularity,
		Dimensions:      spec.Semantics.Grain.Dimensions,
		Filters:         filterDescriptions(spec),
		DataSource:      spec.Physical.FactTable,
		TimeColumn:      spec.Physical.TimeColumn,
		Measure:         spec.Physical.MeasureColumn,
		MetricCaliber:   spec.Semantics.MetricCaliber,
		TimeSemantics:   slots[models.SlotTimeSemantics],
		SQLSnippet:      strings.Join(preview, "\n"),
	}
	if summary.TimeSemantics == "" {
		summary.TimeSemantics = spec.Semantics.TimeSemantics.BusinessDayRule
	}
	if mapping, ok := slots[models.SlotIndustryMapping]; ok {
		summary.IndustryMapping = mapping
		if spec.Semantics.IndustryMapping != nil {
			summary.IndustryMapping = fmt.Sprintf("%s (%s)", mapping, spec.Semantics.IndustryMapping.Version)
		}
	}
	return summary
}

// Confirmation builds the caliber confirmation card, or nil before a
// spec is selected.
func (b *PayloadBuilder) Confirmation(session *models.Session) *ConfirmationPayload {
	spec := session.SelectedSpec
	if spec == nil {
		return nil
	}

	slots := services.SlotValues(spec)
	mapping := slots[models.SlotIndustryMapping]
	if mapping == "" {
		mapping = "未指定"
	} else if spec.Semantics.IndustryMapping != nil {
		mapping = fmt.Sprintf("%s (%s)", mapping, spec.Semantics.IndustryMapping.Version)
	}
	timeLabel := slots[models.SlotTimeSemantics]
	if timeLabel == "" {
		timeLabel = spec.Semantics.TimeSemantics.BusinessDayRule
	}

	dims := strings.Join(spec.Semantics.Grain.Dimensions, ", ")
	if dims == "" {
		dims = "无"
	}
	timeRange := session.Intent.TimeRange
	if timeRange == "" {
		timeRange = "未指定"
	}

	clarifications := make(map[string]string, len(session.Clarifications))
	for slot, ans := range session.Clarifications {
		clarifications[slot] = ans.Value
	}

	return &ConfirmationPayload{
		Metric:          spec.Meta.Name,
		Version:         spec.Governance.Version,
		Grain:           fmt.Sprintf("%s × %s", spec.Semantics.Grain.TimeGranularity, dims),
		TimeRange:       timeRange,
		TimeSemantics:   timeLabel,
		IndustryMapping: mapping,
		Filters:         filterDescriptions(spec),
		Source:          spec.Physical.FactTable,
		Owner:           spec.Meta.Owner,
		Caliber:         spec.Semantics.MetricCaliber,
		Clarifications:  clarifications,
	}
}

// ExpertCard builds the escalation card, or nil when the session is not
// routed to an expert. The top two candidates become the "推测" options.
func (b *PayloadBuilder) ExpertCard(session *models.Session) *ExpertCard {
	if !session.RouteExpert {
		return nil
	}

	var reasons []string
	if session.Conflict != nil {
		reasons = append(reasons, session.Conflict.Message)
	}
	if session.Confidence < b.clarifyingThreshold {
		reasons = append(reasons, "候选置信度较低")
	}
	reason := strings.Join(reasons, "；")
	if reason == "" {
		reason = "需要专家确认口径与数据源"
	}

	labels := []string{"推测 A", "推测 B"}
	top := session.Candidates
	if len(top) > 2 {
		top = top[:2]
	}
	options := make([]ExpertCardOption, 0, len(top))
	for i, cand := range top {
		spec := cand.Spec
		hint := services.SlotValues(spec)[models.SlotMetricCaliber]
		if hint == "" {
			hint = spec.Semantics.MetricCaliber
		}
		snippet := strings.SplitN(enginesql.Render(spec, session), "\n", snippetLines+1)
		if len(snippet) > snippetLines {
			snippet = snippet[:snippetLines]
		}
		options = append(options, ExpertCardOption{
			Label:        labels[i],
			Confidence:   math.Round(cand.Score*100) / 100,
			Definition:   spec.Meta.Description,
			BusinessHint: hint,
			Source:       spec.Physical.FactTable + "." + spec.Physical.MeasureColumn,
			Filters:      filterDescriptions(spec),
			SpecID:       spec.SpecID,
			Snippet:      snippet,
		})
	}

	return &ExpertCard{
		Title:         "📊 数据口径确认请求",
		SourceUser:    session.User,
		OriginalQuery: session.Intent.RawQuery,
		Reason:        reason,
		Options:       options,
		Owners:        b.svc.RouteToExpert(session),
		ForwardedTo:   session.ForwardedTo,
	}
}

// Session builds the full session payload. SQL is included only when a
// generate_sql call produced it.
func (b *PayloadBuilder) Session(session *models.Session, sql string) SessionPayload {
	candidates := make([]ScoredSpec, 0, len(session.Candidates))
	for _, cand := range session.Candidates {
		candidates = append(candidates, ScoredSpec{
			Score: cand.Score,
			Spec:  b.SummarizeSpec(cand.Spec, session),
		})
	}

	var selected *SpecSummary
	if session.SelectedSpec != nil {
		s := b.SummarizeSpec(session.SelectedSpec, session)
		selected = &s
	}

	questions := []models.ClarificationQuestion{}
	if b.svc.NeedsClarification(session) {
		questions = b.svc.NextQuestions(session)
	}

	return SessionPayload{
		SessionID:      session.SessionID,
		User:           session.User,
		Intent:         session.Intent,
		Candidates:     candidates,
		Clarifications: session.Clarifications,
		SelectedSpec:   selected,
		Confidence:     session.Confidence,
		RouteExpert:    session.RouteExpert,
		Conflict:       session.Conflict,
		ExpertCard:     b.ExpertCard(session),
		Questions:      questions,
		SlotForm:       b.svc.SlotForm(session),
		Confirmation:   b.Confirmation(session),
		SQL:            sql,
	}
}

// filterDescriptions prefers the human description, falling back to the
// raw expression.
func filterDescriptions(spec *models.MetricSpec) []string {
	out := make([]string, 0, len(spec.Semantics.Filters))
	for _, f := range spec.Semantics.Filters {
		if f.Desc != "" {
			out = append(out, f.Desc)
		} else {
			out = append(out, f.Expr)
		}
	}
	return out
}
