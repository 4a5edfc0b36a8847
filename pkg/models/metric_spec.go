// Package models contains domain types for sqless-engine.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Lifecycle status values for metric specifications.
const (
	SpecStatusDraft    = "draft"    // Authored but not yet reviewed
	SpecStatusVerified = "verified" // Reviewed and signed off by a data lead
)

// Metric caliber labels. The caliber names which underlying records count
// toward a metric; the labels are the business-facing Chinese terms used
// across the catalog, the clarification bank and rendered SQL comments.
const (
	CaliberOrder      = "下单"
	CaliberPayment    = "支付"
	CaliberSettlement = "结算"
)

// MetricMeta holds descriptive metadata for a metric specification.
type MetricMeta struct {
	Name        string    `json:"name"`
	Aliases     []string  `json:"aliases,omitempty"`
	Domain      string    `json:"domain"`
	Description string    `json:"description"`
	Status      string    `json:"status"` // "draft" or "verified"
	Owner       string    `json:"owner"`
	VerifiedBy  string    `json:"verified_by,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	UsageCount  int64     `json:"usage_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Grain is the time bucket and dimension breakdown a metric is computed at.
type Grain struct {
	TimeGranularity string   `json:"time_granularity"`
	Dimensions      []string `json:"dimensions,omitempty"`
}

// TimeSemantics describes which event time drives the metric and how a
// business day is defined.
type TimeSemantics struct {
	EventTime       string `json:"event_time"`
	Timezone        string `json:"timezone"`
	BusinessDayRule string `json:"business_day_rule"`
}

// Filter is a semantic-level filter expression with an optional
// human-readable description.
type Filter struct {
	Expr string `json:"expr"`
	Desc string `json:"desc,omitempty"`
}

// IndustryMapping binds a metric to a versioned industry dimension tree.
type IndustryMapping struct {
	Type     string `json:"type"`
	Version  string `json:"version"`
	DimTable string `json:"dim_table"`
	JoinKey  string `json:"join_key"`
}

// Attribution describes how the metric attributes value across channels.
type Attribution struct {
	Mode string `json:"mode"`
	Desc string `json:"desc,omitempty"`
}

// Semantics is the business definition of a metric.
type Semantics struct {
	MetricType      string           `json:"metric_type"`
	DefaultMeasure  string           `json:"default_measure"`
	MetricCaliber   string           `json:"metric_caliber,omitempty"`
	Grain           Grain            `json:"grain"`
	TimeSemantics   TimeSemantics    `json:"time_semantics"`
	Filters         []Filter         `json:"filters,omitempty"`
	IndustryMapping *IndustryMapping `json:"industry_mapping,omitempty"`
	Attribution     *Attribution     `json:"attribution,omitempty"`
}

// DimensionJoin describes how a fact table joins a dimension table.
type DimensionJoin struct {
	DimTable   string   `json:"dim_table"`
	FactKey    string   `json:"fact_key"`
	DimKey     string   `json:"dim_key"`
	SelectCols []string `json:"select_cols,omitempty"`
}

// PhysicalMapping binds metric semantics to concrete warehouse tables.
type PhysicalMapping struct {
	FactTable      string          `json:"fact_table"`
	TimeColumn     string          `json:"time_column"`
	MeasureColumn  string          `json:"measure_column"`
	DimensionJoins []DimensionJoin `json:"dimension_joins,omitempty"`
	PartitionHint  string          `json:"partition_hint,omitempty"`
	SQLTemplate    string          `json:"sql_template,omitempty"` // Overrides the built-in render template when set
}

// ChangelogEntry records one governed change to a specification.
type ChangelogEntry struct {
	Version string    `json:"version"`
	Change  string    `json:"change"`
	By      string    `json:"by"`
	At      time.Time `json:"at"`
}

// Governance holds versioning and validity metadata.
// Invariant: ValidFrom <= ValidTo.
type Governance struct {
	Version        string           `json:"version"`
	ValidFrom      time.Time        `json:"valid_from"`
	ValidTo        time.Time        `json:"valid_to"`
	Changelog      []ChangelogEntry `json:"changelog,omitempty"`
	ConflictPolicy string           `json:"conflict_policy,omitempty"`
}

// Security holds optional access-control metadata.
type Security struct {
	RowLevelPolicy string   `json:"row_level_policy,omitempty"`
	ColumnMasking  []string `json:"column_masking,omitempty"`
	AllowedRoles   []string `json:"allowed_roles,omitempty"`
}

// QualityRule is a single data-quality validation rule.
type QualityRule struct {
	Type   string `json:"type"`
	Target string `json:"target,omitempty"`
	Freq   string `json:"freq,omitempty"`
	Rule   string `json:"rule,omitempty"`
}

// Quality holds data-quality validation metadata.
type Quality struct {
	ValidationRules []QualityRule `json:"validation_rules,omitempty"`
}

// MetricSpec is a governed, versioned metric definition binding business
// semantics to a physical table mapping. Specs are immutable by convention:
// the catalog mutates only the usage counter and the lifecycle status.
type MetricSpec struct {
	SpecID     string          `json:"spec_id"`
	Meta       MetricMeta      `json:"meta"`
	Semantics  Semantics       `json:"semantics"`
	Physical   PhysicalMapping `json:"physical"`
	Governance Governance      `json:"governance"`
	Security   Security        `json:"security,omitempty"`
	Quality    Quality         `json:"quality,omitempty"`
}

// Validate checks the structural invariants a catalog entry must satisfy.
func (s *MetricSpec) Validate() error {
	if s.SpecID == "" {
		return fmt.Errorf("spec_id is required")
	}
	if s.Meta.Name == "" {
		return fmt.Errorf("spec %s: name is required", s.SpecID)
	}
	if s.Physical.FactTable == "" {
		return fmt.Errorf("spec %s: fact_table is required", s.SpecID)
	}
	if !s.Governance.ValidTo.IsZero() && s.Governance.ValidFrom.After(s.Governance.ValidTo) {
		return fmt.Errorf("spec %s: valid_from is after valid_to", s.SpecID)
	}
	return nil
}

// Summary returns a one-line human-readable description of the spec,
// used in candidate listings and expert escalation cards.
func (s *MetricSpec) Summary() string {
	filters := make([]string, 0, len(s.Semantics.Filters))
	for _, f := range s.Semantics.Filters {
		filters = append(filters, f.Expr)
	}
	filterDesc := strings.Join(filters, ", ")
	if filterDesc == "" {
		filterDesc = "无"
	}
	dims := strings.Join(s.Semantics.Grain.Dimensions, ", ")
	if dims == "" {
		dims = "无"
	}
	return fmt.Sprintf("%s（%s） | 默认粒度: %s | 维度: %s | 过滤: %s | 数据源: %s",
		s.Meta.Name, s.Semantics.MetricType, s.Semantics.Grain.TimeGranularity,
		dims, filterDesc, s.Physical.FactTable)
}

// Candidate pairs a specification with its retrieval score. Higher is
// better. Candidates are produced fresh per retrieval call and only live
// inside a session.
type Candidate struct {
	Spec  *MetricSpec `json:"spec"`
	Score float64     `json:"score"`
}
