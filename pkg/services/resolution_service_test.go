package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sqless-io/sqless-engine/pkg/apperrors"
	"github.com/sqless-io/sqless-engine/pkg/models"
	"github.com/sqless-io/sqless-engine/pkg/repositories"
)

func newTestService(t *testing.T, catalog repositories.CatalogRepository) ResolutionService {
	t.Helper()
	return NewResolutionService(
		catalog,
		NewIntentParser(),
		NewCandidateRetriever(catalog, 5),
		NewConflictDetector(),
		NewConfidenceGate(0.85, 0.65, 0.15),
		NewClarificationEngine(3),
		NewExpertRouter([]string{"owner@datateam.com", "lead@datateam.com"}),
		zap.NewNop(),
	)
}

func TestResolveTrendQueryEndToEnd(t *testing.T) {
	ctx := context.Background()
	catalog := seededCatalog(t)
	svc := newTestService(t, catalog)

	session, err := svc.StartSession(ctx, "12月行业GMV走势", "analyst@corp.com", false)
	require.NoError(t, err)
	require.NotEmpty(t, session.SessionID)
	assert.Len(t, session.Candidates, 4)
	assert.Nil(t, session.Conflict)

	// Two verified payment specs tie near the top, so the gate holds the
	// session on the clarification path instead of auto-selecting.
	assert.Nil(t, session.SelectedSpec)
	assert.False(t, session.RouteExpert)
	assert.True(t, svc.NeedsClarification(session))
	assert.InDelta(t, 0.9, session.Confidence, 1e-9)

	questions := svc.NextQuestions(session)
	require.NotEmpty(t, questions)
	assert.Equal(t, models.SlotMetricCaliber, questions[0].Slot)

	svc.Clarify(ctx, session, []models.ClarificationAnswer{
		{Slot: models.SlotMetricCaliber, Value: models.CaliberPayment},
	})
	require.NotNil(t, session.SelectedSpec)
	assert.Equal(t, "spec_pay_gmv_v2", session.SelectedSpec.SpecID)
	assert.False(t, svc.NeedsClarification(session))

	rendered, err := svc.GenerateSQL(ctx, session)
	require.NoError(t, err)
	assert.Contains(t, rendered, "FROM dws_trade_order_day")
	assert.Contains(t, rendered, "GROUP BY day")
	assert.Contains(t, rendered, "is_risk_order = 0")
	assert.Contains(t, rendered, "-- 时间范围: 最近的 12 月")
	assert.Contains(t, rendered, "-- 口径: 支付")

	// Rendering bumped the catalog usage counter.
	spec, err := catalog.Get(ctx, "spec_pay_gmv_v2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), spec.Meta.UsageCount)
}

// Clarify finalizes on the top candidate even with other slots still
// open. Do not change this without changing the gate policy.
func TestClarifyAlwaysSelectsTopCandidate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, seededCatalog(t))

	session, err := svc.StartSession(ctx, "12月行业GMV走势", "u1", false)
	require.NoError(t, err)

	svc.Clarify(ctx, session, nil)
	require.NotNil(t, session.SelectedSpec)
	assert.Equal(t, session.Candidates[0].Spec.SpecID, session.SelectedSpec.SpecID)
}

func TestGenerateSQLWithoutSelection(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, seededCatalog(t))

	session, err := svc.StartSession(ctx, "12月行业GMV走势", "u1", false)
	require.NoError(t, err)

	_, err = svc.GenerateSQL(ctx, session)
	assert.ErrorIs(t, err, apperrors.ErrNoSpecSelected)
}

func TestStartSessionEmptyCatalogRoutesExpert(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, repositories.NewMemoryCatalogRepository())

	session, err := svc.StartSession(ctx, "12月行业GMV走势", "u1", false)
	require.NoError(t, err)
	assert.Empty(t, session.Candidates)
	assert.Equal(t, 0.0, session.Confidence)
	assert.True(t, session.RouteExpert)
	assert.Equal(t, []string{"owner@datateam.com", "lead@datateam.com"}, svc.RouteToExpert(session))
}

func TestStartSessionForceExpert(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, seededCatalog(t))

	session, err := svc.StartSession(ctx, "12月行业GMV走势", "u1", true)
	require.NoError(t, err)
	assert.True(t, session.RouteExpert)
}

func TestStartSessionConflictRoutesExpert(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, seededCatalog(t))

	session, err := svc.StartSession(ctx, "看结算GMV的当日走势", "u1", false)
	require.NoError(t, err)
	require.NotNil(t, session.Conflict)
	assert.Equal(t, ConflictSettleVsDaily, session.Conflict.Code)
	assert.True(t, session.RouteExpert)
}

func TestResolveConflictAppliesOptionAndClearsNotice(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, seededCatalog(t))

	session, err := svc.StartSession(ctx, "看结算GMV的当日走势", "u1", false)
	require.NoError(t, err)
	require.NotNil(t, session.Conflict)

	// Unknown option id leaves the notice open.
	svc.ResolveConflict(session, "no_such_option")
	assert.NotNil(t, session.Conflict)

	svc.ResolveConflict(session, OptionSettleWeekly)
	assert.Nil(t, session.Conflict)
	assert.Equal(t, models.GranularityWeek, session.Intent.Granularity)
	assert.Equal(t, models.GranularityWeek, session.Intent.GranularityOverride())

	// Resolving again is a silent no-op.
	svc.ResolveConflict(session, OptionSettleWeekly)
	assert.Nil(t, session.Conflict)
}

func TestConflictResolutionReachesRenderedSQL(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, seededCatalog(t))

	session, err := svc.StartSession(ctx, "看结算GMV的当日走势", "u1", false)
	require.NoError(t, err)

	svc.ResolveConflict(session, OptionSettleWeekly)
	require.NoError(t, svc.ApplyExpertDecision(ctx, session, ""))

	rendered, err := svc.GenerateSQL(ctx, session)
	require.NoError(t, err)
	assert.Contains(t, rendered, "GROUP BY 周")
}

func TestSelectSpec(t *testing.T) {
	ctx := context.Background()
	catalog := seededCatalog(t)
	svc := newTestService(t, catalog)

	session, err := svc.StartSession(ctx, "12月行业GMV走势", "u1", false)
	require.NoError(t, err)

	err = svc.SelectSpec(ctx, session, "spec_not_here")
	assert.ErrorIs(t, err, apperrors.ErrSpecNotInSession)
	assert.Nil(t, session.SelectedSpec)

	require.NoError(t, svc.SelectSpec(ctx, session, "spec_settle_gmv_v1"))
	require.NotNil(t, session.SelectedSpec)
	assert.Equal(t, "spec_settle_gmv_v1", session.SelectedSpec.SpecID)

	spec, err := catalog.Get(ctx, "spec_settle_gmv_v1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), spec.Meta.UsageCount)
}

func TestApplyExpertDecision(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, seededCatalog(t))

	session, err := svc.StartSession(ctx, "12月行业GMV走势", "u1", true)
	require.NoError(t, err)

	err = svc.ApplyExpertDecision(ctx, session, "spec_not_here")
	assert.ErrorIs(t, err, apperrors.ErrSpecNotInSession)

	require.NoError(t, svc.ApplyExpertDecision(ctx, session, "spec_pay_gmv_v1"))
	require.NotNil(t, session.SelectedSpec)
	assert.Equal(t, "spec_pay_gmv_v1", session.SelectedSpec.SpecID)
	assert.False(t, session.RouteExpert)
}

func TestApplyExpertDecisionEmptyIDConfirmsTop(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, seededCatalog(t))

	session, err := svc.StartSession(ctx, "12月行业GMV走势", "u1", true)
	require.NoError(t, err)

	require.NoError(t, svc.ApplyExpertDecision(ctx, session, ""))
	require.NotNil(t, session.SelectedSpec)
	assert.Equal(t, session.Candidates[0].Spec.SpecID, session.SelectedSpec.SpecID)
}
