package policy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redactyl/scangate/internal/scanner"
	"github.com/redactyl/scangate/internal/scanner/scannertest"
	"github.com/redactyl/scangate/internal/session"
	"github.com/redactyl/scangate/internal/types"
)

func newSelector(t *testing.T) (*Selector, *scannertest.Fake, *session.Session) {
	t.Helper()
	fake := scannertest.New()
	sess := session.New()
	return NewSelector(fake, nil, sess, slog.New(slog.NewTextHandler(io.Discard, nil))), fake, sess
}

func TestSelectCategory_EnablesRules(t *testing.T) {
	sel, fake, sess := newSelector(t)
	ctx := context.Background()

	require.NoError(t, sel.SelectCategory(ctx, "Cross-Site-Scripting"))
	ids, ok := sess.Selected()
	require.True(t, ok)
	assert.Equal(t, []int{40012, 40014, 40016, 40017}, ids)
	assert.Equal(t, "cross-site-scripting", sess.Category())
	assert.Equal(t, []string{"SetRulesEnabled [40012 40014 40016 40017] true"}, fake.CallsTo("SetRulesEnabled"))
}

func TestSelectCategory_Idempotent(t *testing.T) {
	sel, _, sess := newSelector(t)
	ctx := context.Background()
	require.NoError(t, sel.SelectCategory(ctx, "sql-injection"))
	first, _ := sess.Selected()
	require.NoError(t, sel.SelectCategory(ctx, "SQL-INJECTION"))
	second, _ := sess.Selected()
	assert.Equal(t, first, second)
}

func TestSelectCategory_Unknown(t *testing.T) {
	sel, fake, sess := newSelector(t)
	err := sel.SelectCategory(context.Background(), "buffer-overflow")

	var upe *UnknownPolicyError
	require.True(t, errors.As(err, &upe))
	assert.Equal(t, "buffer-overflow", upe.Name)
	assert.Contains(t, err.Error(), "buffer-overflow")
	_, ok := sess.Selected()
	assert.False(t, ok)
	assert.Empty(t, fake.Calls)
}

func TestSelectCategory_EnableFailureLeavesNothingSelected(t *testing.T) {
	sel, fake, sess := newSelector(t)
	ctx := context.Background()
	fake.Errors["SetRulesEnabled"] = errors.New("connection refused")

	err := sel.SelectCategory(ctx, "sql-injection")
	var ie *scanner.InfrastructureError
	require.True(t, errors.As(err, &ie))
	_, ok := sess.Selected()
	assert.False(t, ok)

	var pne *PolicyNotSelectedError
	assert.True(t, errors.As(sel.SetAttackStrength(ctx, "high"), &pne))
}

func TestSetLevels_RequireSelection(t *testing.T) {
	sel, fake, _ := newSelector(t)
	ctx := context.Background()

	err := sel.SetAttackStrength(ctx, "high")
	var pns *PolicyNotSelectedError
	require.True(t, errors.As(err, &pns))
	assert.Equal(t, "attack strength", pns.Op)

	err = sel.SetAlertThreshold(ctx, "low")
	require.True(t, errors.As(err, &pns))
	assert.Equal(t, "alert threshold", pns.Op)
	assert.Empty(t, fake.Calls, "precondition failure must not reach the scanner")
}

func TestSetAttackStrength_UppercasesPerRule(t *testing.T) {
	sel, fake, _ := newSelector(t)
	ctx := context.Background()
	require.NoError(t, sel.SelectCategory(ctx, "cross-site-scripting"))
	require.NoError(t, sel.SetAttackStrength(ctx, "insane"))
	require.NoError(t, sel.SetAlertThreshold(ctx, "Low"))

	for _, id := range []int{40012, 40014, 40016, 40017} {
		assert.Equal(t, types.LevelInsane, fake.Strength[id])
		assert.Equal(t, types.LevelLow, fake.Threshold[id])
	}
}

func TestSetAttackStrength_InvalidLevel(t *testing.T) {
	sel, fake, _ := newSelector(t)
	ctx := context.Background()
	require.NoError(t, sel.SelectCategory(ctx, "sql-injection"))
	err := sel.SetAttackStrength(ctx, "ludicrous")
	assert.True(t, errors.Is(err, types.ErrInvalidLevel))
	assert.Empty(t, fake.CallsTo("SetRuleStrength"))
}

func TestSetAlertThreshold_PartialFailureAttemptsAll(t *testing.T) {
	sel, fake, _ := newSelector(t)
	ctx := context.Background()
	fake.RuleErrors[40014] = errors.New("no such scanner")
	require.NoError(t, sel.SelectCategory(ctx, "cross-site-scripting"))

	err := sel.SetAlertThreshold(ctx, "medium")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule 40014")
	assert.Len(t, fake.CallsTo("SetRuleAlertThreshold"), 4, "every rule is attempted")
	assert.Equal(t, types.LevelMedium, fake.Threshold[40017])

	var ie *scanner.InfrastructureError
	assert.True(t, errors.As(err, &ie))
}

func TestDisableAll(t *testing.T) {
	sel, fake, _ := newSelector(t)
	require.NoError(t, sel.DisableAll(context.Background()))
	assert.True(t, fake.AllDisabled)

	fake.Errors["DisableAllRules"] = io.ErrUnexpectedEOF
	err := sel.DisableAll(context.Background())
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}
