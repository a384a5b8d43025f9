package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

func TestLoadScenario_EveryScenarioIsConsistent(t *testing.T) {
	for _, sc := range Scenarios {
		t.Run(sc.ID, func(t *testing.T) {
			env := newAPIEnv(t)
			ctx := context.Background()

			require.NoError(t, LoadScenario(ctx, env.svc, env.store, adminActor, sc.ID))

			accounts, err := env.svc.ListAccounts(ctx)
			require.NoError(t, err)
			assert.NotEmpty(t, accounts)

			drifts, err := env.svc.ReconcileAll(ctx, adminActor, false)
			require.NoError(t, err)
			for _, d := range drifts {
				assert.True(t, d.Consistent(), "account %s drifted by %s", d.AccountID, d.Drift)
			}

			// loading twice starts from a clean slate
			require.NoError(t, LoadScenario(ctx, env.svc, env.store, adminActor, sc.ID))
			again, err := env.svc.ListAccounts(ctx)
			require.NoError(t, err)
			assert.Len(t, again, len(accounts))
		})
	}
}

func TestLoadScenario_Refusals(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()

	err := LoadScenario(ctx, env.svc, env.store, adminActor, "nope")
	assert.ErrorIs(t, err, ledger.ErrValidation)

	err = LoadScenario(ctx, env.svc, env.store, ledger.Actor{ID: "user-1"}, "small-business")
	assert.ErrorIs(t, err, ledger.ErrInsufficientPermission)
}

func TestScenarioRoutes(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, "user-1", http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]ScenarioDTO](t, rec), len(Scenarios))

	rec = env.do(t, "user-1", http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "credit-cards"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, "admin-1", http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "credit-cards"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, "admin-1", http.MethodGet, "/api/credit-cards", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cards := decodeAs[[]CreditCardDTO](t, rec)
	require.Len(t, cards, 1)
	// 12999 + 2450.75 + 640 - 5000
	assert.True(t, cards[0].UsedAmount.Equal(dec("11089.75")), cards[0].UsedAmount.String())
}

func TestScenarioRoutes_AbsentWithoutResetter(t *testing.T) {
	env := newAPIEnv(t)
	h := NewHandler(env.svc, nil)
	router := NewRouter(h, RouterOptions{Auth: NewAuthenticator(testSecret)})
	env.router = router

	rec := env.do(t, "admin-1", http.MethodGet, "/api/scenarios", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReconciliationScheduler(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()
	require.NoError(t, LoadScenario(ctx, env.svc, env.store, adminActor, "small-business"))

	s := NewReconciliationScheduler(env.svc, nil, "", false)
	require.NoError(t, s.Start(), "an empty schedule disables the scheduler")
	assert.True(t, s.NextRun().IsZero())

	drifts, err := s.RunNow(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, drifts)

	s = NewReconciliationScheduler(env.svc, nil, "not a schedule", false)
	assert.Error(t, s.Start())

	s = NewReconciliationScheduler(env.svc, nil, "0 3 * * *", true)
	require.NoError(t, s.Start())
	assert.False(t, s.NextRun().IsZero())
	<-s.Stop().Done()
}
