package executor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/executor"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSubmitter cuenta intentos y falla las primeras failUntil submissions.
type stubSubmitter struct {
	mu        sync.Mutex
	attempts  int
	failUntil int // fallar mientras attempts <= failUntil; 0 = nunca falla
}

func (s *stubSubmitter) Submit(_ context.Context, _ domain.Trade) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.attempts <= s.failUntil {
		return "", errors.New("stub rejection")
	}
	return "stub-tx-1", nil
}

func (s *stubSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// fillSpy registra los fills que recibe.
type fillSpy struct {
	mu    sync.Mutex
	fills int
}

func (f *fillSpy) RecordFill(_, _ string, _, _ float64) {
	f.mu.Lock()
	f.fills++
	f.mu.Unlock()
}

func (f *fillSpy) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fills
}

func binaryMarket() domain.Market {
	return domain.Market{
		ID:       "m1",
		Question: "Will X happen?",
		Outcomes: []string{"Yes", "No"},
		Active:   true,
	}
}

func complementaryOpp() domain.Opportunity {
	now := time.Now().UTC()
	return domain.Opportunity{
		ID:               "opp-c",
		MarketID:         "m1",
		Strategy:         domain.StrategyComplementary,
		BuyPrice:         0.96,
		ExpectedProfit:   0.04,
		ProfitPercentage: 0.04 / 0.96,
		Confidence:       0.9,
		DetectedAt:       now,
		ExpiresAt:        now.Add(30 * time.Second),
	}
}

func mispricingOpp() domain.Opportunity {
	now := time.Now().UTC()
	return domain.Opportunity{
		ID:               "opp-m",
		MarketID:         "m1",
		Strategy:         domain.StrategyMispricing,
		Outcome:          "Yes",
		BuyPrice:         0.50,
		SellPrice:        0.55,
		ExpectedProfit:   0.05,
		ProfitPercentage: 0.10,
		DetectedAt:       now,
		ExpiresAt:        now.Add(10 * time.Second),
	}
}

func TestExecute_DryRun(t *testing.T) {
	spy := &fillSpy{}
	e := executor.New(executor.Config{TradingEnabled: false}, &stubSubmitter{}, spy)

	trades, err := e.Execute(context.Background(), complementaryOpp(), binaryMarket(), 20)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	trade := trades[0]
	assert.Equal(t, domain.TradeExecuted, trade.Status)
	assert.True(t, trade.DryRun)
	assert.Equal(t, "dry-run", trade.TxRef)
	require.NotNil(t, trade.Profit)
	assert.InDelta(t, 20*0.04/0.96, *trade.Profit, 1e-9)

	// El dry-run nunca toca el ledger
	assert.Zero(t, spy.count())
	assert.Zero(t, e.PendingCount())
}

func TestExecute_ComplementaryLegs(t *testing.T) {
	spy := &fillSpy{}
	sub := &stubSubmitter{}
	e := executor.New(executor.Config{TradingEnabled: true}, sub, spy)

	trades, err := e.Execute(context.Background(), complementaryOpp(), binaryMarket(), 20)
	require.NoError(t, err)
	require.Len(t, trades, 2) // una pata BUY por outcome

	for _, trade := range trades {
		assert.Equal(t, domain.SideBuy, trade.Side)
		assert.Equal(t, domain.TradeExecuted, trade.Status)
		assert.InDelta(t, 10, trade.Amount, 1e-9) // capital dividido entre patas
		assert.False(t, trade.DryRun)
	}
	assert.Equal(t, "Yes", trades[0].Outcome)
	assert.Equal(t, "No", trades[1].Outcome)

	assert.Equal(t, 2, spy.count())
	assert.Zero(t, e.PendingCount())
}

func TestExecute_MispricingLegs(t *testing.T) {
	e := executor.New(executor.Config{TradingEnabled: true}, &stubSubmitter{}, nil)

	trades, err := e.Execute(context.Background(), mispricingOpp(), binaryMarket(), 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	// Compra al ask, venta al bid, mismo outcome
	assert.Equal(t, domain.SideBuy, trades[0].Side)
	assert.InDelta(t, 0.50, trades[0].Price, 1e-9)
	assert.Equal(t, domain.SideSell, trades[1].Side)
	assert.InDelta(t, 0.55, trades[1].Price, 1e-9)
	assert.Equal(t, "Yes", trades[0].Outcome)
	assert.Equal(t, "Yes", trades[1].Outcome)
}

func TestExecute_TemporalLegs(t *testing.T) {
	now := time.Now().UTC()
	opp := domain.Opportunity{
		ID:               "opp-t",
		MarketID:         "m1",
		Strategy:         domain.StrategyTemporal,
		SellPrice:        1.05,
		ProfitPercentage: 0.05 / 1.05,
		DetectedAt:       now,
		ExpiresAt:        now.Add(60 * time.Second),
	}

	e := executor.New(executor.Config{TradingEnabled: true}, &stubSubmitter{}, nil)
	trades, err := e.Execute(context.Background(), opp, binaryMarket(), 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	for _, trade := range trades {
		assert.Equal(t, domain.SideSell, trade.Side)
		assert.InDelta(t, 5, trade.Amount, 1e-9)
	}
}

func TestExecute_RetryBudget(t *testing.T) {
	sub := &stubSubmitter{failUntil: 1000} // nunca tiene éxito
	e := executor.New(executor.Config{TradingEnabled: true, MaxRetries: 2}, sub, nil)

	trades, err := e.Execute(context.Background(), mispricingOpp(), binaryMarket(), 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	for _, trade := range trades {
		assert.Equal(t, domain.TradeFailed, trade.Status)
		assert.NotEmpty(t, trade.Error)
	}

	// maxRetries+1 intentos por pata, ni uno más
	assert.Equal(t, 2*(2+1), sub.count())
	assert.Zero(t, e.PendingCount())
	assert.Zero(t, e.TotalProfit())
}

func TestExecute_RetryThenSuccess(t *testing.T) {
	sub := &stubSubmitter{failUntil: 1} // el primer intento falla, el resto no
	e := executor.New(executor.Config{TradingEnabled: true, MaxRetries: 3}, sub, nil)

	opp := mispricingOpp()
	trades, err := e.Execute(context.Background(), opp, binaryMarket(), 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	for _, trade := range trades {
		assert.Equal(t, domain.TradeExecuted, trade.Status)
		assert.Empty(t, trade.Error) // el error del intento fallido se limpia
	}
	assert.InDelta(t, 2*10*0.10, e.TotalProfit(), 1e-9)
	assert.InDelta(t, 1.0, e.SuccessRate(), 1e-9)
}

func TestExecute_Expired(t *testing.T) {
	e := executor.New(executor.Config{TradingEnabled: true}, &stubSubmitter{}, nil)

	opp := mispricingOpp()
	opp.ExpiresAt = time.Now().UTC().Add(-time.Second)

	_, err := e.Execute(context.Background(), opp, binaryMarket(), 10)
	assert.Error(t, err)
}

func TestExecute_PendingCeiling(t *testing.T) {
	// Dos patas contra un techo de 1: rechazado antes de someter nada
	sub := &stubSubmitter{}
	e := executor.New(executor.Config{TradingEnabled: true, MaxPending: 1}, sub, nil)
	_, err := e.Execute(context.Background(), mispricingOpp(), binaryMarket(), 10)
	assert.Error(t, err)
	assert.Zero(t, sub.count())
}

// gateSubmitter bloquea cada Submit hasta que se abre release.
type gateSubmitter struct {
	started chan string
	release chan struct{}
}

func (g *gateSubmitter) Submit(_ context.Context, t domain.Trade) (string, error) {
	g.started <- t.ID
	<-g.release
	return "gate-tx", nil
}

func TestCancel_InFlightSubmission(t *testing.T) {
	sub := &gateSubmitter{started: make(chan string, 2), release: make(chan struct{})}
	spy := &fillSpy{}
	e := executor.New(executor.Config{TradingEnabled: true}, sub, spy)

	type result struct {
		trades []domain.Trade
		err    error
	}
	done := make(chan result, 1)
	go func() {
		trades, err := e.Execute(context.Background(), complementaryOpp(), binaryMarket(), 20)
		done <- result{trades, err}
	}()

	// La primera pata está dentro de Submit; se cancelan las dos
	inFlight := <-sub.started
	assert.True(t, e.Cancel(inFlight))
	for _, p := range e.PendingTrades() {
		assert.True(t, e.Cancel(p.ID))
	}

	close(sub.release)
	res := <-done
	require.NoError(t, res.err)
	require.Len(t, res.trades, 2)

	// El resultado del submit en vuelo no pisa el estado final
	for _, trade := range res.trades {
		assert.Equal(t, domain.TradeCancelled, trade.Status)
	}
	assert.Zero(t, e.PendingCount())
	assert.Zero(t, spy.count())
	assert.Zero(t, e.TotalProfit())
}

func TestCancel_UnknownTrade(t *testing.T) {
	e := executor.New(executor.Config{TradingEnabled: true}, &stubSubmitter{}, nil)
	assert.False(t, e.Cancel("does-not-exist"))
}

func TestTradesForMarket(t *testing.T) {
	e := executor.New(executor.Config{TradingEnabled: true}, &stubSubmitter{}, nil)

	_, err := e.Execute(context.Background(), mispricingOpp(), binaryMarket(), 10)
	require.NoError(t, err)

	assert.Len(t, e.TradesForMarket("m1"), 2)
	assert.Empty(t, e.TradesForMarket("other"))
}

func TestSuccessRate_NoTrades(t *testing.T) {
	e := executor.New(executor.Config{TradingEnabled: true}, &stubSubmitter{}, nil)
	assert.Zero(t, e.SuccessRate())
}
