package storage

// sqlite.go — histórico ligero de oportunidades y trades.
//
// Estrategia:
//   - `opportunities`: UNA fila por (market, strategy) via UPSERT, con
//     first_seen/last_seen y el peak de profit. El mismo arbitraje visto en
//     ciclos consecutivos no genera filas nuevas.
//   - `trades`: append-only, solo trades finalizados.
//   - Prune automático al arrancar: oportunidades no vistas en 14d,
//     trades > 30d.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por (market, strategy), sin duplicados
CREATE TABLE IF NOT EXISTS opportunities (
    market_id      TEXT NOT NULL,
    strategy       TEXT NOT NULL,
    buy_side       TEXT,
    sell_side      TEXT,
    buy_price      REAL NOT NULL DEFAULT 0,
    sell_price     REAL NOT NULL DEFAULT 0,
    profit         REAL NOT NULL DEFAULT 0,
    profit_pct     REAL NOT NULL DEFAULT 0,
    confidence     REAL NOT NULL DEFAULT 0,
    risk_score     REAL NOT NULL DEFAULT 0,
    first_seen     DATETIME NOT NULL,
    last_seen      DATETIME NOT NULL,
    peak_profit_pct REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (market_id, strategy)
);

-- Trades finalizados, append-only
CREATE TABLE IF NOT EXISTS trades (
    id          TEXT PRIMARY KEY,
    market_id   TEXT NOT NULL,
    outcome     TEXT,
    side        TEXT NOT NULL,
    amount      REAL NOT NULL DEFAULT 0,
    price       REAL NOT NULL DEFAULT 0,
    status      TEXT NOT NULL,
    dry_run     INTEGER NOT NULL DEFAULT 0,
    profit      REAL,
    error       TEXT,
    tx_ref      TEXT,
    created_at  DATETIME NOT NULL,
    executed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_opp_last    ON opportunities(last_seen DESC);
CREATE INDEX IF NOT EXISTS idx_opp_profit  ON opportunities(profit_pct DESC);
CREATE INDEX IF NOT EXISTS idx_trades_mkt  ON trades(market_id, created_at DESC);
`

const (
	retentionOpps   = 14 * 24 * time.Hour
	retentionTrades = 30 * 24 * time.Hour
)

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia datos antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveOpportunities hace upsert de las oportunidades de un ciclo.
func (s *SQLiteStorage) SaveOpportunities(ctx context.Context, opportunities []domain.Opportunity) error {
	if len(opportunities) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveOpportunities: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO opportunities
			(market_id, strategy, buy_side, sell_side, buy_price, sell_price,
			 profit, profit_pct, confidence, risk_score,
			 first_seen, last_seen, peak_profit_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(market_id, strategy) DO UPDATE SET
			buy_side        = excluded.buy_side,
			sell_side       = excluded.sell_side,
			buy_price       = excluded.buy_price,
			sell_price      = excluded.sell_price,
			profit          = excluded.profit,
			profit_pct      = excluded.profit_pct,
			confidence      = excluded.confidence,
			risk_score      = excluded.risk_score,
			last_seen       = excluded.last_seen,
			peak_profit_pct = MAX(peak_profit_pct, excluded.profit_pct)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveOpportunities: prepare: %w", err)
	}
	defer stmt.Close()

	for _, opp := range opportunities {
		if _, err := stmt.ExecContext(ctx,
			opp.MarketID,
			opp.Strategy.String(),
			opp.BuySide,
			opp.SellSide,
			opp.BuyPrice,
			opp.SellPrice,
			opp.ExpectedProfit,
			opp.ProfitPercentage,
			opp.Confidence,
			opp.RiskScore,
			opp.DetectedAt.UTC(), // first_seen: ignorado en ON CONFLICT
			opp.DetectedAt.UTC(),
			opp.ProfitPercentage,
		); err != nil {
			return fmt.Errorf("storage.SaveOpportunities: upsert %s/%s: %w",
				opp.MarketID, opp.Strategy, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveOpportunities: commit: %w", err)
	}
	return nil
}

// SaveTrade añade un trade finalizado al histórico.
func (s *SQLiteStorage) SaveTrade(ctx context.Context, t domain.Trade) error {
	dryRun := 0
	if t.DryRun {
		dryRun = 1
	}
	var executedAt *time.Time
	if t.ExecutedAt != nil {
		ts := t.ExecutedAt.UTC()
		executedAt = &ts
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades
			(id, market_id, outcome, side, amount, price, status, dry_run,
			 profit, error, tx_ref, created_at, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status      = excluded.status,
			profit      = excluded.profit,
			error       = excluded.error,
			tx_ref      = excluded.tx_ref,
			executed_at = excluded.executed_at
	`,
		t.ID, t.MarketID, t.Outcome, string(t.Side), t.Amount, t.Price,
		string(t.Status), dryRun, t.Profit, t.Error, t.TxRef,
		t.CreatedAt.UTC(), executedAt,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveTrade %s: %w", t.ID, err)
	}
	return nil
}

// GetOpportunityHistory devuelve oportunidades cuyo last_seen está en el rango
// dado, ordenadas por profit_pct desc — las mejores primero.
func (s *SQLiteStorage) GetOpportunityHistory(ctx context.Context, from, to time.Time) ([]domain.Opportunity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT market_id, strategy, buy_side, sell_side, buy_price, sell_price,
		       profit, profit_pct, confidence, risk_score, last_seen
		FROM opportunities
		WHERE last_seen BETWEEN ? AND ?
		ORDER BY profit_pct DESC
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.GetOpportunityHistory: query: %w", err)
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		var opp domain.Opportunity
		var stratStr string
		var lastSeen time.Time

		if err := rows.Scan(
			&opp.MarketID,
			&stratStr,
			&opp.BuySide,
			&opp.SellSide,
			&opp.BuyPrice,
			&opp.SellPrice,
			&opp.ExpectedProfit,
			&opp.ProfitPercentage,
			&opp.Confidence,
			&opp.RiskScore,
			&lastSeen,
		); err != nil {
			return nil, fmt.Errorf("storage.GetOpportunityHistory: scan row: %w", err)
		}

		opp.Strategy = parseStrategy(stratStr)
		opp.DetectedAt = lastSeen
		opps = append(opps, opp)
	}
	return opps, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoffOpps := time.Now().UTC().Add(-retentionOpps)
	cutoffTrades := time.Now().UTC().Add(-retentionTrades)
	s.db.ExecContext(ctx, `DELETE FROM opportunities WHERE last_seen < ?`, cutoffOpps)
	s.db.ExecContext(ctx, `DELETE FROM trades WHERE created_at < ?`, cutoffTrades)
}

func parseStrategy(s string) domain.Strategy {
	switch s {
	case "complementary":
		return domain.StrategyComplementary
	case "mispricing":
		return domain.StrategyMispricing
	case "temporal":
		return domain.StrategyTemporal
	default:
		return domain.StrategyCrossMarket
	}
}
