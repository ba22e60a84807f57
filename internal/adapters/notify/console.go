package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime las oportunidades en el modo configurado.
func (c *Console) Notify(_ context.Context, opportunities []domain.Opportunity) error {
	if len(opportunities) == 0 {
		fmt.Fprintf(c.out, "[%s] no opportunities found\n", time.Now().Format("15:04:05"))
		return nil
	}

	if c.table {
		c.printFull(opportunities)
	} else {
		c.printCompact(opportunities)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(opps []domain.Opportunity) {
	now := time.Now().Format("15:04:05")
	comp, mis, temp := countByStrategy(opps)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d opps → C:%d M:%d T:%d", now, len(opps), comp, mis, temp)

	shown := 0
	for _, opp := range opps {
		if shown >= 4 {
			break
		}
		fmt.Fprintf(&sb, " | %s %s +%.2f%% conf %.2f",
			strategyTag(opp.Strategy), compactName(opp.MarketID, 14),
			opp.ProfitPercentage*100, opp.Confidence)
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla completa con métricas por oportunidad.
func (c *Console) printFull(opps []domain.Opportunity) {
	now := time.Now().Format("15:04:05")
	comp, mis, temp := countByStrategy(opps)

	fmt.Fprintf(c.out, "\n[%s] %d opportunities — complementary:%d mispricing:%d temporal:%d\n",
		now, len(opps), comp, mis, temp)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Strategy", "Market", "Buy", "Sell", "Profit", "Profit%", "Conf", "Risk", "Capital", "TTL")

	for i, opp := range opps {
		ttl := time.Until(opp.ExpiresAt).Round(time.Second)
		table.Append(
			fmt.Sprintf("%d", i+1),
			opp.Strategy.String(),
			domain.TruncateQuestion(opp.Question, opp.MarketID, 22),
			fmt.Sprintf("%.4f", opp.BuyPrice),
			fmt.Sprintf("%.4f", opp.SellPrice),
			fmt.Sprintf("$%.4f", opp.ExpectedProfit),
			fmt.Sprintf("%.2f%%", opp.ProfitPercentage*100),
			fmt.Sprintf("%.2f", opp.Confidence),
			fmt.Sprintf("%.2f", opp.RiskScore),
			fmt.Sprintf("$%.2f", opp.RequiredCapital),
			ttl.String(),
		)
	}
	table.Render()

	fmt.Fprintln(c.out, "  Profit% = profit/capital | Conf = confianza [0,1] | Risk = riesgo [0,1]")
}

// PrintTrades imprime un resumen tabular de trades, usado con -once.
func (c *Console) PrintTrades(trades []domain.Trade) {
	if len(trades) == 0 {
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Market", "Side", "Outcome", "Amount", "Price", "Status", "Profit")

	for _, t := range trades {
		profit := "-"
		if t.Profit != nil {
			profit = fmt.Sprintf("$%.4f", *t.Profit)
		}
		id := t.ID
		if len(id) > 8 {
			id = id[:8]
		}
		table.Append(
			id,
			truncate(t.MarketID, 22),
			string(t.Side),
			t.Outcome,
			fmt.Sprintf("$%.2f", t.Amount),
			fmt.Sprintf("%.4f", t.Price),
			string(t.Status),
			profit,
		)
	}
	table.Render()
}

// --- helpers ---

func countByStrategy(opps []domain.Opportunity) (comp, mis, temp int) {
	for _, o := range opps {
		switch o.Strategy {
		case domain.StrategyComplementary:
			comp++
		case domain.StrategyMispricing:
			mis++
		case domain.StrategyTemporal:
			temp++
		}
	}
	return
}

func strategyTag(s domain.Strategy) string {
	switch s {
	case domain.StrategyComplementary:
		return "[C]"
	case domain.StrategyMispricing:
		return "[M]"
	case domain.StrategyTemporal:
		return "[T]"
	default:
		return "[X]"
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func compactName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
