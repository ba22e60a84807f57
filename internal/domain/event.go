package domain

import "time"

// EventKind es el tag cerrado de los eventos del monitor.
type EventKind int

const (
	EventMarketAdded EventKind = iota
	EventMarketRemoved
	EventPriceSpike
	EventOpportunityFound
	EventTradeExecuted
	EventMonitorError
	EventMonitorStopped
)

func (k EventKind) String() string {
	switch k {
	case EventMarketAdded:
		return "market_added"
	case EventMarketRemoved:
		return "market_removed"
	case EventPriceSpike:
		return "price_spike"
	case EventOpportunityFound:
		return "opportunity_found"
	case EventTradeExecuted:
		return "trade_executed"
	case EventMonitorError:
		return "monitor_error"
	case EventMonitorStopped:
		return "monitor_stopped"
	default:
		return "unknown"
	}
}

// Event es un mensaje tipado publicado por el monitor loop.
// Kind determina qué payload está poblado; el resto queda en zero value.
type Event struct {
	Kind EventKind
	At   time.Time

	MarketID string

	// EventPriceSpike
	Outcome       string
	PreviousPrice float64
	CurrentPrice  float64
	ChangePercent float64

	// EventOpportunityFound
	Opportunity *Opportunity

	// EventTradeExecuted
	Trade *Trade

	// EventMonitorError
	Err string
}
