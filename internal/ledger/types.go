package ledger

import "time"

// Side is the direction of an open position.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// direction returns the P&L sign multiplier for the side.
func (s Side) direction() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// TradeSide is the order side recorded for a trade.
type TradeSide string

const (
	TradeBuy  TradeSide = "BUY"
	TradeSell TradeSide = "SELL"
)

// TradeKind distinguishes opening fills from closing fills.
type TradeKind string

const (
	TradeOpen  TradeKind = "OPEN"
	TradeClose TradeKind = "CLOSE"
)

// Position is an open paper position marked to the latest quote.
//
// Size and EntryPrice are fixed at open; CurrentPrice, UnrealizedPnL and
// UnrealizedPnLPercent are recomputed on every quote for the symbol.
type Position struct {
	ID                   string
	Symbol               string
	Side                 Side
	Size                 float64
	EntryPrice           float64
	CurrentPrice         float64
	UnrealizedPnL        float64
	UnrealizedPnLPercent float64
	StopLoss             *float64
	TakeProfit           *float64
	OpenedAt             time.Time
}

// Trade is an immutable record of an open or close event.
// PnL is set only on close trades.
type Trade struct {
	ID        string
	Symbol    string
	Side      TradeSide
	Kind      TradeKind
	Price     float64
	Size      float64
	PnL       *float64
	Timestamp time.Time
}

// Account is the cash balance plus the derived mark-to-market equity.
type Account struct {
	Balance float64
	Equity  float64
}
