package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultInitialBalance is the paper cash balance a fresh account starts with.
	DefaultInitialBalance = 100000.0

	// DefaultMarginRate reserves 10% of notional per position (10x leverage).
	DefaultMarginRate = 0.10
)

// Ledger tracks open paper positions, the trade log and the running account.
//
// Quote updates arrive from the stream goroutine while open/close requests
// come from the caller, so every operation (reads included) is serialized
// behind a single mutex. A quote recompute is one atomic step: no open or
// close can observe a partially applied update.
type Ledger struct {
	mu         sync.Mutex
	balance    float64
	equity     float64
	marginRate float64
	positions  []*Position
	trades     []Trade // most recent first
	prices     map[string]float64

	now func() time.Time
}

// New creates a ledger with the given starting cash balance and margin rate.
// Non-positive arguments fall back to the package defaults.
func New(initialBalance, marginRate float64) *Ledger {
	if initialBalance <= 0 {
		initialBalance = DefaultInitialBalance
	}
	if marginRate <= 0 {
		marginRate = DefaultMarginRate
	}
	return &Ledger{
		balance:    initialBalance,
		equity:     initialBalance,
		marginRate: marginRate,
		prices:     make(map[string]float64),
		now:        time.Now,
	}
}

// OpenPosition opens a paper position at the latest quoted price for symbol.
//
// It fails with ErrPriceUnavailable before the first quote for the symbol and
// with ErrInsufficientBalance when the required margin (price*size*marginRate)
// exceeds the cash balance. Failures leave the ledger untouched.
func (l *Ledger) OpenPosition(symbol string, side Side, size float64, stopLoss, takeProfit *float64) (Position, error) {
	if symbol == "" {
		return Position{}, fmt.Errorf("open position: symbol must not be empty")
	}
	if side != SideLong && side != SideShort {
		return Position{}, fmt.Errorf("open position: invalid side %q", side)
	}
	if size <= 0 {
		return Position{}, fmt.Errorf("open position: size must be positive, got %g", size)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	price, ok := l.prices[symbol]
	if !ok {
		return Position{}, fmt.Errorf("open position %s: %w", symbol, ErrPriceUnavailable)
	}

	margin := price * size * l.marginRate
	if margin > l.balance {
		return Position{}, fmt.Errorf("open position %s: margin %.2f exceeds balance %.2f: %w",
			symbol, margin, l.balance, ErrInsufficientBalance)
	}

	pos := &Position{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Side:       side,
		Size:       size,
		EntryPrice: price,
		// Until the next quote arrives the position is marked at its entry.
		CurrentPrice: price,
		StopLoss:     copyFloat(stopLoss),
		TakeProfit:   copyFloat(takeProfit),
		OpenedAt:     l.now(),
	}

	l.balance -= margin
	l.positions = append(l.positions, pos)

	l.appendTradeLocked(Trade{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Side:      openTradeSide(side),
		Kind:      TradeOpen,
		Price:     price,
		Size:      size,
		Timestamp: pos.OpenedAt,
	})

	l.recomputeEquityLocked()
	return snapshotPosition(pos), nil
}

// ClosePosition closes the open position with the given id at its latest
// marked price, returning the margin plus the realized P&L to the balance.
func (l *Ledger) ClosePosition(id string) (Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closePositionLocked(id)
}

// CloseAll closes every open position, most recently opened last.
// It returns the close trades in the order the positions were closed.
func (l *Ledger) CloseAll() []Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(l.positions))
	for _, pos := range l.positions {
		ids = append(ids, pos.ID)
	}

	closed := make([]Trade, 0, len(ids))
	for _, id := range ids {
		trade, err := l.closePositionLocked(id)
		if err != nil {
			continue
		}
		closed = append(closed, trade)
	}
	return closed
}

func (l *Ledger) closePositionLocked(id string) (Trade, error) {
	idx := -1
	for i, pos := range l.positions {
		if pos.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Trade{}, fmt.Errorf("close position %s: %w", id, ErrPositionNotFound)
	}

	pos := l.positions[idx]
	margin := pos.EntryPrice * pos.Size * l.marginRate
	realized := pos.UnrealizedPnL

	l.balance += margin + realized
	l.positions = append(l.positions[:idx], l.positions[idx+1:]...)

	pnl := realized
	trade := Trade{
		ID:        uuid.NewString(),
		Symbol:    pos.Symbol,
		Side:      closeTradeSide(pos.Side),
		Kind:      TradeClose,
		Price:     pos.CurrentPrice,
		Size:      pos.Size,
		PnL:       &pnl,
		Timestamp: l.now(),
	}
	l.appendTradeLocked(trade)

	l.recomputeEquityLocked()
	return trade, nil
}

// OnQuote marks every open position on symbol to price and recomputes equity.
// The whole update is one step under the ledger mutex, so no reader observes
// equity stale relative to the new quote. Empty symbols and non-positive
// prices are ignored; the decode layer upstream drops malformed messages.
func (l *Ledger) OnQuote(symbol string, price float64) {
	if symbol == "" || price <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.prices[symbol] = price

	for _, pos := range l.positions {
		if pos.Symbol != symbol {
			continue
		}
		diff := price - pos.EntryPrice
		dir := pos.Side.direction()
		pos.CurrentPrice = price
		pos.UnrealizedPnL = diff * pos.Size * dir
		pos.UnrealizedPnLPercent = diff / pos.EntryPrice * 100 * dir
	}

	l.recomputeEquityLocked()
}

// Positions returns a snapshot of the open positions in opening order.
func (l *Ledger) Positions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, snapshotPosition(pos))
	}
	return out
}

// Trades returns a snapshot of the trade log, most recent first.
func (l *Ledger) Trades() []Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Trade, len(l.trades))
	for i, t := range l.trades {
		out[i] = t
		out[i].PnL = copyFloat(t.PnL)
	}
	return out
}

// Balance returns the cash not committed as margin.
func (l *Ledger) Balance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Equity returns balance plus the unrealized P&L of all open positions.
func (l *Ledger) Equity() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.equity
}

// Account returns the balance and equity as one consistent snapshot.
func (l *Ledger) Account() Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Account{Balance: l.balance, Equity: l.equity}
}

// LastPrice returns the latest accepted price for symbol, if any.
func (l *Ledger) LastPrice(symbol string) (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	price, ok := l.prices[symbol]
	return price, ok
}

func (l *Ledger) appendTradeLocked(t Trade) {
	l.trades = append([]Trade{t}, l.trades...)
}

func (l *Ledger) recomputeEquityLocked() {
	equity := l.balance
	for _, pos := range l.positions {
		equity += pos.UnrealizedPnL
	}
	l.equity = equity
}

func openTradeSide(side Side) TradeSide {
	if side == SideLong {
		return TradeBuy
	}
	return TradeSell
}

func closeTradeSide(side Side) TradeSide {
	if side == SideLong {
		return TradeSell
	}
	return TradeBuy
}

func snapshotPosition(pos *Position) Position {
	out := *pos
	out.StopLoss = copyFloat(pos.StopLoss)
	out.TakeProfit = copyFloat(pos.TakeProfit)
	return out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
