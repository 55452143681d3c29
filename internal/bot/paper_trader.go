package bot

import (
	"context"
	"fmt"
	"log"

	"github.com/ducnguyen96/crypto-paper-trader/internal/config"
	"github.com/ducnguyen96/crypto-paper-trader/internal/exchange"
	"github.com/ducnguyen96/crypto-paper-trader/internal/ledger"
	"github.com/ducnguyen96/crypto-paper-trader/internal/logger"
	"github.com/ducnguyen96/crypto-paper-trader/internal/monitoring"
	"github.com/ducnguyen96/crypto-paper-trader/internal/notifications"
	"github.com/ducnguyen96/crypto-paper-trader/internal/risk"
)

// PaperTrader wires the ticker stream into the position ledger: every decoded
// quote marks the open positions, and the account/health/metrics views follow.
// The presentation layer only ever talks to the stream and the ledger through
// the seams exposed here.
type PaperTrader struct {
	cfg         *config.Config
	stream      *exchange.TickerStream
	rest        *exchange.RestClient
	book        *ledger.Ledger
	health      *monitoring.HealthChecker
	notifier    notifications.Notifier
	journal     *logger.Logger
	unsubscribe func()
}

// New assembles a paper trader from explicitly constructed components.
func New(
	cfg *config.Config,
	stream *exchange.TickerStream,
	rest *exchange.RestClient,
	book *ledger.Ledger,
	health *monitoring.HealthChecker,
) *PaperTrader {
	return &PaperTrader{
		cfg:    cfg,
		stream: stream,
		rest:   rest,
		book:   book,
		health: health,
	}
}

// SetNotifier attaches an alert channel. A nil notifier disables alerts.
func (t *PaperTrader) SetNotifier(n notifications.Notifier) { t.notifier = n }

// SetJournal attaches a session log. A nil journal disables journaling.
func (t *PaperTrader) SetJournal(j *logger.Logger) { t.journal = j }

// Ledger exposes the position ledger to the presentation layer.
func (t *PaperTrader) Ledger() *ledger.Ledger { return t.book }

// Stream exposes the quote stream to the presentation layer.
func (t *PaperTrader) Stream() *exchange.TickerStream { return t.stream }

// Start seeds prices over REST, subscribes the ledger to the stream and opens
// the streaming connection. A failed initial dial is not fatal: the stream
// keeps retrying in the background.
func (t *PaperTrader) Start(ctx context.Context) error {
	if len(t.cfg.Symbols) == 0 {
		return fmt.Errorf("start paper trader: no symbols configured")
	}

	t.seedQuotes(ctx)

	t.unsubscribe = t.stream.Subscribe(t.onQuote)

	if err := t.stream.Connect(t.cfg.Symbols); err != nil {
		log.Printf("Initial stream connect failed (will retry): %v", err)
		monitoring.RecordError("stream_connect")
	}
	t.health.SetConnected(t.stream.Status())

	t.journalf("streaming %d symbols, balance %.2f USDT", len(t.cfg.Symbols), t.book.Balance())
	t.alert("info", fmt.Sprintf("Paper trading started\nSymbols: %v\nBalance: %.2f USDT", t.cfg.Symbols, t.book.Balance()))

	return nil
}

// Shutdown detaches from the stream and closes the connection.
func (t *PaperTrader) Shutdown() {
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
	t.stream.Disconnect()
	t.health.SetConnected(false)

	account := t.book.Account()
	t.journalf("stopped, balance %.2f equity %.2f", account.Balance, account.Equity)
	t.alert("info", fmt.Sprintf("Paper trading stopped\nBalance: %.2f USDT\nEquity: %.2f USDT", account.Balance, account.Equity))
	log.Println("Paper trader stopped")
}

// seedQuotes primes the ledger and the health view with a REST snapshot so
// positions can be opened before the first websocket tick arrives.
func (t *PaperTrader) seedQuotes(ctx context.Context) {
	for _, symbol := range t.cfg.Symbols {
		quote, err := t.rest.Ticker24h(ctx, symbol)
		if err != nil {
			log.Printf("Could not seed %s quote: %v", symbol, err)
			monitoring.RecordError("seed_quote")
			continue
		}
		t.book.OnQuote(quote.Symbol, quote.Price)
		t.health.UpdateQuote(quote.Price)
		monitoring.UpdatePrice(quote.Symbol, quote.Price)
	}
}

// onQuote is the single stream listener: it marks the ledger synchronously,
// then refreshes the observability views.
func (t *PaperTrader) onQuote(symbol string, price, changePercent float64) {
	_ = changePercent // retained in the stream's quote store

	t.book.OnQuote(symbol, price)

	t.health.SetConnected(true)
	t.health.UpdateQuote(price)
	monitoring.UpdatePrice(symbol, price)

	account := t.book.Account()
	monitoring.UpdateAccount(account.Balance, account.Equity)
}

// OpenPosition opens a paper position and records the trade metric.
func (t *PaperTrader) OpenPosition(symbol string, side ledger.Side, size float64, stopLoss, takeProfit *float64) (ledger.Position, error) {
	pos, err := t.book.OpenPosition(symbol, side, size, stopLoss, takeProfit)
	if err != nil {
		monitoring.RecordError("open_position")
		return ledger.Position{}, err
	}
	monitoring.RecordTrade(pos.Symbol, string(openSide(side)))
	if t.journal != nil {
		t.journal.Trade("OPEN %s %s %.6f @ %.2f", side, pos.Symbol, pos.Size, pos.EntryPrice)
	}
	t.alert("info", fmt.Sprintf("Opened %s %s\nSize: %.6f @ %.2f", side, pos.Symbol, pos.Size, pos.EntryPrice))
	return pos, nil
}

// OpenPositionRisked sizes the position so a move from the latest quoted
// price to stopLoss loses riskPercent of the current balance, then opens it
// with that stop attached.
func (t *PaperTrader) OpenPositionRisked(symbol string, side ledger.Side, riskPercent, stopLoss float64) (ledger.Position, error) {
	entry, ok := t.book.LastPrice(symbol)
	if !ok {
		monitoring.RecordError("open_position")
		return ledger.Position{}, fmt.Errorf("open position %s: %w", symbol, ledger.ErrPriceUnavailable)
	}

	size, err := risk.PositionSize(t.book.Balance(), riskPercent, entry, stopLoss)
	if err != nil {
		monitoring.RecordError("open_position")
		return ledger.Position{}, err
	}

	return t.OpenPosition(symbol, side, size, &stopLoss, nil)
}

// ClosePosition closes a paper position and records the trade metric.
func (t *PaperTrader) ClosePosition(id string) (ledger.Trade, error) {
	trade, err := t.book.ClosePosition(id)
	if err != nil {
		monitoring.RecordError("close_position")
		return ledger.Trade{}, err
	}
	monitoring.RecordTrade(trade.Symbol, string(trade.Side))
	if trade.PnL != nil {
		if t.journal != nil {
			t.journal.Trade("CLOSE %s %.6f @ %.2f pnl %.2f", trade.Symbol, trade.Size, trade.Price, *trade.PnL)
		}
		level := "success"
		if *trade.PnL < 0 {
			level = "warning"
		}
		t.alert(level, fmt.Sprintf("Closed %s\nSize: %.6f @ %.2f\nP&L: %.2f USDT", trade.Symbol, trade.Size, trade.Price, *trade.PnL))
	}
	return trade, nil
}

// journalf writes to the session log when one is attached.
func (t *PaperTrader) journalf(format string, args ...interface{}) {
	if t.journal != nil {
		t.journal.Info(format, args...)
	}
}

// alert sends a notification in the background when a notifier is attached.
func (t *PaperTrader) alert(level, message string) {
	if t.notifier == nil {
		return
	}
	go func() {
		if err := t.notifier.SendAlert(level, message); err != nil {
			log.Printf("Notification failed: %v", err)
			monitoring.RecordError("notification")
		}
	}()
}

func openSide(side ledger.Side) ledger.TradeSide {
	if side == ledger.SideLong {
		return ledger.TradeBuy
	}
	return ledger.TradeSell
}
