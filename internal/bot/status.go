package bot

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// PrintStartupInfo renders the session configuration once at startup.
func (t *PaperTrader) PrintStartupInfo() {
	w := table.NewWriter()
	w.SetOutputMirror(os.Stdout)
	w.SetTitle("PAPER TRADER")
	w.SetStyle(table.StyleRounded)

	w.AppendRows([]table.Row{
		{"Symbols", strings.Join(t.cfg.Symbols, ", ")},
		{"Initial Balance", fmt.Sprintf("$%.2f", t.cfg.InitialBalance)},
		{"Margin Rate", fmt.Sprintf("%.0f%% (%.0fx leverage)", t.cfg.MarginRate*100, 1/t.cfg.MarginRate)},
		{"Stream", t.cfg.Exchange.StreamURL},
		{"Reconnect Delay", t.cfg.Exchange.ReconnectDelay.String()},
		{"Environment", t.cfg.Environment},
	})

	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 16, Align: text.AlignLeft},
		{Number: 2, WidthMin: 30, Align: text.AlignLeft},
	})

	w.Render()
	fmt.Println()
}

// PrintStatus renders the account, the live quotes and the open positions.
func (t *PaperTrader) PrintStatus() {
	account := t.book.Account()
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	connected := "connected"
	if !t.stream.Status() {
		connected = "disconnected"
	}

	fmt.Printf("\n[%s] Account Status (%s)\n", timestamp, connected)
	fmt.Printf("Balance: $%.2f | Equity: $%.2f\n", account.Balance, account.Equity)

	quotes := t.stream.Quotes()
	if len(quotes) > 0 {
		symbols := make([]string, 0, len(quotes))
		for symbol := range quotes {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)

		w := table.NewWriter()
		w.SetOutputMirror(os.Stdout)
		w.SetStyle(table.StyleRounded)
		w.AppendHeader(table.Row{"Symbol", "Price", "24h %", "24h High", "24h Low"})
		for _, symbol := range symbols {
			q := quotes[symbol]
			w.AppendRow(table.Row{
				q.Symbol,
				fmt.Sprintf("%.2f", q.Price),
				fmt.Sprintf("%+.2f%%", q.ChangePercent24h),
				fmt.Sprintf("%.2f", q.High24h),
				fmt.Sprintf("%.2f", q.Low24h),
			})
		}
		w.Render()
	}

	positions := t.book.Positions()
	if len(positions) == 0 {
		fmt.Println("No open positions")
		return
	}

	w := table.NewWriter()
	w.SetOutputMirror(os.Stdout)
	w.SetTitle("OPEN POSITIONS")
	w.SetStyle(table.StyleRounded)
	w.AppendHeader(table.Row{"Symbol", "Side", "Size", "Entry", "Mark", "P&L", "P&L %"})
	for _, pos := range positions {
		w.AppendRow(table.Row{
			pos.Symbol,
			pos.Side,
			fmt.Sprintf("%g", pos.Size),
			fmt.Sprintf("%.2f", pos.EntryPrice),
			fmt.Sprintf("%.2f", pos.CurrentPrice),
			fmt.Sprintf("%+.2f", pos.UnrealizedPnL),
			fmt.Sprintf("%+.2f%%", pos.UnrealizedPnLPercent),
		})
	}
	w.Render()
}
