package exchange

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ducnguyen96/crypto-paper-trader/internal/monitoring"
	"github.com/ducnguyen96/crypto-paper-trader/pkg/types"
)

const (
	// DefaultStreamURL is the Binance combined ticker websocket endpoint.
	DefaultStreamURL = "wss://stream.binance.com:9443/ws"

	// DefaultReconnectDelay is the fixed delay before a dropped connection
	// is re-dialed.
	DefaultReconnectDelay = 3 * time.Second

	handshakeTimeout = 10 * time.Second
)

// QuoteListener receives one decoded ticker update in arrival order.
type QuoteListener func(symbol string, price, changePercent float64)

// TickerStream maintains a single websocket connection to the Binance 24h
// ticker stream for a fixed symbol set and fans decoded updates out to
// subscribed listeners.
//
// A dropped connection is re-dialed after a fixed delay with the last
// requested symbol set, indefinitely, until Disconnect is called. Malformed
// messages are dropped without affecting the connection.
type TickerStream struct {
	url            string
	reconnectDelay time.Duration

	mu             sync.Mutex
	conn           *websocket.Conn
	symbols        []string
	listeners      map[int]QuoteListener
	nextListenerID int
	quotes         map[string]types.Quote
	connected      bool
	closed         bool
	gen            int // connection generation; stale read loops bail out
	reconnectTimer *time.Timer
}

// NewTickerStream creates a disconnected stream client. Non-positive delays
// and empty URLs fall back to the package defaults.
func NewTickerStream(url string, reconnectDelay time.Duration) *TickerStream {
	if url == "" {
		url = DefaultStreamURL
	}
	if reconnectDelay <= 0 {
		reconnectDelay = DefaultReconnectDelay
	}
	return &TickerStream{
		url:            url,
		reconnectDelay: reconnectDelay,
		listeners:      make(map[int]QuoteListener),
		quotes:         make(map[string]types.Quote),
	}
}

// Connect opens the streaming connection for the given base symbols
// (e.g. "BTC"); the USDT-composite stream names are derived internally.
// Calling Connect while already connected with the same symbol set is a
// no-op. A failed dial is returned to the caller and retried in the
// background after the reconnect delay.
func (s *TickerStream) Connect(symbols []string) error {
	if len(symbols) == 0 {
		return fmt.Errorf("connect: symbol set must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	requested := normalizeSet(symbols)
	if s.connected && equalSets(s.symbols, requested) {
		return nil
	}

	// A caller-initiated connect supersedes any pending reconnect and
	// reopens a previously disconnected client.
	s.stopReconnectLocked()
	s.closed = false
	s.symbols = requested

	// Tear down any connection to the previous symbol set before dialing.
	// If the dial fails the stream must read as disconnected, so the
	// scheduled reconnect retries with the new set instead of no-oping
	// against a connection that no longer matches s.symbols.
	if s.conn != nil {
		s.gen++
		s.conn.Close()
		s.conn = nil
	}
	s.connected = false

	if err := s.dialLocked(); err != nil {
		s.scheduleReconnectLocked()
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// Subscribe registers a listener for decoded ticker updates and returns its
// unsubscribe handle. Each listener sees all messages in arrival order;
// delivery order across listeners is unspecified.
func (s *TickerStream) Subscribe(listener QuoteListener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Disconnect closes the connection and cancels any pending reconnect. After
// Disconnect no automatic reconnect occurs until the next Connect call.
// Idempotent.
func (s *TickerStream) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.connected = false
	s.gen++
	s.stopReconnectLocked()

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// Status reports whether the stream is currently connected. Safe to call at
// any time, including before the first Connect.
func (s *TickerStream) Status() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Quotes returns a copy of the latest quote per base symbol.
func (s *TickerStream) Quotes() map[string]types.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]types.Quote, len(s.quotes))
	for symbol, quote := range s.quotes {
		out[symbol] = quote
	}
	return out
}

// Quote returns the latest quote for a base symbol, if one has been seen.
func (s *TickerStream) Quote(symbol string) (types.Quote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quote, ok := s.quotes[symbol]
	return quote, ok
}

// dialLocked opens the websocket and starts its read loop. Callers hold s.mu.
func (s *TickerStream) dialLocked() error {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = handshakeTimeout

	conn, _, err := dialer.Dial(s.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}

	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = conn
	s.connected = true
	s.gen++

	go s.readLoop(conn, s.gen)
	return nil
}

// readLoop drains one connection until it fails or is superseded.
func (s *TickerStream) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if gen != s.gen || s.closed {
				// A newer connection took over, or the caller
				// disconnected on purpose.
				s.mu.Unlock()
				return
			}
			s.connected = false
			s.conn = nil
			s.scheduleReconnectLocked()
			s.mu.Unlock()
			return
		}
		s.handleMessage(message, gen)
	}
}

func (s *TickerStream) scheduleReconnectLocked() {
	if s.reconnectTimer != nil || s.closed {
		return
	}
	monitoring.RecordReconnect()
	s.reconnectTimer = time.AfterFunc(s.reconnectDelay, s.reconnect)
}

func (s *TickerStream) stopReconnectLocked() {
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
}

// reconnect re-dials with the last requested symbol set. Failures reschedule
// another attempt; there is no attempt cap.
func (s *TickerStream) reconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reconnectTimer = nil
	if s.closed || s.connected {
		return
	}
	if err := s.dialLocked(); err != nil {
		s.scheduleReconnectLocked()
	}
}

// tickerMessage is the subset of the Binance 24hr ticker payload the client
// consumes. All numeric fields arrive as decimal strings.
type tickerMessage struct {
	Symbol        string `json:"s"`
	LastPrice     string `json:"c"`
	ChangePercent string `json:"P"`
	High          string `json:"h"`
	Low           string `json:"l"`
	Volume        string `json:"v"`
}

// handleMessage decodes one inbound frame and fans it out. Anything that
// fails to decode or parse is dropped; subscription acks and other control
// frames have no "s" field and fall out the same way. Frames from a
// superseded or disconnected connection are dropped too, so nothing is
// delivered after Disconnect returns.
func (s *TickerStream) handleMessage(message []byte, gen int) {
	var msg tickerMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}
	if msg.Symbol == "" {
		return
	}

	price, err := strconv.ParseFloat(msg.LastPrice, 64)
	if err != nil {
		return
	}
	change, err := strconv.ParseFloat(msg.ChangePercent, 64)
	if err != nil {
		return
	}
	high, err := strconv.ParseFloat(msg.High, 64)
	if err != nil {
		return
	}
	low, err := strconv.ParseFloat(msg.Low, 64)
	if err != nil {
		return
	}
	volume, err := strconv.ParseFloat(msg.Volume, 64)
	if err != nil {
		return
	}

	symbol := BaseSymbol(msg.Symbol)
	quote := types.Quote{
		Symbol:           symbol,
		Price:            price,
		ChangePercent24h: change,
		High24h:          high,
		Low24h:           low,
		Volume24h:        volume,
	}

	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return
	}
	s.quotes[symbol] = quote
	listeners := make([]QuoteListener, 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.mu.Unlock()

	monitoring.RecordQuote(symbol)

	// Listeners run outside the lock so they can safely call back into the
	// stream's accessors.
	for _, listener := range listeners {
		listener(symbol, price, change)
	}
}

// streamURL builds the combined-stream endpoint, e.g.
// wss://stream.binance.com:9443/ws/btcusdt@ticker/ethusdt@ticker
func (s *TickerStream) streamURL() string {
	streams := make([]string, len(s.symbols))
	for i, symbol := range s.symbols {
		streams[i] = strings.ToLower(symbol) + "usdt@ticker"
	}
	return s.url + "/" + strings.Join(streams, "/")
}

// BaseSymbol normalizes a composite exchange symbol (BTCUSDT) to its base
// asset (BTC). Applied uniformly before quotes are stored or fanned out.
func BaseSymbol(symbol string) string {
	base := strings.TrimSuffix(strings.ToUpper(symbol), "USDT")
	if base == "" {
		return strings.ToUpper(symbol)
	}
	return base
}

func normalizeSet(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, symbol := range symbols {
		base := BaseSymbol(symbol)
		if _, ok := seen[base]; ok {
			continue
		}
		seen[base] = struct{}{}
		out = append(out, base)
	}
	sort.Strings(out)
	return out
}

func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
