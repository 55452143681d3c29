package exchange

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducnguyen96/crypto-paper-trader/pkg/types"
)

var upgrader = websocket.Upgrader{}

type update struct {
	symbol string
	price  float64
	change float64
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func tickerJSON(symbol string, price, change float64) string {
	return fmt.Sprintf(`{"e":"24hrTicker","s":%q,"c":"%.2f","P":"%.2f","h":"%.2f","l":"%.2f","v":"1234.50"}`,
		symbol, price, change, price*1.05, price*0.95)
}

// holdOpen blocks until the peer closes, so the test connection stays alive.
func holdOpen(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func waitForUpdate(t *testing.T, updates <-chan update) update {
	t.Helper()
	select {
	case u := <-updates:
		return u
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a ticker update")
		return update{}
	}
}

// TestTickerStream_DecodesAndNormalizes checks that a Binance ticker frame is
// parsed from its decimal strings, normalized to the base asset and both
// fanned out and stored.
func TestTickerStream_DecodesAndNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(tickerJSON("BTCUSDT", 50000, 2.5)))
		holdOpen(conn)
	}))
	defer srv.Close()

	stream := NewTickerStream(wsURL(srv), 50*time.Millisecond)
	defer stream.Disconnect()

	assert.False(t, stream.Status(), "status must be false before connect")

	updates := make(chan update, 16)
	stream.Subscribe(func(symbol string, price, change float64) {
		updates <- update{symbol, price, change}
	})

	require.NoError(t, stream.Connect([]string{"BTC"}))
	assert.True(t, stream.Status())

	got := waitForUpdate(t, updates)
	assert.Equal(t, "BTC", got.symbol)
	assert.Equal(t, 50000.0, got.price)
	assert.Equal(t, 2.5, got.change)

	quote, ok := stream.Quote("BTC")
	require.True(t, ok)
	assert.Equal(t, types.Quote{
		Symbol:           "BTC",
		Price:            50000,
		ChangePercent24h: 2.5,
		High24h:          52500,
		Low24h:           47500,
		Volume24h:        1234.5,
	}, quote)

	all := stream.Quotes()
	assert.Len(t, all, 1)
}

// TestTickerStream_DropsMalformed drops undecodable frames and control acks
// without killing the connection.
func TestTickerStream_DropsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		frames := []string{
			"not json at all",
			`{"s":"BTCUSDT","c":"not-a-number","P":"1","h":"1","l":"1","v":"1"}`,
			`{"result":null,"id":1}`,
			tickerJSON("ETHUSDT", 3000, -1.25),
		}
		for _, frame := range frames {
			conn.WriteMessage(websocket.TextMessage, []byte(frame))
		}
		holdOpen(conn)
	}))
	defer srv.Close()

	stream := NewTickerStream(wsURL(srv), 50*time.Millisecond)
	defer stream.Disconnect()

	updates := make(chan update, 16)
	stream.Subscribe(func(symbol string, price, change float64) {
		updates <- update{symbol, price, change}
	})

	require.NoError(t, stream.Connect([]string{"ETH"}))

	got := waitForUpdate(t, updates)
	assert.Equal(t, "ETH", got.symbol)
	assert.Equal(t, 3000.0, got.price)

	// Nothing from the malformed frames made it into the quote store.
	_, ok := stream.Quote("BTC")
	assert.False(t, ok)
}

// TestTickerStream_Reconnect drops the first connection server-side and
// expects the stream to come back on its own, without a second Connect call.
func TestTickerStream_Reconnect(t *testing.T) {
	var accepted int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if atomic.AddInt32(&accepted, 1) == 1 {
			conn.Close()
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(tickerJSON("BTCUSDT", 51000, 3)))
		holdOpen(conn)
	}))
	defer srv.Close()

	stream := NewTickerStream(wsURL(srv), 50*time.Millisecond)
	defer stream.Disconnect()

	updates := make(chan update, 16)
	stream.Subscribe(func(symbol string, price, change float64) {
		updates <- update{symbol, price, change}
	})

	require.NoError(t, stream.Connect([]string{"BTC"}))

	// The update can only come from the second connection.
	got := waitForUpdate(t, updates)
	assert.Equal(t, "BTC", got.symbol)
	assert.Equal(t, 51000.0, got.price)

	assert.True(t, stream.Status())
	assert.GreaterOrEqual(t, atomic.LoadInt32(&accepted), int32(2))
}

// TestTickerStream_DisconnectCancelsReconnect verifies that an intentional
// disconnect stops the pending reconnect and is idempotent.
func TestTickerStream_DisconnectCancelsReconnect(t *testing.T) {
	var accepted int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		atomic.AddInt32(&accepted, 1)
		conn.Close()
	}))
	defer srv.Close()

	stream := NewTickerStream(wsURL(srv), 200*time.Millisecond)

	require.NoError(t, stream.Connect([]string{"BTC"}))
	stream.Disconnect()
	stream.Disconnect() // idempotent

	// Well past the reconnect delay: no new connection may appear.
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&accepted))
	assert.False(t, stream.Status())
}

// TestTickerStream_ConnectValidation rejects an empty symbol set and treats a
// repeated connect with the same set as a no-op.
func TestTickerStream_ConnectValidation(t *testing.T) {
	var accepted int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		atomic.AddInt32(&accepted, 1)
		holdOpen(conn)
	}))
	defer srv.Close()

	stream := NewTickerStream(wsURL(srv), 50*time.Millisecond)
	defer stream.Disconnect()

	assert.Error(t, stream.Connect(nil))
	assert.Error(t, stream.Connect([]string{}))

	require.NoError(t, stream.Connect([]string{"BTC", "ETH"}))
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&accepted) == 1
	}, time.Second, 10*time.Millisecond)

	// Same set, different order and case: no second dial.
	require.NoError(t, stream.Connect([]string{"eth", "btc"}))
	assert.Equal(t, int32(1), atomic.LoadInt32(&accepted))

	// A different set supersedes the old connection.
	require.NoError(t, stream.Connect([]string{"SOL"}))
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&accepted) == 2
	}, time.Second, 10*time.Millisecond)
}

// TestTickerStream_SymbolChangeDialFailure switches symbol sets against a
// server that refuses the new set: the stream must read as disconnected, a
// repeat Connect with the new set must not no-op, and the background retry
// must land on the new set once the server accepts.
func TestTickerStream_SymbolChangeDialFailure(t *testing.T) {
	var rejectSOL int32 = 1
	var lastPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "solusdt") && atomic.LoadInt32(&rejectSOL) == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		lastPath.Store(r.URL.Path)
		holdOpen(conn)
	}))
	defer srv.Close()

	stream := NewTickerStream(wsURL(srv), 50*time.Millisecond)
	defer stream.Disconnect()

	require.NoError(t, stream.Connect([]string{"BTC"}))
	assert.True(t, stream.Status())

	// The old connection is gone and the failed dial must not leave the
	// stream claiming to be connected to it.
	assert.Error(t, stream.Connect([]string{"SOL"}))
	assert.False(t, stream.Status())

	// While down, repeating the same new set is a fresh dial, not a no-op.
	assert.Error(t, stream.Connect([]string{"SOL"}))

	atomic.StoreInt32(&rejectSOL, 0)
	require.Eventually(t, func() bool {
		path, _ := lastPath.Load().(string)
		return stream.Status() && strings.Contains(path, "solusdt@ticker")
	}, 3*time.Second, 10*time.Millisecond)
}

// TestTickerStream_DropsStaleFrames drops a frame an old read loop had
// already pulled off the wire once the stream is disconnected.
func TestTickerStream_DropsStaleFrames(t *testing.T) {
	stream := NewTickerStream("", 0)

	updates := make(chan update, 16)
	stream.Subscribe(func(symbol string, price, change float64) {
		updates <- update{symbol, price, change}
	})

	stream.handleMessage([]byte(tickerJSON("BTCUSDT", 50000, 1)), 0)
	assert.Equal(t, 50000.0, waitForUpdate(t, updates).price)

	stream.Disconnect()

	stream.handleMessage([]byte(tickerJSON("ETHUSDT", 3000, 1)), 0)

	select {
	case u := <-updates:
		t.Fatalf("frame delivered after disconnect: %v", u)
	case <-time.After(100 * time.Millisecond):
	}
	_, ok := stream.Quote("ETH")
	assert.False(t, ok)
}

// TestTickerStream_ConnectFailureSchedulesRetry returns the dial error to the
// caller but keeps retrying in the background until Disconnect.
func TestTickerStream_ConnectFailureSchedulesRetry(t *testing.T) {
	stream := NewTickerStream("ws://127.0.0.1:1", 10*time.Millisecond)

	err := stream.Connect([]string{"BTC"})
	assert.Error(t, err)
	assert.False(t, stream.Status())

	stream.Disconnect()
}

// TestTickerStream_Unsubscribe stops delivery to a disposed listener while
// the remaining listener keeps receiving.
func TestTickerStream_Unsubscribe(t *testing.T) {
	sendSecond := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(tickerJSON("BTCUSDT", 50000, 1)))
		<-sendSecond
		conn.WriteMessage(websocket.TextMessage, []byte(tickerJSON("BTCUSDT", 50100, 1)))
		holdOpen(conn)
	}))
	defer srv.Close()

	stream := NewTickerStream(wsURL(srv), 50*time.Millisecond)
	defer stream.Disconnect()

	first := make(chan update, 16)
	second := make(chan update, 16)
	unsubFirst := stream.Subscribe(func(symbol string, price, change float64) {
		first <- update{symbol, price, change}
	})
	stream.Subscribe(func(symbol string, price, change float64) {
		second <- update{symbol, price, change}
	})

	require.NoError(t, stream.Connect([]string{"BTC"}))

	assert.Equal(t, 50000.0, waitForUpdate(t, first).price)
	assert.Equal(t, 50000.0, waitForUpdate(t, second).price)

	unsubFirst()
	unsubFirst() // disposing twice is harmless
	close(sendSecond)

	assert.Equal(t, 50100.0, waitForUpdate(t, second).price)

	select {
	case u := <-first:
		t.Fatalf("unsubscribed listener received %v", u)
	case <-time.After(200 * time.Millisecond):
	}
}

// TestBaseSymbol strips the USDT suffix uniformly.
func TestBaseSymbol(t *testing.T) {
	assert.Equal(t, "BTC", BaseSymbol("BTCUSDT"))
	assert.Equal(t, "BTC", BaseSymbol("btcusdt"))
	assert.Equal(t, "ETH", BaseSymbol("ETH"))
	// A degenerate composite keeps its original form.
	assert.Equal(t, "USDT", BaseSymbol("USDT"))
}
