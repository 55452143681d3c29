package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ducnguyen96/crypto-paper-trader/pkg/types"
)

// DefaultAPIURL is the Binance REST endpoint used for 24h ticker snapshots.
const DefaultAPIURL = "https://api.binance.com"

// RestClient fetches 24h ticker snapshots over REST. It is used to seed the
// ledger's price map and the market overview before the first websocket tick.
type RestClient struct {
	baseURL string
	client  *http.Client
}

// NewRestClient creates a REST client for the given base URL; an empty URL
// falls back to DefaultAPIURL.
func NewRestClient(baseURL string) *RestClient {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &RestClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ticker24h returns the latest 24h ticker snapshot for a base symbol
// (e.g. "BTC"); the USDT composite is derived internally and the returned
// quote carries the normalized base symbol.
func (c *RestClient) Ticker24h(ctx context.Context, symbol string) (*types.Quote, error) {
	if symbol == "" {
		return nil, fmt.Errorf("ticker24h: symbol must not be empty")
	}

	composite := BaseSymbol(symbol) + "USDT"
	url := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", c.baseURL, composite)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build ticker request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ticker API returned status %d", resp.StatusCode)
	}

	var tickerData struct {
		Symbol        string `json:"symbol"`
		LastPrice     string `json:"lastPrice"`
		ChangePercent string `json:"priceChangePercent"`
		HighPrice     string `json:"highPrice"`
		LowPrice      string `json:"lowPrice"`
		Volume        string `json:"volume"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tickerData); err != nil {
		return nil, fmt.Errorf("failed to decode ticker response: %w", err)
	}

	price, err := strconv.ParseFloat(tickerData.LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}
	change, err := strconv.ParseFloat(tickerData.ChangePercent, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price change: %w", err)
	}
	high, err := strconv.ParseFloat(tickerData.HighPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse high price: %w", err)
	}
	low, err := strconv.ParseFloat(tickerData.LowPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse low price: %w", err)
	}
	volume, err := strconv.ParseFloat(tickerData.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse volume: %w", err)
	}

	return &types.Quote{
		Symbol:           BaseSymbol(tickerData.Symbol),
		Price:            price,
		ChangePercent24h: change,
		High24h:          high,
		Low24h:           low,
		Volume24h:        volume,
	}, nil
}
