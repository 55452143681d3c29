package types

// Quote is the latest 24h ticker snapshot for a single symbol.
// It is replaced wholesale on every update; no history is kept.
type Quote struct {
	Symbol           string
	Price            float64
	ChangePercent24h float64
	High24h          float64
	Low24h           float64
	Volume24h        float64
}
