package risk

import (
	"fmt"
	"math"
)

// PositionSize returns the position size (in units of the asset) such that a
// move from entryPrice to stopLoss loses riskPercent of the account balance.
//
// riskPercent is a plain percentage, e.g. 2 risks 2% of the balance.
func PositionSize(balance, riskPercent, entryPrice, stopLoss float64) (float64, error) {
	if balance <= 0 {
		return 0, fmt.Errorf("position size: balance must be positive, got %g", balance)
	}
	if riskPercent <= 0 || riskPercent > 100 {
		return 0, fmt.Errorf("position size: risk percent must be in (0, 100], got %g", riskPercent)
	}
	if entryPrice <= 0 || stopLoss <= 0 {
		return 0, fmt.Errorf("position size: prices must be positive")
	}

	priceRisk := math.Abs(entryPrice - stopLoss)
	if priceRisk == 0 {
		return 0, fmt.Errorf("position size: stop loss equals entry price")
	}

	riskAmount := balance * (riskPercent / 100)
	return riskAmount / priceRisk, nil
}
