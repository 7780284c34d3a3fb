package utils

import (
	"fmt"
	"math"
)

// RoundCents rounds amount to two decimal places, half away from zero.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// FormatPrice renders amount with two decimals, e.g. 29.5 -> "29.50".
func FormatPrice(amount float64) string {
	return fmt.Sprintf("%.2f", RoundCents(amount))
}
