// Package format renders nutrition quantities for display.
package format

import (
	"fmt"
	"math"
	"strings"
)

// Grams returns a gram amount with one decimal and thousands separators (e.g., "1,234.5 g").
func Grams(amount float64) string {
	return Number(amount, 1) + " g"
}

// Calories returns a whole-kcal string with thousands separators (e.g., "2,150 kcal").
func Calories(amount float64) string {
	return Number(amount, 0) + " kcal"
}

// Macros returns a compact calorie and protein pair (e.g., "2,150 kcal / 148.2 g protein").
func Macros(calories, protein float64) string {
	return Calories(calories) + " / " + Grams(protein) + " protein"
}

// Number returns amount with the given decimals and thousands separators (e.g., "-1,234.56").
func Number(amount float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	rounded := roundTo(amount, decimals)
	sign := ""
	if rounded < 0 {
		sign = "-"
	}
	return sign + formatPositive(math.Abs(rounded), decimals)
}

func roundTo(value float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(value*scale) / scale
}

func formatPositive(value float64, decimals int) string {
	formatted := fmt.Sprintf("%.*f", decimals, value)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	if len(parts) == 2 {
		return intPart + "." + parts[1]
	}
	return intPart
}
