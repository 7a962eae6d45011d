package invoice

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var texasRate = decimal.RequireFromString("0.0825")

// Totals are rounded to cents.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// TaxRate is 8.25% for Texas sales and zero for everything else.
func TaxRate(loc TaxLocation) decimal.Decimal {
	if loc == TaxLocationTexas {
		return texasRate
	}

	return decimal.Zero
}

// CalculateTotals derives subtotal, tax and total from the rows that count:
// a non-blank description and a positive quantity. Other rows are skipped.
func CalculateTotals(items []LineItem, loc TaxLocation) Totals {
	subtotal := decimal.Zero

	for _, item := range items {
		if !contributes(item) {
			continue
		}

		subtotal = subtotal.Add(lineAmount(item))
	}

	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(TaxRate(loc)).Round(2)

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// FilterItems keeps the contributing rows in order, trimmed and with their
// amount recomputed.
func FilterItems(items []LineItem) []LineItem {
	kept := make([]LineItem, 0, len(items))

	for _, item := range items {
		if !contributes(item) {
			continue
		}

		kept = append(kept, LineItem{
			Description: strings.TrimSpace(item.Description),
			SKU:         strings.TrimSpace(item.SKU),
			Quantity:    sanitize(item.Quantity),
			Price:       sanitize(item.Price),
			Amount:      lineAmount(item).Round(2).InexactFloat64(),
		})
	}

	return kept
}

func contributes(item LineItem) bool {
	return strings.TrimSpace(item.Description) != "" && sanitize(item.Quantity) > 0
}

func lineAmount(item LineItem) decimal.Decimal {
	return decimal.NewFromFloat(sanitize(item.Quantity)).Mul(decimal.NewFromFloat(sanitize(item.Price)))
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}

	return v
}

var usd = message.NewPrinter(language.AmericanEnglish)

// FormatCurrency renders an amount as dollars with thousands separators and
// two decimals, e.g. $1,082.50.
func FormatCurrency(amount decimal.Decimal) string {
	amount = amount.Round(2)

	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	return sign + "$" + usd.Sprintf("%.2f", amount.InexactFloat64())
}

// FormatAmount is FormatCurrency for stored float amounts.
func FormatAmount(amount float64) string {
	return FormatCurrency(decimal.NewFromFloat(sanitizeSigned(amount)))
}

func sanitizeSigned(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return v
}
