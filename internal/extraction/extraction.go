// Package extraction guesses invoice fields from OCR text. The results are
// suggestions for a creation form: best-effort, never authoritative.
package extraction

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	amountPattern        = regexp.MustCompile(`\$?[0-9][0-9,]*(?:\.[0-9]+)?`)
	invoiceNumberPattern = regexp.MustCompile(`(?i)\b(?:invoice|inv)\b(?:[ \t]*(?:number|num|no)\b\.?)?[ \t]*[#:]?[ \t]*([a-z0-9][a-z0-9-]*)`)
)

// Prefilled holds values the caller already has; extraction never overrides them.
type Prefilled struct {
	VendorName    string
	InvoiceNumber string
}

type Fields struct {
	VendorName    string              `json:"vendor_name,omitempty"`
	InvoiceNumber string              `json:"invoice_number,omitempty"`
	Amount        decimal.NullDecimal `json:"amount"`
}

// Extract is pure: the same text and prefilled values always give the same fields.
func Extract(text string, prefilled Prefilled) Fields {
	var f Fields

	if amount, ok := LargestAmount(text); ok {
		f.Amount = decimal.NewNullDecimal(amount)
	}
	if prefilled.VendorName == "" {
		f.VendorName = FirstLine(text)
	}
	if prefilled.InvoiceNumber == "" {
		f.InvoiceNumber = InvoiceNumber(text)
	}

	return f
}

// LargestAmount returns the largest positive currency-like figure in text.
// Invoice totals are usually the largest number on the page, so every match
// counts, including digits inside dates or references.
func LargestAmount(text string) (decimal.Decimal, bool) {
	var (
		best  decimal.Decimal
		found bool
	)

	for _, token := range amountPattern.FindAllString(text, -1) {
		value, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimPrefix(token, "$"), ",", ""))
		if err != nil || !value.IsPositive() {
			continue
		}
		if !found || value.GreaterThan(best) {
			best = value
			found = true
		}
	}

	return best, found
}

// FirstLine returns the first non-blank line, trimmed.
func FirstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// InvoiceNumber returns the token after the first "invoice"/"inv" label on
// the same line, e.g. "INV-2024-07" in "Invoice #INV-2024-07".
func InvoiceNumber(text string) string {
	m := invoiceNumberPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}
