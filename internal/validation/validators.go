// Package validation implements the field validators of the record pipeline.
// Validators are pure predicates: they never panic and never return errors.
package validation

import (
	"math"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finassist/internal/schema"
)

// SupportedCurrencies is the ISO 4217 set accepted for currency fields.
var SupportedCurrencies = []string{
	"USD", "EUR", "GBP", "JPY", "CAD", "AUD", "CHF", "CNY",
	"MXN", "BRL", "ARS", "CLP", "COP", "PEN", "UYU",
}

// PaymentMethods is the recognised payment-method vocabulary.
var PaymentMethods = []string{
	"Credit Card", "Debit Card", "Cash", "Bank Transfer",
	"PayPal", "Apple Pay", "Google Pay", "Venmo", "Zelle", "Other",
}

var cardKeywords = []string{"card", "credit", "debit", "visa", "mastercard", "amex", "discover"}

// DateLayouts are tried in order; the first layout that parses wins. A value
// like 03/04/2025 therefore always reads as MM/DD.
var DateLayouts = []string{
	"2006-1-2",
	"1/2/2006",
	"2/1/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-1-2 15:04:05",
}

var currencySet = func() map[string]bool {
	m := make(map[string]bool, len(SupportedCurrencies))
	for _, c := range SupportedCurrencies {
		m[c] = true
	}
	return m
}()

// Currency reports whether code is a supported currency, ignoring case.
func Currency(code string) bool {
	return currencySet[strings.ToUpper(code)]
}

// Amount reports whether text is a positive decimal number once thousands
// separators are removed.
func Amount(text string) bool {
	n, ok := NormalizeNumber(text)
	if !ok {
		return false
	}
	f, _ := strconv.ParseFloat(n, 64)
	return f > 0
}

// NormalizeNumber strips surrounding whitespace, thousands commas and
// underscores between digits, and returns the plain decimal text when the
// result is a finite number.
func NormalizeNumber(text string) (string, bool) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	if strings.Contains(text, "_") {
		var b strings.Builder
		for i := 0; i < len(text); i++ {
			if text[i] != '_' {
				b.WriteByte(text[i])
				continue
			}
			if i == 0 || i == len(text)-1 || !isDigit(text[i-1]) || !isDigit(text[i+1]) {
				return "", false
			}
		}
		text = b.String()
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return text, true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Date reports whether text matches any accepted date layout.
func Date(text string) bool {
	_, _, ok := ParseDate(text)
	return ok
}

// ParseDate returns the calendar date and the layout that matched first.
func ParseDate(text string) (civil.Date, string, bool) {
	for _, layout := range DateLayouts {
		t, err := time.Parse(layout, text)
		if err == nil {
			return civil.DateOf(t), layout, true
		}
	}
	return civil.Date{}, "", false
}

// PaymentMethod reports whether text mentions a known payment method or a
// card keyword. Matching is a case-insensitive substring test so free text
// such as "Chase Visa Card" passes.
func PaymentMethod(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range PaymentMethods {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	for _, k := range cardKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// TransactionType reports whether text is "income" or "expense".
func TransactionType(text string) bool {
	return oneOf(text, schema.TransactionTypes...)
}

// AccountType reports whether text is one of the supported account types.
func AccountType(text string) bool {
	return oneOf(text, schema.AccountTypes...)
}

func oneOf(text string, values ...string) bool {
	v := strings.ToLower(strings.TrimSpace(text))
	for _, want := range values {
		if v == want {
			return true
		}
	}
	return false
}
