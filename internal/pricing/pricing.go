// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package pricing converts prices between the base currency (BDT) and the
// display currencies using a snapshot of conversion rates.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// BaseCurrency is the currency every stored price is normalized into.
const BaseCurrency = "BDT"

// ErrUnknownCurrency is returned when no rate exists for a currency.
var ErrUnknownCurrency = errors.New("unknown currency")

// Rates maps a currency code to how many base units one unit of that
// currency is worth. {"USD": 123} means 1 USD = 123 BDT.
type Rates map[string]float64

// DefaultRates is used when the rates service cannot be reached.
var DefaultRates = Rates{
	"BDT": 1,
	"USD": 122,
	"EUR": 133,
	"GBP": 155,
	"INR": 1.45,
}

var symbols = map[string]string{
	"BDT": "৳",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
}

// Clone returns an independent copy of r.
func (r Rates) Clone() Rates {
	out := make(Rates, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Rate returns the rate for currency. The base currency is always 1.
func (r Rates) Rate(currency string) (float64, error) {
	currency = strings.ToUpper(currency)
	if currency == BaseCurrency || currency == "" {
		return 1, nil
	}
	rate, ok := r[currency]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}
	return rate, nil
}

// ToBase converts amount in currency into the base currency.
func (r Rates) ToBase(amount float64, currency string) (float64, error) {
	rate, err := r.Rate(currency)
	if err != nil {
		return 0, err
	}
	return Round2(amount * rate), nil
}

// FromBase converts a base-currency amount into currency.
// FromBase(2000, "USD") with {"USD": 123} is 16.26.
func (r Rates) FromBase(amount float64, currency string) (float64, error) {
	rate, err := r.Rate(currency)
	if err != nil {
		return 0, err
	}
	return Round2(amount / rate), nil
}

// Display converts unitBase × quantity into currency and formats it.
func (r Rates) Display(unitBase float64, quantity int, currency string) (string, error) {
	amount, err := r.FromBase(unitBase*float64(quantity), currency)
	if err != nil {
		return "", err
	}
	return Format(amount, currency), nil
}

// Round2 rounds to two decimals, halves away from zero. The value is
// first printed with eight decimals so binary noise such as
// 1.005*100 = 100.49999999999999 does not flip the result.
func Round2(x float64) float64 {
	scaled, err := strconv.ParseFloat(strconv.FormatFloat(x*100, 'f', 8, 64), 64)
	if err != nil {
		scaled = x * 100
	}
	return math.Round(scaled) / 100
}

// Format renders amount with the currency symbol and two decimals:
// Format(16.26, "USD") is "$16.26". Unknown codes are used as a prefix.
func Format(amount float64, currency string) string {
	currency = strings.ToUpper(currency)
	if sym, ok := symbols[currency]; ok {
		return sym + strconv.FormatFloat(amount, 'f', 2, 64)
	}
	return currency + " " + strconv.FormatFloat(amount, 'f', 2, 64)
}

// Source provides current conversion rates.
type Source interface {
	Rates(ctx context.Context) (Rates, error)
}

// Snapshot fetches rates from src and falls back to DefaultRates on any
// error so pages that show prices keep working.
func Snapshot(ctx context.Context, src Source, logger *slog.Logger) Rates {
	if logger == nil {
		logger = slog.Default()
	}
	rates, err := src.Rates(ctx)
	if err != nil || len(rates) == 0 {
		logger.Warn("using default currency rates", "error", err)
		return DefaultRates.Clone()
	}
	out := rates.Clone()
	out[BaseCurrency] = 1
	return out
}
