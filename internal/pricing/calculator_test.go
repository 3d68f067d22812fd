package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func line(price string, qty int32) Line {
	return Line{UnitPrice: decimal.RequireFromString(price), Quantity: qty}
}

func TestComputeStandardShipping(t *testing.T) {
	totals, err := Compute([]Line{line("4.50", 5)}, "")
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if got := totals.Subtotal.StringFixed(2); got != "22.50" {
		t.Errorf("subtotal = %s, want 22.50", got)
	}
	if got := totals.Shipping.StringFixed(2); got != "5.00" {
		t.Errorf("shipping = %s, want 5.00 below the free threshold", got)
	}
	if !totals.Discount.IsZero() {
		t.Errorf("discount = %s, want 0 without promo", totals.Discount)
	}
	if got := totals.Total.StringFixed(2); got != "27.50" {
		t.Errorf("total = %s, want 27.50", got)
	}
}

func TestComputeWithPromo(t *testing.T) {
	totals, err := Compute([]Line{line("4.50", 5)}, "BIENVENUE10")
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if got := totals.Discount.StringFixed(2); got != "2.25" {
		t.Errorf("discount = %s, want 2.25 (10%% of 22.50)", got)
	}
	if got := totals.Total.StringFixed(2); got != "25.25" {
		t.Errorf("total = %s, want 25.25", got)
	}
}

func TestComputeFreeShippingThreshold(t *testing.T) {
	cases := []struct {
		name     string
		lines    []Line
		shipping string
	}{
		{"just below threshold", []Line{line("49.99", 1)}, "5.00"},
		{"exactly at threshold", []Line{line("50.00", 1)}, "0.00"},
		{"above threshold", []Line{line("25.50", 3)}, "0.00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			totals, err := Compute(tc.lines, "")
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if got := totals.Shipping.StringFixed(2); got != tc.shipping {
				t.Errorf("shipping = %s, want %s", got, tc.shipping)
			}
		})
	}
}

func TestComputeEmptyLines(t *testing.T) {
	totals, err := Compute(nil, "")
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if !totals.Subtotal.IsZero() || !totals.Shipping.IsZero() || !totals.Total.IsZero() {
		t.Errorf("empty cart totals = %+v, want all zero", totals)
	}
}

func TestComputeRoundingHalfUp(t *testing.T) {
	// 3.33 x 20% = 0.666, половина округляется вверх.
	totals, err := Compute([]Line{line("3.33", 1)}, "FRESH20")
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if got := totals.Discount.StringFixed(2); got != "0.67" {
		t.Errorf("discount = %s, want 0.67 with half-up rounding", got)
	}
}

func TestComputeAllPromoRates(t *testing.T) {
	cases := []struct {
		code     string
		discount string
	}{
		{"BIENVENUE10", "10.00"},
		{"FRESH20", "20.00"},
		{"BIO15", "15.00"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			totals, err := Compute([]Line{line("100.00", 1)}, tc.code)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if got := totals.Discount.StringFixed(2); got != tc.discount {
				t.Errorf("discount = %s, want %s", got, tc.discount)
			}
		})
	}
}

func TestComputeUnknownPromoAppliesNoDiscount(t *testing.T) {
	// Валидация кода — забота вызывающего; калькулятор считает со ставкой 0.
	totals, err := Compute([]Line{line("10.00", 1)}, "SUPER50")
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !totals.Discount.IsZero() {
		t.Errorf("discount = %s, want 0 for unknown code", totals.Discount)
	}
}

func TestComputeNegativeTotalClamped(t *testing.T) {
	// Отрицательный итог невозможен с текущей таблицей ставок; защищаемся
	// через подменённую плату за доставку.
	savedFee := StandardShippingFee
	StandardShippingFee = decimal.RequireFromString("-100.00")
	defer func() { StandardShippingFee = savedFee }()

	totals, err := Compute([]Line{line("4.50", 5)}, "")
	if !errors.Is(err, ErrNegativeTotal) {
		t.Fatalf("err = %v, want ErrNegativeTotal", err)
	}
	if !totals.Total.IsZero() {
		t.Errorf("total = %s, want clamped to zero", totals.Total)
	}
}

func TestLineTotalRounds(t *testing.T) {
	if got := LineTotal(decimal.RequireFromString("0.333"), 10).StringFixed(2); got != "3.33" {
		t.Errorf("line total = %s, want 3.33", got)
	}
}

func TestRate(t *testing.T) {
	if rate, ok := Rate("BIENVENUE10"); !ok || rate.String() != "0.1" {
		t.Errorf("Rate(BIENVENUE10) = (%s, %v), want (0.1, true)", rate, ok)
	}
	if rate, ok := Rate(""); !ok || !rate.IsZero() {
		t.Errorf("Rate(\"\") = (%s, %v), want (0, true): blank is no promo", rate, ok)
	}
	if _, ok := Rate("NOPE"); ok {
		t.Error("unknown code should not resolve to a rate")
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  fresh20 "); got != "FRESH20" {
		t.Errorf("NormalizeCode = %q, want FRESH20", got)
	}
}
