package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Денежные константы доставки. Фиксированная точка, два знака.
var (
	// StandardShippingFee — стандартная плата за доставку.
	StandardShippingFee = decimal.RequireFromString("5.00")
	// FreeShippingThreshold — сумма корзины, с которой доставка бесплатна.
	FreeShippingThreshold = decimal.RequireFromString("50.00")
)

// moneyScale — число знаков после запятой во всех денежных полях.
const moneyScale = 2

// ErrNegativeTotal — итог получился отрицательным и был ограничен нулём.
// Это нарушение внутренней консистентности: логировать, не скрывать.
var ErrNegativeTotal = errors.New("computed total is negative, clamped to zero")

// Line — позиция для расчёта: цена за единицу и количество.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int32
}

// Totals — производные денежные поля корзины/заказа.
// Инвариант: Total = Subtotal + Shipping - Discount.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// LineTotal считает стоимость позиции с округлением до двух знаков.
func LineTotal(unitPrice decimal.Decimal, quantity int32) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt32(quantity)).Round(moneyScale)
}

// Compute — чистая функция пересчёта итогов. Промокод с неизвестным кодом
// трактуется как ставка ноль: валидация кода — забота вызывающего.
// Если скидка превысила subtotal + shipping, итог ограничивается нулём и
// возвращается ErrNegativeTotal вместе с уже ограниченными значениями.
func Compute(lines []Line, promoCode string) (Totals, error) {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(LineTotal(line.UnitPrice, line.Quantity))
	}

	shipping := StandardShippingFee
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		shipping = decimal.Zero.Round(moneyScale)
	}
	if len(lines) == 0 {
		// Пустая корзина не тарифицируется.
		shipping = decimal.Zero.Round(moneyScale)
	}

	rate, _ := Rate(promoCode)
	discount := subtotal.Mul(rate).Round(moneyScale)

	total := subtotal.Add(shipping).Sub(discount)

	totals := Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Discount: discount,
		Total:    total,
	}

	if total.IsNegative() {
		totals.Total = decimal.Zero.Round(moneyScale)
		return totals, ErrNegativeTotal
	}

	return totals, nil
}

// Zero возвращает нулевые итоги (пустая корзина).
func Zero() Totals {
	z := decimal.Zero.Round(moneyScale)
	return Totals{Subtotal: z, Shipping: z, Discount: z, Total: z}
}
