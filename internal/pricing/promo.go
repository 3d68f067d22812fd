package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Таблица промокодов фиксирована конфигурацией, а не живым справочником.
var promoRates = map[string]decimal.Decimal{
	"BIENVENUE10": decimal.RequireFromString("0.10"),
	"FRESH20":     decimal.RequireFromString("0.20"),
	"BIO15":       decimal.RequireFromString("0.15"),
}

// Rate возвращает ставку скидки для промокода. Пустой код — ставка ноль,
// ok=true; нераспознанный непустой код — ставка ноль, ok=false, и решать,
// ошибка это или нет, должен вызывающий.
func Rate(code string) (decimal.Decimal, bool) {
	if strings.TrimSpace(code) == "" {
		return decimal.Zero, true
	}

	rate, ok := promoRates[NormalizeCode(code)]
	if !ok {
		return decimal.Zero, false
	}
	return rate, true
}

// NormalizeCode приводит промокод к канонической форме хранения.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
