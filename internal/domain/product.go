package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product — товар каталога. Остаток мутируется только атомарными операциями
// ProductRepository (TryDecrementStock / IncrementStock), никогда напрямую.
type Product struct {
	ID          string
	ProducerID  string
	Name        string
	Description string
	// Unit — единица продажи: kg, piece, litre и т.п.
	Unit    string
	Origin  string
	Organic bool
	// Price — цена за единицу, фиксированная точка (2 знака).
	Price decimal.Decimal
	// StockQuantity — доступный остаток; инвариант: всегда >= 0.
	StockQuantity int32
	// Available — товар выставлен на продажу.
	Available bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InStock сообщает, можно ли вообще положить товар в корзину.
func (p *Product) InStock() bool {
	return p.Available && p.StockQuantity > 0
}

// Validate проверяет корректность полей товара и возвращает список замечаний.
func (p *Product) Validate() []error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.Price.IsNegative() {
		errs = append(errs, ErrPriceNegative)
	}
	if p.StockQuantity < 0 {
		errs = append(errs, ErrStockNegative)
	}

	return errs
}
