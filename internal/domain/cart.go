package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cybernerd/agriconnect/internal/pricing"
)

// CartItem — позиция корзины. Хранит цену, зафиксированную в момент
// добавления: изменение цены товара в каталоге корзину не трогает.
type CartItem struct {
	ID        string
	ProductID string
	Quantity  int32
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
	// Unavailable выставляется проверкой доступности: позиция помечается,
	// но не удаляется молча.
	Unavailable bool
	CreatedAt   time.Time
}

// recalc пересчитывает стоимость позиции.
func (i *CartItem) recalc() {
	i.LineTotal = pricing.LineTotal(i.UnitPrice, i.Quantity)
}

// Cart — изменяемая корзина покупателя (1:1), создаётся лениво при первом
// обращении. Производные денежные поля не присваиваются напрямую — только
// через Recompute.
type Cart struct {
	ID        string
	BuyerID   string
	Items     []CartItem
	PromoCode string
	Subtotal  decimal.Decimal
	Shipping  decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCart создаёт пустую корзину с нулевыми итогами.
func NewCart(id, buyerID string, now time.Time) Cart {
	cart := Cart{
		ID:        id,
		BuyerID:   buyerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	zero := pricing.Zero()
	cart.Subtotal, cart.Shipping, cart.Discount, cart.Total =
		zero.Subtotal, zero.Shipping, zero.Discount, zero.Total
	return cart
}

// IsEmpty сообщает, пуста ли корзина.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount возвращает число позиций в корзине.
func (c *Cart) ItemCount() int {
	return len(c.Items)
}

// FindItem возвращает позицию по её идентификатору.
func (c *Cart) FindItem(itemID string) *CartItem {
	for idx := range c.Items {
		if c.Items[idx].ID == itemID {
			return &c.Items[idx]
		}
	}
	return nil
}

// FindItemByProduct возвращает позицию по товару, если он уже в корзине.
func (c *Cart) FindItemByProduct(productID string) *CartItem {
	for idx := range c.Items {
		if c.Items[idx].ProductID == productID {
			return &c.Items[idx]
		}
	}
	return nil
}

// CoversOrderItems проверяет, что состав корзины совпадает с набором позиций
// заказа по товарам и количествам. Корзина могла измениться между снимком
// и фиксацией заказа, поэтому сверка выполняется повторно под замком.
func (c *Cart) CoversOrderItems(items []OrderItem) bool {
	if len(c.Items) != len(items) {
		return false
	}
	byProduct := make(map[string]int32, len(c.Items))
	for _, line := range c.Items {
		byProduct[line.ProductID] += line.Quantity
	}
	for _, item := range items {
		qty, ok := byProduct[item.ProductID]
		if !ok || qty != item.Quantity {
			return false
		}
		delete(byProduct, item.ProductID)
	}
	return len(byProduct) == 0
}

// AddItem добавляет новую позицию или сливает количество с существующей.
// При слиянии объединённая позиция получает актуальную цену товара.
func (c *Cart) AddItem(item CartItem) {
	if existing := c.FindItemByProduct(item.ProductID); existing != nil {
		existing.Quantity += item.Quantity
		existing.UnitPrice = item.UnitPrice
		existing.recalc()
		return
	}

	item.recalc()
	c.Items = append(c.Items, item)
}

// SetQuantity меняет количество позиции. Количество <= 0 эквивалентно
// удалению. Возвращает false, если позиция не найдена.
func (c *Cart) SetQuantity(itemID string, quantity int32) bool {
	item := c.FindItem(itemID)
	if item == nil {
		return false
	}

	if quantity <= 0 {
		c.RemoveItem(itemID)
		return true
	}

	item.Quantity = quantity
	item.recalc()
	return true
}

// RemoveItem удаляет позицию. Повторное удаление — no-op.
func (c *Cart) RemoveItem(itemID string) bool {
	for idx := range c.Items {
		if c.Items[idx].ID == itemID {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
			return true
		}
	}
	return false
}

// Clear опустошает корзину и снимает промокод. Сама корзина не удаляется.
func (c *Cart) Clear() {
	c.Items = nil
	c.PromoCode = ""
}

// Recompute пересчитывает производные итоги. Единственная точка записи
// в Subtotal/Shipping/Discount/Total.
func (c *Cart) Recompute() error {
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, pricing.Line{UnitPrice: item.UnitPrice, Quantity: item.Quantity})
	}

	totals, err := pricing.Compute(lines, c.PromoCode)
	c.Subtotal = totals.Subtotal
	c.Shipping = totals.Shipping
	c.Discount = totals.Discount
	c.Total = totals.Total
	return err
}
