package domain

import "errors"

var (
	// Ошибка отсутствующего покупателя.
	ErrBuyerNotFound = errors.New("buyer not found")
	// Ошибка отсутствующего аккаунта (любой роли).
	ErrAccountNotFound = errors.New("account not found")
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrCartNotFound возвращается, если корзина ещё не создана.
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartItemNotFound возвращается, если позиция корзины не найдена.
	ErrCartItemNotFound = errors.New("cart item not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")

	// Ошибка некорректного количества товара (<= 0).
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	// Ошибка нераспознанного промокода.
	ErrInvalidPromoCode = errors.New("promo code is not recognized")
	// Ошибка оформления заказа из пустой корзины.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrProductUnavailable — товар снят с продажи или закончился.
	ErrProductUnavailable = errors.New("product is not available")
	// ErrInsufficientStock — запрошенное количество превышает остаток.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrUnauthorized — попытка действовать с чужой корзиной или заказом.
	ErrUnauthorized = errors.New("actor is not allowed to access this resource")

	// ErrInvalidStatusTransition — переход статуса заказа вне машины состояний.
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	// ErrOrderNotCancellable — заказ уже отгружен или находится в терминальном статусе.
	ErrOrderNotCancellable = errors.New("order can no longer be cancelled")

	// ErrOrderConflict — заказ с таким ID уже существует.
	ErrOrderConflict = errors.New("order already exists")
	// ErrOrderNumberConflict — коллизия человекочитаемого номера заказа.
	ErrOrderNumberConflict = errors.New("order number already taken")
	// ErrVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrVersionConflict = errors.New("version conflict")

	// Ошибки валидации сущностей.
	ErrBuyerRequired       = errors.New("buyer_id is required")
	ErrOrderNumberRequired = errors.New("order number is required")
	ErrItemsRequired       = errors.New("order must contain at least one item")
	ErrItemQtyInvalid      = errors.New("item quantity must be greater than zero")
	ErrItemPriceInvalid    = errors.New("item price must be non-negative")
	ErrLineTotalMismatch   = errors.New("line total does not match unit price and quantity")
	ErrTotalsMismatch      = errors.New("order total does not reconcile with line items")
	ErrProductNameRequired = errors.New("product name is required")
	ErrPriceNegative       = errors.New("product price must be non-negative")
	ErrStockNegative       = errors.New("stock quantity must be non-negative")

	// ErrPaymentMethodUnsupported — ни один провайдер не поддерживает метод оплаты.
	ErrPaymentMethodUnsupported = errors.New("payment method is not supported")
	// Ошибка отсутствующего заказа у платежа.
	ErrPaymentOrderRequired = errors.New("payment order_id is required")
	// Ошибка отрицательной суммы платежа.
	ErrPaymentAmountNegative = errors.New("payment amount must be non-negative")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsNotFound проверяет, относится ли ошибка к классу "сущность не найдена".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBuyerNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrCartNotFound) ||
		errors.Is(err, ErrCartItemNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
