package domain

// ProductRepository — каталог. Остаток мутируется только двумя атомарными
// операциями ниже; это граница безопасности для конкурирующих оформлений.
type ProductRepository interface {
	// Create сохраняет новый товар.
	Create(product Product) error
	// Get возвращает товар или ErrProductNotFound.
	Get(id string) (Product, error)
	// List возвращает товары каталога, ограничивая выборку limit (если >0).
	List(limit int) ([]Product, error)
	// TryDecrementStock атомарно списывает qty единиц, если товар доступен и
	// остатка хватает. Возвращает false (не ошибку хранения), когда условие
	// не выполнено: вызывающий различает это от "товар не найден".
	TryDecrementStock(id string, qty int32) (bool, error)
	// IncrementStock атомарно возвращает qty единиц на остаток.
	IncrementStock(id string, qty int32) error
}

// AccountRepository — справочник аккаунтов.
type AccountRepository interface {
	// Create сохраняет новый аккаунт.
	Create(account Account) error
	// Get возвращает аккаунт или ErrAccountNotFound.
	Get(id string) (Account, error)
}

// CartRepository хранит корзины вместе с их позициями.
type CartRepository interface {
	// GetByBuyer возвращает корзину покупателя или ErrCartNotFound.
	GetByBuyer(buyerID string) (Cart, error)
	// Create сохраняет новую корзину.
	Create(cart Cart) error
	// Save перезаписывает корзину и её позиции с учётом optimistic locking.
	Save(cart Cart) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. ErrOrderConflict при занятом ID,
	// ErrOrderNumberConflict при занятом номере.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(id string) (Order, error)
	// GetByNumber возвращает заказ по человекочитаемому номеру.
	GetByNumber(number string) (Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(order Order) error
	// ListByBuyer возвращает страницу заказов покупателя, новые первыми.
	ListByBuyer(buyerID string, page PageRequest) (OrderPage, error)
	// ListByProducer возвращает страницу заказов, содержащих товары
	// производителя, новые первыми.
	ListByProducer(producerID string, page PageRequest) (OrderPage, error)
	// ListRecent возвращает страницу последних заказов по всей площадке.
	ListRecent(page PageRequest) (OrderPage, error)
	// Search возвращает страницу заказов по фильтру.
	Search(filter OrderFilter, page PageRequest) (OrderPage, error)
}

// PaymentRepository хранит записи о платежах.
type PaymentRepository interface {
	// Create сохраняет запись о платеже.
	Create(payment Payment) error
	// ListByOrder возвращает платежи заказа в порядке создания.
	ListByOrder(orderID string) ([]Payment, error)
}

// OrderFilter — критерии поиска заказов; пустое поле означает "не фильтровать".
type OrderFilter struct {
	Status     OrderStatus
	Number     string
	BuyerID    string
	ProducerID string
}
