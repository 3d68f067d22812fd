package domain

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageRequest — запрос страницы выборки (offset-пагинация).
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize приводит запрос к допустимым границам.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

// Offset возвращает смещение выборки для нормализованного запроса.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// OrderPage — страница заказов с метаданными пагинации.
type OrderPage struct {
	Items      []Order
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// NewOrderPage собирает страницу, вычисляя число страниц.
func NewOrderPage(items []Order, total int64, page PageRequest) OrderPage {
	totalPages := int(total) / page.PageSize
	if int(total)%page.PageSize > 0 {
		totalPages++
	}
	return OrderPage{
		Items:      items,
		Total:      total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: totalPages,
	}
}
