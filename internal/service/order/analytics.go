package order

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cybernerd/agriconnect/internal/domain"
)

// Period — период агрегации аналитики.
type Period string

const (
	PeriodWeek    Period = "7d"
	PeriodMonth   Period = "30d"
	PeriodQuarter Period = "90d"
	PeriodYear    Period = "1y"
)

// Duration возвращает длительность периода.
func (p Period) Duration() (time.Duration, bool) {
	switch p {
	case PeriodWeek:
		return 7 * 24 * time.Hour, true
	case PeriodMonth:
		return 30 * 24 * time.Hour, true
	case PeriodQuarter:
		return 90 * 24 * time.Hour, true
	case PeriodYear:
		return 365 * 24 * time.Hour, true
	}
	return 0, false
}

// ProductSales — агрегат продаж одного товара.
type ProductSales struct {
	ProductID   string
	ProductName string
	Quantity    int64
	Revenue     decimal.Decimal
}

// DailyRevenue — выручка за календарный день.
type DailyRevenue struct {
	Date    string
	Revenue decimal.Decimal
}

// ProducerAnalytics — аналитика производителя за период. Все суммы берутся
// из замороженных итогов заказов, никогда из живого каталога.
type ProducerAnalytics struct {
	ProducerID      string
	Period          Period
	Since           time.Time
	OrderCount      int64
	Revenue         decimal.Decimal
	TopProducts     []ProductSales
	StatusBreakdown map[domain.OrderStatus]int64
	DailyRevenue    []DailyRevenue
}

// MarketStatistics — сводная статистика площадки.
type MarketStatistics struct {
	TotalOrders     int64
	TotalRevenue    decimal.Decimal
	PendingCount    int64
	StatusBreakdown map[domain.OrderStatus]int64
	TopProducts     []ProductSales
}

// analyticsPageSize — размер страницы при обходе заказов для агрегации.
const analyticsPageSize = 100

// topProductsLimit ограничивает выдачу самых продаваемых товаров.
const topProductsLimit = 5

// AnalyticsForProducer агрегирует заказы с товарами производителя за период.
// Выручка считается по замороженным позициям производителя; отменённые заказы
// учитываются в разбивке по статусам, но не в выручке.
func (s *service) AnalyticsForProducer(producerID string, period Period) (ProducerAnalytics, error) {
	window, ok := period.Duration()
	if !ok {
		return ProducerAnalytics{}, fmt.Errorf("unknown analytics period %q", period)
	}
	since := time.Now().UTC().Add(-window)

	analytics := ProducerAnalytics{
		ProducerID:      producerID,
		Period:          period,
		Since:           since,
		Revenue:         decimal.Zero,
		StatusBreakdown: make(map[domain.OrderStatus]int64),
	}
	sales := make(map[string]*ProductSales)
	daily := make(map[string]decimal.Decimal)

	err := s.eachOrder(
		func(page domain.PageRequest) (domain.OrderPage, error) {
			return s.orders.ListByProducer(producerID, page)
		},
		func(order domain.Order) {
			if order.CreatedAt.Before(since) {
				return
			}
			analytics.OrderCount++
			analytics.StatusBreakdown[order.Status]++
			if order.Status == domain.OrderStatusCancelled {
				return
			}

			for _, item := range order.Items {
				if item.ProducerID != producerID {
					continue
				}
				analytics.Revenue = analytics.Revenue.Add(item.LineTotal)
				accumulateSales(sales, item)
				day := order.CreatedAt.Format("2006-01-02")
				daily[day] = daily[day].Add(item.LineTotal)
			}
		},
	)
	if err != nil {
		return ProducerAnalytics{}, err
	}

	analytics.TopProducts = topProducts(sales)
	analytics.DailyRevenue = sortedDaily(daily)
	return analytics, nil
}

// Statistics агрегирует заказы всей площадки по замороженным итогам.
func (s *service) Statistics() (MarketStatistics, error) {
	stats := MarketStatistics{
		TotalRevenue:    decimal.Zero,
		StatusBreakdown: make(map[domain.OrderStatus]int64),
	}
	sales := make(map[string]*ProductSales)

	err := s.eachOrder(s.orders.ListRecent, func(order domain.Order) {
		stats.TotalOrders++
		stats.StatusBreakdown[order.Status]++
		if order.Status == domain.OrderStatusPending {
			stats.PendingCount++
		}
		if order.Status == domain.OrderStatusCancelled {
			return
		}

		stats.TotalRevenue = stats.TotalRevenue.Add(order.Total)
		for _, item := range order.Items {
			accumulateSales(sales, item)
		}
	})
	if err != nil {
		return MarketStatistics{}, err
	}

	stats.TopProducts = topProducts(sales)
	return stats, nil
}

// eachOrder обходит все страницы выборки и применяет visit к каждому заказу.
func (s *service) eachOrder(
	list func(domain.PageRequest) (domain.OrderPage, error),
	visit func(domain.Order),
) error {
	page := domain.PageRequest{Page: 1, PageSize: analyticsPageSize}
	for {
		result, err := list(page)
		if err != nil {
			return fmt.Errorf("list orders page %d: %w", page.Page, err)
		}
		for _, order := range result.Items {
			visit(order)
		}
		if page.Page >= result.TotalPages || len(result.Items) == 0 {
			return nil
		}
		page.Page++
	}
}

func accumulateSales(sales map[string]*ProductSales, item domain.OrderItem) {
	entry, ok := sales[item.ProductID]
	if !ok {
		entry = &ProductSales{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Revenue:     decimal.Zero,
		}
		sales[item.ProductID] = entry
	}
	entry.Quantity += int64(item.Quantity)
	entry.Revenue = entry.Revenue.Add(item.LineTotal)
}

// topProducts возвращает товары с наибольшей выручкой, стабильно по ID.
func topProducts(sales map[string]*ProductSales) []ProductSales {
	result := make([]ProductSales, 0, len(sales))
	for _, entry := range sales {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Revenue.Equal(result[j].Revenue) {
			return result[i].Revenue.GreaterThan(result[j].Revenue)
		}
		return result[i].ProductID < result[j].ProductID
	})
	if len(result) > topProductsLimit {
		result = result[:topProductsLimit]
	}
	return result
}

func sortedDaily(daily map[string]decimal.Decimal) []DailyRevenue {
	result := make([]DailyRevenue, 0, len(daily))
	for day, revenue := range daily {
		result = append(result, DailyRevenue{Date: day, Revenue: revenue})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result
}
