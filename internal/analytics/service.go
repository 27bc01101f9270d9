package analytics

import (
	"context"
	"fmt"
	"time"

	"sooicy-orders/internal/models"
	"sooicy-orders/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const (
	DefaultAnalyticsDays = 30
	topProductsLimit     = 5
)

// Service handles analytics operations
type Service struct {
	db  *DB
	now func() time.Time
}

// NewService creates a new analytics service
func NewService(db *bun.DB) *Service {
	return &Service{db: NewDB(db), now: time.Now}
}

// DashboardStats is the headline view of the store. Revenue counts delivered
// orders only.
type DashboardStats struct {
	TotalOrders      int             `json:"total_orders"`
	PendingOrders    int             `json:"pending_orders"`
	DeliveringOrders int             `json:"delivering_orders"`
	CompletedOrders  int             `json:"completed_orders"`
	CancelledOrders  int             `json:"cancelled_orders"`
	OrdersToday      int             `json:"orders_today"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	RevenueToday     decimal.Decimal `json:"revenue_today"`
	TotalRiders      int             `json:"total_riders"`
	AvailableRiders  int             `json:"available_riders"`
	TotalProducts    int             `json:"total_products"`
	TotalLocations   int             `json:"total_locations"`
}

// DailySalesMetrics contains metrics for a single day
type DailySalesMetrics struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

type ProductSalesMetrics struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SalesAnalytics covers delivered sales over a trailing window of days.
type SalesAnalytics struct {
	DailySales          []DailySalesMetrics        `json:"daily_sales"`
	TopProducts         []ProductSalesMetrics      `json:"top_products"`
	CategoryPerformance map[string]decimal.Decimal `json:"category_performance"`
	DateRange           DateRange                  `json:"date_range"`
}

// GetDashboardStats returns order, revenue, rider and catalog counters.
func (s *Service) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	today := utils.StartOfDay(s.now())
	tomorrow := today.AddDate(0, 0, 1)
	var none time.Time

	stats := &DashboardStats{}
	counts := []struct {
		dst    *int
		status models.OrderStatus
		from   time.Time
		to     time.Time
	}{
		{&stats.TotalOrders, "", none, none},
		{&stats.PendingOrders, models.OrderPending, none, none},
		{&stats.DeliveringOrders, models.OrderDelivering, none, none},
		{&stats.CompletedOrders, models.OrderDelivered, none, none},
		{&stats.CancelledOrders, models.OrderCancelled, none, none},
		{&stats.OrdersToday, "", today, tomorrow},
	}
	for _, c := range counts {
		n, err := s.db.CountOrders(ctx, c.status, c.from, c.to)
		if err != nil {
			return nil, fmt.Errorf("count orders: %w", err)
		}
		*c.dst = n
	}

	var err error
	if stats.TotalRevenue, err = s.db.SumRevenue(ctx, models.OrderDelivered, none, none); err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}
	if stats.RevenueToday, err = s.db.SumRevenue(ctx, models.OrderDelivered, today, tomorrow); err != nil {
		return nil, fmt.Errorf("sum revenue today: %w", err)
	}
	stats.TotalRevenue = stats.TotalRevenue.Round(2)
	stats.RevenueToday = stats.RevenueToday.Round(2)

	if stats.TotalRiders, err = s.db.CountRiders(ctx, ""); err != nil {
		return nil, fmt.Errorf("count riders: %w", err)
	}
	if stats.AvailableRiders, err = s.db.CountRiders(ctx, models.RiderAvailable); err != nil {
		return nil, fmt.Errorf("count available riders: %w", err)
	}
	if stats.TotalProducts, err = s.db.CountProducts(ctx); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	if stats.TotalLocations, err = s.db.CountLocations(ctx); err != nil {
		return nil, fmt.Errorf("count locations: %w", err)
	}
	return stats, nil
}

// GetSalesAnalytics returns one bucket per day from today-days to today
// inclusive, the top products and revenue per menu category.
func (s *Service) GetSalesAnalytics(ctx context.Context, days int) (*SalesAnalytics, error) {
	if days <= 0 {
		days = DefaultAnalyticsDays
	}
	end := utils.StartOfDay(s.now())
	start := end.AddDate(0, 0, -days)

	rows, err := s.db.GetDeliveredSince(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("load delivered orders: %w", err)
	}

	buckets := make(map[string]*DailySalesMetrics, days+1)
	daily := make([]DailySalesMetrics, 0, days+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		daily = append(daily, DailySalesMetrics{Date: d.Format(utils.DateLayout), Revenue: decimal.Zero})
	}
	for i := range daily {
		buckets[daily[i].Date] = &daily[i]
	}
	for _, r := range rows {
		b, ok := buckets[r.CreatedAt.UTC().Format(utils.DateLayout)]
		if !ok {
			continue
		}
		b.Revenue = b.Revenue.Add(r.Total)
		b.Orders++
	}
	for i := range daily {
		daily[i].Revenue = daily[i].Revenue.Round(2)
	}

	top, err := s.db.GetTopProducts(ctx, topProductsLimit)
	if err != nil {
		return nil, fmt.Errorf("load top products: %w", err)
	}
	topProducts := make([]ProductSalesMetrics, 0, len(top))
	for _, p := range top {
		topProducts = append(topProducts, ProductSalesMetrics{
			ID:      p.ProductID,
			Name:    p.Name,
			Orders:  p.OrderCount,
			Revenue: p.Revenue.Round(2),
		})
	}

	categories, err := s.db.GetCategoryRevenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("load category revenue: %w", err)
	}
	byCategory := make(map[string]decimal.Decimal, len(categories))
	for _, c := range categories {
		byCategory[c.Category] = c.Revenue.Round(2)
	}
	performance := make(map[string]decimal.Decimal, len(models.ProductCategories))
	for _, c := range models.ProductCategories {
		rev, ok := byCategory[c.Value]
		if !ok {
			rev = decimal.Zero
		}
		performance[c.Label] = rev
	}

	return &SalesAnalytics{
		DailySales:          daily,
		TopProducts:         topProducts,
		CategoryPerformance: performance,
		DateRange: DateRange{
			Start: start.Format(utils.DateLayout),
			End:   end.Format(utils.DateLayout),
		},
	}, nil
}
