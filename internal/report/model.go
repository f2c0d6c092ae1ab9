package report

import (
	"time"

	"github.com/shopspring/decimal"
)

type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Days is the look-back window of the period.
func (p Period) Days() (int, bool) {
	switch p {
	case PeriodWeek:
		return 7, true
	case PeriodMonth:
		return 30, true
	case PeriodYear:
		return 365, true
	}
	return 0, false
}

type DashboardStats struct {
	TotalOrders    int64           `db:"total_orders" json:"total_orders"`
	TotalRevenue   decimal.Decimal `db:"total_revenue" json:"total_revenue"`
	TotalCustomers int64           `db:"total_customers" json:"total_customers"`
	TotalMenuItems int64           `db:"total_menu_items" json:"total_menu_items"`
	PendingOrders  int64           `db:"pending_orders" json:"pending_orders"`
	LowStockItems  int64           `db:"low_stock_items" json:"low_stock_items"`
	TodayRevenue   decimal.Decimal `db:"today_revenue" json:"today_revenue"`
	TodayOrders    int64           `db:"today_orders" json:"today_orders"`
	TodayMeals     int64           `db:"today_meals" json:"today_meals"`
}

type DailySales struct {
	Date    time.Time       `db:"day" json:"-"`
	Day     string          `db:"-" json:"date"`
	Revenue decimal.Decimal `db:"revenue" json:"revenue"`
	Orders  int64           `db:"orders" json:"orders"`
}

type CategorySales struct {
	Category string          `db:"category" json:"category"`
	Revenue  decimal.Decimal `db:"revenue" json:"revenue"`
	Orders   int64           `db:"orders" json:"orders"`
}

type SalesReport struct {
	Period        Period          `json:"period"`
	StartDate     string          `json:"start_date"`
	EndDate       string          `json:"end_date"`
	DailySales    []DailySales    `json:"daily_sales"`
	CategorySales []CategorySales `json:"category_sales"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalOrders   int64           `json:"total_orders"`
}
