package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidPeriod = errors.New("period must be one of week, month, year")

const dateLayout = "2006-01-02"

type Service interface {
	DashboardStats(ctx context.Context) (*DashboardStats, error)
	SalesReport(ctx context.Context, period Period) (*SalesReport, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) today() time.Time {
	n := s.now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats, err := s.repo.Stats(ctx, s.today())
	if err != nil {
		return nil, fmt.Errorf("service: failed to build dashboard stats: %w", err)
	}
	return stats, nil
}

// SalesReport covers completed orders from period days ago through today.
// An empty period means a week.
func (s *service) SalesReport(ctx context.Context, period Period) (*SalesReport, error) {
	if period == "" {
		period = PeriodWeek
	}
	days, ok := period.Days()
	if !ok {
		return nil, ErrInvalidPeriod
	}
	end := s.today()
	start := end.AddDate(0, 0, -days)

	var (
		daily      []DailySales
		categories []CategorySales
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		daily, err = s.repo.DailySales(gctx, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.repo.CategorySales(gctx, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("service: failed to build sales report: %w", err)
	}

	report := &SalesReport{
		Period:        period,
		StartDate:     start.Format(dateLayout),
		EndDate:       end.Format(dateLayout),
		DailySales:    daily,
		CategorySales: categories,
		TotalRevenue:  decimal.Zero,
	}
	for i := range report.DailySales {
		d := &report.DailySales[i]
		d.Day = d.Date.Format(dateLayout)
		report.TotalRevenue = report.TotalRevenue.Add(d.Revenue)
		report.TotalOrders += d.Orders
	}
	return report, nil
}
