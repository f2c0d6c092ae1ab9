package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Stats(ctx context.Context, today time.Time) (*DashboardStats, error) {
	args := m.Called(ctx, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DashboardStats), args.Error(1)
}

func (m *mockRepository) DailySales(ctx context.Context, from, to time.Time) ([]DailySales, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]DailySales), args.Error(1)
}

func (m *mockRepository) CategorySales(ctx context.Context, from, to time.Time) ([]CategorySales, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]CategorySales), args.Error(1)
}

func fixedClock() time.Time {
	return time.Date(2025, 6, 15, 18, 30, 0, 0, time.Local)
}

func day(d int) time.Time {
	return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC)
}

func TestSalesReport(t *testing.T) {
	repo := new(mockRepository)
	svc := &service{repo: repo, now: fixedClock}

	repo.On("DailySales", mock.Anything, day(8), day(15)).Return([]DailySales{
		{Date: day(14), Revenue: decimal.RequireFromString("13.23"), Orders: 1},
		{Date: day(15), Revenue: decimal.RequireFromString("9.72"), Orders: 2},
	}, nil).Once()
	repo.On("CategorySales", mock.Anything, day(8), day(15)).Return([]CategorySales{
		{Category: "Coffee", Revenue: decimal.RequireFromString("21.00"), Orders: 3},
	}, nil).Once()

	report, err := svc.SalesReport(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, PeriodWeek, report.Period)
	assert.Equal(t, "2025-06-08", report.StartDate)
	assert.Equal(t, "2025-06-15", report.EndDate)
	assert.Equal(t, "22.95", report.TotalRevenue.StringFixed(2))
	assert.EqualValues(t, 3, report.TotalOrders)
	assert.Equal(t, "2025-06-14", report.DailySales[0].Day)
	assert.Len(t, report.CategorySales, 1)
	repo.AssertExpectations(t)
}

func TestSalesReport_Periods(t *testing.T) {
	testCases := []struct {
		period    Period
		wantStart time.Time
		wantErr   error
	}{
		{period: PeriodMonth, wantStart: time.Date(2025, 5, 16, 0, 0, 0, 0, time.UTC)},
		{period: PeriodYear, wantStart: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)},
		{period: "decade", wantErr: ErrInvalidPeriod},
	}

	for _, tc := range testCases {
		t.Run(string(tc.period), func(t *testing.T) {
			repo := new(mockRepository)
			svc := &service{repo: repo, now: fixedClock}

			if tc.wantErr == nil {
				repo.On("DailySales", mock.Anything, tc.wantStart, day(15)).Return([]DailySales{}, nil).Once()
				repo.On("CategorySales", mock.Anything, tc.wantStart, day(15)).Return([]CategorySales{}, nil).Once()
			}

			report, err := svc.SalesReport(context.Background(), tc.period)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, report.TotalRevenue.IsZero())
			repo.AssertExpectations(t)
		})
	}
}

func TestSalesReport_RepositoryError(t *testing.T) {
	repo := new(mockRepository)
	svc := &service{repo: repo, now: fixedClock}
	boom := errors.New("connection reset")

	repo.On("DailySales", mock.Anything, mock.Anything, mock.Anything).Return(nil, boom).Once()
	repo.On("CategorySales", mock.Anything, mock.Anything, mock.Anything).Return([]CategorySales{}, nil).Maybe()

	_, err := svc.SalesReport(context.Background(), PeriodWeek)
	assert.ErrorIs(t, err, boom)
}

func TestDashboardStats(t *testing.T) {
	repo := new(mockRepository)
	svc := &service{repo: repo, now: fixedClock}
	stats := &DashboardStats{TotalOrders: 10, PendingOrders: 2}

	repo.On("Stats", mock.Anything, day(15)).Return(stats, nil).Once()

	got, err := svc.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stats, got)
}
