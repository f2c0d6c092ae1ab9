package menu_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/menu"
)

type MockMenuRepository struct {
	mock.Mock
}

func (m *MockMenuRepository) CreateCategory(ctx context.Context, c *menu.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockMenuRepository) GetCategory(ctx context.Context, id uuid.UUID) (*menu.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*menu.Category), args.Error(1)
}

func (m *MockMenuRepository) ListCategories(ctx context.Context, activeOnly bool) ([]menu.Category, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]menu.Category), args.Error(1)
}

func (m *MockMenuRepository) UpdateCategory(ctx context.Context, c *menu.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockMenuRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMenuRepository) CreateItem(ctx context.Context, item *menu.Item) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockMenuRepository) GetItem(ctx context.Context, id uuid.UUID) (*menu.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*menu.Item), args.Error(1)
}

func (m *MockMenuRepository) ListItems(ctx context.Context, filter menu.ItemFilter) ([]menu.Item, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]menu.Item), args.Error(1)
}

func (m *MockMenuRepository) UpdateItem(ctx context.Context, item *menu.Item) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockMenuRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

var (
	customer = &auth.Principal{UserID: uuid.Must(uuid.NewV4()), Role: auth.RoleCustomer}
	staff    = &auth.Principal{UserID: uuid.Must(uuid.NewV4()), Role: auth.RoleStaff}
)

func TestItem_ProfitMargin(t *testing.T) {
	testCases := []struct {
		price, cost, want string
	}{
		{"4.00", "1.00", "75"},
		{"3.00", "2.00", "33.33"},
		{"2.50", "0", "0"},
	}
	for _, tc := range testCases {
		item := menu.Item{Price: decimal.RequireFromString(tc.price), Cost: decimal.RequireFromString(tc.cost)}
		assert.True(t, decimal.RequireFromString(tc.want).Equal(item.ProfitMargin()), "price %s cost %s: got %s", tc.price, tc.cost, item.ProfitMargin())
	}
}

func TestMenuService_CreateItem_Validation(t *testing.T) {
	testCases := []struct {
		name      string
		item      menu.Item
		wantErrIs error
	}{
		{name: "zero price", item: menu.Item{Price: decimal.Zero}, wantErrIs: menu.ErrInvalidPrice},
		{name: "negative cost", item: menu.Item{Price: decimal.NewFromInt(2), Cost: decimal.NewFromInt(-1)}, wantErrIs: menu.ErrInvalidCost},
		{name: "bad availability", item: menu.Item{Price: decimal.NewFromInt(2), Availability: "soon"}, wantErrIs: menu.ErrInvalidAvailability},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := new(MockMenuRepository)
			svc := menu.NewService(mockRepo)

			_, err := svc.CreateItem(context.Background(), &tc.item)
			require.ErrorIs(t, err, tc.wantErrIs)
			mockRepo.AssertNotCalled(t, "CreateItem", mock.Anything, mock.Anything)
		})
	}
}

func TestMenuService_CreateItem_Defaults(t *testing.T) {
	mockRepo := new(MockMenuRepository)
	svc := menu.NewService(mockRepo)

	mockRepo.On("CreateItem", mock.Anything, mock.MatchedBy(func(i *menu.Item) bool {
		return i.Availability == menu.Available && i.PreparationTime == 5 && i.Price.String() == "3.5"
	})).Return(nil).Once()

	item, err := svc.CreateItem(context.Background(), &menu.Item{Name: "Latte", Price: decimal.RequireFromString("3.499")})
	require.NoError(t, err)
	assert.Equal(t, "3.50", item.Price.StringFixed(2))
	mockRepo.AssertExpectations(t)
}

func TestMenuService_ListItems_ScopesCustomers(t *testing.T) {
	mockRepo := new(MockMenuRepository)
	svc := menu.NewService(mockRepo)

	mockRepo.On("ListItems", mock.Anything, menu.ItemFilter{Search: "tea", OrderableOnly: true}).
		Return([]menu.Item{{Name: "Green tea"}}, nil).Once()
	mockRepo.On("ListItems", mock.Anything, menu.ItemFilter{Search: "tea"}).
		Return([]menu.Item{{Name: "Green tea"}, {Name: "Old tea"}}, nil).Once()

	items, err := svc.ListItems(context.Background(), customer, menu.ItemFilter{Search: "tea"})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = svc.ListItems(context.Background(), staff, menu.ItemFilter{Search: "tea"})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	mockRepo.AssertExpectations(t)
}

func TestMenuService_GetItem_HidesUnavailableFromCustomers(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	soldOut := &menu.Item{ID: id, Name: "Bagel", IsActive: true, Availability: menu.OutOfStock}

	mockRepo := new(MockMenuRepository)
	svc := menu.NewService(mockRepo)
	mockRepo.On("GetItem", mock.Anything, id).Return(soldOut, nil).Twice()

	_, err := svc.GetItem(context.Background(), customer, id)
	require.ErrorIs(t, err, menu.ErrItemNotFound)

	got, err := svc.GetItem(context.Background(), staff, id)
	require.NoError(t, err)
	assert.Equal(t, "Bagel", got.Name)
	mockRepo.AssertExpectations(t)
}

func TestMenuService_ListCategories(t *testing.T) {
	mockRepo := new(MockMenuRepository)
	svc := menu.NewService(mockRepo)

	mockRepo.On("ListCategories", mock.Anything, true).Return([]menu.Category{{Name: "Drinks"}}, nil).Once()
	mockRepo.On("ListCategories", mock.Anything, false).Return([]menu.Category{{Name: "Drinks"}, {Name: "Retired"}}, nil).Once()

	got, err := svc.ListCategories(context.Background(), customer)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = svc.ListCategories(context.Background(), staff)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	mockRepo.AssertExpectations(t)
}
