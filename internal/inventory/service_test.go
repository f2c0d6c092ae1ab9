package inventory_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/inventory"
	"github.com/vasiliy-maslov/campus-cafe/internal/notification"
)

type MockInventoryRepository struct {
	mock.Mock
}

func (m *MockInventoryRepository) Create(ctx context.Context, item *inventory.Item) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockInventoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*inventory.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Item), args.Error(1)
}

func (m *MockInventoryRepository) List(ctx context.Context, filter inventory.Filter) ([]inventory.Item, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.Item), args.Error(1)
}

func (m *MockInventoryRepository) Update(ctx context.Context, item *inventory.Item) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockInventoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockInventoryRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta int, restock bool) (*inventory.Item, error) {
	args := m.Called(ctx, id, delta, restock)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Item), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, e notification.Event) error {
	return m.Called(ctx, e).Error(0)
}

func TestItem_Derived(t *testing.T) {
	item := inventory.Item{CurrentStock: 10, MinimumStock: 10, CostPerUnit: decimal.RequireFromString("0.35")}
	assert.True(t, item.IsLowStock())
	assert.Equal(t, "3.50", item.StockValue().StringFixed(2))

	item.CurrentStock = 11
	assert.False(t, item.IsLowStock())
}

func TestCreateItem(t *testing.T) {
	t.Run("defaults unit", func(t *testing.T) {
		repo := new(MockInventoryRepository)
		svc := inventory.NewService(repo, new(MockPublisher))
		repo.On("Create", mock.Anything, mock.MatchedBy(func(i *inventory.Item) bool { return i.Unit == "pieces" })).Return(nil).Once()

		item, err := svc.CreateItem(context.Background(), &inventory.Item{Name: "Cups", CurrentStock: 100, MinimumStock: 20})
		require.NoError(t, err)
		assert.Equal(t, inventory.DefaultUnit, item.Unit)
		repo.AssertExpectations(t)
	})

	t.Run("negative stock", func(t *testing.T) {
		svc := inventory.NewService(new(MockInventoryRepository), new(MockPublisher))
		_, err := svc.CreateItem(context.Background(), &inventory.Item{Name: "Cups", CurrentStock: -1})
		assert.ErrorIs(t, err, inventory.ErrInvalidStock)
	})

	t.Run("negative cost", func(t *testing.T) {
		svc := inventory.NewService(new(MockInventoryRepository), new(MockPublisher))
		_, err := svc.CreateItem(context.Background(), &inventory.Item{Name: "Cups", CostPerUnit: decimal.NewFromInt(-1)})
		assert.ErrorIs(t, err, inventory.ErrInvalidCost)
	})
}

func TestRestock(t *testing.T) {
	repo := new(MockInventoryRepository)
	svc := inventory.NewService(repo, new(MockPublisher))
	id := uuid.Must(uuid.NewV4())

	_, err := svc.Restock(context.Background(), id, 0)
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)

	repo.On("AdjustStock", mock.Anything, id, 25, true).Return(&inventory.Item{ID: id, CurrentStock: 30}, nil).Once()
	item, err := svc.Restock(context.Background(), id, 25)
	require.NoError(t, err)
	assert.Equal(t, 30, item.CurrentStock)
	repo.AssertExpectations(t)
}

func TestConsume(t *testing.T) {
	staff := &auth.Principal{UserID: uuid.Must(uuid.NewV4()), Role: auth.RoleStaff}
	id := uuid.Must(uuid.NewV4())

	t.Run("crossing the minimum notifies", func(t *testing.T) {
		repo := new(MockInventoryRepository)
		pub := new(MockPublisher)
		svc := inventory.NewService(repo, pub)

		repo.On("AdjustStock", mock.Anything, id, -5, false).
			Return(&inventory.Item{ID: id, Name: "Milk", Unit: "liters", CurrentStock: 8, MinimumStock: 10}, nil).Once()
		pub.On("Publish", mock.Anything, mock.MatchedBy(func(e notification.Event) bool {
			return e.UserID == staff.UserID && e.Type == notification.TypeInventory
		})).Return(nil).Once()

		item, err := svc.Consume(context.Background(), staff, id, 5)
		require.NoError(t, err)
		assert.True(t, item.IsLowStock())
		pub.AssertExpectations(t)
	})

	t.Run("already low stays quiet", func(t *testing.T) {
		repo := new(MockInventoryRepository)
		pub := new(MockPublisher)
		svc := inventory.NewService(repo, pub)

		repo.On("AdjustStock", mock.Anything, id, -1, false).
			Return(&inventory.Item{ID: id, Name: "Milk", CurrentStock: 4, MinimumStock: 10}, nil).Once()

		_, err := svc.Consume(context.Background(), staff, id, 1)
		require.NoError(t, err)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("insufficient stock", func(t *testing.T) {
		repo := new(MockInventoryRepository)
		svc := inventory.NewService(repo, new(MockPublisher))
		repo.On("AdjustStock", mock.Anything, id, -50, false).Return(nil, inventory.ErrInsufficientStock).Once()

		_, err := svc.Consume(context.Background(), staff, id, 50)
		assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
	})
}
