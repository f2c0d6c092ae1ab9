package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	cafeHttp "github.com/vasiliy-maslov/campus-cafe/internal/handler/http"
	"github.com/vasiliy-maslov/campus-cafe/internal/menu"
	"github.com/vasiliy-maslov/campus-cafe/internal/order"
	"github.com/vasiliy-maslov/campus-cafe/internal/report"
	"github.com/vasiliy-maslov/campus-cafe/internal/student"
)

var (
	adminUser    = &auth.Principal{UserID: uuid.Must(uuid.NewV4()), Username: "admin", Role: auth.RoleAdmin}
	staffUser    = &auth.Principal{UserID: uuid.Must(uuid.NewV4()), Username: "barista", Role: auth.RoleStaff}
	customerUser = &auth.Principal{UserID: uuid.Must(uuid.NewV4()), Username: "alice", Role: auth.RoleCustomer}
)

// asCaller injects p as the authenticated principal; nil leaves the request
// anonymous.
func asCaller(p *auth.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p != nil {
				r = r.WithContext(auth.WithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newTestRouter(caller *auth.Principal, h cafeHttp.RouteRegistrar) *chi.Mux {
	router := chi.NewRouter()
	router.Use(asCaller(caller))
	h.RegisterRoutes(router, auth.NewMiddleware(nil, auth.DefaultPolicy))
	return router
}

func doRequest(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) cafeHttp.ValidationErrorResponse {
	t.Helper()
	var resp cafeHttp.ValidationErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp), "Failed to decode error response body")
	return resp
}

type MockMenuService struct {
	mock.Mock
}

func (m *MockMenuService) CreateCategory(ctx context.Context, c *menu.Category) (*menu.Category, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*menu.Category), args.Error(1)
}

func (m *MockMenuService) GetCategory(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*menu.Category, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*menu.Category), args.Error(1)
}

func (m *MockMenuService) ListCategories(ctx context.Context, caller *auth.Principal) ([]menu.Category, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]menu.Category), args.Error(1)
}

func (m *MockMenuService) UpdateCategory(ctx context.Context, c *menu.Category) (*menu.Category, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*menu.Category), args.Error(1)
}

func (m *MockMenuService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMenuService) CreateItem(ctx context.Context, item *menu.Item) (*menu.Item, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*menu.Item), args.Error(1)
}

func (m *MockMenuService) GetItem(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*menu.Item, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*menu.Item), args.Error(1)
}

func (m *MockMenuService) ListItems(ctx context.Context, caller *auth.Principal, filter menu.ItemFilter) ([]menu.Item, error) {
	args := m.Called(ctx, caller, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]menu.Item), args.Error(1)
}

func (m *MockMenuService) UpdateItem(ctx context.Context, item *menu.Item) (*menu.Item, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*menu.Item), args.Error(1)
}

func (m *MockMenuService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) orderResult(args mock.Arguments) (*order.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) CreateOrder(ctx context.Context, caller *auth.Principal, input order.CreateInput) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, caller, input))
}

func (m *MockOrderService) GetOrder(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, caller, id))
}

func (m *MockOrderService) ListOrders(ctx context.Context, caller *auth.Principal, filter order.Filter) ([]order.Order, error) {
	args := m.Called(ctx, caller, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, caller *auth.Principal, id uuid.UUID, newStatus order.Status) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, caller, id, newStatus))
}

func (m *MockOrderService) UpdatePayment(ctx context.Context, id uuid.UUID, status order.PaymentStatus, method order.PaymentMethod) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, id, status, method))
}

func (m *MockOrderService) AddLine(ctx context.Context, id uuid.UUID, input order.LineInput) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, id, input))
}

func (m *MockOrderService) UpdateLine(ctx context.Context, id, lineID uuid.UUID, update order.LineUpdate) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, id, lineID, update))
}

func (m *MockOrderService) RemoveLine(ctx context.Context, id, lineID uuid.UUID) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, id, lineID))
}

func (m *MockOrderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockStudentService struct {
	mock.Mock
}

func (m *MockStudentService) studentResult(args mock.Arguments) (*student.Student, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*student.Student), args.Error(1)
}

func (m *MockStudentService) mealResult(args mock.Arguments) (*student.MealLog, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*student.MealLog), args.Error(1)
}

func (m *MockStudentService) CreateStudent(ctx context.Context, s *student.Student) (*student.Student, error) {
	return m.studentResult(m.Called(ctx, s))
}

func (m *MockStudentService) GetStudent(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	return m.studentResult(m.Called(ctx, id))
}

func (m *MockStudentService) ListStudents(ctx context.Context, filter student.Filter) ([]student.Student, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]student.Student), args.Error(1)
}

func (m *MockStudentService) UpdateStudent(ctx context.Context, s *student.Student) (*student.Student, error) {
	return m.studentResult(m.Called(ctx, s))
}

func (m *MockStudentService) DeleteStudent(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStudentService) EnsureBadge(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	return m.studentResult(m.Called(ctx, id))
}

func (m *MockStudentService) RegenerateBadge(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	return m.studentResult(m.Called(ctx, id))
}

func (m *MockStudentService) LogMeal(ctx context.Context, input student.MealInput) (*student.MealLog, error) {
	return m.mealResult(m.Called(ctx, input))
}

func (m *MockStudentService) GetMeal(ctx context.Context, id int64) (*student.MealLog, error) {
	return m.mealResult(m.Called(ctx, id))
}

func (m *MockStudentService) ListMeals(ctx context.Context, filter student.MealFilter) ([]student.MealLog, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]student.MealLog), args.Error(1)
}

func (m *MockStudentService) Scan(ctx context.Context, code string) (*student.MealLog, error) {
	return m.mealResult(m.Called(ctx, code))
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) DashboardStats(ctx context.Context) (*report.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.DashboardStats), args.Error(1)
}

func (m *MockReportService) SalesReport(ctx context.Context, period report.Period) (*report.SalesReport, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.SalesReport), args.Error(1)
}
