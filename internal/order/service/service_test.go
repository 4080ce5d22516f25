package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/triviabees/internal/clock"
	commissiondomain "github.com/smallbiznis/triviabees/internal/commission/domain"
	"github.com/smallbiznis/triviabees/internal/order/domain"
	"github.com/smallbiznis/triviabees/internal/order/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockCommissionService struct {
	mock.Mock
}

func (m *mockCommissionService) Distribute(ctx context.Context, req commissiondomain.DistributeRequest) (commissiondomain.DistributeResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(commissiondomain.DistributeResult), args.Error(1)
}

func (m *mockCommissionService) ListByUser(ctx context.Context, req commissiondomain.ListCommissionRequest) (commissiondomain.ListCommissionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(commissiondomain.ListCommissionResponse), args.Error(1)
}

func (m *mockCommissionService) SettlePending(ctx context.Context, createdBefore time.Time) (int64, error) {
	args := m.Called(ctx, createdBefore)
	return args.Get(0).(int64), args.Error(1)
}

func setup(t *testing.T) (*gorm.DB, *mockCommissionService, domain.Service) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Order{}, &domain.OrderItem{}))

	commissions := new(mockCommissionService)
	svc := New(Params{
		DB:            db,
		Log:           zap.NewNop(),
		Clock:         clock.NewFakeClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)),
		Repo:          repository.Provide(),
		CommissionSvc: commissions,
	})
	return db, commissions, svc
}

func createOrder(t *testing.T, db *gorm.DB, id string, status domain.OrderStatus) {
	t.Helper()
	require.NoError(t, db.Create(&domain.Order{
		ID:          id,
		UserID:      "buyer",
		Status:      status,
		TotalAmount: decimal.NewFromInt(250),
		Items: []domain.OrderItem{
			{ID: id + "-a", ProductID: "p-1", Quantity: 2, TotalPrice: decimal.NewFromInt(200), CommissionPercentage: decimal.NewFromInt(10)},
			{ID: id + "-b", ProductID: "p-2", Quantity: 1, TotalPrice: decimal.NewFromInt(50), CommissionPercentage: decimal.NewFromInt(5)},
		},
	}).Error)
}

func TestGetLoadsItems(t *testing.T) {
	db, _, svc := setup(t)
	createOrder(t, db, "o-1", domain.OrderStatusPending)

	order, err := svc.Get(context.Background(), domain.GetOrderRequest{ID: "o-1"})
	require.NoError(t, err)
	assert.Equal(t, "buyer", order.UserID)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "p-1", order.Items[0].ProductID)

	_, err = svc.Get(context.Background(), domain.GetOrderRequest{ID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(context.Background(), domain.GetOrderRequest{ID: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestMarkPaidTransitionsAndDistributes(t *testing.T) {
	db, commissions, svc := setup(t)
	createOrder(t, db, "o-1", domain.OrderStatusPending)

	dist := commissiondomain.DistributeResult{OrderID: "o-1", DistributedCount: 2}
	commissions.On("Distribute", mock.Anything, commissiondomain.DistributeRequest{OrderID: "o-1"}).Return(dist, nil).Twice()

	res, err := svc.MarkPaid(context.Background(), domain.MarkPaidRequest{ID: "o-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, res.Order.Status)
	assert.Equal(t, 2, res.Distribution.DistributedCount)

	// A second call replays the distribution without changing status.
	res, err = svc.MarkPaid(context.Background(), domain.MarkPaidRequest{ID: "o-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, res.Order.Status)
	commissions.AssertExpectations(t)
}

func TestMarkPaidAcceptsCompleted(t *testing.T) {
	db, commissions, svc := setup(t)
	createOrder(t, db, "o-1", domain.OrderStatusCompleted)
	commissions.On("Distribute", mock.Anything, mock.Anything).Return(commissiondomain.DistributeResult{OrderID: "o-1"}, nil).Once()

	res, err := svc.MarkPaid(context.Background(), domain.MarkPaidRequest{ID: "o-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, res.Order.Status)
	commissions.AssertExpectations(t)
}

func TestMarkPaidRejectsClosedOrders(t *testing.T) {
	db, commissions, svc := setup(t)
	createOrder(t, db, "cancelled", domain.OrderStatusCancelled)
	createOrder(t, db, "refunded", domain.OrderStatusRefunded)

	for _, id := range []string{"cancelled", "refunded"} {
		_, err := svc.MarkPaid(context.Background(), domain.MarkPaidRequest{ID: id})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, id)
	}
	commissions.AssertNotCalled(t, "Distribute", mock.Anything, mock.Anything)
}

func TestMarkPaidSurfacesDistributionFailure(t *testing.T) {
	db, commissions, svc := setup(t)
	createOrder(t, db, "o-1", domain.OrderStatusPending)
	boom := errors.New("boom")
	commissions.On("Distribute", mock.Anything, mock.Anything).Return(commissiondomain.DistributeResult{}, boom).Once()

	res, err := svc.MarkPaid(context.Background(), domain.MarkPaidRequest{ID: "o-1"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, domain.OrderStatusPaid, res.Order.Status)
}
