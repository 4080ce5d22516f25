package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/triviabees/internal/clock"
	"github.com/smallbiznis/triviabees/internal/commission/domain"
	"github.com/smallbiznis/triviabees/internal/commission/repository"
	"github.com/smallbiznis/triviabees/internal/config"
	orderdomain "github.com/smallbiznis/triviabees/internal/order/domain"
	orderrepo "github.com/smallbiznis/triviabees/internal/order/repository"
	profiledomain "github.com/smallbiznis/triviabees/internal/profile/domain"
	profilerepo "github.com/smallbiznis/triviabees/internal/profile/repository"
	"github.com/smallbiznis/triviabees/internal/ratelimit"
	referraldomain "github.com/smallbiznis/triviabees/internal/referral/domain"
	referralrepo "github.com/smallbiznis/triviabees/internal/referral/repository"
	referralsvc "github.com/smallbiznis/triviabees/internal/referral/service"
	"github.com/smallbiznis/triviabees/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	clock  *clock.FakeClock
	locker *ratelimit.DistributionLocker
	svc    domain.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&profiledomain.Profile{},
		&referraldomain.Referral{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&domain.CommissionRecord{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fc := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	locker := ratelimit.NewLocalDistributionLocker(time.Minute)
	log := zap.NewNop()
	referrals := referralsvc.New(referralsvc.Params{
		DB:          db,
		Log:         log,
		Repo:        referralrepo.Provide(),
		ProfileRepo: profilerepo.Provide(),
	})

	svc := New(Params{
		DB:          db,
		Log:         log,
		Clock:       fc,
		GenID:       node,
		Rewards:     config.NewStaticRewardsConfigHolder(config.DefaultRewardsConfig()),
		Repo:        repository.Provide(),
		OrderRepo:   orderrepo.Provide(),
		ProfileRepo: profilerepo.Provide(),
		ReferralSvc: referrals,
		Locker:      locker,
	})
	return &fixture{db: db, clock: fc, locker: locker, svc: svc}
}

// chain creates profiles for ids and links ids[i] -> ids[i+1].
func (f *fixture) chain(t *testing.T, ids ...string) {
	t.Helper()
	for i, id := range ids {
		require.NoError(t, f.db.Create(&profiledomain.Profile{ID: id, ReferralCode: "CODE-" + id}).Error)
		edge := referraldomain.Referral{UserID: id}
		if i+1 < len(ids) {
			parent := ids[i+1]
			edge.ReferredBy = &parent
		}
		require.NoError(t, f.db.Create(&edge).Error)
	}
}

func (f *fixture) order(t *testing.T, id, userID string, items ...[2]string) {
	t.Helper()
	order := orderdomain.Order{ID: id, UserID: userID, Status: orderdomain.OrderStatusPaid}
	for i, item := range items {
		order.Items = append(order.Items, orderdomain.OrderItem{
			ID:                   fmt.Sprintf("%s-item-%d", id, i),
			TotalPrice:           decimal.RequireFromString(item[0]),
			CommissionPercentage: decimal.RequireFromString(item[1]),
		})
	}
	require.NoError(t, f.db.Create(&order).Error)
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	var p profiledomain.Profile
	require.NoError(t, f.db.Where("id = ?", id).Take(&p).Error)
	return p.Balance
}

func (f *fixture) records(t *testing.T, orderID string) []domain.CommissionRecord {
	t.Helper()
	records, err := repository.Provide().ListByOrder(context.Background(), f.db, orderID)
	require.NoError(t, err)
	return records
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "want %s got %s", want, got.String())
}

func TestDistributeThreeLevels(t *testing.T) {
	f := setup(t)
	f.chain(t, "buyer", "l1", "l2", "l3", "l4")
	f.order(t, "order-1", "buyer", [2]string{"1000", "10"})

	res, err := f.svc.Distribute(context.Background(), domain.DistributeRequest{OrderID: " order-1 "})
	require.NoError(t, err)

	assert.Equal(t, "order-1", res.OrderID)
	assertDecimal(t, "100", res.CommissionPool)
	assert.Equal(t, 3, res.DistributedCount)
	assertDecimal(t, "100", res.TotalDistributed)
	assert.False(t, res.AlreadyDistributed)

	assertDecimal(t, "50", f.balance(t, "l1"))
	assertDecimal(t, "30", f.balance(t, "l2"))
	assertDecimal(t, "20", f.balance(t, "l3"))
	assertDecimal(t, "0", f.balance(t, "l4"))
	assertDecimal(t, "0", f.balance(t, "buyer"))

	records := f.records(t, "order-1")
	require.Len(t, records, 3)
	for i, record := range records {
		assert.Equal(t, i+1, record.Level)
		assert.Equal(t, "buyer", record.SourceUserID)
		assert.Equal(t, domain.CommissionStatusPending, record.Status)
		assert.NotZero(t, record.ID)
	}
}

func TestDistributeTwoUplinesForfeitsThirdLevel(t *testing.T) {
	f := setup(t)
	f.chain(t, "buyer", "l1", "l2")
	f.order(t, "order-1", "buyer", [2]string{"1000", "10"})

	res, err := f.svc.Distribute(context.Background(), domain.DistributeRequest{OrderID: "order-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.DistributedCount)
	assertDecimal(t, "80", res.TotalDistributed)
	require.Len(t, res.Distributions, 2)
	assertDecimal(t, "50", res.Distributions[0].Amount)
	assertDecimal(t, "30", res.Distributions[1].Amount)
	assert.Len(t, f.records(t, "order-1"), 2)
}

func TestDistributeSingleUpline(t *testing.T) {
	f := setup(t)
	f.chain(t, "buyer", "l1")
	f.order(t, "order-1", "buyer", [2]string{"40", "50"})

	res, err := f.svc.Distribute(context.Background(), domain.DistributeRequest{OrderID: "order-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.DistributedCount)
	assertDecimal(t, "10", res.TotalDistributed)
	assertDecimal(t, "10", f.balance(t, "l1"))
}

func TestDistributeRootBuyer(t *testing.T) {
	f := setup(t)
	f.chain(t, "root")
	f.order(t, "order-1", "root", [2]string{"1000", "10"})

	res, err := f.svc.Distribute(context.Background(), domain.DistributeRequest{OrderID: "order-1"})
	require.NoError(t, err)

	assert.Equal(t, 0, res.DistributedCount)
	assertDecimal(t, "0", res.TotalDistributed)
	assertDecimal(t, "100", res.CommissionPool)
	assert.Empty(t, res.Distributions)
	assert.Empty(t, f.records(t, "order-1"))
}

func TestDistributeZeroPool(t *testing.T) {
	f := setup(t)
	f.chain(t, "buyer", "l1")
	f.order(t, "no-items", "buyer")
	f.order(t, "zero-pct", "buyer", [2]string{"500", "0"})

	for _, id := range []string{"no-items", "zero-pct"} {
		res, err := f.svc.Distribute(context.Background(), domain.DistributeRequest{OrderID: id})
		require.NoError(t, err, id)
		assert.Equal(t, 0, res.DistributedCount, id)
		assert.Empty(t, f.records(t, id), id)
	}
	assertDecimal(t, "0", f.balance(t, "l1"))
}

func TestDistributeIsIdempotent(t *testing.T) {
	f := setup(t)
	f.chain(t, "buyer", "l1", "l2", "l3")
	f.order(t, "order-1", "buyer", [2]string{"1000", "10"})
	ctx := context.Background()

	_, err := f.svc.Distribute(ctx, domain.DistributeRequest{OrderID: "order-1"})
	require.NoError(t, err)

	again, err := f.svc.Distribute(ctx, domain.DistributeRequest{OrderID: "order-1"})
	require.NoError(t, err)
	assert.True(t, again.AlreadyDistributed)
	assert.Equal(t, 0, again.DistributedCount)
	assertDecimal(t, "0", again.TotalDistributed)

	assert.Len(t, f.records(t, "order-1"), 3)
	assertDecimal(t, "50", f.balance(t, "l1"))
	assertDecimal(t, "30", f.balance(t, "l2"))
	assertDecimal(t, "20", f.balance(t, "l3"))
}

func TestDistributeRerunAfterChainGrowsPaysNothing(t *testing.T) {
	f := setup(t)
	f.chain(t, "buyer", "l1", "l2")
	f.order(t, "order-1", "buyer", [2]string{"1000", "10"})
	ctx := context.Background()

	first, err := f.svc.Distribute(ctx, domain.DistributeRequest{OrderID: "order-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, first.DistributedCount)

	require.NoError(t, f.db.Create(&profiledomain.Profile{ID: "late", ReferralCode: "CODE-late"}).Error)
	require.NoError(t, f.db.Create(&referraldomain.Referral{UserID: "late"}).Error)
	require.NoError(t, f.db.Model(&referraldomain.Referral{}).Where("user_id = ?", "l2").Update("referred_by", "late").Error)

	again, err := f.svc.Distribute(ctx, domain.DistributeRequest{OrderID: "order-1"})
	require.NoError(t, err)
	assert.True(t, again.AlreadyDistributed)
	assert.Equal(t, 0, again.DistributedCount)
	assertDecimal(t, "0", again.TotalDistributed)
	assert.Empty(t, again.Distributions)

	assert.Len(t, f.records(t, "order-1"), 2)
	assertDecimal(t, "0", f.balance(t, "late"))
	assertDecimal(t, "50", f.balance(t, "l1"))
	assertDecimal(t, "30", f.balance(t, "l2"))
}

func TestDistributeRerunWithPartialRecordsPaysNothing(t *testing.T) {
	f := setup(t)
	f.chain(t, "buyer", "l1", "l2", "l3")
	f.order(t, "order-1", "buyer", [2]string{"1000", "10"})
	ctx := context.Background()

	_, err := f.svc.Distribute(ctx, domain.DistributeRequest{OrderID: "order-1"})
	require.NoError(t, err)

	// With level 1 gone a per-level check would
	// pay level 1 again.
	require.NoError(t, f.db.Where("order_id = ? AND level = ?", "order-1", 1).Delete(&domain.CommissionRecord{}).Error)

	again, err := f.svc.Distribute(ctx, domain.DistributeRequest{OrderID: "order-1"})
	require.NoError(t, err)
	assert.True(t, again.AlreadyDistributed)
	assert.Len(t, f.records(t, "order-1"), 2)
	assertDecimal(t, "50", f.balance(t, "l1"))
}

func TestDistributeRollsBackWhenBeneficiaryMissing(t *testing.T) {
	f := setup(t)
	f.chain(t, "buyer", "l1")
	ghost := "ghost"
	require.NoError(t, f.db.Model(&referraldomain.Referral{}).Where("user_id = ?", "l1").Update("referred_by", ghost).Error)
	f.order(t, "order-1", "buyer", [2]string{"100", "10"})

	_, err := f.svc.Distribute(context.Background(), domain.DistributeRequest{OrderID: "order-1"})
	assert.ErrorIs(t, err, domain.ErrBeneficiaryNotFound)

	assert.Empty(t, f.records(t, "order-1"))
	assertDecimal(t, "0", f.balance(t, "l1"))
}

func TestDistributeValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Distribute(ctx, domain.DistributeRequest{OrderID: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidOrderID)

	_, err = f.svc.Distribute(ctx, domain.DistributeRequest{OrderID: "missing"})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestDistributeRejectsConcurrentRun(t *testing.T) {
	f := setup(t)
	f.chain(t, "buyer", "l1")
	f.order(t, "order-1", "buyer", [2]string{"100", "10"})
	ctx := context.Background()

	token, ok, err := f.locker.TryLockOrder(ctx, "order-1")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.Distribute(ctx, domain.DistributeRequest{OrderID: "order-1"})
	assert.ErrorIs(t, err, domain.ErrDistributionInProgress)

	require.NoError(t, f.locker.ReleaseOrder(ctx, "order-1", token))
	res, err := f.svc.Distribute(ctx, domain.DistributeRequest{OrderID: "order-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.DistributedCount)
}

func TestListByUserPaginates(t *testing.T) {
	f := setup(t)
	f.chain(t, "buyer", "l1")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("order-%d", i)
		f.order(t, id, "buyer", [2]string{"100", "10"})
		_, err := f.svc.Distribute(ctx, domain.DistributeRequest{OrderID: id})
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	first, err := f.svc.ListByUser(ctx, domain.ListCommissionRequest{UserID: "l1", PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Commissions, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "order-2", first.Commissions[0].OrderID)
	assert.Equal(t, "order-1", first.Commissions[1].OrderID)

	second, err := f.svc.ListByUser(ctx, domain.ListCommissionRequest{UserID: "l1", PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Commissions, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "order-0", second.Commissions[0].OrderID)

	_, err = f.svc.ListByUser(ctx, domain.ListCommissionRequest{UserID: "l1", PageToken: "%%%"})
	assert.ErrorIs(t, err, pagination.ErrInvalidPageToken)

	_, err = f.svc.ListByUser(ctx, domain.ListCommissionRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)
}

func TestSettlePendingApprovesOnlyOldRecords(t *testing.T) {
	f := setup(t)
	f.chain(t, "buyer", "l1")
	ctx := context.Background()

	f.order(t, "old", "buyer", [2]string{"100", "10"})
	_, err := f.svc.Distribute(ctx, domain.DistributeRequest{OrderID: "old"})
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	f.order(t, "new", "buyer", [2]string{"100", "10"})
	_, err = f.svc.Distribute(ctx, domain.DistributeRequest{OrderID: "new"})
	require.NoError(t, err)

	count, err := f.svc.SettlePending(ctx, f.clock.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	old := f.records(t, "old")
	require.Len(t, old, 1)
	assert.Equal(t, domain.CommissionStatusApproved, old[0].Status)
	require.NotNil(t, old[0].SettledAt)

	fresh := f.records(t, "new")
	require.Len(t, fresh, 1)
	assert.Equal(t, domain.CommissionStatusPending, fresh[0].Status)
	assert.Nil(t, fresh[0].SettledAt)

	_, err = f.svc.SettlePending(ctx, time.Time{})
	assert.Error(t, err)
}
