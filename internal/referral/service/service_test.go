package service

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	profiledomain "github.com/smallbiznis/triviabees/internal/profile/domain"
	profilerepo "github.com/smallbiznis/triviabees/internal/profile/repository"
	"github.com/smallbiznis/triviabees/internal/referral/domain"
	"github.com/smallbiznis/triviabees/internal/referral/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&profiledomain.Profile{}, &domain.Referral{}))
	return db
}

func newService(db *gorm.DB) domain.Service {
	return New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		Repo:        repository.Provide(),
		ProfileRepo: profilerepo.Provide(),
	})
}

func refer(t *testing.T, db *gorm.DB, userID, referredBy string) {
	t.Helper()
	edge := domain.Referral{UserID: userID}
	if referredBy != "" {
		edge.ReferredBy = &referredBy
	}
	require.NoError(t, db.Create(&edge).Error)
}

func TestValidateCode(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Create(&profiledomain.Profile{ID: "alice", ReferralCode: "ALICE01"}).Error)
	svc := newService(db)
	ctx := context.Background()

	res, err := svc.ValidateCode(ctx, domain.ValidateCodeRequest{Code: "  alice01 "})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "alice", res.ReferrerID)

	res, err = svc.ValidateCode(ctx, domain.ValidateCodeRequest{Code: "NOPE"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Empty(t, res.ReferrerID)

	_, err = svc.ValidateCode(ctx, domain.ValidateCodeRequest{Code: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidReferralCode)
}

func TestUplinesWalksChain(t *testing.T) {
	db := setupDB(t)
	refer(t, db, "buyer", "l1")
	refer(t, db, "l1", "l2")
	refer(t, db, "l2", "l3")
	refer(t, db, "l3", "l4")
	refer(t, db, "l4", "")
	svc := newService(db)
	ctx := context.Background()

	chain, err := svc.Uplines(ctx, "buyer", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"l1", "l2", "l3"}, chain)

	chain, err = svc.Uplines(ctx, "l3", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"l4"}, chain)

	chain, err = svc.Uplines(ctx, "l4", 3)
	require.NoError(t, err)
	assert.Empty(t, chain)

	chain, err = svc.Uplines(ctx, "stranger", 3)
	require.NoError(t, err)
	assert.Empty(t, chain)

	chain, err = svc.Uplines(ctx, "buyer", 0)
	require.NoError(t, err)
	assert.Empty(t, chain)

	_, err = svc.Uplines(ctx, " ", 3)
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)
}

func TestUplinesStopsOnCycle(t *testing.T) {
	db := setupDB(t)
	refer(t, db, "a", "b")
	refer(t, db, "b", "a")
	refer(t, db, "self", "self")
	svc := newService(db)

	chain, err := svc.Uplines(context.Background(), "a", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, chain)

	chain, err = svc.Uplines(context.Background(), "self", 3)
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestCountReferrals(t *testing.T) {
	db := setupDB(t)
	refer(t, db, "x", "boss")
	refer(t, db, "y", "boss")
	refer(t, db, "z", "other")
	svc := newService(db)

	count, err := svc.CountReferrals(context.Background(), "boss")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = svc.CountReferrals(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*domain.Referral, error) {
	args := m.Called(ctx, db, userID)
	edge, _ := args.Get(0).(*domain.Referral)
	return edge, args.Error(1)
}

func (m *mockRepo) CountReferred(ctx context.Context, db *gorm.DB, referrerID string) (int64, error) {
	args := m.Called(ctx, db, referrerID)
	return args.Get(0).(int64), args.Error(1)
}

func TestUplinesPropagatesLookupFailure(t *testing.T) {
	repo := new(mockRepo)
	parent := "l1"
	repo.On("FindByUserID", mock.Anything, mock.Anything, "buyer").Return(&domain.Referral{UserID: "buyer", ReferredBy: &parent}, nil)
	repo.On("FindByUserID", mock.Anything, mock.Anything, "l1").Return(nil, errors.New("connection reset"))

	svc := New(Params{Log: zap.NewNop(), Repo: repo, ProfileRepo: profilerepo.Provide()})
	_, err := svc.Uplines(context.Background(), "buyer", 3)
	assert.EqualError(t, err, "connection reset")
	repo.AssertExpectations(t)
}
