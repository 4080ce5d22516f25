package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/smallbiznis/triviabees/internal/cache"
	"github.com/smallbiznis/triviabees/internal/config"
	"github.com/smallbiznis/triviabees/internal/eligibility/domain"
	obsmetrics "github.com/smallbiznis/triviabees/internal/observability/metrics"
	profiledomain "github.com/smallbiznis/triviabees/internal/profile/domain"
	referraldomain "github.com/smallbiznis/triviabees/internal/referral/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Rewards     *config.RewardsConfigHolder
	Settings    *cache.SettingsCache
	Repo        domain.Repository
	ProfileRepo profiledomain.Repository
	ReferralSvc referraldomain.Service
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	rewards     *config.RewardsConfigHolder
	settings    *cache.SettingsCache
	repo        domain.Repository
	profileRepo profiledomain.Repository
	referralSvc referraldomain.Service
	obsMetrics  *obsmetrics.Metrics
}

// noOverride marks a cached miss on app_settings.
const noOverride = ""

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("eligibility.service"),
		rewards:     p.Rewards,
		settings:    p.Settings,
		repo:        p.Repo,
		profileRepo: p.ProfileRepo,
		referralSvc: p.ReferralSvc,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Check(ctx context.Context, userID string) domain.Result {
	rules := s.rewards.Get().Eligibility
	result := domain.Result{
		UserID:            strings.TrimSpace(userID),
		RequiredReferrals: rules.MinReferrals,
		DiamondThreshold:  rules.DiamondThreshold,
	}
	if result.UserID == "" {
		s.obsMetrics.RecordEligibilityCheck(ctx, false, false)
		return result
	}

	threshold, err := s.diamondThreshold(ctx, rules)
	if err != nil {
		return s.degrade(ctx, result, "diamond_threshold", err)
	}
	result.DiamondThreshold = threshold
	if result.ReferralCount, err = s.referralSvc.CountReferrals(ctx, result.UserID); err != nil {
		return s.degrade(ctx, result, "referral_count", err)
	}
	profile, err := s.profileRepo.FindByID(ctx, s.db, result.UserID)
	if err != nil {
		return s.degrade(ctx, result, "diamonds", err)
	}
	if profile != nil {
		result.Diamonds = profile.Diamonds
	}
	if result.HasPurchase, err = s.repo.HasApprovedPurchase(ctx, s.db, result.UserID); err != nil {
		return s.degrade(ctx, result, "purchase_history", err)
	}

	result.IsEligible = domain.Eligible(
		result.ReferralCount,
		result.RequiredReferrals,
		result.Diamonds,
		result.DiamondThreshold,
		result.HasPurchase,
	)
	s.obsMetrics.RecordEligibilityCheck(ctx, result.IsEligible, false)
	return result
}

func (s *Service) degrade(ctx context.Context, result domain.Result, step string, err error) domain.Result {
	s.log.Warn("eligibility lookup failed, reporting not eligible",
		zap.String("user_id", result.UserID),
		zap.String("step", step),
		zap.Error(err),
	)
	result.IsEligible = false
	result.Degraded = true
	s.obsMetrics.RecordEligibilityCheck(ctx, false, true)
	return result
}

// diamondThreshold prefers the app_settings override. Only the database
// answer is cached; without a row the configured value is read on every call.
func (s *Service) diamondThreshold(ctx context.Context, rules config.EligibilityConfig) (int64, error) {
	raw, ok := s.settings.Get(domain.SettingDiamondThreshold)
	if !ok {
		value, found, err := s.repo.Setting(ctx, s.db, domain.SettingDiamondThreshold)
		if err != nil {
			return 0, err
		}
		if !found {
			value = noOverride
		}
		s.settings.Set(domain.SettingDiamondThreshold, value, rules.SettingsTTL)
		raw = value
	}
	if raw == noOverride {
		return rules.DiamondThreshold, nil
	}
	return s.parseThreshold(raw, rules.DiamondThreshold), nil
}

func (s *Service) parseThreshold(raw string, fallback int64) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || value < 0 {
		s.log.Warn("ignoring invalid diamond threshold setting",
			zap.String("value", raw),
			zap.Int64("fallback", fallback),
		)
		return fallback
	}
	return value
}
