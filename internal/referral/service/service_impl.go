package service

import (
	"context"
	"strings"

	obsmetrics "github.com/smallbiznis/triviabees/internal/observability/metrics"
	profiledomain "github.com/smallbiznis/triviabees/internal/profile/domain"
	"github.com/smallbiznis/triviabees/internal/referral/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Repo        domain.Repository
	ProfileRepo profiledomain.Repository
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	profileRepo profiledomain.Repository
	obsMetrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("referral.service"),
		repo:        p.Repo,
		profileRepo: p.ProfileRepo,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) ValidateCode(ctx context.Context, req domain.ValidateCodeRequest) (domain.ValidateCodeResult, error) {
	code := normalizeCode(req.Code)
	if code == "" {
		return domain.ValidateCodeResult{}, domain.ErrInvalidReferralCode
	}

	profile, err := s.profileRepo.FindByReferralCode(ctx, s.db, code)
	if err != nil {
		return domain.ValidateCodeResult{}, err
	}

	result := domain.ValidateCodeResult{}
	if profile != nil {
		result = domain.ValidateCodeResult{Valid: true, ReferrerID: profile.ID}
	}
	s.obsMetrics.RecordReferralValidation(ctx, result.Valid)
	return result, nil
}

func (s *Service) Uplines(ctx context.Context, userID string, depth int) ([]string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	if depth <= 0 {
		return nil, nil
	}

	seen := map[string]struct{}{userID: {}}
	chain := make([]string, 0, depth)
	current := userID
	for len(chain) < depth {
		edge, err := s.repo.FindByUserID(ctx, s.db, current)
		if err != nil {
			return nil, err
		}
		if edge == nil || edge.ReferredBy == nil {
			break
		}
		next := strings.TrimSpace(*edge.ReferredBy)
		if next == "" {
			break
		}
		if _, dup := seen[next]; dup {
			s.log.Warn("referral cycle detected",
				zap.String("user_id", userID),
				zap.String("repeated_user_id", next),
				zap.Int("level", len(chain)+1),
			)
			break
		}
		seen[next] = struct{}{}
		chain = append(chain, next)
		current = next
	}
	return chain, nil
}

func (s *Service) CountReferrals(ctx context.Context, userID string) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, domain.ErrInvalidUserID
	}
	return s.repo.CountReferred(ctx, s.db, userID)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
