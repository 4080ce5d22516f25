package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// MaxCommissionLevels caps how far up the referral chain a commission travels.
const MaxCommissionLevels = 3

// MaxLevelShareScale bounds the decimal places of a level percentage so every
// payout fits the 16-place amount and balance columns exactly.
const MaxLevelShareScale = 4

// LevelShare is the share of an order's commission pool paid to one upline level.
type LevelShare struct {
	Level      int     `mapstructure:"level"`
	Percentage float64 `mapstructure:"percentage"`
}

type CommissionConfig struct {
	Levels []LevelShare `mapstructure:"levels"`
}

type EligibilityConfig struct {
	MinReferrals     int64         `mapstructure:"minReferrals"`
	DiamondThreshold int64         `mapstructure:"diamondThreshold"`
	SettingsTTL      time.Duration `mapstructure:"settingsTTL"`
}

type SettlementConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Schedule   string        `mapstructure:"schedule"`
	HoldPeriod time.Duration `mapstructure:"holdPeriod"`
}

// RewardsConfig holds the tunable rules of the referral program.
type RewardsConfig struct {
	Commission  CommissionConfig  `mapstructure:"commission"`
	Eligibility EligibilityConfig `mapstructure:"eligibility"`
	Settlement  SettlementConfig  `mapstructure:"settlement"`
}

func DefaultRewardsConfig() RewardsConfig {
	return RewardsConfig{
		Commission: CommissionConfig{
			Levels: []LevelShare{
				{Level: 1, Percentage: 50},
				{Level: 2, Percentage: 30},
				{Level: 3, Percentage: 20},
			},
		},
		Eligibility: EligibilityConfig{
			MinReferrals:     2,
			DiamondThreshold: 150,
			SettingsTTL:      5 * time.Minute,
		},
		Settlement: SettlementConfig{
			Enabled:    true,
			Schedule:   "@every 1h",
			HoldPeriod: 7 * 24 * time.Hour,
		},
	}
}

type RewardsConfigHolder struct {
	current atomic.Value // holds RewardsConfig

	mu        sync.Mutex
	listeners []func(RewardsConfig)
}

// NewStaticRewardsConfigHolder pins a config without reading files or env.
func NewStaticRewardsConfigHolder(cfg RewardsConfig) *RewardsConfigHolder {
	holder := &RewardsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewRewardsConfigHolder() (*RewardsConfigHolder, error) {
	return newRewardsConfigHolder("/var/lib/triviabees/config", "/etc/triviabees", ".")
}

func newRewardsConfigHolder(paths ...string) (*RewardsConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("rewards")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("TRIVIABEES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRewardsConfig()
	levels := make([]map[string]any, 0, len(defaults.Commission.Levels))
	for _, share := range defaults.Commission.Levels {
		levels = append(levels, map[string]any{"level": share.Level, "percentage": share.Percentage})
	}
	v.SetDefault("rewards.commission.levels", levels)
	v.SetDefault("rewards.eligibility.minReferrals", defaults.Eligibility.MinReferrals)
	v.SetDefault("rewards.eligibility.diamondThreshold", defaults.Eligibility.DiamondThreshold)
	v.SetDefault("rewards.eligibility.settingsTTL", defaults.Eligibility.SettingsTTL)
	v.SetDefault("rewards.settlement.enabled", defaults.Settlement.Enabled)
	v.SetDefault("rewards.settlement.schedule", defaults.Settlement.Schedule)
	v.SetDefault("rewards.settlement.holdPeriod", defaults.Settlement.HoldPeriod)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeRewardsConfig(v)
	if err != nil {
		return nil, err
	}
	if err := ValidateRewardsConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticRewardsConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeRewardsConfig(v)
		if err != nil {
			log.Printf("[rewards-config] reload failed: %v", err)
			return
		}
		if err := holder.Replace(updated); err != nil {
			log.Printf("[rewards-config] invalid config ignored: %v", err)
			return
		}
		log.Printf("[rewards-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// decodeRewardsConfig layers defaults, then the file, then env overrides.
func decodeRewardsConfig(v *viper.Viper) (RewardsConfig, error) {
	var root struct {
		Rewards RewardsConfig `mapstructure:"rewards"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return RewardsConfig{}, err
	}
	return root.Rewards, nil
}

func (h *RewardsConfigHolder) Get() RewardsConfig {
	if h == nil {
		return DefaultRewardsConfig()
	}
	cfg, ok := h.current.Load().(RewardsConfig)
	if !ok {
		return DefaultRewardsConfig()
	}
	return cfg
}

// OnChange registers fn to run after every accepted Replace.
func (h *RewardsConfigHolder) OnChange(fn func(RewardsConfig)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Replace swaps in cfg when it validates and notifies OnChange listeners.
func (h *RewardsConfigHolder) Replace(cfg RewardsConfig) error {
	if err := ValidateRewardsConfig(cfg); err != nil {
		return err
	}
	h.current.Store(cfg)

	h.mu.Lock()
	listeners := append([]func(RewardsConfig){}, h.listeners...)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(cfg)
	}
	return nil
}

// ValidateRewardsConfig rejects level tables that could pay out more than the pool.
func ValidateRewardsConfig(cfg RewardsConfig) error {
	levels := cfg.Commission.Levels
	if len(levels) == 0 {
		return errors.New("rewards.commission.levels cannot be empty")
	}
	if len(levels) > MaxCommissionLevels {
		return fmt.Errorf("rewards.commission.levels supports at most %d levels", MaxCommissionLevels)
	}
	total := 0.0
	for i, share := range levels {
		if share.Level != i+1 {
			return fmt.Errorf("rewards.commission.levels[%d] must be level %d", i, i+1)
		}
		if share.Percentage <= 0 {
			return fmt.Errorf("rewards.commission.levels[%d] percentage must be positive", i)
		}
		if -decimal.NewFromFloat(share.Percentage).Exponent() > MaxLevelShareScale {
			return fmt.Errorf("rewards.commission.levels[%d] percentage allows at most %d decimal places", i, MaxLevelShareScale)
		}
		total += share.Percentage
	}
	if total > 100 {
		return errors.New("rewards.commission.levels percentages exceed 100")
	}

	if cfg.Eligibility.MinReferrals < 0 {
		return errors.New("rewards.eligibility.minReferrals cannot be negative")
	}
	if cfg.Eligibility.DiamondThreshold < 0 {
		return errors.New("rewards.eligibility.diamondThreshold cannot be negative")
	}

	if cfg.Settlement.Enabled && strings.TrimSpace(cfg.Settlement.Schedule) == "" {
		return errors.New("rewards.settlement.schedule is required when settlement is enabled")
	}
	if cfg.Settlement.HoldPeriod < 0 {
		return errors.New("rewards.settlement.holdPeriod cannot be negative")
	}
	return nil
}
