package seed

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/triviabees/internal/config"
	eligibilitydomain "github.com/smallbiznis/triviabees/internal/eligibility/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&eligibilitydomain.AppSetting{}))
	return db
}

func TestEnsureDefaultSettingsWritesThreshold(t *testing.T) {
	db := setupSeedDB(t)
	rewards := config.DefaultRewardsConfig()
	rewards.Eligibility.DiamondThreshold = 200

	require.NoError(t, EnsureDefaultSettings(db, rewards))

	var setting eligibilitydomain.AppSetting
	require.NoError(t, db.First(&setting, "key = ?", eligibilitydomain.SettingDiamondThreshold).Error)
	require.Equal(t, "200", setting.Value)
}

func TestEnsureDefaultSettingsKeepsExistingValue(t *testing.T) {
	db := setupSeedDB(t)
	require.NoError(t, db.Create(&eligibilitydomain.AppSetting{
		Key:   eligibilitydomain.SettingDiamondThreshold,
		Value: "75",
	}).Error)

	require.NoError(t, EnsureDefaultSettings(db, config.DefaultRewardsConfig()))
	require.NoError(t, EnsureDefaultSettings(db, config.DefaultRewardsConfig()))

	var settings []eligibilitydomain.AppSetting
	require.NoError(t, db.Find(&settings).Error)
	require.Len(t, settings, 1)
	require.Equal(t, "75", settings[0].Value)
}

func TestEnsureDefaultSettingsRequiresDB(t *testing.T) {
	require.Error(t, EnsureDefaultSettings(nil, config.DefaultRewardsConfig()))
}
