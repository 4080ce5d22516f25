package cache

import (
	"testing"
	"time"

	"github.com/smallbiznis/triviabees/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheSetGetDelete(t *testing.T) {
	c := NewTTLCache[string, int]()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, 0)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestTTLCacheExpires(t *testing.T) {
	c := NewTTLCache[string, string]()
	c.Set("k", "v", 20*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestSettingsCacheNormalizesKeys(t *testing.T) {
	c := NewSettingsCache()
	c.Set("  Marketplace_Diamond_Threshold ", "200", time.Minute)

	v, ok := c.Get("marketplace_diamond_threshold")
	assert.True(t, ok)
	assert.Equal(t, "200", v)

	c.Invalidate("MARKETPLACE_DIAMOND_THRESHOLD")
	_, ok = c.Get("marketplace_diamond_threshold")
	assert.False(t, ok)
}

func TestSettingsCacheInvalidateAll(t *testing.T) {
	c := NewSettingsCache()
	c.Set("a", "1", time.Minute)
	c.Set("b", "2", time.Minute)

	c.InvalidateAll()

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	assert.False(t, okA)
	assert.False(t, okB)
}

func TestSettingsCacheNilSafe(t *testing.T) {
	var c *SettingsCache
	c.Set("a", "1", time.Minute)
	c.Invalidate("a")
	c.InvalidateAll()
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestInvalidateOnReload(t *testing.T) {
	rewards := config.NewStaticRewardsConfigHolder(config.DefaultRewardsConfig())
	c := NewSettingsCache()
	InvalidateOnReload(rewards, c)

	c.Set("marketplace_diamond_threshold", "200", 0)
	require.NoError(t, rewards.Replace(config.DefaultRewardsConfig()))

	_, ok := c.Get("marketplace_diamond_threshold")
	assert.False(t, ok)
}
