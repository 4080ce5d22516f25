package cache

import (
	"strings"
	"time"

	"github.com/smallbiznis/triviabees/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("cache",
	fx.Provide(NewSettingsCache),
	fx.Invoke(InvalidateOnReload),
)

// SettingsCache holds app_settings lookups for the lifetime of the process.
type SettingsCache struct {
	entries Cache[string, string]
}

func NewSettingsCache() *SettingsCache {
	return &SettingsCache{entries: NewTTLCache[string, string]()}
}

func (c *SettingsCache) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.entries.Get(cacheKey(key))
}

func (c *SettingsCache) Set(key, value string, ttl time.Duration) {
	if c == nil || cacheKey(key) == "" {
		return
	}
	c.entries.Set(cacheKey(key), value, ttl)
}

// Invalidate drops a single setting so the next read goes to the database.
func (c *SettingsCache) Invalidate(key string) {
	if c == nil {
		return
	}
	c.entries.Delete(cacheKey(key))
}

func (c *SettingsCache) InvalidateAll() {
	if c == nil {
		return
	}
	c.entries.Purge()
}

// InvalidateOnReload drops cached settings whenever the rewards config reloads.
func InvalidateOnReload(rewards *config.RewardsConfigHolder, settings *SettingsCache) {
	rewards.OnChange(func(config.RewardsConfig) {
		settings.InvalidateAll()
	})
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
