package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EMAIL_PROVIDER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 4, cfg.Covers.DefaultOccurrences)
	assert.Equal(t, EmailProviderLog, cfg.Email.Provider)
	assert.Equal(t, 14*24*time.Hour, cfg.Broadcast.CoverWindow)
	assert.Equal(t, 5*time.Minute, cfg.Calendar.CacheTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COVERS_DEFAULT_OCCURRENCES", "6")
	t.Setenv("EMAIL_PROVIDER", "SendGrid")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("CALENDAR_CACHE_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Covers.DefaultOccurrences)
	assert.Equal(t, EmailProviderSendGrid, cfg.Email.Provider)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Calendar.CacheTTL)
}

func TestCalendarLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, CalendarConfig{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, time.UTC, CalendarConfig{}.Location())
}
