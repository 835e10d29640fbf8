package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "sid", cfg.Session.CookieName)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, 10*time.Minute, cfg.Session.PKCETTL)
	assert.Equal(t, "exact", cfg.Auth.ProfileEmailMatch)
	assert.Equal(t, []string{"openid", "profile", "email", "roles"}, cfg.OIDC.Scopes)
	assert.Equal(t, 10*time.Second, cfg.OIDC.Timeout)
	assert.False(t, cfg.App.SecureCookies())
	assert.False(t, cfg.Blob.Enabled())
	assert.Equal(t, 25, cfg.DB.MaxConns)
	assert.Equal(t, 15*time.Second, cfg.DB.StatementTimeout)
}

func TestFromViper_SecureCookiesConHTTPS(t *testing.T) {
	v := viper.New()
	v.Set("APP_BASE_URL", "https://crm.example.com")
	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.True(t, cfg.App.SecureCookies())
	assert.Equal(t, "https://crm.example.com/api/auth/callback", cfg.OIDC.RedirectURL(cfg.App.BaseURL))
}

func TestFromViper_ValoresInvalidos(t *testing.T) {
	cases := map[string]map[string]any{
		"storage":         {"APP_STORAGE": "sqlite"},
		"redis sin url":   {"SESSION_STORE": "redis"},
		"email match":     {"AUTH_PROFILE_EMAIL_MATCH": "fuzzy"},
		"oidc sin issuer": {"OIDC_ENABLED": true, "OIDC_CLIENT_ID": "crm"},
		"ttl cero":        {"SESSION_TTL_SECONDS": "0"},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			for k, val := range values {
				v.Set(k, val)
			}
			_, err := fromViper(v)
			assert.Error(t, err)
		})
	}
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "crm", Password: "p@ss/word", DBName: "solar", SSLMode: "disable"}
	assert.Equal(t, "postgres://crm:p%40ss%2Fword@db:5432/solar?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
