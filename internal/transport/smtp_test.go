package transport

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tern/internal/delivery"
)

func validConfig() Config {
	return Config{
		Host:         "smtp.example.com",
		Port:         587,
		Username:     "mailer",
		Password:     "secret",
		FromEmail:    "news@example.com",
		SupportsTLS:  true,
		RequiresAuth: true,
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing host", func(c *Config) { c.Host = "" }},
		{"zero port", func(c *Config) { c.Port = 0 }},
		{"port out of range", func(c *Config) { c.Port = 70000 }},
		{"missing from address", func(c *Config) { c.FromEmail = "" }},
		{"auth without username", func(c *Config) { c.Username = "" }},
		{"auth without password", func(c *Config) { c.Password = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("no credentials needed without auth", func(t *testing.T) {
		cfg := validConfig()
		cfg.RequiresAuth = false
		cfg.Username = ""
		cfg.Password = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestConfigDefaults(t *testing.T) {
	cfg := validConfig().withDefaults()

	assert.Equal(t, 10, cfg.MaxSendRate)
	assert.Equal(t, 1, cfg.MaxConnections)
	assert.Equal(t, 100, cfg.MaxMessages)
	assert.Equal(t, 10*time.Second, cfg.ConnectionTimeout)
	assert.Equal(t, cfg.ConnectionTimeout, cfg.GreetingTimeout)
	assert.Equal(t, 30*time.Second, cfg.SocketTimeout)
}

func TestNewSMTPRejectsBadConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Host = ""
	_, err := NewSMTP(cfg)
	assert.Error(t, err)
}

func TestBuildMessage(t *testing.T) {
	msg := delivery.Message{
		CampaignID: "cmp-42",
		Subject:    "Weekly digest",
		Body:       "<p>Hello</p>",
	}
	recipients := []string{"a@example.com", "b@example.com"}

	raw := string(buildMessage("news@example.com", msg, recipients))
	headers, body, found := strings.Cut(raw, "\r\n\r\n")
	require.True(t, found)

	assert.Contains(t, headers, "From: news@example.com")
	assert.Contains(t, headers, "To: a@example.com, b@example.com")
	assert.Contains(t, headers, "Subject: Weekly digest")
	assert.Contains(t, headers, "Content-Type: text/html; charset=UTF-8")
	assert.Contains(t, headers, "X-Campaign-ID: cmp-42")
	assert.Equal(t, "<p>Hello</p>", body)
}

func TestBuildMessageOmitsEmptyCampaignHeader(t *testing.T) {
	raw := string(buildMessage("news@example.com", delivery.Message{Subject: "s", Body: "b"}, []string{"a@example.com"}))
	assert.NotContains(t, raw, "X-Campaign-ID")
}
