package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashureev/erp-assistant/internal/config"
)

type probeFunc func(context.Context) error

func (f probeFunc) Ping(ctx context.Context) (string, error) { return "Administrator", f(ctx) }
func (f probeFunc) Status(ctx context.Context) error         { return f(ctx) }
func (f probeFunc) Verify(ctx context.Context) error         { return f(ctx) }

func succeed(context.Context) error { return nil }

func failing(msg string) probeFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func baseConfig() *config.Config {
	return &config.Config{
		Env:  "development",
		Port: "3000",
		Log:  config.LogConfig{Level: "info", Format: "json"},
		ERP:  config.ERPConfig{URL: "https://erp.example"},
		NLU:  config.NLUConfig{Enabled: true, URL: "http://localhost:5005"},
	}
}

func TestCheckConfigAllGood(t *testing.T) {
	var out bytes.Buffer
	cfg := baseConfig()
	cfg.Telegram.Token = "123:abc"
	cfg.Email = config.EmailConfig{Host: "smtp.example", Port: 587, User: "bot@example", Password: "x"}

	good := probeFunc(succeed)
	assert.True(t, checkConfig(t.Context(), &out, cfg, probes{erp: good, nlu: good, mailer: good}))
	assert.Contains(t, out.String(), "ERPNext connection successful (user: Administrator)")
	assert.Contains(t, out.String(), "SMTP smtp.example:587 ready")
	assert.Contains(t, out.String(), "Using polling mode")
	assert.Contains(t, out.String(), "Configuration is valid")
}

func TestCheckConfigNLUFailureIsWarning(t *testing.T) {
	var out bytes.Buffer
	good := probeFunc(succeed)

	assert.True(t, checkConfig(t.Context(), &out, baseConfig(), probes{erp: good, nlu: failing("refused"), mailer: good}))
	assert.Contains(t, out.String(), "fallback mode will be used: refused")
	assert.Contains(t, out.String(), "Telegram disabled")
	assert.Contains(t, out.String(), "SMTP not configured")
}

func TestCheckConfigRequiredFailures(t *testing.T) {
	good := probeFunc(succeed)

	var out bytes.Buffer
	assert.False(t, checkConfig(t.Context(), &out, baseConfig(), probes{erp: failing("401"), nlu: good, mailer: good}))
	assert.Contains(t, out.String(), "ERPNext connection failed: 401")
	assert.Contains(t, out.String(), "Configuration has errors")

	out.Reset()
	cfg := baseConfig()
	cfg.Email = config.EmailConfig{Host: "smtp.example", Port: 587, User: "bot@example", Password: "x"}
	assert.False(t, checkConfig(t.Context(), &out, cfg, probes{erp: good, nlu: good, mailer: failing("auth")}))
	assert.Contains(t, out.String(), "SMTP connection failed: auth")
}

func TestCacheMode(t *testing.T) {
	cfg := baseConfig()
	assert.Equal(t, "disabled", cacheMode(cfg))
	cfg.Cache.Enabled = true
	assert.Equal(t, "memory", cacheMode(cfg))
	cfg.Redis.Enabled = true
	assert.Equal(t, "redis", cacheMode(cfg))
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["check-config"])
	assert.NotNil(t, root.RunE, "serve is the default action")
}
