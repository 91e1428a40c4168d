package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashureev/erp-assistant/internal/config"
	"github.com/ashureev/erp-assistant/internal/email"
	"github.com/ashureev/erp-assistant/internal/erp"
	"github.com/ashureev/erp-assistant/internal/logging"
	"github.com/ashureev/erp-assistant/internal/nlu"
)

const probeTimeout = 15 * time.Second

var errInvalidConfig = errors.New("configuration has errors")

// probes are the remote checks run by check-config.
type probes struct {
	erp    interface{ Ping(context.Context) (string, error) }
	nlu    interface{ Status(context.Context) error }
	mailer interface{ Verify(context.Context) error }
}

func runCheckConfig(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🔍 Configuration Check")
	fmt.Fprintln(out, strings.Repeat("═", 47))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(out, "❌ %v\n", err)
		return errInvalidConfig
	}

	logger, err := loadLogger(cfg)
	if err != nil {
		return err
	}
	p := probes{
		erp: erp.New(erp.Config{
			BaseURL:   cfg.ERP.URL,
			APIKey:    cfg.ERP.APIKey,
			APISecret: cfg.ERP.APISecret,
			Timeout:   cfg.ERP.Timeout,
		}, logger),
		nlu: nlu.NewGateway(nlu.Config{
			Enabled: cfg.NLU.Enabled,
			URL:     cfg.NLU.URL,
			Token:   cfg.NLU.Token,
			Timeout: cfg.NLU.Timeout,
		}, logger),
		mailer: email.New(email.Config{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			User:     cfg.Email.User,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
		}, logger),
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
	defer cancel()
	if !checkConfig(ctx, out, cfg, p) {
		return errInvalidConfig
	}
	return nil
}

// loadLogger keeps probe logs off stdout so the report stays readable.
func loadLogger(cfg *config.Config) (*slog.Logger, error) {
	lc := cfg.Log
	lc.Format = "text"
	return logging.New(lc, os.Stderr)
}

// checkConfig prints a report and returns false when a required check fails.
// An unreachable NLU is only a warning since the local rules take over.
func checkConfig(ctx context.Context, w io.Writer, cfg *config.Config, p probes) bool {
	ok := true

	fmt.Fprintln(w, "\n📱 Telegram:")
	switch {
	case cfg.Telegram.Token == "":
		fmt.Fprintln(w, "   ℹ️  Bot token not set, Telegram disabled (HTTP chat only)")
	case cfg.Telegram.Webhook:
		fmt.Fprintln(w, "   ✅ Bot token configured")
		fmt.Fprintf(w, "   ✅ Webhook: %s\n", cfg.WebhookURL())
	default:
		fmt.Fprintln(w, "   ✅ Bot token configured")
		fmt.Fprintln(w, "   ℹ️  Using polling mode")
	}

	fmt.Fprintln(w, "\n🏢 ERPNext:")
	fmt.Fprintf(w, "   ✅ URL: %s\n", cfg.ERP.URL)
	fmt.Fprintln(w, "   🔄 Testing ERPNext connection...")
	if user, err := p.erp.Ping(ctx); err != nil {
		fmt.Fprintf(w, "   ❌ ERPNext connection failed: %v\n", err)
		ok = false
	} else {
		fmt.Fprintf(w, "   ✅ ERPNext connection successful (user: %s)\n", user)
	}

	fmt.Fprintln(w, "\n🤖 NLU:")
	if cfg.NLU.Enabled {
		fmt.Fprintf(w, "   ℹ️  URL: %s\n", cfg.NLU.URL)
		if err := p.nlu.Status(ctx); err != nil {
			fmt.Fprintf(w, "   ⚠️  NLU connection failed, fallback mode will be used: %v\n", err)
		} else {
			fmt.Fprintln(w, "   ✅ NLU connection successful")
		}
	} else {
		fmt.Fprintln(w, "   ℹ️  NLU disabled, using fallback intent detection")
	}

	fmt.Fprintln(w, "\n📧 Email:")
	if !cfg.EmailEnabled() {
		fmt.Fprintln(w, "   ℹ️  SMTP not configured, quotations cannot be e-mailed")
	} else if err := p.mailer.Verify(ctx); err != nil {
		fmt.Fprintf(w, "   ❌ SMTP connection failed: %v\n", err)
		ok = false
	} else {
		fmt.Fprintf(w, "   ✅ SMTP %s:%d ready\n", cfg.Email.Host, cfg.Email.Port)
	}

	fmt.Fprintln(w, "\n⚙️  Application:")
	fmt.Fprintf(w, "   Environment: %s\n", cfg.Env)
	fmt.Fprintf(w, "   Log level: %s\n", cfg.Log.Level)
	fmt.Fprintf(w, "   Port: %s\n", cfg.Port)
	fmt.Fprintf(w, "   Cache: %s\n", cacheMode(cfg))

	fmt.Fprintln(w, "\n"+strings.Repeat("═", 47))
	if ok {
		fmt.Fprintln(w, "✅ Configuration is valid! You can start the assistant.")
	} else {
		fmt.Fprintln(w, "❌ Configuration has errors! Please fix them before starting.")
	}
	return ok
}

func cacheMode(cfg *config.Config) string {
	switch {
	case cfg.Redis.Enabled:
		return "redis"
	case cfg.Cache.Enabled:
		return "memory"
	default:
		return "disabled"
	}
}
