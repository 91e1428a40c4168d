// ERP Assistant - conversational front-end for ERPNext
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashureev/erp-assistant/internal/api"
	"github.com/ashureev/erp-assistant/internal/bot"
	"github.com/ashureev/erp-assistant/internal/cache"
	"github.com/ashureev/erp-assistant/internal/chatlog"
	"github.com/ashureev/erp-assistant/internal/config"
	"github.com/ashureev/erp-assistant/internal/email"
	"github.com/ashureev/erp-assistant/internal/erp"
	"github.com/ashureev/erp-assistant/internal/identity"
	"github.com/ashureev/erp-assistant/internal/logging"
	"github.com/ashureev/erp-assistant/internal/middleware"
	"github.com/ashureev/erp-assistant/internal/nlu"
	"github.com/ashureev/erp-assistant/internal/session"
	"github.com/ashureev/erp-assistant/internal/telegram"
	"github.com/ashureev/erp-assistant/web"
)

var version = "1.0.0"

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "erp-assistant",
		Short:         "Chat assistant for ERPNext",
		Long:          "Serves the ERPNext chat assistant over Telegram, HTTP and WebSocket.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the assistant (default)",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "check-config",
			Short: "Validate configuration and probe the ERP, NLU and SMTP services",
			RunE:  runCheckConfig,
		},
	)
	return root
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// app holds every long-lived component.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	erp      *erp.Client
	nlu      *nlu.Gateway
	cache    cache.Cache
	redis    *cache.Redis
	sessions *session.Manager
	mailer   *email.Mailer
	convLog  chatlog.ConversationLogger
	limiter  *middleware.RateLimiter
	bot      *bot.Bot
	chatAPI  *api.Handler

	telegram *telegram.Transport
	tgBot    *tgbotapi.BotAPI
	pollDone chan struct{}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.Setup(cfg.Log, os.Stdout)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	a.erp = erp.New(erp.Config{
		BaseURL:   cfg.ERP.URL,
		APIKey:    cfg.ERP.APIKey,
		APISecret: cfg.ERP.APISecret,
		Timeout:   cfg.ERP.Timeout,
	}, logger)

	switch {
	case cfg.Redis.Enabled:
		rdb, err := cache.NewRedis(ctx, cfg.Redis.URL, cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		a.redis = rdb
		a.cache = rdb
		logger.Info("ERP cache backed by Redis")
	case cfg.Cache.Enabled:
		a.cache = cache.NewMemory(cfg.Cache.TTL, cfg.Cache.MaxKeys)
		logger.Info("ERP cache in memory", "ttl", cfg.Cache.TTL, "max_keys", cfg.Cache.MaxKeys)
	default:
		logger.Info("ERP cache disabled")
	}
	if a.cache != nil {
		a.erp = a.erp.WithCache(a.cache, cfg.Cache.TTL)
	}

	a.nlu = nlu.NewGateway(nlu.Config{
		Enabled: cfg.NLU.Enabled,
		URL:     cfg.NLU.URL,
		Token:   cfg.NLU.Token,
		Timeout: cfg.NLU.Timeout,
	}, logger)

	a.sessions = session.NewManager(cfg.SessionTTL, 0, logger)

	a.mailer = email.New(email.Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		User:     cfg.Email.User,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
		FromName: cfg.Email.FromName,
	}, logger)

	convLog, err := chatlog.New(chatlog.Config{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.convLog = convLog

	a.limiter = middleware.NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)

	a.bot = bot.New(bot.Options{
		ERP:             a.erp,
		NLU:             a.nlu,
		Sessions:        a.sessions,
		Mailer:          a.mailer,
		ConversationLog: a.convLog,
		Logger:          logger,
		PageSize:        cfg.PageSize,
	})

	a.chatAPI = api.NewHandler(api.Options{
		Chat:           a.bot,
		Limiter:        a.limiter,
		AllowedOrigins: middleware.Origins(cfg.FrontendURL),
		IsDev:          cfg.IsDevelopment(),
		Logger:         logger,
	})

	return a, nil
}

func (a *app) router(ctx context.Context) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))

	health := api.HealthOptions{
		ERP:         a.erp,
		NLU:         a.nlu,
		Sessions:    a.sessions,
		Connections: a.chatAPI.Connections(),
		Logger:      a.logger,
	}
	if a.redis != nil {
		health.Cache = a.redis
	}
	api.NewHealthHandler(health).RegisterHealth(r)

	if a.telegram != nil && a.cfg.Telegram.Webhook {
		r.Post(a.cfg.Telegram.WebhookPath, a.telegram.WebhookHandler(ctx, a.tgBot))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS(middleware.Origins(a.cfg.FrontendURL)))
		r.Use(identity.Middleware(a.cfg.IsDevelopment()))
		r.Use(middleware.RateLimit(a.limiter, func(r *http.Request) string {
			// WebSocket frames are limited one by one inside the handler.
			if r.URL.Path == "/ws/chat" {
				return ""
			}
			return identity.UserIDFromContext(r.Context())
		}))
		a.chatAPI.RegisterRoutes(r)
	})

	r.Handle("/*", web.Handler())

	return r
}

func (a *app) close() {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.convLog != nil {
		if err := a.convLog.Close(); err != nil {
			a.logger.Error("Failed to close conversation log", "error", err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("Failed to close cache", "error", err)
		}
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Info("Starting server",
		"version", version,
		"port", cfg.Port,
		"env", cfg.Env,
		"erp_url", cfg.ERP.URL,
		"nlu_url", cfg.NLU.URL,
		"nlu_enabled", cfg.NLU.Enabled,
		"webhook", cfg.Telegram.Webhook,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	startupCtx, cancel := context.WithTimeout(ctx, cfg.ERP.Timeout)
	if user, err := a.erp.Ping(startupCtx); err != nil {
		logger.Warn("ERPNext not reachable at startup", "error", err)
	} else {
		logger.Info("ERPNext connected", "user", user)
	}
	cancel()

	if err := a.startTelegram(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0, // WebSocket connections are long lived
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	stop()

	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.chatAPI.Connections().CloseAll("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	a.stopTelegram()

	logger.Info("Server stopped successfully")
	return nil
}
