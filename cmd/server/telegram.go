package main

import (
	"context"
	"fmt"

	"github.com/ashureev/erp-assistant/internal/telegram"
)

// startTelegram connects the bot and starts polling, or registers the
// webhook. An empty token leaves Telegram disabled.
func (a *app) startTelegram(ctx context.Context) error {
	if a.cfg.Telegram.Token == "" {
		a.logger.Info("Telegram disabled (TELEGRAM_BOT_TOKEN not set)")
		return nil
	}

	tg, err := telegram.Connect(a.cfg.Telegram.Token, a.logger)
	if err != nil {
		return fmt.Errorf("connect telegram: %w", err)
	}
	a.tgBot = tg
	a.telegram = telegram.New(tg, a.bot, a.limiter, a.logger)

	if a.cfg.Telegram.Webhook {
		if err := telegram.SetWebhook(tg, a.cfg.WebhookURL()); err != nil {
			return fmt.Errorf("set telegram webhook: %w", err)
		}
		a.logger.Info("Telegram webhook registered", "url", a.cfg.WebhookURL())
		return nil
	}

	a.pollDone = make(chan struct{})
	go func() {
		defer close(a.pollDone)
		a.telegram.Poll(ctx, tg)
	}()
	return nil
}

// stopTelegram waits for polling to end and in-flight updates to finish.
func (a *app) stopTelegram() {
	if a.pollDone != nil {
		<-a.pollDone
	}
	if a.telegram != nil {
		a.telegram.Wait()
	}
}
