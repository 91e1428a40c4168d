// Package telegram connects the chat engine to the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ashureev/erp-assistant/internal/domain"
)

const (
	// ChannelTelegram tags users coming from Telegram.
	ChannelTelegram = "telegram"

	// maxMessageRunes is the Bot API limit for one text message.
	maxMessageRunes = 4096
	pollTimeout     = 60
	updateTimeout   = 2 * time.Minute
	msgRateLimited  = "⏳ Trop de requêtes. Veuillez patienter un instant."
)

// Chat is the conversation engine.
type Chat interface {
	HandleMessage(ctx context.Context, user domain.User, text string) []domain.Reply
	HandleCallback(ctx context.Context, user domain.User, data string) []domain.Reply
}

// Limiter decides whether a user may send another message.
type Limiter interface {
	Allow(key string) bool
}

// API is the subset of *tgbotapi.BotAPI the transport uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Transport turns Telegram updates into chat turns and replies.
type Transport struct {
	api     API
	chat    Chat
	limiter Limiter
	logger  *slog.Logger
	wg      sync.WaitGroup

	mu     sync.Mutex
	queues map[int64][]tgbotapi.Update
}

// New creates a transport over an authenticated Bot API client.
func New(api API, chat Chat, limiter Limiter, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		api:     api,
		chat:    chat,
		limiter: limiter,
		logger:  logger,
		queues:  make(map[int64][]tgbotapi.Update),
	}
}

// Connect authenticates against the Bot API.
func Connect(token string, logger *slog.Logger) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	logger.Info("Telegram bot authorized", "username", bot.Self.UserName)
	return bot, nil
}

// Poll receives updates by long polling until ctx is cancelled, then waits
// for in-flight updates to finish.
func (t *Transport) Poll(ctx context.Context, bot *tgbotapi.BotAPI) {
	// Drop a stale webhook so getUpdates is allowed.
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		t.logger.Warn("Failed to delete webhook", "error", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := bot.GetUpdatesChan(u)
	t.logger.Info("Telegram polling started")

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			t.Wait()
			t.logger.Info("Telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				t.Wait()
				return
			}
			t.Dispatch(ctx, update)
		}
	}
}

// SetWebhook registers url with Telegram.
func SetWebhook(bot *tgbotapi.BotAPI, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return err
	}
	if _, err := bot.Request(wh); err != nil {
		return err
	}
	info, err := bot.GetWebhookInfo()
	if err != nil {
		return err
	}
	if info.LastErrorDate != 0 {
		return errors.New("telegram webhook error: " + info.LastErrorMessage)
	}
	return nil
}

// WebhookHandler accepts updates posted by Telegram. Updates are processed
// asynchronously so Telegram gets its 200 right away.
func (t *Transport) WebhookHandler(ctx context.Context, bot *tgbotapi.BotAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		update, err := bot.HandleUpdate(r)
		if err != nil {
			t.logger.Warn("Invalid webhook update", "error", err)
			http.Error(w, `{"error":"invalid update"}`, http.StatusBadRequest)
			return
		}
		t.Dispatch(ctx, *update)
		w.WriteHeader(http.StatusOK)
	}
}

// Dispatch queues an update for asynchronous handling. Updates from the
// same sender run one at a time in arrival order; different senders run
// concurrently.
func (t *Transport) Dispatch(ctx context.Context, update tgbotapi.Update) {
	key := senderID(update)

	t.mu.Lock()
	defer t.mu.Unlock()
	if pending, busy := t.queues[key]; busy {
		t.queues[key] = append(pending, update)
		return
	}
	t.queues[key] = []tgbotapi.Update{}
	t.wg.Add(1)
	go t.drain(ctx, key, update)
}

// drain handles update, then whatever was queued for key meanwhile.
func (t *Transport) drain(ctx context.Context, key int64, update tgbotapi.Update) {
	defer t.wg.Done()
	for {
		uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), updateTimeout)
		t.HandleUpdate(uctx, update)
		cancel()

		t.mu.Lock()
		pending := t.queues[key]
		if len(pending) == 0 {
			delete(t.queues, key)
			t.mu.Unlock()
			return
		}
		update = pending[0]
		t.queues[key] = pending[1:]
		t.mu.Unlock()
	}
}

func senderID(update tgbotapi.Update) int64 {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	}
	return 0
}

// Wait blocks until every dispatched update is done.
func (t *Transport) Wait() {
	t.wg.Wait()
}

// HandleUpdate runs one update synchronously.
func (t *Transport) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Panic while handling update", "update_id", update.UpdateID, "panic", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		t.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Text != "":
		t.handleMessage(ctx, update.Message)
	}
}

func (t *Transport) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	user := userFrom(msg.From)
	chatID := msg.Chat.ID

	if t.limiter != nil && !t.limiter.Allow(user.ID) {
		t.send(chatID, domain.Text(msgRateLimited))
		return
	}

	t.typing(chatID)
	for _, reply := range t.chat.HandleMessage(ctx, user, msg.Text) {
		t.send(chatID, reply)
	}
}

func (t *Transport) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	// Always answer so the client stops its spinner.
	defer func() {
		if _, err := t.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
			t.logger.Debug("Failed to answer callback", "error", err)
		}
	}()
	if q.From == nil || q.Message == nil {
		return
	}
	user := userFrom(q.From)
	chatID := q.Message.Chat.ID

	if t.limiter != nil && !t.limiter.Allow(user.ID) {
		t.send(chatID, domain.Text(msgRateLimited))
		return
	}

	for _, reply := range t.chat.HandleCallback(ctx, user, q.Data) {
		t.send(chatID, reply)
	}
}

func (t *Transport) typing(chatID int64) {
	if _, err := t.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		t.logger.Debug("Failed to send chat action", "error", err)
	}
}

// send delivers a reply, splitting long texts. When Telegram rejects the
// Markdown the message is resent as plain text.
func (t *Transport) send(chatID int64, reply domain.Reply) {
	chunks := splitText(reply.Text, maxMessageRunes)
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if reply.Markdown {
			msg.ParseMode = tgbotapi.ModeMarkdown
		}
		if i == len(chunks)-1 && len(reply.Keyboard) > 0 {
			msg.ReplyMarkup = keyboardMarkup(reply.Keyboard)
		}

		_, err := t.api.Send(msg)
		if err != nil && msg.ParseMode != "" && isParseError(err) {
			t.logger.Warn("Markdown rejected, resending as plain text", "chat_id", chatID, "error", err)
			msg.ParseMode = ""
			_, err = t.api.Send(msg)
		}
		if err != nil {
			t.logger.Error("Failed to send message", "chat_id", chatID, "error", err)
			return
		}
	}
}

func userFrom(u *tgbotapi.User) domain.User {
	return domain.User{
		ID:        strconv.FormatInt(u.ID, 10),
		Channel:   ChannelTelegram,
		Username:  u.UserName,
		FirstName: u.FirstName,
	}
}

func keyboardMarkup(kb domain.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func isParseError(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return strings.Contains(apiErr.Message, "can't parse entities")
	}
	return strings.Contains(err.Error(), "can't parse entities")
}

// splitText cuts s into chunks of at most n runes, preferring line breaks.
func splitText(s string, n int) []string {
	r := []rune(s)
	if len(r) <= n {
		return []string{s}
	}
	var out []string
	for len(r) > n {
		cut := n
		for i := n; i > n/2; i-- {
			if r[i-1] == '\n' {
				cut = i
				break
			}
		}
		out = append(out, string(r[:cut]))
		r = r[cut:]
	}
	if len(r) > 0 {
		out = append(out, string(r))
	}
	return out
}
