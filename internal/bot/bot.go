// Package bot routes chat turns to ERP operations. Free text goes through
// the NLU gateway unless a form is in progress, in which case the waiting
// step decides what the text means.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/erp-assistant/internal/chatlog"
	"github.com/ashureev/erp-assistant/internal/domain"
	"github.com/ashureev/erp-assistant/internal/erp"
	"github.com/ashureev/erp-assistant/internal/nlu"
	"github.com/ashureev/erp-assistant/internal/session"
)

// ERP is the subset of the ERPNext client used by the handlers.
type ERP interface {
	ListCustomers(ctx context.Context, f erp.CustomerFilter, limit, offset int) ([]erp.Customer, error)
	GetCustomer(ctx context.Context, name string) (*erp.Customer, error)
	CreateCustomer(ctx context.Context, in erp.CustomerInput) (*erp.Customer, error)

	ListQuotations(ctx context.Context, f erp.QuotationFilter, limit int) ([]erp.Quotation, error)
	GetQuotation(ctx context.Context, name string) (*erp.Quotation, error)
	CreateQuotation(ctx context.Context, in erp.QuotationInput) (*erp.Quotation, error)
	SubmitQuotation(ctx context.Context, name string) (*erp.Quotation, error)
	QuotationPDF(ctx context.Context, name string) ([]byte, error)

	ListSalesInvoices(ctx context.Context, f erp.InvoiceFilter, limit int) ([]erp.SalesInvoice, error)
	GetSalesInvoice(ctx context.Context, name string) (*erp.SalesInvoice, error)

	ListItems(ctx context.Context, f erp.ItemFilter, limit int) ([]erp.Item, error)
	GetItem(ctx context.Context, code string) (*erp.Item, error)

	DailyPOSRevenue(ctx context.Context, date string) (*erp.DailyRevenue, error)
	BestSellingItems(ctx context.Context, from, to string, limit int) ([]erp.ItemSales, error)
	SalesPersonStats(ctx context.Context, from, to string) ([]erp.UserSales, error)
	CashierStatus(ctx context.Context, profile string) (*erp.CashierStatus, error)
}

// Analyzer classifies free text.
type Analyzer interface {
	Analyze(ctx context.Context, text, senderID string) nlu.Result
}

// Mailer sends quotations by e-mail.
type Mailer interface {
	Enabled() bool
	SendQuotation(ctx context.Context, q *erp.Quotation, to string, pdf []byte) (string, error)
}

// Options holds the bot dependencies.
type Options struct {
	ERP             ERP
	NLU             Analyzer
	Sessions        *session.Manager
	Mailer          Mailer
	ConversationLog chatlog.ConversationLogger
	Logger          *slog.Logger
	PageSize        int
}

type (
	intentHandler   func(t *turn, res nlu.Result) error
	stepHandler     func(t *turn, input string) error
	callbackHandler func(t *turn) error
	prefixHandler   func(t *turn, arg string) error
	commandHandler  func(t *turn) error
)

type prefixRoute struct {
	prefix  string
	handler prefixHandler
}

// Bot is the transport independent chat engine.
type Bot struct {
	erp      ERP
	nlu      Analyzer
	sessions *session.Manager
	mailer   Mailer
	convLog  chatlog.ConversationLogger
	logger   *slog.Logger
	pageSize int
	now      func() time.Time

	commands  map[string]commandHandler
	intents   map[domain.Intent]intentHandler
	steps     map[domain.Step]stepHandler
	callbacks map[string]callbackHandler
	prefixes  []prefixRoute
}

// New builds a bot and its routing tables.
func New(opts Options) *Bot {
	b := &Bot{
		erp:      opts.ERP,
		nlu:      opts.NLU,
		sessions: opts.Sessions,
		mailer:   opts.Mailer,
		convLog:  opts.ConversationLog,
		logger:   opts.Logger,
		pageSize: opts.PageSize,
		now:      time.Now,
	}
	if b.convLog == nil {
		b.convLog = chatlog.Noop{}
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.pageSize <= 0 {
		b.pageSize = 10
	}

	b.commands = map[string]commandHandler{
		"/start":     b.cmdStart,
		"/menu":      b.cmdMenu,
		"/help":      b.cmdHelp,
		"/customers": b.cmdCustomers,
		"/reports":   b.cmdReports,
	}

	b.intents = map[domain.Intent]intentHandler{
		domain.IntentStart:   b.welcome,
		domain.IntentMenu:    ignoreResult(b.showMainMenu),
		domain.IntentHelp:    ignoreResult(b.shortHelp),
		domain.IntentGreet:   b.welcome,
		domain.IntentGoodbye: ignoreResult(b.goodbye),

		domain.IntentCreateCustomer: b.createCustomer,
		domain.IntentListCustomers:  ignoreResult(b.listCustomersFirstPage),
		domain.IntentSearchCustomer: b.searchCustomerIntent,

		domain.IntentCreateQuotation: ignoreResult(b.startCreateQuotation),
		domain.IntentListQuotations:  ignoreResult(b.listQuotations),
		domain.IntentSendQuotation:   ignoreResult(b.startSendQuotation),

		domain.IntentListInvoices: ignoreResult(b.listAllInvoices),

		domain.IntentListItems:  ignoreResult(b.stockReport),
		domain.IntentCheckStock: ignoreResult(b.stockReport),

		domain.IntentReportsMenu:     ignoreResult(b.showReportsMenu),
		domain.IntentSalesReport:     ignoreResult(b.salesReport),
		domain.IntentFinancialReport: ignoreResult(b.financialReport),
		domain.IntentStockReport:     ignoreResult(b.stockReport),
		domain.IntentDashboard:       ignoreResult(b.dashboard),

		domain.IntentPOSMenu:        ignoreResult(b.showPOSMenu),
		domain.IntentPOSDaily:       ignoreResult(b.posDailyReport),
		domain.IntentPOSBestSellers: ignoreResult(b.posBestSellersReport),
		domain.IntentPOSBestSeller:  ignoreResult(b.posBestSellerReport),
		domain.IntentPOSCashier:     ignoreResult(b.posCashierReport),
	}

	b.steps = map[domain.Step]stepHandler{
		domain.StepCustomerName:        b.handleCustomerName,
		domain.StepCustomerEmail:       b.handleCustomerEmail,
		domain.StepCustomerPhone:       b.handleCustomerPhone,
		domain.StepCustomerSearchQuery: b.handleCustomerSearchQuery,

		domain.StepQuotationCustomer:  b.handleQuotationCustomer,
		domain.StepQuotationItemCode:  b.handleQuotationItemCode,
		domain.StepQuotationItemQty:   b.handleQuotationItemQty,
		domain.StepQuotationValidTill: b.handleQuotationValidTill,
		domain.StepQuotationTerms:     b.handleQuotationTerms,

		domain.StepSendQuotationName: b.sendQuotation,
	}

	b.callbacks = map[string]callbackHandler{
		cbMainMenu:       b.navigate(b.showMainMenu),
		cbMenuCustomers:  b.navigate(b.showCustomersMenu),
		cbMenuQuotations: b.navigate(b.showQuotationsMenu),
		cbMenuInvoices:   b.navigate(b.showInvoicesMenu),
		cbMenuReports:    b.navigate(b.showReportsMenu),

		cbCustomerCreate: b.startCreateCustomer,
		cbCustomerList:   b.listCustomersFirstPage,
		cbCustomerSearch: b.startSearchCustomer,

		cbQuotationCreate: b.startCreateQuotation,
		cbQuotationList:   b.listQuotations,
		cbQuotationSend:   b.startSendQuotation,

		cbInvoiceList:       b.listAllInvoices,
		cbInvoiceListPaid:   b.listInvoicesByStatus(erp.StatusPaid),
		cbInvoiceListUnpaid: b.listInvoicesByStatus(erp.StatusUnpaid),

		cbReportSales:     b.salesReport,
		cbReportCustomers: b.customersReport,
		cbReportStock:     b.stockReport,
		cbReportFinancial: b.financialReport,
		cbReportDashboard: b.dashboard,

		cbPOSMenu:        b.showPOSMenu,
		cbPOSDaily:       b.posDailyReport,
		cbPOSBestSellers: b.posBestSellersReport,
		cbPOSBestSeller:  b.posBestSellerReport,
		cbPOSCashier:     b.posCashierReport,
	}

	b.prefixes = []prefixRoute{
		{cbCustomerListPage, b.listCustomersPage},
		{cbQuotationView, b.viewQuotation},
		{cbQuotationSendOne, b.sendQuotation},
		{cbItemSelect, b.handleItemSelect},
		{cbInvoiceView, b.viewInvoice},
	}

	return b
}

func ignoreResult(h func(t *turn) error) intentHandler {
	return func(t *turn, _ nlu.Result) error { return h(t) }
}

// navigate wraps a menu so that opening it abandons any active flow.
func (b *Bot) navigate(h callbackHandler) callbackHandler {
	return func(t *turn) error {
		t.sess.Reset()
		return h(t)
	}
}

// turn collects the replies of one inbound message or callback.
type turn struct {
	ctx     context.Context
	user    domain.User
	sess    *domain.Session
	intent  domain.Intent
	replies []domain.Reply
}

func (t *turn) say(text string) {
	t.replies = append(t.replies, domain.Text(text))
}

func (t *turn) sayKB(text string, kb domain.Keyboard) {
	t.replies = append(t.replies, domain.Reply{Text: text, Keyboard: kb})
}

func (t *turn) markdown(text string, kb domain.Keyboard) {
	t.replies = append(t.replies, domain.Markdown(text, kb))
}

// failure is a handler error that carries its own user-facing message.
type failure struct {
	msg string
	kb  domain.Keyboard
	err error
}

func (f *failure) Error() string {
	return fmt.Sprintf("%s: %v", f.msg, f.err)
}

func (f *failure) Unwrap() error { return f.err }

func fail(msg string, kb domain.Keyboard, err error) error {
	return &failure{msg: msg, kb: kb, err: err}
}

// HandleMessage processes one free-text message and returns the replies in order.
func (b *Bot) HandleMessage(ctx context.Context, user domain.User, text string) []domain.Reply {
	text = strings.TrimSpace(text)
	t, done := b.begin(ctx, user)
	defer done()

	b.logEvent(t, chatlog.Inbound, "message", text)

	err := b.route(t, text)
	b.finish(t, err)
	return t.replies
}

// HandleCallback processes one inline keyboard press.
func (b *Bot) HandleCallback(ctx context.Context, user domain.User, data string) []domain.Reply {
	t, done := b.begin(ctx, user)
	defer done()

	b.logEvent(t, chatlog.Inbound, "callback", data)

	err := b.routeCallback(t, data)
	b.finish(t, err)
	return t.replies
}

func (b *Bot) begin(ctx context.Context, user domain.User) (*turn, func()) {
	sess := b.sessions.GetOrCreate(user.SessionKey())
	sess.Lock()
	sess.LastSeen = b.now()
	return &turn{ctx: ctx, user: user, sess: sess}, sess.Unlock
}

func (b *Bot) route(t *turn, text string) error {
	if isCancel(text) {
		return b.cancelFlow(t)
	}

	if cmd, ok := b.commands[commandName(text)]; ok {
		if commandName(text) != "/help" {
			t.sess.Reset()
		}
		return cmd(t)
	}

	if !t.sess.State.Idle() {
		step := t.sess.State.WaitingFor
		h, ok := b.steps[step]
		if !ok {
			b.logger.Warn("No handler for step", "user_id", t.user.ID, "step", step)
			t.sess.Reset()
			t.sayKB("❌ État inconnu. Retour au menu principal.", mainMenuKeyboard())
			return nil
		}
		return h(t, text)
	}

	res := b.nlu.Analyze(t.ctx, text, t.user.ID)
	t.intent = res.Intent.Intent()
	b.logger.Debug("Intent detected",
		"user_id", t.user.ID,
		"intent", t.intent,
		"confidence", res.Intent.Confidence,
		"entities", len(res.Entities),
	)

	h, ok := b.intents[t.intent]
	if !ok {
		return b.notUnderstood(t)
	}
	return h(t, res)
}

func (b *Bot) routeCallback(t *turn, data string) error {
	if h, ok := b.callbacks[data]; ok {
		return h(t)
	}
	for _, r := range b.prefixes {
		if arg, ok := strings.CutPrefix(data, r.prefix); ok && arg != "" {
			return r.handler(t, arg)
		}
	}
	b.logger.Warn("Unknown callback", "user_id", t.user.ID, "data", data)
	t.sayKB("❌ Action inconnue.", mainMenuKeyboard())
	return nil
}

// finish is the error boundary of a turn: the error is logged, the flow is
// abandoned and the user gets a failure message.
func (b *Bot) finish(t *turn, err error) {
	if err != nil {
		b.logger.Error("Handler failed",
			"user_id", t.user.ID,
			"intent", t.intent,
			"step", t.sess.State.WaitingFor,
			"error", err,
		)
		t.sess.Reset()

		var f *failure
		if errors.As(err, &f) {
			t.sayKB(f.msg, f.kb)
		} else {
			t.say(msgGenericError)
		}
	}

	for _, r := range t.replies {
		b.logEvent(t, chatlog.Outbound, "reply", r.Text)
	}
}

func (b *Bot) logEvent(t *turn, direction, eventType, content string) {
	b.convLog.Log(chatlog.Event{
		Timestamp:  b.now().UTC(),
		UserID:     t.user.ID,
		SessionID:  fmt.Sprintf("%d", t.sess.CreatedAt.Unix()),
		Channel:    t.user.Channel,
		Direction:  direction,
		EventType:  eventType,
		Intent:     string(t.intent),
		Step:       string(t.sess.State.WaitingFor),
		ContentRaw: content,
	})
}

func (b *Bot) cancelFlow(t *turn) error {
	wasActive := !t.sess.State.Idle()
	t.sess.Reset()
	if wasActive {
		t.sayKB("🚫 Opération annulée.", mainMenuKeyboard())
		return nil
	}
	t.sayKB("ℹ️ Aucune opération en cours.", mainMenuKeyboard())
	return nil
}

// commandName returns the leading slash command of text, without any
// @botname suffix, or "".
func commandName(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name := strings.Fields(text)[0]
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name)
}

func isCancel(text string) bool {
	return strings.EqualFold(text, "annuler") || commandName(text) == "/cancel"
}

func isSkip(text string) bool {
	return strings.EqualFold(text, "skip")
}
