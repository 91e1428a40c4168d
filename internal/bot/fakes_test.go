package bot

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/erp-assistant/internal/domain"
	"github.com/ashureev/erp-assistant/internal/erp"
	"github.com/ashureev/erp-assistant/internal/nlu"
	"github.com/ashureev/erp-assistant/internal/session"
)

var errNotFound = &erp.Error{Status: http.StatusNotFound, Message: "DoesNotExistError"}

type fakeERP struct {
	mu    sync.Mutex
	calls []string

	customers  map[string]erp.Customer
	items      map[string]erp.Item
	quotations map[string]erp.Quotation
	invoices   map[string]erp.SalesInvoice

	customerList  []erp.Customer
	quotationList []erp.Quotation
	invoiceList   []erp.SalesInvoice
	itemSearch    []erp.Item

	daily     *erp.DailyRevenue
	best      []erp.ItemSales
	people    []erp.UserSales
	cashier   *erp.CashierStatus
	pdf       []byte
	pdfErr    error
	listErr   error
	getErr    error
	createErr error
	submitErr error

	createdCustomers  []erp.CustomerInput
	createdQuotations []erp.QuotationInput
	submitted         []string
	customerQueries   []erp.CustomerFilter
	customerOffsets   []int
	invoiceFilters    []erp.InvoiceFilter
}

func newFakeERP() *fakeERP {
	return &fakeERP{
		customers:  map[string]erp.Customer{},
		items:      map[string]erp.Item{},
		quotations: map[string]erp.Quotation{},
		invoices:   map[string]erp.SalesInvoice{},
	}
}

func (f *fakeERP) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeERP) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeERP) ListCustomers(_ context.Context, filter erp.CustomerFilter, _, offset int) ([]erp.Customer, error) {
	f.record("ListCustomers")
	f.mu.Lock()
	f.customerQueries = append(f.customerQueries, filter)
	f.customerOffsets = append(f.customerOffsets, offset)
	f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.customerList, nil
}

func (f *fakeERP) GetCustomer(_ context.Context, name string) (*erp.Customer, error) {
	f.record("GetCustomer")
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.customers[name]
	if !ok {
		return nil, errNotFound
	}
	return &c, nil
}

func (f *fakeERP) CreateCustomer(_ context.Context, in erp.CustomerInput) (*erp.Customer, error) {
	f.record("CreateCustomer")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createdCustomers = append(f.createdCustomers, in)
	return &erp.Customer{Name: "CUST-0001", CustomerName: in.Name, Email: in.Email, Mobile: in.Phone}, nil
}

func (f *fakeERP) ListQuotations(context.Context, erp.QuotationFilter, int) ([]erp.Quotation, error) {
	f.record("ListQuotations")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.quotationList, nil
}

func (f *fakeERP) GetQuotation(_ context.Context, name string) (*erp.Quotation, error) {
	f.record("GetQuotation")
	q, ok := f.quotations[name]
	if !ok {
		return nil, errNotFound
	}
	return &q, nil
}

func (f *fakeERP) CreateQuotation(_ context.Context, in erp.QuotationInput) (*erp.Quotation, error) {
	f.record("CreateQuotation")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createdQuotations = append(f.createdQuotations, in)
	return &erp.Quotation{Name: "SAL-QTN-0001", PartyName: in.Customer, Status: erp.StatusDraft}, nil
}

func (f *fakeERP) SubmitQuotation(_ context.Context, name string) (*erp.Quotation, error) {
	f.record("SubmitQuotation")
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, name)
	return &erp.Quotation{Name: name, DocStatus: 1}, nil
}

func (f *fakeERP) QuotationPDF(context.Context, string) ([]byte, error) {
	f.record("QuotationPDF")
	return f.pdf, f.pdfErr
}

func (f *fakeERP) ListSalesInvoices(_ context.Context, filter erp.InvoiceFilter, _ int) ([]erp.SalesInvoice, error) {
	f.record("ListSalesInvoices")
	f.mu.Lock()
	f.invoiceFilters = append(f.invoiceFilters, filter)
	f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.invoiceList, nil
}

func (f *fakeERP) GetSalesInvoice(_ context.Context, name string) (*erp.SalesInvoice, error) {
	f.record("GetSalesInvoice")
	inv, ok := f.invoices[name]
	if !ok {
		return nil, errNotFound
	}
	return &inv, nil
}

func (f *fakeERP) ListItems(_ context.Context, filter erp.ItemFilter, _ int) ([]erp.Item, error) {
	f.record("ListItems")
	if f.listErr != nil {
		return nil, f.listErr
	}
	if filter.Search != "" {
		return f.itemSearch, nil
	}
	out := make([]erp.Item, 0, len(f.items))
	for _, it := range f.items {
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeERP) GetItem(_ context.Context, code string) (*erp.Item, error) {
	f.record("GetItem")
	if f.getErr != nil {
		return nil, f.getErr
	}
	it, ok := f.items[code]
	if !ok {
		return nil, errNotFound
	}
	return &it, nil
}

func (f *fakeERP) DailyPOSRevenue(context.Context, string) (*erp.DailyRevenue, error) {
	f.record("DailyPOSRevenue")
	if f.daily == nil {
		return &erp.DailyRevenue{Date: "2026-10-15"}, nil
	}
	return f.daily, nil
}

func (f *fakeERP) BestSellingItems(context.Context, string, string, int) ([]erp.ItemSales, error) {
	f.record("BestSellingItems")
	return f.best, nil
}

func (f *fakeERP) SalesPersonStats(context.Context, string, string) ([]erp.UserSales, error) {
	f.record("SalesPersonStats")
	return f.people, nil
}

func (f *fakeERP) CashierStatus(context.Context, string) (*erp.CashierStatus, error) {
	f.record("CashierStatus")
	if f.cashier == nil {
		return &erp.CashierStatus{Date: "2026-10-15"}, nil
	}
	return f.cashier, nil
}

// fakeNLU returns canned results keyed by text.
type fakeNLU struct {
	results map[string]nlu.Result
}

func (f *fakeNLU) Analyze(_ context.Context, text, _ string) nlu.Result {
	if r, ok := f.results[text]; ok {
		return r
	}
	return nlu.Result{Text: text, Intent: nlu.IntentScore{Name: string(domain.IntentUnknown)}}
}

func intentResult(intent domain.Intent, entities nlu.Entities) nlu.Result {
	return nlu.Result{Intent: nlu.IntentScore{Name: string(intent), Confidence: 0.9}, Entities: entities}
}

type fakeMailer struct {
	enabled bool
	err     error
	sent    []sentMail
}

type sentMail struct {
	quotation string
	to        string
	pdf       []byte
}

func (m *fakeMailer) Enabled() bool { return m.enabled }

func (m *fakeMailer) SendQuotation(_ context.Context, q *erp.Quotation, to string, pdf []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, sentMail{quotation: q.Name, to: to, pdf: pdf})
	return "<msg-1@example.com>", nil
}

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type harness struct {
	bot    *Bot
	erp    *fakeERP
	nlu    *fakeNLU
	mailer *fakeMailer
	user   domain.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		erp:    newFakeERP(),
		nlu:    &fakeNLU{results: map[string]nlu.Result{}},
		mailer: &fakeMailer{enabled: true},
		user:   domain.User{ID: "42", FirstName: "Amira", Channel: "test"},
	}
	h.bot = New(Options{
		ERP:      h.erp,
		NLU:      h.nlu,
		Sessions: session.NewManager(0, 0, logger),
		Mailer:   h.mailer,
		Logger:   logger,
		PageSize: 10,
	})
	h.bot.now = func() time.Time { return fixedNow }
	return h
}

func (h *harness) send(text string) []domain.Reply {
	return h.bot.HandleMessage(context.Background(), h.user, text)
}

func (h *harness) press(data string) []domain.Reply {
	return h.bot.HandleCallback(context.Background(), h.user, data)
}

func (h *harness) state() domain.FlowState {
	s := h.bot.sessions.GetOrCreate(h.user.SessionKey())
	s.Lock()
	defer s.Unlock()
	return s.State
}

func lastText(replies []domain.Reply) string {
	if len(replies) == 0 {
		return ""
	}
	return replies[len(replies)-1].Text
}

func allText(replies []domain.Reply) string {
	parts := make([]string, len(replies))
	for i, r := range replies {
		parts[i] = r.Text
	}
	return strings.Join(parts, "\n---\n")
}

func buttons(replies []domain.Reply) []string {
	var out []string
	for _, r := range replies {
		for _, row := range r.Keyboard {
			for _, b := range row {
				out = append(out, b.Data)
			}
		}
	}
	return out
}
