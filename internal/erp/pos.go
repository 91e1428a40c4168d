package erp

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	doctypePOSOpening = "POS Opening Entry"
	doctypePOSClosing = "POS Closing Entry"

	detailWorkers = 4
)

var posInvoiceFields = []string{
	"name", "customer", "posting_date", "posting_time", "grand_total", "paid_amount", "status", "pos_profile", "owner",
}

// POSFilter narrows ListPOSInvoices. Empty fields are ignored.
type POSFilter struct {
	Date   string
	Status string
}

// ListPOSInvoices returns point-of-sale invoices, newest first.
func (c *Client) ListPOSInvoices(ctx context.Context, f POSFilter, limit int) ([]SalesInvoice, error) {
	p := listParams{
		Fields:  posInvoiceFields,
		Filters: [][]any{{"is_pos", "=", 1}},
		Limit:   limit,
		OrderBy: "posting_date desc, posting_time desc",
	}
	if f.Date != "" {
		p.Filters = append(p.Filters, []any{"posting_date", "=", f.Date})
	}
	if f.Status != "" {
		p.Filters = append(p.Filters, []any{"status", "=", f.Status})
	}

	var out []SalesInvoice
	if err := c.list(ctx, doctypeSalesInvoice, p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DailyPOSRevenue totals POS invoices of date (today when empty), grouped by user.
func (c *Client) DailyPOSRevenue(ctx context.Context, date string) (*DailyRevenue, error) {
	if date == "" {
		date = c.today()
	}
	invoices, err := c.ListPOSInvoices(ctx, POSFilter{Date: date}, 100)
	if err != nil {
		return nil, err
	}

	out := &DailyRevenue{Date: date}
	byUser := map[string]*UserSales{}
	for _, inv := range invoices {
		out.TotalRevenue += inv.GrandTotal
		out.TotalPaid += inv.PaidAmount
		out.InvoiceCount++

		user := orDefault(inv.Owner, "Unknown")
		u, ok := byUser[user]
		if !ok {
			u = &UserSales{User: user}
			byUser[user] = u
		}
		u.Count++
		u.Total += inv.GrandTotal
	}

	for _, u := range byUser {
		out.ByUser = append(out.ByUser, *u)
	}
	sort.Slice(out.ByUser, func(i, j int) bool {
		if out.ByUser[i].Total != out.ByUser[j].Total {
			return out.ByUser[i].Total > out.ByUser[j].Total
		}
		return out.ByUser[i].User < out.ByUser[j].User
	})
	return out, nil
}

func (c *Client) postedPOSInvoices(ctx context.Context, from, to string, fields []string, limit int) ([]SalesInvoice, error) {
	if from == "" {
		from = c.today()
	}
	if to == "" {
		to = c.today()
	}
	p := listParams{
		Fields: fields,
		Filters: [][]any{
			{"is_pos", "=", 1},
			{"posting_date", ">=", from},
			{"posting_date", "<=", to},
			{"status", "!=", StatusCancelled},
		},
		Limit: limit,
	}
	var out []SalesInvoice
	if err := c.list(ctx, doctypeSalesInvoice, p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BestSellingItems ranks items sold through POS between from and to (today
// when empty) by quantity. Invoices whose details cannot be fetched are skipped.
func (c *Client) BestSellingItems(ctx context.Context, from, to string, limit int) ([]ItemSales, error) {
	invoices, err := c.postedPOSInvoices(ctx, from, to, []string{"name"}, 100)
	if err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		sales = map[string]*ItemSales{}
		g     errgroup.Group
	)
	g.SetLimit(detailWorkers)
	for _, inv := range invoices {
		g.Go(func() error {
			detail, err := c.GetSalesInvoice(ctx, inv.Name)
			if err != nil {
				c.logger.Warn("Skipping POS invoice", "invoice", inv.Name, "error", err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, it := range detail.Items {
				s, ok := sales[it.ItemCode]
				if !ok {
					s = &ItemSales{ItemCode: it.ItemCode, ItemName: it.ItemName}
					sales[it.ItemCode] = s
				}
				s.Qty += it.Qty
				s.Amount += it.Amount
			}
			return nil
		})
	}
	_ = g.Wait() // workers skip unreadable invoices and never fail

	out := make([]ItemSales, 0, len(sales))
	for _, s := range sales {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Qty != out[j].Qty {
			return out[i].Qty > out[j].Qty
		}
		return out[i].ItemCode < out[j].ItemCode
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SalesPersonStats ranks POS users by sales between from and to (today when empty).
func (c *Client) SalesPersonStats(ctx context.Context, from, to string) ([]UserSales, error) {
	invoices, err := c.postedPOSInvoices(ctx, from, to, []string{"name", "owner", "grand_total", "posting_date"}, 500)
	if err != nil {
		return nil, err
	}

	byUser := map[string]*UserSales{}
	for _, inv := range invoices {
		user := orDefault(inv.Owner, "Unknown")
		u, ok := byUser[user]
		if !ok {
			u = &UserSales{User: user}
			byUser[user] = u
		}
		u.Count++
		u.Total += inv.GrandTotal
	}

	out := make([]UserSales, 0, len(byUser))
	for _, u := range byUser {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].User < out[j].User
	})
	return out, nil
}

// CashierStatus lists today's POS opening and closing entries, optionally for one profile.
func (c *Client) CashierStatus(ctx context.Context, profile string) (*CashierStatus, error) {
	today := c.today()
	filters := [][]any{{"posting_date", "=", today}}
	if profile != "" {
		filters = append(filters, []any{"pos_profile", "=", profile})
	}

	out := &CashierStatus{Date: today}

	if err := c.list(ctx, doctypePOSOpening, listParams{
		Fields:  []string{"name", "pos_profile", "user", "posting_date", "status"},
		Filters: filters,
		Limit:   10,
		OrderBy: "creation desc",
	}, &out.Openings); err != nil {
		return nil, err
	}

	if err := c.list(ctx, doctypePOSClosing, listParams{
		Fields:  []string{"name", "pos_profile", "user", "posting_date", "grand_total", "net_total", "total_quantity"},
		Filters: filters,
		Limit:   10,
		OrderBy: "creation desc",
	}, &out.Closings); err != nil {
		return nil, err
	}

	for _, o := range out.Openings {
		if o.Status == StatusOpen {
			out.HasOpenSession = true
			break
		}
	}
	return out, nil
}
