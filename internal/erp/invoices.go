package erp

import (
	"context"
	"net/http"
)

const doctypeSalesInvoice = "Sales Invoice"

var invoiceFields = []string{
	"name", "customer", "posting_date", "due_date", "grand_total", "outstanding_amount", "status",
}

// InvoiceFilter narrows ListSalesInvoices. Empty fields are ignored.
type InvoiceFilter struct {
	Customer string
	Status   []string
}

// ListSalesInvoices returns the most recent invoices first.
func (c *Client) ListSalesInvoices(ctx context.Context, f InvoiceFilter, limit int) ([]SalesInvoice, error) {
	p := listParams{Fields: invoiceFields, Limit: limit, OrderBy: "posting_date desc"}
	if f.Customer != "" {
		p.Filters = append(p.Filters, []any{"customer", "=", f.Customer})
	}
	switch len(f.Status) {
	case 0:
	case 1:
		p.Filters = append(p.Filters, []any{"status", "=", f.Status[0]})
	default:
		p.Filters = append(p.Filters, []any{"status", "in", f.Status})
	}

	var out []SalesInvoice
	if err := c.list(ctx, doctypeSalesInvoice, p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSalesInvoice fetches an invoice with its items.
func (c *Client) GetSalesInvoice(ctx context.Context, name string) (*SalesInvoice, error) {
	var out SalesInvoice
	if err := c.do(ctx, http.MethodGet, resourcePath(doctypeSalesInvoice, name), nil, nil, &dataEnvelope{Data: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}
