package erp

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

const doctypeQuotation = "Quotation"

const pdfMethod = "/method/frappe.utils.print_format.download_pdf"

var quotationFields = []string{
	"name", "party_name", "customer_name", "transaction_date", "valid_till", "grand_total", "status",
}

// QuotationFilter narrows ListQuotations.
type QuotationFilter struct {
	Customer string
}

// ListQuotations returns the most recent quotations.
func (c *Client) ListQuotations(ctx context.Context, f QuotationFilter, limit int) ([]Quotation, error) {
	p := listParams{Fields: quotationFields, Limit: limit, OrderBy: "transaction_date desc"}
	if f.Customer != "" {
		p.Filters = [][]any{{"party_name", "=", f.Customer}}
	}
	var out []Quotation
	if err := c.list(ctx, doctypeQuotation, p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetQuotation fetches a quotation with its items.
func (c *Client) GetQuotation(ctx context.Context, name string) (*Quotation, error) {
	var out Quotation
	if err := c.do(ctx, http.MethodGet, resourcePath(doctypeQuotation, name), nil, nil, &dataEnvelope{Data: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateQuotation creates a draft quotation for a customer.
func (c *Client) CreateQuotation(ctx context.Context, in QuotationInput) (*Quotation, error) {
	items := make([]map[string]any, 0, len(in.Items))
	for _, it := range in.Items {
		line := map[string]any{"item_code": it.ItemCode, "qty": it.Qty}
		if it.Rate > 0 {
			line["rate"] = it.Rate
		}
		if it.Description != "" {
			line["description"] = it.Description
		}
		items = append(items, line)
	}
	body := map[string]any{
		"party_name":   in.Customer,
		"quotation_to": "Customer",
		"items":        items,
		"valid_till":   in.ValidTill,
		"terms":        in.Terms,
	}

	var out Quotation
	if err := c.do(ctx, http.MethodPost, resourcePath(doctypeQuotation), nil, body, &dataEnvelope{Data: &out}); err != nil {
		return nil, err
	}
	c.invalidate(doctypeQuotation)
	return &out, nil
}

// SubmitQuotation moves a draft quotation to submitted (docstatus 1).
func (c *Client) SubmitQuotation(ctx context.Context, name string) (*Quotation, error) {
	var out Quotation
	body := map[string]any{"docstatus": 1}
	if err := c.do(ctx, http.MethodPut, resourcePath(doctypeQuotation, name), nil, body, &dataEnvelope{Data: &out}); err != nil {
		return nil, err
	}
	c.invalidate(doctypeQuotation)
	return &out, nil
}

func pdfQuery(name string) url.Values {
	return url.Values{
		"doctype":       {doctypeQuotation},
		"name":          {name},
		"format":        {"Standard"},
		"no_letterhead": {"0"},
	}
}

// QuotationPDF downloads the printable PDF of a quotation.
func (c *Client) QuotationPDF(ctx context.Context, name string) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, pdfMethod, pdfQuery(name), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Status: resp.StatusCode, Path: pdfMethod, Message: err.Error(), Err: err}
	}
	return data, nil
}
