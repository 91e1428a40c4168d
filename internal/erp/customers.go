package erp

import (
	"context"
	"net/http"
)

const doctypeCustomer = "Customer"

var customerFields = []string{
	"name", "customer_name", "customer_type", "customer_group", "territory", "email_id", "mobile_no",
}

// CustomerFilter narrows ListCustomers.
type CustomerFilter struct {
	Search string
}

// ListCustomers returns one page of customers.
func (c *Client) ListCustomers(ctx context.Context, f CustomerFilter, limit, offset int) ([]Customer, error) {
	p := listParams{Fields: customerFields, Start: offset, Limit: limit}
	if f.Search != "" {
		p.Filters = [][]any{{"customer_name", "like", "%" + f.Search + "%"}}
	}
	var out []Customer
	if err := c.list(ctx, doctypeCustomer, p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCustomer fetches a customer by document name.
func (c *Client) GetCustomer(ctx context.Context, name string) (*Customer, error) {
	var out Customer
	if err := c.do(ctx, http.MethodGet, resourcePath(doctypeCustomer, name), nil, nil, &dataEnvelope{Data: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCustomer creates an individual customer.
func (c *Client) CreateCustomer(ctx context.Context, in CustomerInput) (*Customer, error) {
	body := map[string]any{
		"customer_name":  in.Name,
		"customer_type":  orDefault(in.Type, "Individual"),
		"customer_group": orDefault(in.Group, "Individual"),
		"territory":      orDefault(in.Territory, "All Territories"),
	}
	if in.Email != "" {
		body["email_id"] = in.Email
	}
	if in.Phone != "" {
		body["mobile_no"] = in.Phone
	}

	var out Customer
	if err := c.do(ctx, http.MethodPost, resourcePath(doctypeCustomer), nil, body, &dataEnvelope{Data: &out}); err != nil {
		return nil, err
	}
	c.invalidate(doctypeCustomer)
	return &out, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
