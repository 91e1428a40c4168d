package erp

import (
	"context"
	"net/http"
)

const doctypeItem = "Item"

var itemFields = []string{
	"name", "item_code", "item_name", "item_group", "stock_uom", "standard_rate", "is_stock_item",
}

// ItemFilter narrows ListItems.
type ItemFilter struct {
	Search string
}

// ListItems returns items, optionally filtered by name.
func (c *Client) ListItems(ctx context.Context, f ItemFilter, limit int) ([]Item, error) {
	p := listParams{Fields: itemFields, Limit: limit}
	if f.Search != "" {
		p.Filters = [][]any{{"item_name", "like", "%" + f.Search + "%"}}
	}
	var out []Item
	if err := c.list(ctx, doctypeItem, p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetItem fetches an item by code.
func (c *Client) GetItem(ctx context.Context, code string) (*Item, error) {
	var out Item
	if err := c.do(ctx, http.MethodGet, resourcePath(doctypeItem, code), nil, nil, &dataEnvelope{Data: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}
