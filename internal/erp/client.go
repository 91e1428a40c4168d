// Package erp is a client for the ERPNext (Frappe) REST API.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/erp-assistant/internal/cache"
)

// Config holds connection settings.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// Client talks to one ERPNext site.
type Client struct {
	baseURL    string
	auth       string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	cache    cache.Cache
	cacheTTL time.Duration
	genMu    sync.Mutex
	gens     map[string]uint64
}

// New creates a client.
func New(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/") + "/api",
		auth:       "token " + cfg.APIKey + ":" + cfg.APISecret,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		now:        time.Now,
		gens:       make(map[string]uint64),
	}
}

// WithCache enables read-through caching of list calls.
func (c *Client) WithCache(store cache.Cache, ttl time.Duration) *Client {
	c.cache = store
	c.cacheTTL = ttl
	return c
}

// Error is returned for every failed ERP call.
type Error struct {
	Status  int
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return "ERPNext Error: " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err is an ERP "document does not exist" error.
func IsNotFound(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Status == http.StatusNotFound || strings.Contains(e.Message, "DoesNotExistError")
}

// listParams are the query parameters accepted by resource list endpoints.
type listParams struct {
	Fields  []string
	Filters [][]any
	Start   int
	Limit   int
	OrderBy string
}

func (p listParams) values() url.Values {
	v := url.Values{}
	if len(p.Fields) > 0 {
		b, _ := json.Marshal(p.Fields)
		v.Set("fields", string(b))
	}
	if len(p.Filters) > 0 {
		b, _ := json.Marshal(p.Filters)
		v.Set("filters", string(b))
	}
	if p.Start > 0 {
		v.Set("limit_start", strconv.Itoa(p.Start))
	}
	if p.Limit > 0 {
		v.Set("limit_page_length", strconv.Itoa(p.Limit))
	}
	if p.OrderBy != "" {
		v.Set("order_by", p.OrderBy)
	}
	return v
}

func resourcePath(doctype string, name ...string) string {
	parts := []string{"/resource", url.PathEscape(doctype)}
	for _, n := range name {
		parts = append(parts, url.PathEscape(n))
	}
	return strings.Join(parts, "/")
}

// cachedDoctypes are master data lists that change rarely outside the bot.
// Transactional documents are always read live.
var cachedDoctypes = map[string]bool{
	doctypeCustomer: true,
	doctypeItem:     true,
}

// list fetches a resource list into out, going through the cache when enabled.
func (c *Client) list(ctx context.Context, doctype string, p listParams, out any) error {
	path := resourcePath(doctype)
	query := p.values()

	if c.cache == nil || !cachedDoctypes[doctype] {
		return c.do(ctx, http.MethodGet, path, query, nil, &dataEnvelope{Data: out})
	}

	key := c.cacheKey(doctype, query)
	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("ERP cache read failed", "key", key, "error", err)
	} else if ok {
		if err := json.Unmarshal(raw, out); err == nil {
			return nil
		}
	}

	if err := c.do(ctx, http.MethodGet, path, query, nil, &dataEnvelope{Data: out}); err != nil {
		return err
	}

	if raw, err := json.Marshal(out); err == nil {
		if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
			c.logger.Warn("ERP cache write failed", "key", key, "error", err)
		}
	}
	return nil
}

func (c *Client) cacheKey(doctype string, query url.Values) string {
	c.genMu.Lock()
	gen := c.gens[doctype]
	c.genMu.Unlock()
	return fmt.Sprintf("erp:%s:%d:%s", doctype, gen, query.Encode())
}

// invalidate makes cached lists of doctype unreachable.
func (c *Client) invalidate(doctype string) {
	c.genMu.Lock()
	c.gens[doctype]++
	c.genMu.Unlock()
}

type dataEnvelope struct {
	Data any `json:"data"`
}

// do performs one request and decodes the JSON body into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Status: resp.StatusCode, Path: path, Message: "invalid response: " + err.Error(), Err: err}
	}
	return nil
}

// send performs a request and returns the response when the status is 2xx.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Path: path, Message: "failed to marshal request: " + err.Error(), Err: err}
		}
		reader = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, &Error{Path: path, Message: err.Error(), Err: err}
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("ERP request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ERP request failed", "method", method, "path", path, "error", err)
		return nil, &Error{Path: path, Message: err.Error(), Err: err}
	}

	c.logger.Debug("ERP response", "status", resp.StatusCode, "path", path)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		e := &Error{Status: resp.StatusCode, Path: path, Message: errorMessage(resp.StatusCode, raw)}
		c.logger.Error("ERP response error", "path", path, "status", resp.StatusCode, "message", e.Message)
		return nil, e
	}
	return resp, nil
}

// errorMessage extracts the most useful message from a Frappe error body.
func errorMessage(status int, raw []byte) string {
	var body struct {
		Message   any    `json:"message"`
		Exception string `json:"exception"`
		ExcType   string `json:"exc_type"`
		Exc       string `json:"exc"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if s, ok := body.Message.(string); ok && s != "" {
			return s
		}
		for _, s := range []string{body.Exception, body.ExcType, body.Exc} {
			if s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("request failed with status %d", status)
}

// Ping checks credentials and returns the authenticated user.
func (c *Client) Ping(ctx context.Context) (string, error) {
	var env struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodGet, "/method/frappe.auth.get_logged_user", nil, nil, &env); err != nil {
		return "", err
	}
	return env.Message, nil
}

func (c *Client) today() string {
	return c.now().Format(DateLayout)
}
