package erp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
}

func TestDailyPOSRevenue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.JSONEq(t, `[["is_pos","=",1],["posting_date","=","2026-10-15"]]`, r.URL.Query().Get("filters"))
		writeJSON(t, w, map[string]any{"data": []map[string]any{
			{"name": "A", "grand_total": 10, "paid_amount": 10, "owner": "amira@shop.tn"},
			{"name": "B", "grand_total": 30, "paid_amount": 20, "owner": "karim@shop.tn"},
			{"name": "C", "grand_total": 5, "paid_amount": 5, "owner": "amira@shop.tn"},
			{"name": "D", "grand_total": 1},
		}})
	})
	c.now = fixedNow

	got, err := c.DailyPOSRevenue(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "2026-10-15", got.Date)
	assert.Equal(t, 4, got.InvoiceCount)
	assert.Equal(t, 46.0, got.TotalRevenue)
	assert.Equal(t, 35.0, got.TotalPaid)
	require.Len(t, got.ByUser, 3)
	assert.Equal(t, UserSales{User: "karim@shop.tn", Count: 1, Total: 30}, got.ByUser[0])
	assert.Equal(t, UserSales{User: "amira@shop.tn", Count: 2, Total: 15}, got.ByUser[1])
	assert.Equal(t, "Unknown", got.ByUser[2].User)
}

func TestBestSellingItems(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/resource/Sales Invoice":
			writeJSON(t, w, map[string]any{"data": []map[string]any{{"name": "A"}, {"name": "B"}, {"name": "BROKEN"}}})
		case strings.HasSuffix(r.URL.Path, "/BROKEN"):
			http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
		case strings.HasSuffix(r.URL.Path, "/A"):
			writeJSON(t, w, map[string]any{"data": map[string]any{"name": "A", "items": []map[string]any{
				{"item_code": "CAFE", "item_name": "Café", "qty": 2, "amount": 4},
				{"item_code": "THE", "item_name": "Thé", "qty": 1, "amount": 1.5},
			}}})
		case strings.HasSuffix(r.URL.Path, "/B"):
			writeJSON(t, w, map[string]any{"data": map[string]any{"name": "B", "items": []map[string]any{
				{"item_code": "THE", "item_name": "Thé", "qty": 5, "amount": 7.5},
			}}})
		default:
			http.NotFound(w, r)
		}
	})
	c.now = fixedNow

	got, err := c.BestSellingItems(context.Background(), "", "", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ItemSales{ItemCode: "THE", ItemName: "Thé", Qty: 6, Amount: 9}, got[0])
}

func TestBestSellingItemsBoundsDetailFetches(t *testing.T) {
	const invoices = 20
	var inFlight, peak atomic.Int32

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/resource/Sales Invoice" {
			list := make([]map[string]any, invoices)
			for i := range list {
				list[i] = map[string]any{"name": fmt.Sprintf("INV-%02d", i)}
			}
			writeJSON(t, w, map[string]any{"data": list})
			return
		}

		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		writeJSON(t, w, map[string]any{"data": map[string]any{"items": []map[string]any{
			{"item_code": "CAFE", "item_name": "Café", "qty": 1, "amount": 2},
		}}})
	})
	c.now = fixedNow

	got, err := c.BestSellingItems(context.Background(), "", "", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, float64(invoices), got[0].Qty)
	assert.LessOrEqual(t, peak.Load(), int32(detailWorkers))
}

func TestSalesPersonStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("filters"), `["status","!=","Cancelled"]`)
		writeJSON(t, w, map[string]any{"data": []map[string]any{
			{"name": "A", "grand_total": 10, "owner": "a"},
			{"name": "B", "grand_total": 50, "owner": "b"},
			{"name": "C", "grand_total": 15, "owner": "a"},
		}})
	})
	c.now = fixedNow

	got, err := c.SalesPersonStats(context.Background(), "2026-10-01", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].User)
	assert.Equal(t, UserSales{User: "a", Count: 2, Total: 25}, got[1])
}

func TestCashierStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/resource/POS Opening Entry":
			writeJSON(t, w, map[string]any{"data": []map[string]any{
				{"name": "OPEN-1", "user": "amira@shop.tn", "status": "Closed"},
				{"name": "OPEN-2", "user": "karim@shop.tn", "status": "Open"},
			}})
		case "/api/resource/POS Closing Entry":
			writeJSON(t, w, map[string]any{"data": []map[string]any{
				{"name": "CLOSE-1", "user": "amira@shop.tn", "grand_total": 120.5, "total_quantity": 14},
			}})
		default:
			http.NotFound(w, r)
		}
	})
	c.now = fixedNow

	got, err := c.CashierStatus(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", got.Date)
	assert.True(t, got.HasOpenSession)
	assert.Len(t, got.Openings, 2)
	require.Len(t, got.Closings, 1)
	assert.Equal(t, 120.5, got.Closings[0].GrandTotal)
}
