package bot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/erp-assistant/internal/erp"
)

const displayDate = "02/01/2006"

// money formats an amount in dinars.
func money(v float64) string {
	return fmt.Sprintf("%.2f TND", v)
}

// formatDate turns an ERPNext date into dd/mm/yyyy.
func formatDate(s string) string {
	if s == "" {
		return "N/A"
	}
	d, err := time.Parse(erp.DateLayout, s)
	if err != nil {
		return s
	}
	return d.Format(displayDate)
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func percent(part, total float64) string {
	if total == 0 {
		return "0"
	}
	return fmt.Sprintf("%.1f", part/total*100)
}

var documentStatusEmoji = map[string]string{
	erp.StatusPaid:      "✅",
	erp.StatusUnpaid:    "⏳",
	erp.StatusOverdue:   "🔴",
	erp.StatusCancelled: "🚫",
	erp.StatusDraft:     "📝",
	"Submitted":         "📤",
	"Return":            "↩️",
}

var quotationStatusEmoji = map[string]string{
	erp.StatusDraft:     "📝",
	erp.StatusOpen:      "📬",
	"Submitted":         "📤",
	erp.StatusOrdered:   "✅",
	"Lost":              "❌",
	erp.StatusCancelled: "🚫",
}

func statusEmoji(status string) string {
	if e, ok := documentStatusEmoji[status]; ok {
		return e
	}
	return "📄"
}

func quotationEmoji(status string) string {
	if e, ok := quotationStatusEmoji[status]; ok {
		return e
	}
	return "📄"
}

var invoiceStatusLabels = map[string]string{
	erp.StatusPaid:    "✅ Payées",
	erp.StatusUnpaid:  "⏳ Non payées",
	erp.StatusOverdue: "🔴 En retard",
}

func statusLabel(status string) string {
	if l, ok := invoiceStatusLabels[status]; ok {
		return l
	}
	return status
}

// medal returns the podium emoji for a zero-based rank.
func medal(rank int) string {
	switch rank {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank+1)
	}
}

// shortUser drops the domain of an e-mail style user id.
func shortUser(user string) string {
	if name, _, ok := strings.Cut(user, "@"); ok && name != "" {
		return name
	}
	return user
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// md escapes text interpolated into a Markdown reply.
func md(s string) string {
	return markdownEscaper.Replace(s)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// counter counts keys and remembers the order they were first seen in.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: map[string]int{}}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// top returns up to n keys by descending count, ties in first-seen order.
// n <= 0 returns all keys.
func (c *counter) top(n int) []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	sort.SliceStable(keys, func(i, j int) bool { return c.counts[keys[i]] > c.counts[keys[j]] })
	if n > 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
