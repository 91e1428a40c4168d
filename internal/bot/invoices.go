package bot

import (
	"fmt"
	"strings"

	"github.com/ashureev/erp-assistant/internal/domain"
	"github.com/ashureev/erp-assistant/internal/erp"
)

const invoiceListLimit = 10

func (b *Bot) listAllInvoices(t *turn) error {
	return b.listInvoices(t, "")
}

func (b *Bot) listInvoicesByStatus(status string) callbackHandler {
	return func(t *turn) error {
		return b.listInvoices(t, status)
	}
}

func (b *Bot) listInvoices(t *turn, status string) error {
	t.say("⏳ Récupération des factures...")

	var f erp.InvoiceFilter
	if status != "" {
		f.Status = []string{status}
	}
	invoices, err := b.erp.ListSalesInvoices(t.ctx, f, invoiceListLimit)
	if err != nil {
		return fail("❌ Erreur lors de la récupération des factures.", nil, fmt.Errorf("list invoices: %w", err))
	}

	if len(invoices) == 0 {
		t.sayKB("📭 Aucune facture trouvée.", domain.Keyboard{domain.Row(btnMenuInvoices)})
		return nil
	}

	var sb strings.Builder
	sb.WriteString("💰 *Factures de Vente*")
	if status != "" {
		fmt.Fprintf(&sb, " (%s)", statusLabel(status))
	}
	sb.WriteString("\n\n")

	var total, outstanding float64
	for i, inv := range invoices {
		fmt.Fprintf(&sb, "%d. *%s*\n", i+1, md(inv.Name))
		fmt.Fprintf(&sb, "   👤 Client: %s\n", md(inv.Customer))
		fmt.Fprintf(&sb, "   📅 Date: %s\n", formatDate(inv.PostingDate))
		fmt.Fprintf(&sb, "   💰 Montant: %s\n", money(inv.GrandTotal))
		if inv.OutstandingAmount > 0 {
			fmt.Fprintf(&sb, "   ⏳ Restant: %s\n", money(inv.OutstandingAmount))
		}
		fmt.Fprintf(&sb, "   %s %s\n\n", statusEmoji(inv.Status), inv.Status)

		total += inv.GrandTotal
		outstanding += inv.OutstandingAmount
	}
	sb.WriteString(separator)
	fmt.Fprintf(&sb, "💰 Total: %s\n", money(total))
	if outstanding > 0 {
		fmt.Fprintf(&sb, "⏳ Montant restant: %s\n", money(outstanding))
	}
	fmt.Fprintf(&sb, "📊 %d facture(s)", len(invoices))

	kb := domain.Keyboard{}
	for _, inv := range invoices[:min(maxButtons, len(invoices))] {
		kb = append(kb, domain.Row(domain.Btn("👁️ "+inv.Name, cbInvoiceView+inv.Name)))
	}
	kb = append(kb,
		domain.Row(domain.Btn("✅ Payées", cbInvoiceListPaid), domain.Btn("⏳ En attente", cbInvoiceListUnpaid)),
		domain.Row(domain.Btn("📋 Toutes", cbInvoiceList)),
		domain.Row(btnMenuInvoices),
	)
	t.markdown(sb.String(), kb)
	return nil
}

func (b *Bot) viewInvoice(t *turn, name string) error {
	t.say("⏳ Chargement de la facture...")

	inv, err := b.erp.GetSalesInvoice(t.ctx, name)
	if err != nil {
		return fail("❌ Erreur lors du chargement de la facture.", nil, fmt.Errorf("get invoice %s: %w", name, err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💰 *Facture %s*\n\n", md(inv.Name))
	fmt.Fprintf(&sb, "👤 *Client:* %s\n", md(inv.Customer))
	fmt.Fprintf(&sb, "📅 *Date:* %s\n", formatDate(inv.PostingDate))
	fmt.Fprintf(&sb, "📅 *Échéance:* %s\n\n", formatDate(inv.DueDate))
	sb.WriteString("📦 *Articles:*\n")
	for i, it := range inv.Items {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, md(it.ItemName))
		fmt.Fprintf(&sb, "   Qté: %s × %s\n", formatQty(it.Qty), money(it.Rate))
		fmt.Fprintf(&sb, "   Total: %s\n\n", money(it.Amount))
	}
	sb.WriteString(separator)
	fmt.Fprintf(&sb, "💰 *Total:* %s\n", money(inv.GrandTotal))
	if inv.OutstandingAmount > 0 {
		fmt.Fprintf(&sb, "⏳ *Restant:* %s\n", money(inv.OutstandingAmount))
	}
	fmt.Fprintf(&sb, "%s *Statut:* %s", statusEmoji(inv.Status), inv.Status)

	t.markdown(sb.String(), domain.Keyboard{
		domain.Row(domain.Btn("↩️ Liste des factures", cbInvoiceList)),
	})
	return nil
}
