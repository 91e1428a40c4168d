package bot

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ashureev/erp-assistant/internal/domain"
	"github.com/ashureev/erp-assistant/internal/erp"
)

const (
	salesReportLimit     = 50
	financialReportLimit = 100
	customerReportLimit  = 100
	stockReportLimit     = 50
	dashboardLimit       = 100
)

const msgReportError = "❌ Erreur lors de la génération du rapport."

func reportsBack() domain.Keyboard {
	return domain.Keyboard{domain.Row(btnMenuReports)}
}

func (b *Bot) salesReport(t *turn) error {
	t.say("⏳ Génération du rapport des ventes...")

	invoices, err := b.erp.ListSalesInvoices(t.ctx, erp.InvoiceFilter{}, salesReportLimit)
	if err != nil {
		return fail(msgReportError, nil, fmt.Errorf("sales report: %w", err))
	}
	if len(invoices) == 0 {
		t.sayKB("📭 Aucune facture trouvée.", reportsBack())
		return nil
	}

	var total, outstanding float64
	var paid, unpaid int
	statuses := newCounter()
	for _, inv := range invoices {
		total += inv.GrandTotal
		outstanding += inv.OutstandingAmount
		switch inv.Status {
		case erp.StatusPaid:
			paid++
		case erp.StatusUnpaid, erp.StatusOverdue:
			unpaid++
		}
		statuses.add(inv.Status)
	}

	var sb strings.Builder
	sb.WriteString("💰 *Rapport des Ventes*\n\n")
	sb.WriteString("📊 *Statistiques Globales*\n")
	sb.WriteString(separator)
	fmt.Fprintf(&sb, "📋 Total factures: %d\n", len(invoices))
	fmt.Fprintf(&sb, "✅ Payées: %d\n", paid)
	fmt.Fprintf(&sb, "⏳ Non payées: %d\n\n", unpaid)

	sb.WriteString("💵 *Montants*\n")
	sb.WriteString(separator)
	fmt.Fprintf(&sb, "💰 Total: %s\n", money(total))
	fmt.Fprintf(&sb, "✅ Encaissé: %s\n", money(total-outstanding))
	fmt.Fprintf(&sb, "⏳ Restant: %s\n\n", money(outstanding))

	sb.WriteString("📈 *Répartition par Statut*\n")
	sb.WriteString(separator)
	for _, status := range statuses.order {
		fmt.Fprintf(&sb, "%s %s: %d\n", statusEmoji(status), status, statuses.counts[status])
	}

	t.markdown(sb.String(), domain.Keyboard{
		domain.Row(domain.Btn("💰 Voir les factures", cbInvoiceList)),
		domain.Row(btnMenuReports),
	})
	return nil
}

func (b *Bot) customersReport(t *turn) error {
	t.say("⏳ Génération du rapport clients...")

	customers, err := b.erp.ListCustomers(t.ctx, erp.CustomerFilter{}, customerReportLimit, 0)
	if err != nil {
		return fail(msgReportError, nil, fmt.Errorf("customers report: %w", err))
	}
	if len(customers) == 0 {
		t.sayKB("📭 Aucun client trouvé.", reportsBack())
		return nil
	}

	groups, territories, types := newCounter(), newCounter(), newCounter()
	for _, c := range customers {
		groups.add(orNA(c.CustomerGroup))
		territories.add(orNA(c.Territory))
		types.add(orNA(c.CustomerType))
	}

	var sb strings.Builder
	sb.WriteString("👥 *Rapport des Clients*\n\n")
	fmt.Fprintf(&sb, "📊 *Total: %d clients*\n\n", len(customers))

	writeCounts(&sb, "🏷️ *Par Groupe*\n", groups, groups.top(5))
	writeCounts(&sb, "\n🌍 *Par Territoire*\n", territories, territories.top(5))
	writeCounts(&sb, "\n📝 *Par Type*\n", types, types.order)

	t.markdown(sb.String(), domain.Keyboard{
		domain.Row(domain.Btn("👥 Voir les clients", cbCustomerList)),
		domain.Row(btnMenuReports),
	})
	return nil
}

func writeCounts(sb *strings.Builder, title string, c *counter, keys []string) {
	sb.WriteString(title)
	sb.WriteString(separator)
	for _, k := range keys {
		fmt.Fprintf(sb, "• %s: %d\n", md(k), c.counts[k])
	}
}

func (b *Bot) stockReport(t *turn) error {
	t.say("⏳ Génération du rapport de stock...")

	items, err := b.erp.ListItems(t.ctx, erp.ItemFilter{}, stockReportLimit)
	if err != nil {
		return fail(msgReportError, nil, fmt.Errorf("stock report: %w", err))
	}
	if len(items) == 0 {
		t.sayKB("📭 Aucun article trouvé.", reportsBack())
		return nil
	}

	groups := newCounter()
	var stocked, nonStocked int
	for _, it := range items {
		groups.add(orNA(it.ItemGroup))
		if it.IsStockItem != 0 {
			stocked++
		} else {
			nonStocked++
		}
	}

	var sb strings.Builder
	sb.WriteString("📦 *Rapport de Stock*\n\n")
	sb.WriteString("📊 *Statistiques*\n")
	sb.WriteString(separator)
	fmt.Fprintf(&sb, "📋 Total articles: %d\n", len(items))
	fmt.Fprintf(&sb, "📦 Articles en stock: %d\n", stocked)
	fmt.Fprintf(&sb, "📝 Articles hors stock: %d\n\n", nonStocked)
	writeCounts(&sb, "🏷️ *Par Groupe*\n", groups, groups.top(10))

	t.markdown(sb.String(), reportsBack())
	return nil
}

func (b *Bot) financialReport(t *turn) error {
	t.say("⏳ Génération du rapport financier...")

	invoices, err := b.erp.ListSalesInvoices(t.ctx, erp.InvoiceFilter{}, financialReportLimit)
	if err != nil {
		return fail(msgReportError, nil, fmt.Errorf("financial report: %w", err))
	}
	if len(invoices) == 0 {
		t.sayKB("📭 Aucune donnée financière disponible.", reportsBack())
		return nil
	}

	now := b.now()
	currentMonth := now.Format("2006-01")
	lastMonth := now.AddDate(0, -1, -now.Day()+1).Format("2006-01")

	var current, previous, paid, unpaid float64
	for _, inv := range invoices {
		month := inv.PostingDate
		if len(month) >= 7 {
			month = month[:7]
		}
		switch month {
		case currentMonth:
			current += inv.GrandTotal
		case lastMonth:
			previous += inv.GrandTotal
		}

		if inv.Status == erp.StatusPaid {
			paid += inv.GrandTotal
		} else {
			unpaid += inv.OutstandingAmount
		}
	}

	growth := "0"
	if previous > 0 {
		growth = fmt.Sprintf("%.1f", (current-previous)/previous*100)
	}

	var sb strings.Builder
	sb.WriteString("📈 *Rapport Financier*\n\n")
	sb.WriteString("💰 *Revenus*\n")
	sb.WriteString(separator)
	fmt.Fprintf(&sb, "📅 Mois en cours: %s\n", money(current))
	fmt.Fprintf(&sb, "📅 Mois dernier: %s\n", money(previous))
	fmt.Fprintf(&sb, "📊 Croissance: %s%%\n\n", growth)

	sb.WriteString("💵 *Trésorerie*\n")
	sb.WriteString(separator)
	fmt.Fprintf(&sb, "✅ Encaissé: %s\n", money(paid))
	fmt.Fprintf(&sb, "⏳ À encaisser: %s\n", money(unpaid))
	fmt.Fprintf(&sb, "💰 Total: %s\n\n", money(paid+unpaid))
	fmt.Fprintf(&sb, "📊 *Taux de recouvrement*: %s%%", percent(paid, paid+unpaid))

	t.markdown(sb.String(), domain.Keyboard{
		domain.Row(domain.Btn("💰 Voir les factures", cbInvoiceList)),
		domain.Row(btnMenuReports),
	})
	return nil
}

func (b *Bot) dashboard(t *turn) error {
	t.say("⏳ Génération du dashboard...")

	var (
		customers  []erp.Customer
		invoices   []erp.SalesInvoice
		quotations []erp.Quotation
	)
	g, ctx := errgroup.WithContext(t.ctx)
	g.Go(func() (err error) {
		customers, err = b.erp.ListCustomers(ctx, erp.CustomerFilter{}, dashboardLimit, 0)
		return err
	})
	g.Go(func() (err error) {
		invoices, err = b.erp.ListSalesInvoices(ctx, erp.InvoiceFilter{}, dashboardLimit)
		return err
	})
	g.Go(func() (err error) {
		quotations, err = b.erp.ListQuotations(ctx, erp.QuotationFilter{}, dashboardLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return fail("❌ Erreur lors de la génération du dashboard.", nil, fmt.Errorf("dashboard: %w", err))
	}

	var revenue, outstanding float64
	var paid, unpaid int
	for _, inv := range invoices {
		revenue += inv.GrandTotal
		outstanding += inv.OutstandingAmount
		switch inv.Status {
		case erp.StatusPaid:
			paid++
		case erp.StatusUnpaid, erp.StatusOverdue:
			unpaid++
		}
	}
	var open, ordered int
	for _, q := range quotations {
		switch q.Status {
		case erp.StatusOpen:
			open++
		case erp.StatusOrdered:
			ordered++
		}
	}

	var sb strings.Builder
	sb.WriteString("📊 *Dashboard Global*\n\n")
	fmt.Fprintf(&sb, "📅 %s\n\n", b.now().Format("02/01/2006 15:04"))

	sb.WriteString("👥 *Clients*\n")
	sb.WriteString(separator)
	fmt.Fprintf(&sb, "📋 Total: %d\n\n", len(customers))

	sb.WriteString("💰 *Ventes*\n")
	sb.WriteString(separator)
	fmt.Fprintf(&sb, "📋 Factures: %d\n", len(invoices))
	fmt.Fprintf(&sb, "✅ Payées: %d\n", paid)
	fmt.Fprintf(&sb, "⏳ En attente: %d\n", unpaid)
	fmt.Fprintf(&sb, "💰 Revenu total: %s\n", money(revenue))
	fmt.Fprintf(&sb, "⏳ À encaisser: %s\n\n", money(outstanding))

	sb.WriteString("📄 *Devis*\n")
	sb.WriteString(separator)
	fmt.Fprintf(&sb, "📋 Total: %d\n", len(quotations))
	fmt.Fprintf(&sb, "📬 Ouverts: %d\n", open)
	fmt.Fprintf(&sb, "✅ Convertis: %d\n\n", ordered)
	fmt.Fprintf(&sb, "📊 *Taux de conversion*: %s%%", percent(float64(ordered), float64(len(quotations))))

	t.markdown(sb.String(), domain.Keyboard{
		domain.Row(domain.Btn("👥 Clients", cbCustomerList), domain.Btn("💰 Factures", cbInvoiceList)),
		domain.Row(domain.Btn("🔄 Actualiser", cbReportDashboard)),
		domain.Row(btnMenuReports),
	})
	return nil
}
