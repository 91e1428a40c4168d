package bot

import (
	"fmt"
	"strings"

	"github.com/ashureev/erp-assistant/internal/domain"
	"github.com/ashureev/erp-assistant/internal/erp"
)

const bestSellersLimit = 10

func (b *Bot) posDailyReport(t *turn) error {
	t.say("⏳ Génération du rapport POS du jour...")

	daily, err := b.erp.DailyPOSRevenue(t.ctx, "")
	if err != nil {
		return fail("❌ Erreur lors de la génération du rapport POS.", nil, fmt.Errorf("pos daily revenue: %w", err))
	}

	var sb strings.Builder
	sb.WriteString("🏪 *Recette du Jour (POS)*\n\n")
	fmt.Fprintf(&sb, "📅 Date: %s\n\n", formatDate(daily.Date))

	sb.WriteString("💰 *Résumé*\n")
	sb.WriteString(separator)
	fmt.Fprintf(&sb, "📋 Nombre de ventes: %d\n", daily.InvoiceCount)
	fmt.Fprintf(&sb, "💵 Total recettes: %s\n", money(daily.TotalRevenue))
	fmt.Fprintf(&sb, "✅ Total encaissé: %s\n\n", money(daily.TotalPaid))

	if len(daily.ByUser) > 0 {
		sb.WriteString("👥 *Par Vendeur*\n")
		sb.WriteString(separator)
		for _, u := range daily.ByUser {
			fmt.Fprintf(&sb, "• %s: %s (%d ventes)\n", md(shortUser(u.User)), money(u.Total), u.Count)
		}
	}

	t.markdown(sb.String(), domain.Keyboard{
		domain.Row(domain.Btn("🏆 Meilleurs articles", cbPOSBestSellers)),
		domain.Row(domain.Btn("🔄 Actualiser", cbPOSDaily)),
		domain.Row(btnMenuReports),
	})
	return nil
}

func (b *Bot) posBestSellersReport(t *turn) error {
	t.say("⏳ Recherche des meilleurs articles...")

	items, err := b.erp.BestSellingItems(t.ctx, "", "", bestSellersLimit)
	if err != nil {
		return fail(msgReportError, nil, fmt.Errorf("pos best selling items: %w", err))
	}
	if len(items) == 0 {
		t.sayKB("📭 Aucune vente POS trouvée pour aujourd'hui.", reportsBack())
		return nil
	}

	var sb strings.Builder
	sb.WriteString("🏆 *Meilleurs Articles du Jour*\n\n")
	for i, it := range items {
		fmt.Fprintf(&sb, "%s *%s*\n", medal(i), md(orDefault(it.ItemName, it.ItemCode)))
		fmt.Fprintf(&sb, "   📦 Qté vendue: %s\n", formatQty(it.Qty))
		fmt.Fprintf(&sb, "   💰 Montant: %s\n\n", money(it.Amount))
	}

	t.markdown(sb.String(), domain.Keyboard{
		domain.Row(domain.Btn("💵 Recette du jour", cbPOSDaily)),
		domain.Row(btnMenuReports),
	})
	return nil
}

func (b *Bot) posBestSellerReport(t *turn) error {
	t.say("⏳ Analyse des performances vendeurs...")

	people, err := b.erp.SalesPersonStats(t.ctx, "", "")
	if err != nil {
		return fail("❌ Erreur lors de la génération du classement.", nil, fmt.Errorf("pos sales person stats: %w", err))
	}
	if len(people) == 0 {
		t.sayKB("📭 Aucune vente POS trouvée pour aujourd'hui.", reportsBack())
		return nil
	}

	var sb strings.Builder
	sb.WriteString("👑 *Classement des Vendeurs*\n\n")
	fmt.Fprintf(&sb, "📅 Date: %s\n\n", b.now().Format(displayDate))
	for i, p := range people {
		avg := 0.0
		if p.Count > 0 {
			avg = p.Total / float64(p.Count)
		}
		fmt.Fprintf(&sb, "%s *%s*\n", medal(i), md(shortUser(p.User)))
		fmt.Fprintf(&sb, "   💰 Ventes: %s\n", money(p.Total))
		fmt.Fprintf(&sb, "   📋 Transactions: %d\n", p.Count)
		fmt.Fprintf(&sb, "   📊 Panier moyen: %s\n\n", money(avg))
	}

	t.markdown(sb.String(), domain.Keyboard{
		domain.Row(domain.Btn("💵 Recette du jour", cbPOSDaily)),
		domain.Row(domain.Btn("🔄 Actualiser", cbPOSBestSeller)),
		domain.Row(btnMenuReports),
	})
	return nil
}

func (b *Bot) posCashierReport(t *turn) error {
	t.say("⏳ Vérification de l'état de la caisse...")

	status, err := b.erp.CashierStatus(t.ctx, "")
	if err != nil {
		return fail("❌ Erreur lors de la vérification de la caisse.", nil, fmt.Errorf("pos cashier status: %w", err))
	}

	var sb strings.Builder
	sb.WriteString("🏦 *État de la Caisse*\n\n")
	fmt.Fprintf(&sb, "📅 Date: %s\n\n", formatDate(status.Date))
	if status.HasOpenSession {
		sb.WriteString("✅ *Statut: Caisse ouverte*\n\n")
	} else {
		sb.WriteString("🔴 *Statut: Caisse fermée*\n\n")
	}

	if len(status.Openings) > 0 {
		sb.WriteString("📂 *Ouvertures du jour*\n")
		sb.WriteString(separator)
		for _, o := range status.Openings {
			dot := "🔴"
			if o.Status == erp.StatusOpen {
				dot = "🟢"
			}
			fmt.Fprintf(&sb, "%s %s\n", dot, md(o.Name))
			fmt.Fprintf(&sb, "   👤 %s\n", md(shortUser(o.User)))
			fmt.Fprintf(&sb, "   📍 %s\n\n", md(orNA(o.POSProfile)))
		}
	} else {
		sb.WriteString("📂 Aucune ouverture de caisse aujourd'hui\n\n")
	}

	if len(status.Closings) > 0 {
		sb.WriteString("📁 *Fermetures du jour*\n")
		sb.WriteString(separator)
		for _, c := range status.Closings {
			fmt.Fprintf(&sb, "• %s\n", md(c.Name))
			fmt.Fprintf(&sb, "   👤 %s\n", md(shortUser(c.User)))
			fmt.Fprintf(&sb, "   💰 Total: %s\n", money(c.GrandTotal))
			fmt.Fprintf(&sb, "   📦 Articles: %s\n\n", formatQty(c.TotalQuantity))
		}
	}

	t.markdown(sb.String(), domain.Keyboard{
		domain.Row(domain.Btn("💵 Recette du jour", cbPOSDaily)),
		domain.Row(domain.Btn("🔄 Actualiser", cbPOSCashier)),
		domain.Row(btnMenuReports),
	})
	return nil
}
