package bot

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ashureev/erp-assistant/internal/domain"
	"github.com/ashureev/erp-assistant/internal/email"
	"github.com/ashureev/erp-assistant/internal/erp"
)

const (
	quotationListLimit = 10
	itemSearchLimit    = 10
	maxButtons         = 5
	itemButtonLabelLen = 30
)

func (b *Bot) listQuotations(t *turn) error {
	t.say("⏳ Récupération des devis...")

	quotations, err := b.erp.ListQuotations(t.ctx, erp.QuotationFilter{}, quotationListLimit)
	if err != nil {
		return fail("❌ Erreur lors de la récupération des devis.", nil, fmt.Errorf("list quotations: %w", err))
	}

	if len(quotations) == 0 {
		t.sayKB("📭 Aucun devis trouvé.\n\nSouhaitez-vous en créer un ?", domain.Keyboard{
			domain.Row(domain.Btn("➕ Créer un devis", cbQuotationCreate)),
			domain.Row(btnMenuQuotations),
		})
		return nil
	}

	var sb strings.Builder
	sb.WriteString("📄 *Liste des Devis*\n\n")
	for i, q := range quotations {
		fmt.Fprintf(&sb, "%d. *%s*\n", i+1, md(q.Name))
		fmt.Fprintf(&sb, "   👤 Client: %s\n", md(q.PartyName))
		fmt.Fprintf(&sb, "   📅 Date: %s\n", formatDate(q.TransactionDate))
		fmt.Fprintf(&sb, "   ⏰ Valide: %s\n", formatDate(q.ValidTill))
		fmt.Fprintf(&sb, "   💰 Montant: %s\n", money(q.GrandTotal))
		fmt.Fprintf(&sb, "   %s Statut: %s\n\n", quotationEmoji(q.Status), q.Status)
	}
	fmt.Fprintf(&sb, "📊 Total: %d devis", len(quotations))

	kb := domain.Keyboard{}
	for _, q := range quotations[:min(maxButtons, len(quotations))] {
		kb = append(kb, domain.Row(
			domain.Btn("👁️ "+q.Name, cbQuotationView+q.Name),
			domain.Btn("📧", cbQuotationSendOne+q.Name),
		))
	}
	kb = append(kb,
		domain.Row(domain.Btn("➕ Créer un devis", cbQuotationCreate)),
		domain.Row(btnMenuQuotations),
	)
	t.markdown(sb.String(), kb)
	return nil
}

func (b *Bot) viewQuotation(t *turn, name string) error {
	t.say("⏳ Chargement du devis...")

	q, err := b.erp.GetQuotation(t.ctx, name)
	if err != nil {
		return fail("❌ Erreur lors du chargement du devis.", nil, fmt.Errorf("get quotation %s: %w", name, err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📄 *Devis %s*\n\n", md(q.Name))
	fmt.Fprintf(&sb, "👤 *Client:* %s\n", md(q.PartyName))
	fmt.Fprintf(&sb, "📅 *Date:* %s\n", formatDate(q.TransactionDate))
	fmt.Fprintf(&sb, "⏰ *Valide jusqu'au:* %s\n\n", formatDate(q.ValidTill))
	sb.WriteString("📦 *Articles:*\n")
	for i, it := range q.Items {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, md(it.ItemName))
		fmt.Fprintf(&sb, "   Qté: %s × %s\n", formatQty(it.Qty), money(it.Rate))
		fmt.Fprintf(&sb, "   Total: %s\n\n", money(it.Amount))
	}
	sb.WriteString(separator)
	fmt.Fprintf(&sb, "💰 *Total:* %s\n", money(q.GrandTotal))
	fmt.Fprintf(&sb, "%s *Statut:* %s", quotationEmoji(q.Status), q.Status)
	if q.Terms != "" {
		fmt.Fprintf(&sb, "\n\n📋 *Conditions:*\n%s", md(q.Terms))
	}

	t.markdown(sb.String(), domain.Keyboard{
		domain.Row(domain.Btn("📧 Envoyer par email", cbQuotationSendOne+q.Name)),
		domain.Row(domain.Btn("↩️ Liste des devis", cbQuotationList)),
	})
	return nil
}

func (b *Bot) startCreateQuotation(t *turn) error {
	t.sess.Begin(domain.IntentCreateQuotation, domain.StepQuotationCustomer)
	t.markdown("➕ *Création d'un nouveau devis*\n\n👤 Entrez le nom du client :", nil)
	return nil
}

func (b *Bot) handleQuotationCustomer(t *turn, input string) error {
	if input == "" {
		t.say("👤 Entrez le nom du client :")
		return nil
	}

	c, err := b.erp.GetCustomer(t.ctx, input)
	if erp.IsNotFound(err) {
		t.sayKB(fmt.Sprintf("❌ Client \"%s\" introuvable.\n\n", input)+
			"Veuillez entrer un nom de client valide ou tapez \"annuler\" :",
			domain.Keyboard{domain.Row(domain.Btn("❌ Annuler", cbMenuQuotations))})
		return nil
	}
	if err != nil {
		return fmt.Errorf("get customer %q: %w", input, err)
	}

	customer := c.Name
	if customer == "" {
		customer = input
	}
	t.sess.State.Data.Customer = customer
	t.sess.State.Data.CustomerEmail = c.Email
	t.sess.Await(domain.StepQuotationItemCode)

	t.markdown(fmt.Sprintf("✅ Client: *%s*\n", md(customer))+
		fmt.Sprintf("📧 Email: %s\n\n", md(orDefault(c.Email, "Non renseigné")))+
		"📦 Entrez le nom ou code de l'article (ou \"fini\" pour terminer) :", nil)
	return nil
}

func (b *Bot) handleQuotationItemCode(t *turn, input string) error {
	if strings.EqualFold(input, "fini") {
		return b.finishItems(t)
	}
	if input == "" {
		t.say("❌ Entrez un nom ou code article valide, ou \"fini\" pour terminer :")
		return nil
	}

	item, err := b.erp.GetItem(t.ctx, input)
	if err == nil {
		b.selectItem(t, item, "✅ Article")
		return nil
	}
	if !erp.IsNotFound(err) {
		return fmt.Errorf("get item %q: %w", input, err)
	}

	items, err := b.erp.ListItems(t.ctx, erp.ItemFilter{Search: input}, itemSearchLimit)
	if err != nil {
		return fmt.Errorf("search items %q: %w", input, err)
	}

	switch len(items) {
	case 0:
		t.say(fmt.Sprintf("❌ Aucun article trouvé pour \"%s\".\n\n", input) +
			"Entrez un nom ou code article valide, ou \"fini\" pour terminer :")
	case 1:
		b.selectItem(t, &items[0], "✅ Article")
	default:
		b.offerItems(t, input, items)
	}
	return nil
}

// offerItems asks the user to pick among several matches. The buttons carry
// the item code so the choice never depends on a second text search.
func (b *Bot) offerItems(t *turn, query string, items []erp.Item) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔍 *%d articles trouvés pour \"%s\":*\n\n", len(items), md(query))

	kb := domain.Keyboard{}
	for i, it := range items[:min(maxButtons, len(items))] {
		fmt.Fprintf(&sb, "%d. *%s*\n", i+1, md(it.ItemName))
		fmt.Fprintf(&sb, "   Code: %s\n", md(itemCode(&it)))
		fmt.Fprintf(&sb, "   Prix: %s\n\n", money(it.StandardRate))
		kb = append(kb, domain.Row(domain.Btn(
			fmt.Sprintf("%d. %s", i+1, truncate(it.ItemName, itemButtonLabelLen)),
			cbItemSelect+itemCode(&it),
		)))
	}
	sb.WriteString("Sélectionnez un article ou tapez un autre nom :")
	t.markdown(sb.String(), kb)
}

func (b *Bot) handleItemSelect(t *turn, code string) error {
	st := t.sess.State
	if st.Action != domain.IntentCreateQuotation ||
		(st.WaitingFor != domain.StepQuotationItemCode && st.WaitingFor != domain.StepQuotationItemQty) {
		t.sayKB("⚠️ Aucune création de devis en cours.", domain.Keyboard{
			domain.Row(domain.Btn("➕ Créer un devis", cbQuotationCreate)),
			domain.Row(btnMenuQuotations),
		})
		return nil
	}

	item, err := b.erp.GetItem(t.ctx, code)
	if err != nil {
		return fail("❌ Erreur lors de la sélection de l'article.", nil, fmt.Errorf("get item %q: %w", code, err))
	}
	b.selectItem(t, item, "✅ Article sélectionné")
	return nil
}

func (b *Bot) selectItem(t *turn, item *erp.Item, label string) {
	t.sess.State.Data.CurrentItem = &domain.QuotationLine{
		Code: itemCode(item),
		Name: item.ItemName,
		Rate: item.StandardRate,
	}
	t.sess.Await(domain.StepQuotationItemQty)

	t.markdown(fmt.Sprintf("%s: *%s*\n", label, md(item.ItemName))+
		fmt.Sprintf("💰 Prix: %s\n\n", money(item.StandardRate))+
		"🔢 Entrez la quantité :", nil)
}

func itemCode(it *erp.Item) string {
	if it.ItemCode != "" {
		return it.ItemCode
	}
	return it.Name
}

func (b *Bot) handleQuotationItemQty(t *turn, input string) error {
	qty, err := strconv.ParseFloat(strings.Replace(input, ",", ".", 1), 64)
	if err != nil || math.IsNaN(qty) || math.IsInf(qty, 0) || qty <= 0 {
		t.say("❌ Quantité invalide. Entrez un nombre positif :")
		return nil
	}

	d := &t.sess.State.Data
	cur := d.CurrentItem
	if cur == nil {
		t.sess.Await(domain.StepQuotationItemCode)
		t.say("📦 Entrez le nom ou code de l'article (ou \"fini\" pour terminer) :")
		return nil
	}

	d.Items = append(d.Items, domain.QuotationLine{
		Code:        cur.Code,
		Name:        cur.Name,
		Qty:         qty,
		Rate:        cur.Rate,
		Description: cur.Name,
	})
	d.CurrentItem = nil
	t.sess.Await(domain.StepQuotationItemCode)

	t.say(fmt.Sprintf("✅ Article ajouté: %s × %s = %s\n\n", cur.Name, formatQty(qty), money(qty*cur.Rate)) +
		"📦 Entrez le nom ou code d'un autre article, ou \"fini\" pour terminer :")
	return nil
}

func (b *Bot) finishItems(t *turn) error {
	items := t.sess.State.Data.Items
	if len(items) == 0 {
		t.say("❌ Vous devez ajouter au moins un article. Entrez un nom ou code article :")
		return nil
	}

	t.sess.Await(domain.StepQuotationValidTill)

	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("%d. %s × %s", i+1, md(it.Name), formatQty(it.Qty))
	}
	t.markdown("📦 *Articles ajoutés:*\n"+strings.Join(lines, "\n")+
		"\n\n⏰ Entrez la date de validité (jours) (ex: 30) :", nil)
	return nil
}

func (b *Bot) handleQuotationValidTill(t *turn, input string) error {
	days, err := strconv.Atoi(input)
	if err != nil || days <= 0 {
		t.say("❌ Nombre de jours invalide. Entrez un nombre positif :")
		return nil
	}

	validTill := b.now().AddDate(0, 0, days).Format(erp.DateLayout)
	t.sess.State.Data.ValidTill = validTill
	t.sess.Await(domain.StepQuotationTerms)

	t.say(fmt.Sprintf("✅ Valide jusqu'au: %s\n\n", formatDate(validTill)) +
		"📋 Entrez les conditions (ou \"skip\" pour passer) :")
	return nil
}

func (b *Bot) handleQuotationTerms(t *turn, input string) error {
	d := &t.sess.State.Data
	if !isSkip(input) {
		d.Terms = input
	}

	t.say("⏳ Création du devis en cours...")

	in := erp.QuotationInput{Customer: d.Customer, ValidTill: d.ValidTill, Terms: d.Terms}
	var total float64
	for _, it := range d.Items {
		in.Items = append(in.Items, erp.QuotationItem{
			ItemCode:    it.Code,
			ItemName:    it.Name,
			Qty:         it.Qty,
			Rate:        it.Rate,
			Description: it.Description,
		})
		total += it.Qty * it.Rate
	}

	q, err := b.erp.CreateQuotation(t.ctx, in)
	if err != nil {
		return fail(msgQuotationCreateFailed, domain.Keyboard{
			domain.Row(domain.Btn("🔄 Réessayer", cbQuotationCreate)),
			domain.Row(btnMenuQuotations),
		}, fmt.Errorf("create quotation: %w", err))
	}

	status := "Submitted"
	if _, err := b.erp.SubmitQuotation(t.ctx, q.Name); err != nil {
		b.logger.Warn("Could not auto-submit quotation", "user_id", t.user.ID, "quotation", q.Name, "error", err)
		status = erp.StatusDraft
	}
	b.logger.Info("Quotation created", "user_id", t.user.ID, "quotation", q.Name, "status", status)

	t.markdown("✅ *Devis créé avec succès !*\n\n"+
		fmt.Sprintf("📄 Numéro: %s\n", md(q.Name))+
		fmt.Sprintf("👤 Client: %s\n", md(d.Customer))+
		fmt.Sprintf("📦 Articles: %d\n", len(d.Items))+
		fmt.Sprintf("💰 Total: %s\n", money(total))+
		fmt.Sprintf("⏰ Valide jusqu'au: %s\n", formatDate(d.ValidTill))+
		fmt.Sprintf("%s Statut: %s", quotationEmoji(status), status),
		domain.Keyboard{
			domain.Row(domain.Btn("📧 Envoyer par email", cbQuotationSendOne+q.Name)),
			domain.Row(domain.Btn("👁️ Voir le devis", cbQuotationView+q.Name)),
			domain.Row(domain.Btn("➕ Créer un autre", cbQuotationCreate)),
			domain.Row(btnMenuQuotations),
		})

	t.sess.Reset()
	return nil
}

func (b *Bot) startSendQuotation(t *turn) error {
	t.sess.Begin(domain.IntentSendQuotation, domain.StepSendQuotationName)
	t.markdown("📧 *Envoi de devis par email*\n\n📄 Entrez le numéro du devis :", nil)
	return nil
}

// sendQuotation e-mails a quotation to its customer. It serves both the
// send_quotation_name step and the per-quotation send button.
func (b *Bot) sendQuotation(t *turn, name string) error {
	backKB := domain.Keyboard{domain.Row(btnMenuQuotations)}
	t.sess.Reset()

	if name == "" {
		t.sayKB("❌ Numéro de devis manquant.", backKB)
		return nil
	}

	t.say("⏳ Récupération du devis...")

	q, err := b.erp.GetQuotation(t.ctx, name)
	if err != nil {
		return fail(msgQuotationSendFailed, backKB, fmt.Errorf("get quotation %s: %w", name, err))
	}
	if q.PartyName == "" {
		return fail("❌ Erreur lors de l'envoi du devis:\nClient non trouvé dans le devis", backKB,
			fmt.Errorf("quotation %s has no customer", name))
	}

	c, err := b.erp.GetCustomer(t.ctx, q.PartyName)
	if err != nil {
		return fail(msgQuotationSendFailed, backKB, fmt.Errorf("get customer %s: %w", q.PartyName, err))
	}
	if c.Email == "" {
		t.sayKB(fmt.Sprintf("❌ Le client %s n'a pas d'email renseigné.\n\n", q.PartyName)+
			"Veuillez ajouter un email au client dans ERPNext.", backKB)
		return nil
	}

	if b.mailer == nil || !b.mailer.Enabled() {
		return fail(msgEmailNotConfigured, backKB, email.ErrNotConfigured)
	}

	t.say(fmt.Sprintf("📧 Envoi du devis à %s...", c.Email))

	pdf, err := b.erp.QuotationPDF(t.ctx, q.Name)
	if err != nil {
		b.logger.Warn("Quotation PDF unavailable, sending without attachment", "quotation", q.Name, "error", err)
		pdf = nil
	}

	messageID, err := b.mailer.SendQuotation(t.ctx, q, c.Email, pdf)
	if errors.Is(err, email.ErrNotConfigured) {
		return fail(msgEmailNotConfigured, backKB, err)
	}
	if err != nil {
		return fail(msgQuotationSendFailed, backKB, err)
	}

	t.markdown("✅ *Devis envoyé avec succès !*\n\n"+
		fmt.Sprintf("📄 Devis: %s\n", md(q.Name))+
		fmt.Sprintf("👤 Client: %s\n", md(q.PartyName))+
		fmt.Sprintf("📧 Email: %s\n", md(c.Email))+
		fmt.Sprintf("💰 Montant: %s\n\n", money(q.GrandTotal))+
		fmt.Sprintf("Message ID: %s", md(messageID)),
		domain.Keyboard{
			domain.Row(domain.Btn("👁️ Voir le devis", cbQuotationView+q.Name)),
			domain.Row(domain.Btn("📋 Liste des devis", cbQuotationList)),
			domain.Row(btnMenuQuotations),
		})
	return nil
}

const msgEmailNotConfigured = "❌ Erreur lors de l'envoi du devis:\n\n" +
	"⚠️ Le service email n'est pas configuré.\n" +
	"Veuillez configurer EMAIL_USER et EMAIL_PASSWORD dans le fichier .env"

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
