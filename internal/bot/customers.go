package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ashureev/erp-assistant/internal/domain"
	"github.com/ashureev/erp-assistant/internal/erp"
	"github.com/ashureev/erp-assistant/internal/nlu"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minNameLength = 2

func (b *Bot) listCustomersFirstPage(t *turn) error {
	return b.listCustomersPage(t, "0")
}

func (b *Bot) listCustomersPage(t *turn, arg string) error {
	page, err := strconv.Atoi(arg)
	if err != nil || page < 0 {
		page = 0
	}

	t.say("⏳ Récupération des clients...")

	customers, err := b.erp.ListCustomers(t.ctx, erp.CustomerFilter{}, b.pageSize, page*b.pageSize)
	if err != nil {
		return fail("❌ Erreur lors de la récupération des clients.", nil, fmt.Errorf("list customers: %w", err))
	}

	if len(customers) == 0 {
		t.sayKB("📭 Aucun client trouvé.\n\nSouhaitez-vous en créer un ?", domain.Keyboard{
			domain.Row(domain.Btn("➕ Créer un client", cbCustomerCreate)),
			domain.Row(btnMenuCustomers),
		})
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 *Liste des Clients* (Page %d)\n\n", page+1)
	for i, c := range customers {
		fmt.Fprintf(&sb, "%d. *%s*\n", i+1, md(c.CustomerName))
		fmt.Fprintf(&sb, "   📧 %s\n", md(orNA(c.Email)))
		fmt.Fprintf(&sb, "   📱 %s\n", md(orNA(c.Mobile)))
		fmt.Fprintf(&sb, "   🏷️ %s\n", md(orNA(c.CustomerGroup)))
		fmt.Fprintf(&sb, "   🌍 %s\n\n", md(orNA(c.Territory)))
	}
	fmt.Fprintf(&sb, "💼 Total: %d client(s)", len(customers))

	var nav []domain.Button
	if page > 0 {
		nav = append(nav, domain.Btn("⬅️ Précédent", cbCustomerListPage+strconv.Itoa(page-1)))
	}
	if len(customers) == b.pageSize {
		nav = append(nav, domain.Btn("➡️ Suivant", cbCustomerListPage+strconv.Itoa(page+1)))
	}

	kb := domain.Keyboard{}
	if len(nav) > 0 {
		kb = append(kb, nav)
	}
	kb = append(kb,
		domain.Row(domain.Btn("➕ Créer un client", cbCustomerCreate)),
		domain.Row(btnMenuCustomers),
	)
	t.markdown(sb.String(), kb)
	return nil
}

func (b *Bot) startCreateCustomer(t *turn) error {
	t.sess.Begin(domain.IntentCreateCustomer, domain.StepCustomerName)
	t.markdown("➕ *Création d'un nouveau client*\n\n👤 Veuillez entrer le nom du client :", nil)
	return nil
}

// createCustomer creates the customer straight away when the message named
// one, otherwise it starts the form.
func (b *Bot) createCustomer(t *turn, res nlu.Result) error {
	name := strings.TrimSpace(res.Entities.First(nlu.EntityName))
	if len([]rune(name)) < minNameLength {
		return b.startCreateCustomer(t)
	}

	email := res.Entities.First(nlu.EntityEmail)
	if email != "" && !emailPattern.MatchString(email) {
		email = ""
	}
	return b.submitCustomer(t, erp.CustomerInput{
		Name:  name,
		Email: email,
		Phone: res.Entities.First(nlu.EntityPhone),
	})
}

func (b *Bot) handleCustomerName(t *turn, input string) error {
	if len([]rune(input)) < minNameLength {
		t.say("❌ Le nom doit contenir au moins 2 caractères. Réessayez :")
		return nil
	}

	t.sess.State.Data.Name = input
	t.sess.Await(domain.StepCustomerEmail)
	t.markdown(fmt.Sprintf("✅ Nom enregistré: *%s*\n\n", md(input))+
		"📧 Veuillez entrer l'email du client (ou tapez \"skip\" pour passer) :", nil)
	return nil
}

func (b *Bot) handleCustomerEmail(t *turn, input string) error {
	switch {
	case isSkip(input):
		t.sess.State.Data.Email = ""
	case emailPattern.MatchString(input):
		t.sess.State.Data.Email = input
	default:
		t.say("❌ Email invalide. Veuillez entrer un email valide (ou \"skip\") :")
		return nil
	}

	t.sess.Await(domain.StepCustomerPhone)
	t.say("📱 Veuillez entrer le numéro de téléphone (ou tapez \"skip\" pour terminer) :")
	return nil
}

func (b *Bot) handleCustomerPhone(t *turn, input string) error {
	if !isSkip(input) && input != "" {
		t.sess.State.Data.Phone = input
	}

	d := t.sess.State.Data
	err := b.submitCustomer(t, erp.CustomerInput{Name: d.Name, Email: d.Email, Phone: d.Phone})
	if err == nil {
		t.sess.Reset()
	}
	return err
}

func (b *Bot) submitCustomer(t *turn, in erp.CustomerInput) error {
	t.say("⏳ Création du client en cours...")

	c, err := b.erp.CreateCustomer(t.ctx, in)
	if err != nil {
		return fail(msgCustomerCreateFailed, domain.Keyboard{
			domain.Row(domain.Btn("🔄 Réessayer", cbCustomerCreate)),
			domain.Row(btnMenuCustomers),
		}, fmt.Errorf("create customer: %w", err))
	}

	b.logger.Info("Customer created", "user_id", t.user.ID, "customer", c.Name)

	t.markdown("✅ *Client créé avec succès !*\n\n"+
		fmt.Sprintf("👤 Nom: %s\n", md(c.CustomerName))+
		fmt.Sprintf("📧 Email: %s\n", md(orNA(c.Email)))+
		fmt.Sprintf("📱 Téléphone: %s\n", md(orNA(c.Mobile)))+
		fmt.Sprintf("🆔 ID: %s", md(c.Name)),
		domain.Keyboard{
			domain.Row(domain.Btn("➕ Créer un autre", cbCustomerCreate)),
			domain.Row(domain.Btn("📋 Voir les clients", cbCustomerList)),
			domain.Row(btnMenuCustomers),
		})
	return nil
}

func (b *Bot) startSearchCustomer(t *turn) error {
	t.sess.Begin(domain.IntentSearchCustomer, domain.StepCustomerSearchQuery)
	t.markdown("🔍 *Recherche de client*\n\nEntrez le nom du client à rechercher :", nil)
	return nil
}

func (b *Bot) searchCustomerIntent(t *turn, res nlu.Result) error {
	query := strings.TrimSpace(res.Entities.First(nlu.EntityName))
	if query == "" {
		return b.startSearchCustomer(t)
	}
	return b.searchCustomers(t, query)
}

func (b *Bot) handleCustomerSearchQuery(t *turn, input string) error {
	if input == "" {
		t.say("❌ Entrez le nom du client à rechercher :")
		return nil
	}
	t.sess.State.Data.SearchQuery = input
	if err := b.searchCustomers(t, input); err != nil {
		return err
	}
	t.sess.Reset()
	return nil
}

func (b *Bot) searchCustomers(t *turn, query string) error {
	t.say("⏳ Recherche en cours...")

	customers, err := b.erp.ListCustomers(t.ctx, erp.CustomerFilter{Search: query}, 10, 0)
	if err != nil {
		return fail("❌ Erreur lors de la recherche.", nil, fmt.Errorf("search customers: %w", err))
	}

	kb := domain.Keyboard{
		domain.Row(domain.Btn("🔍 Nouvelle recherche", cbCustomerSearch)),
		domain.Row(btnMenuCustomers),
	}

	if len(customers) == 0 {
		t.sayKB(fmt.Sprintf("📭 Aucun client trouvé pour \"%s\"", query), kb)
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔍 *Résultats pour \"%s\"*\n\n", md(query))
	for i, c := range customers {
		fmt.Fprintf(&sb, "%d. *%s*\n", i+1, md(c.CustomerName))
		fmt.Fprintf(&sb, "   📧 %s\n", md(orNA(c.Email)))
		fmt.Fprintf(&sb, "   📱 %s\n\n", md(orNA(c.Mobile)))
	}
	t.markdown(sb.String(), kb)
	return nil
}
