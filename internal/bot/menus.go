package bot

import (
	"fmt"

	"github.com/ashureev/erp-assistant/internal/domain"
	"github.com/ashureev/erp-assistant/internal/nlu"
)

// Callback data carried by inline keyboard buttons.
const (
	cbMainMenu       = "main_menu"
	cbMenuCustomers  = "menu_customers"
	cbMenuQuotations = "menu_quotations"
	cbMenuInvoices   = "menu_invoices"
	cbMenuReports    = "menu_reports"

	cbCustomerCreate   = "customer_create"
	cbCustomerList     = "customer_list"
	cbCustomerSearch   = "customer_search"
	cbCustomerListPage = "customer_list_"

	cbQuotationCreate  = "quotation_create"
	cbQuotationList    = "quotation_list"
	cbQuotationSend    = "quotation_send"
	cbQuotationView    = "quotation_view_"
	cbQuotationSendOne = "quotation_send_"
	cbItemSelect       = "item_select_"

	cbInvoiceList       = "invoice_list"
	cbInvoiceListPaid   = "invoice_list_paid"
	cbInvoiceListUnpaid = "invoice_list_unpaid"
	cbInvoiceView       = "invoice_view_"

	cbReportSales     = "report_sales"
	cbReportCustomers = "report_customers"
	cbReportStock     = "report_stock"
	cbReportFinancial = "report_financial"
	cbReportDashboard = "report_dashboard"

	cbPOSMenu        = "report_pos_menu"
	cbPOSDaily       = "report_pos_daily"
	cbPOSBestSellers = "report_pos_bestsellers"
	cbPOSBestSeller  = "report_pos_bestseller"
	cbPOSCashier     = "report_pos_cashier"
)

const (
	msgGenericError = "❌ Une erreur est survenue. Veuillez réessayer."
	separator       = "━━━━━━━━━━━━━━━━━\n"
)

// ERP failures are logged in full; users only see these.
const (
	msgCustomerCreateFailed  = "❌ Erreur lors de la création du client.\nVeuillez réessayer plus tard."
	msgQuotationCreateFailed = "❌ Erreur lors de la création du devis.\nVeuillez réessayer plus tard."
	msgQuotationSendFailed   = "❌ Erreur lors de l'envoi du devis.\nVeuillez réessayer plus tard."
)

var (
	btnMainMenu       = domain.Btn("↩️ Menu principal", cbMainMenu)
	btnMenuCustomers  = domain.Btn("↩️ Menu clients", cbMenuCustomers)
	btnMenuQuotations = domain.Btn("↩️ Menu devis", cbMenuQuotations)
	btnMenuInvoices   = domain.Btn("↩️ Menu factures", cbMenuInvoices)
	btnMenuReports    = domain.Btn("↩️ Menu rapports", cbMenuReports)
)

func mainMenuKeyboard() domain.Keyboard {
	return domain.Keyboard{
		domain.Row(domain.Btn("👥 Clients", cbMenuCustomers), domain.Btn("📄 Devis", cbMenuQuotations)),
		domain.Row(domain.Btn("💰 Factures", cbMenuInvoices), domain.Btn("📊 Rapports", cbMenuReports)),
	}
}

func (b *Bot) showMainMenu(t *turn) error {
	t.markdown("📋 *Menu Principal*\n\nQue souhaitez-vous faire ?", mainMenuKeyboard())
	return nil
}

func (b *Bot) welcome(t *turn, _ nlu.Result) error {
	t.sayKB(fmt.Sprintf("👋 Bienvenue %s !\n\n", t.user.DisplayName())+
		"Je suis votre assistant ERPNext intelligent.\n\n"+
		"🤖 Je peux vous aider avec :\n"+
		"• 👥 Gestion des clients\n"+
		"• 📄 Devis et factures\n"+
		"• 📦 Stock et articles\n"+
		"• 📊 Rapports et statistiques\n\n"+
		"Utilisez le menu ci-dessous ou tapez simplement ce que vous voulez faire !",
		mainMenuKeyboard())
	return nil
}

func (b *Bot) goodbye(t *turn) error {
	t.say(fmt.Sprintf("👋 À bientôt %s !", t.user.DisplayName()))
	return nil
}

func (b *Bot) shortHelp(t *turn) error {
	t.say("📚 Utilisez /help pour voir toutes les commandes disponibles.")
	return nil
}

func (b *Bot) notUnderstood(t *turn) error {
	t.sayKB("🤔 Je n'ai pas compris votre demande.\n\n"+
		"Essayez :\n"+
		"• \"Liste des clients\"\n"+
		"• \"Créer un client\"\n"+
		"• \"Rapport des ventes\"\n"+
		"• Ou utilisez le menu ci-dessous",
		mainMenuKeyboard())
	return nil
}

func (b *Bot) cmdStart(t *turn) error {
	return b.welcome(t, nlu.Result{})
}

func (b *Bot) cmdMenu(t *turn) error {
	t.sayKB("📋 Menu principal :", mainMenuKeyboard())
	return nil
}

func (b *Bot) cmdHelp(t *turn) error {
	t.markdown("📚 *Guide d'utilisation*\n\n"+
		"*Commandes disponibles :*\n"+
		"/start - Démarrer le bot\n"+
		"/help - Afficher cette aide\n"+
		"/customers - Gérer les clients\n"+
		"/reports - Voir les rapports\n"+
		"/menu - Menu principal\n"+
		"/cancel - Annuler l'opération en cours\n\n"+
		"*Exemples de requêtes :*\n"+
		"• \"Créer un client Dupont avec email dupont@example.com\"\n"+
		"• \"Liste des clients\"\n"+
		"• \"Rapport des ventes\"\n"+
		"• \"Niveau de stock\"\n"+
		"• \"Dashboard\"\n\n"+
		"*Utilisation des boutons :*\n"+
		"Vous pouvez aussi naviguer avec les boutons interactifs !",
		nil)
	return nil
}

func (b *Bot) cmdCustomers(t *turn) error {
	return b.listCustomersPage(t, "0")
}

func (b *Bot) cmdReports(t *turn) error {
	return b.showReportsMenu(t)
}

func (b *Bot) showCustomersMenu(t *turn) error {
	t.markdown("👥 *Gestion des Clients*\n\nQue souhaitez-vous faire ?", domain.Keyboard{
		domain.Row(domain.Btn("➕ Créer un client", cbCustomerCreate)),
		domain.Row(domain.Btn("📋 Liste des clients", cbCustomerList)),
		domain.Row(domain.Btn("🔍 Rechercher un client", cbCustomerSearch)),
		domain.Row(btnMainMenu),
	})
	return nil
}

func (b *Bot) showQuotationsMenu(t *turn) error {
	t.markdown("📄 *Gestion des Devis*\n\nQue souhaitez-vous faire ?", domain.Keyboard{
		domain.Row(domain.Btn("➕ Créer un devis", cbQuotationCreate)),
		domain.Row(domain.Btn("📋 Liste des devis", cbQuotationList)),
		domain.Row(domain.Btn("📧 Envoyer un devis", cbQuotationSend)),
		domain.Row(btnMainMenu),
	})
	return nil
}

func (b *Bot) showInvoicesMenu(t *turn) error {
	t.markdown("💰 *Gestion des Factures*\n\nQue souhaitez-vous faire ?", domain.Keyboard{
		domain.Row(domain.Btn("📋 Toutes les factures", cbInvoiceList)),
		domain.Row(domain.Btn("✅ Payées", cbInvoiceListPaid), domain.Btn("⏳ En attente", cbInvoiceListUnpaid)),
		domain.Row(btnMainMenu),
	})
	return nil
}

func (b *Bot) showReportsMenu(t *turn) error {
	t.markdown("📊 *Rapports et Statistiques*\n\nChoisissez un rapport :", domain.Keyboard{
		domain.Row(domain.Btn("💰 Ventes", cbReportSales), domain.Btn("👥 Clients", cbReportCustomers)),
		domain.Row(domain.Btn("📦 Stock", cbReportStock), domain.Btn("📈 Financier", cbReportFinancial)),
		domain.Row(domain.Btn("📊 Dashboard", cbReportDashboard)),
		domain.Row(domain.Btn("🏪 POS", cbPOSMenu)),
		domain.Row(btnMainMenu),
	})
	return nil
}

func (b *Bot) showPOSMenu(t *turn) error {
	t.markdown("🏪 *Rapports POS*\n\nChoisissez un rapport :", domain.Keyboard{
		domain.Row(domain.Btn("💵 Recette du jour", cbPOSDaily)),
		domain.Row(domain.Btn("🏆 Meilleurs articles", cbPOSBestSellers)),
		domain.Row(domain.Btn("👑 Meilleur vendeur", cbPOSBestSeller)),
		domain.Row(domain.Btn("🏦 État de la caisse", cbPOSCashier)),
		domain.Row(btnMenuReports),
	})
	return nil
}
