package nlu

import (
	"regexp"
	"strings"

	"github.com/ashureev/erp-assistant/internal/domain"
)

// Rule matches lower-cased text. When Pattern matches, the first matching
// sub-rule decides the intent, otherwise Intent is used.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Intent  domain.Intent
	Sub     []Rule
}

func rule(name, pattern string, intent domain.Intent, sub ...Rule) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(pattern), Intent: intent, Sub: sub}
}

var commandPattern = regexp.MustCompile(`^/(start|help|menu)\b`)

// DefaultRules is the ordered rule list used when the NLU service is not
// available. Order matters: the first match wins.
var DefaultRules = []Rule{
	rule("greet", `bonjour|salut|hello|aslema|marhba|labess|salam|ahla`, domain.IntentGreet),
	rule("goodbye", `bye|revoir|bslema|beslama`, domain.IntentGoodbye),
	rule("menu", `menu|accueil|retour|rja3|arja3`, domain.IntentMenu),
	rule("help", `aide|help|3awenni|kifech`, domain.IntentHelp),

	rule("pos_daily", `recette.*jour|ventes.*jour|chiffre.*jour|qadech.*lyoum|ch7al.*lyoum|b3na.*lyoum|jbedna`, domain.IntentPOSDaily),
	rule("pos_bestseller", `meilleur.*vendeur|top.*vendeur|classement.*vendeur|chkoun.*ba3|performance.*vendeur`, domain.IntentPOSBestSeller),
	rule("pos_bestsellers", `meilleur.*article|best.*seller|top.*vente|top.*produit|yemchi.*behi|temchew`, domain.IntentPOSBestSellers),
	rule("pos_cashier", `caisse|7alat.*caisse|caisse.*ouvert|caisse.*ferm|fta7.*caisse`, domain.IntentPOSCashier),
	rule("pos_menu", `\bpos\b|point.*vente`, domain.IntentPOSMenu),

	rule("customers", `client|customer|zaboun|zabyen`, domain.IntentListCustomers,
		rule("create", `créer|ajouter|nouveau|zid|jdid`, domain.IntentCreateCustomer),
		rule("list", `liste|voir|afficher|warini|chkoun`, domain.IntentListCustomers),
		rule("search", `chercher|recherch|trouver|lawej|9aleb`, domain.IntentSearchCustomer),
	),
	rule("quotations", `devis|quotation|offre.*prix|proforma`, domain.IntentListQuotations,
		rule("create", `créer|nouveau|zid|jdid|na3mel|5ali`, domain.IntentCreateQuotation),
		rule("list", `liste|voir|warini`, domain.IntentListQuotations),
		rule("send", `envoyer|email|mail|transmettre|ab3ath`, domain.IntentSendQuotation),
	),
	rule("invoices", `facture|invoice`, domain.IntentListInvoices,
		rule("create", `créer|nouveau|zid|jdid`, domain.IntentCreateInvoice),
		rule("list", `liste|voir|warini`, domain.IntentListInvoices),
	),
	rule("stock", `stock|article|produit|item|makhzen|mar9a`, domain.IntentListItems,
		rule("check", `niveau|état|check|qadech|ch7al|baki`, domain.IntentCheckStock),
	),
	rule("reports", `rapport|report|statistique|dashboard|stats`, domain.IntentReportsMenu,
		rule("sales", `vente|sales`, domain.IntentSalesReport),
		rule("financial", `financier|finance|flous`, domain.IntentFinancialReport),
		rule("stock", `stock`, domain.IntentStockReport),
	),
	rule("dashboard", `dashboard|tableau.*bord|résumé|kolchi`, domain.IntentDashboard),
}

// DetectIntent classifies text with rules. Slash commands are checked before
// the rule list.
func DetectIntent(text string, rules []Rule) domain.Intent {
	lower := strings.ToLower(strings.TrimSpace(text))

	if m := commandPattern.FindStringSubmatch(lower); m != nil {
		return domain.Intent(m[1])
	}

	for _, r := range rules {
		if intent, ok := r.match(lower); ok {
			return intent
		}
	}
	return domain.IntentUnknown
}

func (r Rule) match(lower string) (domain.Intent, bool) {
	if !r.Pattern.MatchString(lower) {
		return "", false
	}
	for _, sub := range r.Sub {
		if intent, ok := sub.match(lower); ok {
			return intent, true
		}
	}
	return r.Intent, true
}
