package domain

import "strings"

// Intent is a closed set of user goals understood by the router.
type Intent string

// Known intents. Names match the ones the NLU model is trained on.
const (
	IntentUnknown Intent = "unknown"

	IntentStart   Intent = "start"
	IntentHelp    Intent = "help"
	IntentMenu    Intent = "menu"
	IntentGreet   Intent = "greet"
	IntentGoodbye Intent = "goodbye"

	IntentCreateCustomer Intent = "create_customer"
	IntentListCustomers  Intent = "list_customers"
	IntentSearchCustomer Intent = "search_customer"

	IntentCreateQuotation Intent = "create_quotation"
	IntentListQuotations  Intent = "list_quotations"
	IntentSendQuotation   Intent = "send_quotation"

	IntentCreateInvoice Intent = "create_invoice"
	IntentListInvoices  Intent = "list_invoices"

	IntentListItems  Intent = "list_items"
	IntentCheckStock Intent = "check_stock"

	IntentReportsMenu     Intent = "reports_menu"
	IntentSalesReport     Intent = "sales_report"
	IntentFinancialReport Intent = "financial_report"
	IntentStockReport     Intent = "stock_report"
	IntentDashboard       Intent = "dashboard"

	IntentPOSMenu        Intent = "pos_menu"
	IntentPOSDaily       Intent = "pos_daily"
	IntentPOSBestSellers Intent = "pos_bestsellers"
	IntentPOSBestSeller  Intent = "pos_bestseller"
	IntentPOSCashier     Intent = "pos_cashier"
)

var allIntents = []Intent{
	IntentUnknown,
	IntentStart, IntentHelp, IntentMenu, IntentGreet, IntentGoodbye,
	IntentCreateCustomer, IntentListCustomers, IntentSearchCustomer,
	IntentCreateQuotation, IntentListQuotations, IntentSendQuotation,
	IntentCreateInvoice, IntentListInvoices,
	IntentListItems, IntentCheckStock,
	IntentReportsMenu, IntentSalesReport, IntentFinancialReport, IntentStockReport, IntentDashboard,
	IntentPOSMenu, IntentPOSDaily, IntentPOSBestSellers, IntentPOSBestSeller, IntentPOSCashier,
}

// intentAliases maps alternative labels emitted by NLU models to canonical intents.
var intentAliases = map[string]Intent{
	"daily_revenue":      IntentPOSDaily,
	"recette_jour":       IntentPOSDaily,
	"best_items":         IntentPOSBestSellers,
	"meilleurs_articles": IntentPOSBestSellers,
	"best_seller":        IntentPOSBestSeller,
	"meilleur_vendeur":   IntentPOSBestSeller,
	"cashier_status":     IntentPOSCashier,
	"etat_caisse":        IntentPOSCashier,
}

var intentSet = func() map[Intent]struct{} {
	m := make(map[Intent]struct{}, len(allIntents))
	for _, i := range allIntents {
		m[i] = struct{}{}
	}
	return m
}()

// AllIntents returns every canonical intent.
func AllIntents() []Intent {
	out := make([]Intent, len(allIntents))
	copy(out, allIntents)
	return out
}

// ParseIntent resolves a label to a canonical intent. Aliases are folded and
// anything unrecognized becomes IntentUnknown.
func ParseIntent(name string) Intent {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := intentAliases[key]; ok {
		return alias
	}
	if _, ok := intentSet[Intent(key)]; ok {
		return Intent(key)
	}
	return IntentUnknown
}

// IntentAliases returns a copy of the alias table.
func IntentAliases() map[string]Intent {
	out := make(map[string]Intent, len(intentAliases))
	for k, v := range intentAliases {
		out[k] = v
	}
	return out
}

func (i Intent) String() string { return string(i) }
