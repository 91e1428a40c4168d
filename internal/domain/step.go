package domain

// Step names the input a multi-turn flow is waiting for.
type Step string

// Flow steps. StepNone means no flow is active.
const (
	StepNone Step = ""

	StepCustomerName        Step = "customer_name"
	StepCustomerEmail       Step = "customer_email"
	StepCustomerPhone       Step = "customer_phone"
	StepCustomerSearchQuery Step = "customer_search_query"

	StepQuotationCustomer  Step = "quotation_customer"
	StepQuotationItemCode  Step = "quotation_item_code"
	StepQuotationItemQty   Step = "quotation_item_qty"
	StepQuotationValidTill Step = "quotation_valid_till"
	StepQuotationTerms     Step = "quotation_terms"

	StepSendQuotationName Step = "send_quotation_name"
)

var allSteps = []Step{
	StepCustomerName, StepCustomerEmail, StepCustomerPhone, StepCustomerSearchQuery,
	StepQuotationCustomer, StepQuotationItemCode, StepQuotationItemQty,
	StepQuotationValidTill, StepQuotationTerms,
	StepSendQuotationName,
}

// AllSteps returns every step except StepNone.
func AllSteps() []Step {
	out := make([]Step, len(allSteps))
	copy(out, allSteps)
	return out
}

func (s Step) String() string { return string(s) }
