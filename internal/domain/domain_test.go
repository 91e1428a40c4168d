package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseIntent(t *testing.T) {
	tests := map[string]Intent{
		"list_customers":   IntentListCustomers,
		" LIST_CUSTOMERS ": IntentListCustomers,
		"daily_revenue":    IntentPOSDaily,
		"etat_caisse":      IntentPOSCashier,
		"meilleur_vendeur": IntentPOSBestSeller,
		"best_items":       IntentPOSBestSellers,
		"nlu_fallback":     IntentUnknown,
		"":                 IntentUnknown,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseIntent(in), in)
	}
}

func TestParseIntentRoundTripsEveryIntent(t *testing.T) {
	for _, i := range AllIntents() {
		assert.Equal(t, i, ParseIntent(string(i)))
	}
}

func TestAliasesTargetCanonicalIntents(t *testing.T) {
	for alias, target := range IntentAliases() {
		_, ok := intentSet[target]
		assert.True(t, ok, "alias %s points to unknown intent %s", alias, target)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := NewSession("u1", time.Unix(0, 0))
	assert.True(t, s.State.Idle())

	s.Begin(IntentCreateCustomer, StepCustomerName)
	s.State.Data.Name = "Ali"
	s.Await(StepCustomerEmail)
	assert.Equal(t, StepCustomerEmail, s.State.WaitingFor)
	assert.Equal(t, "Ali", s.State.Data.Name)

	s.Begin(IntentCreateQuotation, StepQuotationCustomer)
	assert.Empty(t, s.State.Data.Name, "starting a flow discards the previous draft")

	s.Reset()
	assert.True(t, s.State.Idle())
	assert.Equal(t, FlowState{}, s.State)
}

func TestUserSessionKeyIsScopedByChannel(t *testing.T) {
	web := User{ID: "42", Channel: "web"}
	tg := User{ID: "42", Channel: "telegram"}

	assert.Equal(t, "web:42", web.SessionKey())
	assert.Equal(t, "telegram:42", tg.SessionKey())
	assert.NotEqual(t, web.SessionKey(), tg.SessionKey())
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Sami", User{ID: "1", FirstName: "Sami", Username: "s"}.DisplayName())
	assert.Equal(t, "s", User{ID: "1", Username: "s"}.DisplayName())
	assert.Equal(t, "utilisateur", User{ID: "1"}.DisplayName())
}
