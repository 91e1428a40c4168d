package bot

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/erp-assistant/internal/domain"
	"github.com/ashureev/erp-assistant/internal/erp"
	"github.com/ashureev/erp-assistant/internal/nlu"
)

// unmappedIntents fall through to the "not understood" reply.
var unmappedIntents = map[domain.Intent]bool{
	domain.IntentUnknown:       true,
	domain.IntentCreateInvoice: true,
}

func TestEveryIntentIsRoutedOrDeliberatelyUnmapped(t *testing.T) {
	h := newHarness(t)
	for _, intent := range domain.AllIntents() {
		_, mapped := h.bot.intents[intent]
		assert.True(t, mapped != unmappedIntents[intent], "intent %s", intent)
	}
}

func TestEveryStepHasAHandler(t *testing.T) {
	h := newHarness(t)
	for _, step := range domain.AllSteps() {
		assert.Contains(t, h.bot.steps, step)
	}
	assert.Len(t, h.bot.steps, len(domain.AllSteps()))
}

func TestUnknownIntentShowsHelp(t *testing.T) {
	h := newHarness(t)

	replies := h.send("blablabla")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "Je n'ai pas compris")
	assert.Equal(t, mainMenuKeyboard(), replies[0].Keyboard)
}

func TestCreateInvoiceIsNotSupported(t *testing.T) {
	h := newHarness(t)
	h.nlu.results["nouvelle facture"] = intentResult(domain.IntentCreateInvoice, nil)

	assert.Contains(t, lastText(h.send("nouvelle facture")), "Je n'ai pas compris")
}

func TestStartCommandGreetsUser(t *testing.T) {
	h := newHarness(t)

	replies := h.send("/start")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "Bienvenue Amira")
}

func TestSlashCommandResetsActiveFlow(t *testing.T) {
	h := newHarness(t)
	h.press(cbCustomerCreate)
	require.Equal(t, domain.StepCustomerName, h.state().WaitingFor)

	h.send("/menu")
	assert.True(t, h.state().Idle())
}

func TestHelpCommandKeepsActiveFlow(t *testing.T) {
	h := newHarness(t)
	h.press(cbCustomerCreate)

	replies := h.send("/help")
	assert.Contains(t, lastText(replies), "Guide d'utilisation")
	assert.Equal(t, domain.StepCustomerName, h.state().WaitingFor)
}

func TestCancelAbortsAnyFlow(t *testing.T) {
	for _, word := range []string{"annuler", "ANNULER", "/cancel"} {
		t.Run(word, func(t *testing.T) {
			h := newHarness(t)
			h.press(cbQuotationCreate)
			require.False(t, h.state().Idle())

			replies := h.send(word)
			assert.Contains(t, lastText(replies), "Opération annulée")
			assert.True(t, h.state().Idle())
		})
	}
}

func TestCancelWhenIdle(t *testing.T) {
	h := newHarness(t)
	assert.Contains(t, lastText(h.send("annuler")), "Aucune opération en cours")
}

func TestCustomerFlowHappyPath(t *testing.T) {
	h := newHarness(t)

	h.press(cbCustomerCreate)
	assert.Equal(t, domain.StepCustomerName, h.state().WaitingFor)

	h.send("Jean Dupont")
	assert.Equal(t, domain.StepCustomerEmail, h.state().WaitingFor)
	assert.Equal(t, "Jean Dupont", h.state().Data.Name)

	h.send("jean@example.com")
	assert.Equal(t, domain.StepCustomerPhone, h.state().WaitingFor)

	replies := h.send("skip")
	assert.Contains(t, lastText(replies), "Client créé avec succès")
	assert.Contains(t, lastText(replies), "CUST-0001")

	require.Len(t, h.erp.createdCustomers, 1)
	assert.Equal(t, erp.CustomerInput{Name: "Jean Dupont", Email: "jean@example.com"}, h.erp.createdCustomers[0])
	assert.True(t, h.state().Idle())
}

func TestCustomerFlowInvalidInputsKeepState(t *testing.T) {
	h := newHarness(t)
	h.press(cbCustomerCreate)

	replies := h.send("J")
	assert.Contains(t, lastText(replies), "au moins 2 caractères")
	assert.Equal(t, domain.StepCustomerName, h.state().WaitingFor)
	assert.Empty(t, h.state().Data.Name)

	h.send("Jo")
	replies = h.send("not-an-email")
	assert.Contains(t, lastText(replies), "Email invalide")
	assert.Equal(t, domain.StepCustomerEmail, h.state().WaitingFor)
	assert.Empty(t, h.state().Data.Email)

	assert.Zero(t, h.erp.count("CreateCustomer"))
}

func TestCustomerFlowCreateFailureResetsState(t *testing.T) {
	h := newHarness(t)
	h.erp.createErr = &erp.Error{Status: http.StatusConflict, Message: "DuplicateEntryError"}

	h.press(cbCustomerCreate)
	h.send("Jean Dupont")
	h.send("skip")
	replies := h.send("+216 20 123 456")

	assert.Contains(t, lastText(replies), "Erreur lors de la création du client")
	assert.Contains(t, buttons(replies), cbCustomerCreate)
	assert.True(t, h.state().Idle())
}

func TestCreateCustomerFromEntities(t *testing.T) {
	h := newHarness(t)
	h.nlu.results["créer client Sami Ben Ali sami@example.com"] = intentResult(domain.IntentCreateCustomer, nlu.Entities{
		nlu.EntityName:  {{Value: "Sami Ben Ali"}},
		nlu.EntityEmail: {{Value: "sami@example.com"}},
	})

	replies := h.send("créer client Sami Ben Ali sami@example.com")
	assert.Contains(t, lastText(replies), "Client créé avec succès")
	require.Len(t, h.erp.createdCustomers, 1)
	assert.Equal(t, "Sami Ben Ali", h.erp.createdCustomers[0].Name)
	assert.Equal(t, "sami@example.com", h.erp.createdCustomers[0].Email)
	assert.True(t, h.state().Idle())
}

func TestCreateCustomerWithoutNameStartsForm(t *testing.T) {
	h := newHarness(t)
	h.nlu.results["nouveau client"] = intentResult(domain.IntentCreateCustomer, nil)

	h.send("nouveau client")
	assert.Equal(t, domain.StepCustomerName, h.state().WaitingFor)
	assert.Equal(t, domain.IntentCreateCustomer, h.state().Action)
}

func TestSearchCustomer(t *testing.T) {
	h := newHarness(t)
	h.erp.customerList = []erp.Customer{{Name: "C1", CustomerName: "Dupont SARL", Email: "d@example.com"}}

	h.press(cbCustomerSearch)
	assert.Equal(t, domain.StepCustomerSearchQuery, h.state().WaitingFor)

	replies := h.send("Dupont")
	assert.Contains(t, lastText(replies), "Résultats pour")
	assert.Contains(t, lastText(replies), "Dupont SARL")
	assert.Equal(t, erp.CustomerFilter{Search: "Dupont"}, h.erp.customerQueries[0])
	assert.True(t, h.state().Idle())
}

func TestSearchCustomerIntentWithName(t *testing.T) {
	h := newHarness(t)
	h.nlu.results["cherche Dupont"] = intentResult(domain.IntentSearchCustomer, nlu.Entities{
		nlu.EntityName: {{Value: "Dupont"}},
	})

	replies := h.send("cherche Dupont")
	assert.Contains(t, lastText(replies), "Aucun client trouvé pour \"Dupont\"")
	assert.True(t, h.state().Idle())
}

func TestCustomerListPagination(t *testing.T) {
	h := newHarness(t)
	h.bot.pageSize = 2
	h.erp.customerList = []erp.Customer{{Name: "A", CustomerName: "A"}, {Name: "B", CustomerName: "B"}}

	replies := h.press(cbCustomerList)
	assert.Contains(t, buttons(replies), "customer_list_1")
	assert.NotContains(t, buttons(replies), "customer_list_-1")

	replies = h.press("customer_list_1")
	assert.Contains(t, lastText(replies), "(Page 2)")
	assert.Contains(t, buttons(replies), "customer_list_0")
	assert.Equal(t, []int{0, 2}, h.erp.customerOffsets)
}

func TestErrorBoundaryResetsState(t *testing.T) {
	h := newHarness(t)
	h.erp.getErr = &erp.Error{Status: http.StatusInternalServerError, Message: "boom"}

	h.press(cbQuotationCreate)
	replies := h.send("ACME")

	assert.Equal(t, msgGenericError, lastText(replies))
	assert.True(t, h.state().Idle())
}

func TestFailureCarriesSpecificMessage(t *testing.T) {
	h := newHarness(t)
	h.erp.listErr = errors.New("connection refused")

	replies := h.press(cbInvoiceList)
	assert.Equal(t, "❌ Erreur lors de la récupération des factures.", lastText(replies))
}

func TestUnknownCallback(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "❌ Action inconnue.", lastText(h.press("nope")))
	assert.Equal(t, "❌ Action inconnue.", lastText(h.press(cbQuotationView)))
}

func TestMenuCallbackAbandonsFlow(t *testing.T) {
	h := newHarness(t)
	h.press(cbQuotationCreate)

	replies := h.press(cbMenuQuotations)
	assert.Contains(t, lastText(replies), "Gestion des Devis")
	assert.True(t, h.state().Idle())
}

func TestSessionsAreIsolated(t *testing.T) {
	h := newHarness(t)
	h.press(cbCustomerCreate)

	other := h.user
	other.ID = "43"
	h.bot.HandleMessage(t.Context(), other, "liste")

	assert.Equal(t, domain.StepCustomerName, h.state().WaitingFor)
	s, ok := h.bot.sessions.Get(other.SessionKey())
	require.True(t, ok)
	assert.True(t, s.State.Idle())
}

func TestSessionsAreScopedByChannel(t *testing.T) {
	h := newHarness(t)
	h.user.Channel = "telegram"
	h.press(cbCustomerCreate)

	web := domain.User{ID: h.user.ID, Channel: "web"}
	h.bot.HandleMessage(t.Context(), web, "Mallory")

	st := h.state()
	assert.Equal(t, domain.StepCustomerName, st.WaitingFor)
	assert.Empty(t, st.Data.Name)

	s, ok := h.bot.sessions.Get(web.SessionKey())
	require.True(t, ok)
	assert.True(t, s.State.Idle())
	assert.Equal(t, 2, h.bot.sessions.Len())
}

func TestUnreachableERPIsNotLeakedToUser(t *testing.T) {
	h := newHarness(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.bot.erp = erp.New(erp.Config{
		BaseURL:   "http://127.0.0.1:1",
		APIKey:    "key",
		APISecret: "secret",
		Timeout:   2 * time.Second,
	}, logger)

	h.press(cbCustomerCreate)
	h.send("Jean Dupont")
	h.send("skip")
	replies := h.send("skip")

	last := lastText(replies)
	assert.Equal(t, msgCustomerCreateFailed, last)
	assert.NotContains(t, last, "dial tcp")
	assert.NotContains(t, last, "/api/")
	assert.NotContains(t, last, "127.0.0.1")
	assert.Contains(t, buttons(replies), cbCustomerCreate)
	assert.True(t, h.state().Idle())
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "/start", commandName("/start"))
	assert.Equal(t, "/start", commandName("/Start@erp_bot hello"))
	assert.Equal(t, "", commandName("start"))
}
