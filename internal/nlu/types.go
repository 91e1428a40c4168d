// Package nlu classifies chat text into intents and entities, either through
// a Rasa compatible service or through local rules.
package nlu

import (
	"strconv"

	"github.com/ashureev/erp-assistant/internal/domain"
)

// Entity kinds produced by local extraction.
const (
	EntityEmail    = "email"
	EntityPhone    = "phone"
	EntityName     = "name"
	EntityAmount   = "amount"
	EntityCurrency = "currency"
)

// IntentScore is a classified intent with its confidence.
type IntentScore struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Intent returns the canonical intent for Name.
func (s IntentScore) Intent() domain.Intent {
	return domain.ParseIntent(s.Name)
}

// Entity is one extracted value. Start and End are byte offsets into the
// analyzed text.
type Entity struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
}

// Float parses Value as a number.
func (e Entity) Float() (float64, bool) {
	f, err := strconv.ParseFloat(e.Value, 64)
	return f, err == nil
}

// Entities groups entities by kind.
type Entities map[string][]Entity

// First returns the first entity value of kind, or "".
func (e Entities) First(kind string) string {
	if list := e[kind]; len(list) > 0 {
		return list[0].Value
	}
	return ""
}

// Result is the normalized output of an analysis.
type Result struct {
	Text     string        `json:"text"`
	Intent   IntentScore   `json:"intent"`
	Entities Entities      `json:"entities"`
	Intents  []IntentScore `json:"intents"`
}
