package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEntitiesAllKinds(t *testing.T) {
	text := "Dupont paie 250 TND, email dupont@example.com, tel 555-123-4567"
	got := ExtractEntities(text)

	assert.Equal(t, "dupont@example.com", got.First(EntityEmail))
	assert.Equal(t, "555-123-4567", got.First(EntityPhone))
	assert.Equal(t, "Dupont", got.First(EntityName))
	assert.Equal(t, "250", got.First(EntityAmount))
	assert.Equal(t, "TND", got.First(EntityCurrency))

	name := got[EntityName][0]
	assert.Equal(t, 0.8, name.Confidence)
	assert.Equal(t, "Dupont", text[name.Start:name.End])
}

func TestExtractEntitiesOnlyEmail(t *testing.T) {
	got := ExtractEntities("Email: Contact@Example.com")

	require.Len(t, got[EntityEmail], 1)
	assert.Equal(t, "Contact@Example.com", got[EntityEmail][0].Value)
	assert.Equal(t, 1.0, got[EntityEmail][0].Confidence)
	assert.NotContains(t, got, EntityName)
}

func TestExtractEntitiesName(t *testing.T) {
	assert.Equal(t, "Sami Ben Ali", ExtractEntities("Créer client Sami Ben Ali").First(EntityName))
	assert.Equal(t, "Élise", ExtractEntities("nouveau client Élise").First(EntityName))
	assert.NotContains(t, ExtractEntities("liste des clients"), EntityName)
}

func TestExtractEntitiesAmount(t *testing.T) {
	got := ExtractEntities("montant 12,50 dt")
	amount, ok := got[EntityAmount][0].Float()
	require.True(t, ok)
	assert.Equal(t, 12.5, amount)
	assert.Equal(t, "DT", got.First(EntityCurrency))

	got = ExtractEntities("qty 3")
	assert.Equal(t, "3", got.First(EntityAmount))
	assert.NotContains(t, got, EntityCurrency)
}

func TestExtractEntitiesNone(t *testing.T) {
	assert.Empty(t, ExtractEntities("rien ici"))
}
