package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnrich(t *testing.T) {
	enriched := Enrich("Error 528 Handling", "solucao = reiniciar")
	assert.Equal(t, "Page title: Error 528 Handling\n\nContent: solucao = reiniciar", enriched)
}
