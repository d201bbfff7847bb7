package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceTable_Cost(t *testing.T) {
	prices := DefaultPriceTable()

	t.Run("documented reference scenario", func(t *testing.T) {
		cost, known := prices.Cost("gpt-3.5-class", 500, 300)
		assert.True(t, known)
		// 500/1000*0.002 + 300/1000*0.005
		assert.InDelta(t, 0.0025, cost, 1e-9)
	})

	t.Run("zero tokens cost zero", func(t *testing.T) {
		cost, known := prices.Cost("gpt-3.5-turbo", 0, 0)
		assert.True(t, known)
		assert.Equal(t, 0.0, cost)
	})

	t.Run("unknown model costs exactly zero", func(t *testing.T) {
		cost, known := prices.Cost("mystery-model-v9", 500, 300)
		assert.False(t, known)
		assert.Equal(t, 0.0, cost)
	})
}
