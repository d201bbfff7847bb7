package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    QueryState
		to      QueryState
		allowed bool
	}{
		{"received to embedding", StateReceived, StateEmbedding, true},
		{"embedding to retrieving", StateEmbedding, StateRetrieving, true},
		{"retrieving to assembling", StateRetrieving, StateAssemblingContext, true},
		{"assembling to generating", StateAssemblingContext, StateGenerating, true},
		{"generating to leak checking", StateGenerating, StateLeakChecking, true},
		{"leak checking to citing", StateLeakChecking, StateCiting, true},
		{"citing to completed", StateCiting, StateCompleted, true},
		{"regeneration pass", StateLeakChecking, StateGenerating, true},
		{"any state to failed", StateRetrieving, StateFailed, true},
		{"received to failed", StateReceived, StateFailed, true},
		{"skip a stage", StateReceived, StateRetrieving, false},
		{"backwards", StateGenerating, StateEmbedding, false},
		{"out of completed", StateCompleted, StateEmbedding, false},
		{"out of failed", StateFailed, StateEmbedding, false},
		{"failed to failed", StateFailed, StateFailed, false},
		{"unknown from state", QueryState("bogus"), StateEmbedding, false},
		{"unknown to state", StateReceived, QueryState("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestValidateQuery(t *testing.T) {
	t.Run("valid query", func(t *testing.T) {
		q := &Query{ChatbotID: "bot-1", Message: "what is the refund policy?"}
		assert.NoError(t, ValidateQuery(q))
	})

	t.Run("nil query", func(t *testing.T) {
		assert.Error(t, ValidateQuery(nil))
	})

	t.Run("missing chatbot ID", func(t *testing.T) {
		assert.Error(t, ValidateQuery(&Query{Message: "hi"}))
	})

	t.Run("empty message", func(t *testing.T) {
		assert.Error(t, ValidateQuery(&Query{ChatbotID: "bot-1"}))
	})
}
