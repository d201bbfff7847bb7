package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateViolationReport(t *testing.T) {
	valid := func() *PrivacyViolationReport {
		return &PrivacyViolationReport{
			ID:             "violation-1",
			QueryID:        "query-1",
			ChatbotID:      "bot-1",
			SourceChunkID:  "chunk-9",
			LeakedFragment: "SECRET-ALPHA-123 internal pricing",
			Action:         ViolationActionRedacted,
		}
	}

	t.Run("valid report", func(t *testing.T) {
		assert.NoError(t, ValidateViolationReport(valid()))
	})

	t.Run("nil report", func(t *testing.T) {
		assert.Error(t, ValidateViolationReport(nil))
	})

	t.Run("missing query ID", func(t *testing.T) {
		r := valid()
		r.QueryID = ""
		assert.Error(t, ValidateViolationReport(r))
	})

	t.Run("missing source chunk ID", func(t *testing.T) {
		r := valid()
		r.SourceChunkID = ""
		assert.Error(t, ValidateViolationReport(r))
	})

	t.Run("empty fragment", func(t *testing.T) {
		r := valid()
		r.LeakedFragment = ""
		assert.Error(t, ValidateViolationReport(r))
	})

	t.Run("invalid action", func(t *testing.T) {
		r := valid()
		r.Action = "ignored"
		assert.Error(t, ValidateViolationReport(r))
	})
}
