package domain

import (
	"fmt"
	"time"
)

// ViolationAction records how a detected private-content leak was remediated.
type ViolationAction string

const (
	ViolationActionRedacted    ViolationAction = "redacted"
	ViolationActionRegenerated ViolationAction = "regenerated"
	ViolationActionBlocked     ViolationAction = "blocked"
)

// PrivacyViolationReport is an audit record for a private-content leak
// detected in generated output. Created only on detection and never
// silently discarded.
type PrivacyViolationReport struct {
	ID             string
	QueryID        string
	ChatbotID      string
	SourceChunkID  string
	LeakedFragment string
	Action         ViolationAction
	CreatedAt      time.Time
}

// ValidateViolationReport validates a PrivacyViolationReport instance.
func ValidateViolationReport(r *PrivacyViolationReport) error {
	if r == nil {
		return fmt.Errorf("violation report cannot be nil")
	}
	if r.QueryID == "" {
		return fmt.Errorf("violation report QueryID is required")
	}
	if r.SourceChunkID == "" {
		return fmt.Errorf("violation report SourceChunkID is required")
	}
	if r.LeakedFragment == "" {
		return fmt.Errorf("violation report LeakedFragment is required")
	}
	if !isValidViolationAction(r.Action) {
		return fmt.Errorf("violation report Action is invalid: %s", r.Action)
	}
	return nil
}

func isValidViolationAction(a ViolationAction) bool {
	switch a {
	case ViolationActionRedacted, ViolationActionRegenerated, ViolationActionBlocked:
		return true
	}
	return false
}
