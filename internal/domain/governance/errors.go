package governance

import (
	"fmt"

	"github.com/google/uuid"
)

// ConfigurationError reports a malformed rule or catalog entry. It is
// surfaced to the administrator immediately and never silently corrected.
type ConfigurationError struct {
	RuleName string
	Detail   string
}

func (e *ConfigurationError) Error() string {
	if e.RuleName == "" {
		return fmt.Sprintf("governance configuration error: %s", e.Detail)
	}
	return fmt.Sprintf("governance configuration error in rule %q: %s", e.RuleName, e.Detail)
}

// NewConfigurationError creates a configuration error without a rule context
func NewConfigurationError(detail string) *ConfigurationError {
	return &ConfigurationError{Detail: detail}
}

// BlockedByRuleError is fatal to the current operation: a block-type rule
// matched and the caller must change the input.
type BlockedByRuleError struct {
	RuleName string
	Message  string
}

func (e *BlockedByRuleError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("operation blocked by rule %q", e.RuleName)
}

// WarningError aggregates warn-type rule messages. Warnings still stop the
// underlying operation; the caller must resubmit knowingly.
type WarningError struct {
	Warnings []string
}

func (e *WarningError) Error() string {
	msg := "governance warnings:"
	for _, w := range e.Warnings {
		msg += "\n" + w
	}
	return msg
}

// ApprovalRequiredError blocks an operation until the referenced approval
// request reaches the approved state. It is recoverable: callers should
// present "request submitted", not "operation failed".
type ApprovalRequiredError struct {
	RuleName  string
	Reference string
	Message   string
}

func (e *ApprovalRequiredError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("operation requires approval (rule %q, request %s)", e.RuleName, e.Reference)
}

// SegregationOfDutiesError reports an attempted self-approval. When the
// requester's persona has a parent, EscalationPersona names the authority
// that must resolve the request; otherwise Deadlock is set and only a
// superuser override can proceed.
type SegregationOfDutiesError struct {
	PrincipalID       uuid.UUID
	PersonaName       string
	EscalationPersona string
	Deadlock          bool
}

func (e *SegregationOfDutiesError) Error() string {
	if e.Deadlock {
		return fmt.Sprintf("executive deadlock: as a %s you have no higher authority; a superuser override is required", e.PersonaName)
	}
	return fmt.Sprintf("self-approval is prohibited: this transaction must be reviewed by your supervisor (%s)", e.EscalationPersona)
}
