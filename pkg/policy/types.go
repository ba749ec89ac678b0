package policy

import (
	"fmt"
	"time"

	"github.com/openfroyo/nodeutils/pkg/cmdref"
)

// Severity represents the severity level of a lint violation.
type Severity string

const (
	// SeverityInfo is for informational findings.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for findings that fail a lint run.
	SeverityError Severity = "error"
)

// Rank orders severities; unknown severities rank below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityError:
		return 3
	default:
		return 0
	}
}

// ParseSeverity converts a severity name.
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(s); sev {
	case SeverityInfo, SeverityWarning, SeverityError:
		return sev, nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

// Policy represents a lint rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code. The package must define a
	// deny set.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional policy metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Violation represents a single lint finding.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Source is the document the finding is in, if known.
	Source string `json:"source,omitempty"`

	// Feature is the offending feature, if any.
	Feature string `json:"feature,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`
}

// Input is the data lint policies see as input.
type Input struct {
	API       string            `json:"api"`
	Product   string            `json:"product"`
	Documents []cmdref.Document `json:"documents"`
}

// NewInput builds policy input from a loaded reference.
func NewInput(ref *cmdref.Reference) *Input {
	return &Input{
		API:       ref.API(),
		Product:   ref.Product(),
		Documents: ref.Documents(),
	}
}

// Result represents the result of a lint run.
type Result struct {
	// Violations lists every finding, ordered by source, feature and policy.
	Violations []Violation `json:"violations"`

	// Warnings lists policies that failed to evaluate.
	Warnings []string `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// EvaluatedAt is when the policies were evaluated.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// Failed reports whether any violation is at least as severe as threshold.
func (r *Result) Failed(threshold Severity) bool {
	for _, v := range r.Violations {
		if v.Severity.Rank() >= threshold.Rank() {
			return true
		}
	}
	return false
}

// CountBySeverity tallies violations per severity.
func (r *Result) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, v := range r.Violations {
		counts[v.Severity]++
	}
	return counts
}
