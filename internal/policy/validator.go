package policy

import (
	"schema-registry/internal/model"
)

// checkFunc evaluates one policy rule against a definition and returns its
// findings. Implementations must be pure: no I/O, no shared state, no panics.
type checkFunc func(def model.TableSchemaDefinition) []model.Violation

type policyRule struct {
	name  string
	check checkFunc
}

// policyRules is the fixed rule set, in evaluation order. Rules are
// independent of each other; the order only fixes the ordering of the
// reported violations.
var policyRules = []policyRule{
	{name: RulePrimaryKeyRequired, check: checkPrimaryKey},
	{name: RuleNamingConvention, check: checkNamingConvention},
	{name: RuleTimestampPresence, check: checkTimestampPresence},
	{name: RuleBigIntRange, check: checkBigIntRange},
	{name: RuleJSONBGinIndex, check: checkJSONBIndexes},
	{name: RuleIndexReferentialIntegrity, check: checkIndexReferences},
	{name: RuleDuplicateIdentifiers, check: checkDuplicateIdentifiers},
}

// ValidationResult holds every violation the rule set reported for one
// definition. The slice is never nil.
type ValidationResult struct {
	Violations []model.Violation `json:"violations"`
}

// HasErrors reports whether any violation carries error severity
func (r ValidationResult) HasErrors() bool {
	for _, v := range r.Violations {
		if v.IsBlocking() {
			return true
		}
	}
	return false
}

// Errors returns only the blocking violations
func (r ValidationResult) Errors() []model.Violation {
	blocking := make([]model.Violation, 0)
	for _, v := range r.Violations {
		if v.IsBlocking() {
			blocking = append(blocking, v)
		}
	}
	return blocking
}

// Advisories returns the warning and info violations
func (r ValidationResult) Advisories() []model.Violation {
	advisory := make([]model.Violation, 0)
	for _, v := range r.Violations {
		if !v.IsBlocking() {
			advisory = append(advisory, v)
		}
	}
	return advisory
}

// Validator evaluates the fixed policy rule set against table schema
// definitions. It is stateless and safe for concurrent use.
type Validator struct{}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs every registered rule against the definition and returns the
// concatenated findings. Each violation is stamped with the name of the rule
// that produced it.
func (v *Validator) Validate(def model.TableSchemaDefinition) ValidationResult {
	violations := make([]model.Violation, 0)
	for _, rule := range policyRules {
		found := rule.check(def)
		for i := range found {
			found[i].Rule = rule.name
		}
		violations = append(violations, found...)
	}
	return ValidationResult{Violations: violations}
}
