package domain

import "context"

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine whether a save is blocked.
const (
	// SeverityBlock blocks the save.
	SeverityBlock Severity = "block"
	// SeverityWarn is reported but does not block.
	SeverityWarn Severity = "warn"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule        string
	Severity    Severity
	Message     string
	RegionIndex int
	RegionID    string
}

// Result aggregates violations from the rules engine, in rule order.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	_, ok := r.FirstBlocking()
	return ok
}

// FirstBlocking returns the first blocking violation in evaluation order.
func (r Result) FirstBlocking() (Violation, bool) {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return v, true
		}
	}
	return Violation{}, false
}

// Warnings returns the non-blocking violations.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityWarn {
			out = append(out, v)
		}
	}
	return out
}

// Err converts the first blocking violation into a ValidationError.
func (r Result) Err() error {
	v, ok := r.FirstBlocking()
	if !ok {
		return nil
	}
	return ValidationError{Rule: v.Rule, Message: v.Message}
}

// RuleView provides read-only access to a region assignment for rule evaluation.
type RuleView interface {
	Regions() []Region
	Trays() []Tray
}

// Rule defines a single validation over a region assignment.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView) (Result, error)
}

// RulesEngine orchestrates rule evaluation. Rules run in registration order,
// which is also the priority order of their messages.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rule names in order.
func (e *RulesEngine) Rules() []string {
	out := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, r.Name())
	}
	return out
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}

// Action indicates the type of modification applied to a region store.
type Action string

// Store mutations recorded on each snapshot.
const (
	ActionLoad    Action = "load"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionApply   Action = "apply_treatment"
	ActionImport  Action = "import"
	ActionMigrate Action = "migrate"
)
