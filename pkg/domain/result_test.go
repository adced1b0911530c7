package domain

import (
	"context"
	"errors"
	"testing"
)

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}})
	if result.HasBlocking() {
		t.Fatalf("expected no blocking violations")
	}
	if result.Err() != nil {
		t.Fatalf("expected nil error for warnings only")
	}
	result.Merge(Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock, Message: "first"}}})
	result.Merge(Result{Violations: []Violation{{Rule: "later", Severity: SeverityBlock, Message: "second"}}})
	if !result.HasBlocking() {
		t.Fatalf("expected blocking violation")
	}
	var verr ValidationError
	if err := result.Err(); !errors.As(err, &verr) || verr.Message != "first" || verr.Rule != "block" {
		t.Fatalf("expected first blocking violation, got %v", err)
	}
	if len(result.Warnings()) != 1 {
		t.Fatalf("expected one warning, got %+v", result.Warnings())
	}
}

func TestResultMergeEmptyInput(t *testing.T) {
	original := Result{Violations: []Violation{{Rule: "existing", Severity: SeverityWarn}}}
	original.Merge(Result{})
	if len(original.Violations) != 1 || original.Violations[0].Rule != "existing" {
		t.Fatalf("expected original violations to remain, got %+v", original.Violations)
	}
}

func TestRulesEngineEvaluatesInRegistrationOrder(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"second"})
	engine.Register(staticRule{"first"})
	res, err := engine.Evaluate(context.Background(), emptyView{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 || res.Violations[0].Rule != "second" || res.Violations[1].Rule != "first" {
		t.Fatalf("unexpected order: %+v", res.Violations)
	}
	if names := engine.Rules(); len(names) != 2 || names[0] != "second" {
		t.Fatalf("unexpected rule names %v", names)
	}
}

func TestRulesEnginePropagatesErrors(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(failingRule{})
	if _, err := engine.Evaluate(context.Background(), emptyView{}); err == nil {
		t.Fatalf("expected rule error")
	}
}

type staticRule struct{ name string }

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, RuleView) (Result, error) {
	return Result{Violations: []Violation{{Rule: r.name, Severity: SeverityBlock}}}, nil
}

type failingRule struct{}

func (failingRule) Name() string { return "failing" }

func (failingRule) Evaluate(context.Context, RuleView) (Result, error) {
	return Result{}, errors.New("boom")
}

type emptyView struct{}

func (emptyView) Regions() []Region { return nil }
func (emptyView) Trays() []Tray     { return nil }
