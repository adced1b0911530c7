package core

import (
	"context"

	"traycore/pkg/domain"
)

// NewUniqueNameRule rejects regions whose trimmed name repeats an earlier
// region's. Comparison is case sensitive.
func NewUniqueNameRule() domain.Rule {
	return uniqueNameRule{}
}

type uniqueNameRule struct{}

func (uniqueNameRule) Name() string { return "unique_name" }

func (uniqueNameRule) Evaluate(_ context.Context, view domain.RuleView) (domain.Result, error) {
	res := domain.Result{}
	seen := make(map[string]struct{})
	for i, r := range view.Regions() {
		name := r.TrimmedName()
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			res.Violations = append(res.Violations, regionViolation("unique_name", domain.SeverityBlock, MessageDuplicateName, i, r))
			continue
		}
		seen[name] = struct{}{}
	}
	return res, nil
}

// NewRequiredNameRule rejects regions with a blank name.
func NewRequiredNameRule() domain.Rule {
	return requiredNameRule{}
}

type requiredNameRule struct{}

func (requiredNameRule) Name() string { return "required_name" }

func (requiredNameRule) Evaluate(_ context.Context, view domain.RuleView) (domain.Result, error) {
	res := domain.Result{}
	for i, r := range view.Regions() {
		if r.TrimmedName() == "" {
			res.Violations = append(res.Violations, regionViolation("required_name", domain.SeverityBlock, MessageMissingName, i, r))
		}
	}
	return res, nil
}
