package core

import (
	"context"
	"strings"

	"traycore/pkg/domain"
)

// NewRequiredTreatmentRule rejects regions without a treatment.
func NewRequiredTreatmentRule() domain.Rule {
	return requiredFieldRule{
		name:    "required_treatment",
		message: MessageMissingTreatment,
		value:   func(r domain.Region) string { return r.TreatmentID },
	}
}

// NewRequiredDilutionRule rejects regions without a dilution factor.
func NewRequiredDilutionRule() domain.Rule {
	return requiredFieldRule{
		name:    "required_dilution",
		message: MessageMissingDilution,
		value:   func(r domain.Region) string { return r.Dilution },
	}
}

type requiredFieldRule struct {
	name    string
	message string
	value   func(domain.Region) string
}

func (r requiredFieldRule) Name() string { return r.name }

func (r requiredFieldRule) Evaluate(_ context.Context, view domain.RuleView) (domain.Result, error) {
	res := domain.Result{}
	for i, region := range view.Regions() {
		if strings.TrimSpace(r.value(region)) == "" {
			res.Violations = append(res.Violations, regionViolation(r.name, domain.SeverityBlock, r.message, i, region))
		}
	}
	return res, nil
}
