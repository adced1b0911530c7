package core

import (
	"traycore/pkg/domain"
)

// Validation messages, in priority order.
const (
	MessageDuplicateName    = "Region names must be unique"
	MessageMissingName      = "All regions must have a name"
	MessageMissingTreatment = "All regions must have a treatment"
	MessageMissingDilution  = "All regions must have a dilution factor"
)

// NewDefaultRulesEngine builds a rules engine with the built-in region policy
// set. Blocking rules are registered in message priority order.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewUniqueNameRule())
	engine.Register(NewRequiredNameRule())
	engine.Register(NewRequiredTreatmentRule())
	engine.Register(NewRequiredDilutionRule())
	engine.Register(NewTrayBoundsRule())
	return engine
}

type ruleView struct {
	regions []domain.Region
	trays   []domain.Tray
}

func (v ruleView) Regions() []domain.Region { return v.regions }
func (v ruleView) Trays() []domain.Tray     { return v.trays }

// NewRuleView exposes a region assignment to rule evaluation.
func NewRuleView(regions []domain.Region, trays []domain.Tray) domain.RuleView {
	return ruleView{regions: regions, trays: trays}
}

func regionViolation(rule string, severity domain.Severity, message string, index int, r domain.Region) domain.Violation {
	return domain.Violation{
		Rule:        rule,
		Severity:    severity,
		Message:     message,
		RegionIndex: index,
		RegionID:    r.ID,
	}
}
