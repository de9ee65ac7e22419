package core

import "flowcore/pkg/domain"

type (
	Rule        = domain.Rule
	RuleView    = domain.RuleView
	RulesEngine = domain.RulesEngine
)

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set:
// structural integrity blocks the commit, sheet inconsistencies only warn.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewFlowCellIdentityRule())
	engine.Register(NewReferenceIntegrityRule())
	engine.Register(NewSheetConsistencyRule())
	return engine
}
