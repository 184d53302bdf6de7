// Package state holds what the operator has selected and what was last generated.
package state

import "workflow-console/pkg/models"

// Selection is the single source of truth for the current workflow and the
// last generated rule set. It is not safe for concurrent use; the console
// mutates it only from its event loop.
type Selection struct {
	workflowID  string
	hasWorkflow bool
	rules       *models.RuleSet
}

// New returns an empty selection.
func New() *Selection {
	return &Selection{}
}

// Select records workflowID as the current workflow.
func (s *Selection) Select(workflowID string) {
	s.workflowID = workflowID
	s.hasWorkflow = true
}

// SetGeneratedRules stores the most recent rule set.
func (s *Selection) SetGeneratedRules(rs *models.RuleSet) {
	s.rules = rs
}

// Clear resets both fields.
func (s *Selection) Clear() {
	*s = Selection{}
}

// SelectedWorkflowID returns the current workflow id, if any.
func (s *Selection) SelectedWorkflowID() (string, bool) {
	return s.workflowID, s.hasWorkflow
}

// IsSelected reports whether workflowID is the current selection.
func (s *Selection) IsSelected(workflowID string) bool {
	return s.hasWorkflow && s.workflowID == workflowID
}

// GeneratedRules returns the last generated rule set, if any.
func (s *Selection) GeneratedRules() (*models.RuleSet, bool) {
	return s.rules, s.rules != nil
}

// CanExport reports whether both a workflow and a rule set are present.
func (s *Selection) CanExport() bool {
	return s.hasWorkflow && s.rules != nil
}
