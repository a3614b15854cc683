package impact

// ApprovalPolicy gates changes whose worst impact is High or Critical.
type ApprovalPolicy struct{}

// Evaluate returns a copy of summary with RequiresApproval decided.
func (ApprovalPolicy) Evaluate(summary OverallImpactSummary) OverallImpactSummary {
	summary.RequiresApproval = RequiresApproval(summary.WorstImpactLevel)
	return summary
}

// RequiresApproval reports whether a change at level needs sign-off.
func RequiresApproval(level ImpactLevel) bool {
	switch level {
	case ImpactHigh, ImpactCritical:
		return true
	default:
		return false
	}
}
