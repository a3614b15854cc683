package impact

// AggregateResult is the output of Aggregate.
type AggregateResult struct {
	OverallImpact OverallImpactSummary
	EntityImpacts []EntityImpact
}

// Aggregate groups scored paths by their terminal entity. Groups keep the
// order in which their entity was first encountered, and every tie (dominant
// path inside a group, triggering group overall) goes to the earliest one.
// RequiresApproval is always false here; ApprovalPolicy sets it.
func Aggregate(paths []DependencyPath) AggregateResult {
	index := make(map[EntityKey]int)
	impacts := make([]EntityImpact, 0)

	for _, p := range paths {
		terminal, ok := p.Terminal()
		if !ok {
			continue
		}
		i, seen := index[terminal.Key()]
		if !seen {
			index[terminal.Key()] = len(impacts)
			impacts = append(impacts, EntityImpact{
				Entity:               terminal,
				WorstCaseImpactLevel: p.ImpactLevel,
				WorstCaseRiskScore:   p.RiskScore,
				CumulativeRiskScore:  p.RiskScore,
				DominantPathID:       p.PathID,
				Paths:                []DependencyPath{p},
			})
			continue
		}
		group := &impacts[i]
		group.CumulativeRiskScore += p.RiskScore
		group.Paths = append(group.Paths, p)
		if p.RiskScore > group.WorstCaseRiskScore {
			group.WorstCaseRiskScore = p.RiskScore
			group.WorstCaseImpactLevel = p.ImpactLevel
			group.DominantPathID = p.PathID
		}
	}

	result := AggregateResult{EntityImpacts: impacts}
	for i, group := range impacts {
		if i > 0 && group.WorstCaseRiskScore <= result.OverallImpact.WorstRiskScore {
			continue
		}
		entity := group.Entity
		result.OverallImpact = OverallImpactSummary{
			WorstImpactLevel: group.WorstCaseImpactLevel,
			WorstRiskScore:   group.WorstCaseRiskScore,
			TriggeringEntity: &entity,
			TriggeringPathID: group.DominantPathID,
		}
	}
	return result
}
