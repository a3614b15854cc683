package impact

func dep(source string, sourceID int64, target string, targetID int64, kind string) DependencyRow {
	return DependencyRow{
		SourceEntityType: source,
		SourceEntityID:   sourceID,
		TargetEntityType: target,
		TargetEntityID:   targetID,
		DependencyType:   kind,
		Depth:            1,
	}
}

func withCriticality(r DependencyRow, level int) DependencyRow {
	r.SourceCriticalityLevel = &level
	return r
}

func ref(t EntityType, id int64) EntityRef {
	return EntityRef{Type: t, ID: id}
}

func pathIDs(paths []DependencyPath) []string {
	ids := make([]string, len(paths))
	for i, p := range paths {
		ids[i] = p.PathID
	}
	return ids
}

func mustGraph(rows ...DependencyRow) *Graph {
	g, err := BuildGraph(rows)
	if err != nil {
		panic(err)
	}
	return g
}

func mustEnumerator(maxDepth, maxPaths int) *Enumerator {
	e, err := NewEnumerator(maxDepth, maxPaths)
	if err != nil {
		panic(err)
	}
	return e
}
