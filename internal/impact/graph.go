package impact

import "fmt"

// DefaultCriticality is substituted for rows that carry no criticality rating,
// and used for entities that never appear as a row source.
const DefaultCriticality = 3

// Graph is an immutable directed dependency graph. Nodes live in an arena
// keyed by (type, id); adjacency lists hold edges in insertion order.
type Graph struct {
	nodes map[EntityKey]GraphNode
	// adjacency: depended-upon entity -> dependents
	edges map[EntityKey][]GraphEdge
	// first-seen order, for deterministic iteration
	order []EntityKey
}

// BuildGraph turns repository rows into a Graph. An unrecognised entity-type
// token fails the whole build; no partial graph is returned.
func BuildGraph(rows []DependencyRow) (*Graph, error) {
	g := &Graph{
		nodes: make(map[EntityKey]GraphNode),
		edges: make(map[EntityKey][]GraphEdge),
	}

	// criticality observations contributed by rows where the entity is the source
	observations := make(map[EntityKey][]int)

	for i, row := range rows {
		sourceType, err := ParseEntityType(row.SourceEntityType)
		if err != nil {
			return nil, fmt.Errorf("row %d source: %w", i, err)
		}
		targetType, err := ParseEntityType(row.TargetEntityType)
		if err != nil {
			return nil, fmt.Errorf("row %d target: %w", i, err)
		}

		target := g.ensureNode(EntityRef{Type: targetType, ID: row.TargetEntityID, Name: row.TargetEntityName})
		source := g.ensureNode(EntityRef{Type: sourceType, ID: row.SourceEntityID, Name: row.SourceEntityName})

		level := DefaultCriticality
		if row.SourceCriticalityLevel != nil {
			level = *row.SourceCriticalityLevel
		}
		observations[source.Key()] = append(observations[source.Key()], level)

		g.edges[target.Key()] = append(g.edges[target.Key()], GraphEdge{
			From:           target,
			To:             source,
			DependencyType: ParseDependencyType(row.DependencyType),
		})
	}

	for key, node := range g.nodes {
		node.CriticalityLevel = averageCriticality(observations[key])
		g.nodes[key] = node
	}

	// names may have been filled in after an edge was recorded
	for _, out := range g.edges {
		for i := range out {
			out[i].From = g.nodes[out[i].From.Key()].Entity
			out[i].To = g.nodes[out[i].To.Key()].Entity
		}
	}

	return g, nil
}

// ensureNode returns the canonical reference for e, creating the node on first
// sight. The first non-empty name wins.
func (g *Graph) ensureNode(e EntityRef) EntityRef {
	key := e.Key()
	node, ok := g.nodes[key]
	if !ok {
		g.nodes[key] = GraphNode{Entity: e, CriticalityLevel: DefaultCriticality}
		g.order = append(g.order, key)
		return e
	}
	if node.Entity.Name == "" && e.Name != "" {
		node.Entity.Name = e.Name
		g.nodes[key] = node
	}
	return node.Entity
}

func averageCriticality(levels []int) int {
	if len(levels) == 0 {
		return DefaultCriticality
	}
	sum := 0
	for _, l := range levels {
		sum += l
	}
	return sum / len(levels)
}

// Node returns the node for the given entity.
func (g *Graph) Node(e EntityRef) (GraphNode, bool) {
	n, ok := g.nodes[e.Key()]
	return n, ok
}

// Edges returns the outgoing edges of e in insertion order. The slice is a copy.
func (g *Graph) Edges(e EntityRef) []GraphEdge {
	out := g.edges[e.Key()]
	cp := make([]GraphEdge, len(out))
	copy(cp, out)
	return cp
}

// Nodes returns all nodes in first-seen order.
func (g *Graph) Nodes() []GraphNode {
	nodes := make([]GraphNode, 0, len(g.order))
	for _, key := range g.order {
		nodes = append(nodes, g.nodes[key])
	}
	return nodes
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, out := range g.edges {
		count += len(out)
	}
	return count
}
