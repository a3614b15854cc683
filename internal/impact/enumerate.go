package impact

import "fmt"

// TruncationReasonLimits is the single marker reported when enumeration stops
// at either the depth or the path-count bound.
const TruncationReasonLimits = "max_depth_or_max_paths"

// Enumerator walks a Graph breadth-first from a root entity, recording every
// acyclic path it reaches within fixed depth and path-count bounds.
type Enumerator struct {
	maxDepth int
	maxPaths int
}

// EnumerationResult holds the discovered paths in BFS order plus truncation metadata.
type EnumerationResult struct {
	Paths            []DependencyPath
	IsTruncated      bool
	TruncationReason string
	MaxDepthReached  int
}

// NewEnumerator creates an Enumerator. Both bounds must be positive.
func NewEnumerator(maxDepth, maxPaths int) (*Enumerator, error) {
	if maxDepth <= 0 || maxPaths <= 0 {
		return nil, fmt.Errorf("%w: max_depth=%d max_paths=%d", ErrInvalidBounds, maxDepth, maxPaths)
	}
	return &Enumerator{maxDepth: maxDepth, maxPaths: maxPaths}, nil
}

// MaxDepth returns the configured depth bound.
func (e *Enumerator) MaxDepth() int { return e.maxDepth }

// MaxPaths returns the configured path-count bound.
func (e *Enumerator) MaxPaths() int { return e.maxPaths }

// partialPath is a frontier entry.
type partialPath struct {
	nodes []EntityRef
	edges []DependencyType
}

func (p partialPath) contains(e EntityRef) bool {
	for _, n := range p.nodes {
		if n.Same(e) {
			return true
		}
	}
	return false
}

func (p partialPath) extend(to EntityRef, dep DependencyType) partialPath {
	nodes := make([]EntityRef, len(p.nodes), len(p.nodes)+1)
	copy(nodes, p.nodes)
	edges := make([]DependencyType, len(p.edges), len(p.edges)+1)
	copy(edges, p.edges)
	return partialPath{
		nodes: append(nodes, to),
		edges: append(edges, dep),
	}
}

// Enumerate runs the bounded BFS. Paths are returned in discovery order: every
// depth-1 path before any depth-2 path, and within a level in adjacency order.
// An edge leading back into the current path is skipped.
func (e *Enumerator) Enumerate(g *Graph, root EntityRef) (*EnumerationResult, error) {
	rootNode, ok := g.Node(root)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRootNotInGraph, root)
	}

	result := &EnumerationResult{Paths: make([]DependencyPath, 0)}
	frontier := []partialPath{{nodes: []EntityRef{rootNode.Entity}}}

walk:
	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		if len(result.Paths) >= e.maxPaths {
			result.IsTruncated = true
			break
		}

		tail := current.nodes[len(current.nodes)-1]
		out := g.edges[tail.Key()]

		if len(current.edges) >= e.maxDepth {
			for _, edge := range out {
				if !current.contains(edge.To) {
					result.IsTruncated = true
					break
				}
			}
			continue
		}

		for _, edge := range out {
			if current.contains(edge.To) {
				continue
			}
			if len(result.Paths) >= e.maxPaths {
				result.IsTruncated = true
				break walk
			}
			next := current.extend(g.nodes[edge.To.Key()].Entity, edge.DependencyType)
			result.Paths = append(result.Paths, describePath(g, next))
			frontier = append(frontier, next)
		}
	}

	if result.IsTruncated {
		result.TruncationReason = TruncationReasonLimits
	}
	for _, p := range result.Paths {
		if p.Depth > result.MaxDepthReached {
			result.MaxDepthReached = p.Depth
		}
	}
	return result, nil
}

// describePath fills in the identity and dominant-element fields of a path.
// Ties keep the first element encountered.
func describePath(g *Graph, p partialPath) DependencyPath {
	path := DependencyPath{
		PathID:            PathID(p.nodes),
		Nodes:             p.nodes,
		Edges:             p.edges,
		Depth:             len(p.edges),
		MaxDependencyType: DependencyUnknown,
	}

	for i, dep := range p.edges {
		if i == 0 || dep.SeverityRank() > path.MaxDependencyType.SeverityRank() {
			path.MaxDependencyType = dep
		}
	}
	path.DominantDependencyType = path.MaxDependencyType

	for i, n := range p.nodes {
		level := DefaultCriticality
		if node, ok := g.nodes[n.Key()]; ok {
			level = node.CriticalityLevel
		}
		if i == 0 || level > path.MaxCriticalityLevel {
			path.MaxCriticalityLevel = level
			path.DominantEntity = n
		}
	}

	return path
}
