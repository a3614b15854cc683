package impact

import "errors"

var (
	// ErrUnknownEntityType is returned when a dependency row names an entity
	// kind outside the known vocabulary.
	ErrUnknownEntityType = errors.New("unknown entity type")

	// ErrRootNotInGraph is returned when enumeration starts from an entity the
	// graph does not contain.
	ErrRootNotInGraph = errors.New("root entity not in graph")

	// ErrEmptyPath is returned when scoring a path with no nodes.
	ErrEmptyPath = errors.New("dependency path has no nodes")

	// ErrInvalidBounds is returned when enumeration bounds are not positive.
	ErrInvalidBounds = errors.New("enumeration bounds must be positive")

	// ErrUnknownChangeType is returned for unrecognised change-type tokens.
	ErrUnknownChangeType = errors.New("unknown change type")
)
