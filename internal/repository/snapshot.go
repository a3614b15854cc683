package repository

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/schema"
)

type snapshotKey struct {
	typ string
	id  int64
}

func keyOf(typ string, id int64) snapshotKey {
	return snapshotKey{typ: normalizeType(typ), id: id}
}

// normalizeType folds the procedure aliases onto SP so lookups match
// however discovery spelled the type.
func normalizeType(typ string) string {
	t := strings.ToUpper(strings.TrimSpace(typ))
	switch t {
	case "PROCEDURE", "STORED_PROCEDURE":
		return "SP"
	}
	return t
}

// snapshotIndex is the query-ready form of a snapshot.
type snapshotIndex struct {
	snap     *schema.Snapshot
	entities map[snapshotKey]schema.Entity
	// dependents by target, in file order
	byTarget map[snapshotKey][]int
}

func newSnapshotIndex(s *schema.Snapshot) *snapshotIndex {
	idx := &snapshotIndex{
		snap:     s,
		entities: make(map[snapshotKey]schema.Entity, len(s.Entities)),
		byTarget: make(map[snapshotKey][]int),
	}
	for _, e := range s.Entities {
		idx.entities[keyOf(e.Type, e.ID)] = e
	}
	for i, d := range s.Dependencies {
		k := keyOf(d.TargetType, d.TargetID)
		idx.byTarget[k] = append(idx.byTarget[k], i)
	}
	return idx
}

// Snapshot serves dependency rows from a discovered snapshot. When backed by
// a file it reloads whenever the file's modification time changes.
type Snapshot struct {
	path       string
	fetchDepth int

	mu       sync.RWMutex
	index    *snapshotIndex
	modTime  time.Time
	onReload func()
}

// NewSnapshot serves rows from an in-memory snapshot.
func NewSnapshot(s *schema.Snapshot, maxDepth int) *Snapshot {
	return &Snapshot{index: newSnapshotIndex(s), fetchDepth: fetchDepth(maxDepth)}
}

// OpenSnapshot loads the snapshot file at path.
func OpenSnapshot(path string, maxDepth int) (*Snapshot, error) {
	s := &Snapshot{path: path, fetchDepth: fetchDepth(maxDepth)}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the snapshot file.
func (s *Snapshot) Reload() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("checking snapshot: %w", err)
	}
	snap, err := schema.LoadYAML(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.index = newSnapshotIndex(snap)
	s.modTime = info.ModTime()
	hook := s.onReload
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

// OnReload registers fn to run after every reload, so caches in front of the
// snapshot can drop rows read from the previous file.
func (s *Snapshot) OnReload(fn func()) {
	s.mu.Lock()
	s.onReload = fn
	s.mu.Unlock()
}

// current returns the index, reloading first if the file changed.
func (s *Snapshot) current() (*snapshotIndex, error) {
	if s.path != "" {
		info, err := os.Stat(s.path)
		if err != nil {
			return nil, fmt.Errorf("checking snapshot: %w", err)
		}
		s.mu.RLock()
		stale := !info.ModTime().Equal(s.modTime)
		s.mu.RUnlock()
		if stale {
			if err := s.Reload(); err != nil {
				return nil, err
			}
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index, nil
}

// Refresh reloads the file if it changed since the last read.
func (s *Snapshot) Refresh() error {
	_, err := s.current()
	return err
}

// Snapshot returns the snapshot currently served.
func (s *Snapshot) Snapshot() (*schema.Snapshot, error) {
	idx, err := s.current()
	if err != nil {
		return nil, err
	}
	return idx.snap, nil
}

// GetDownstreamDependents walks the snapshot breadth-first from the root.
// Each dependency is emitted once, at the depth its target is first reached.
func (s *Snapshot) GetDownstreamDependents(ctx context.Context, projectID int64, rootType impact.EntityType, rootID int64) ([]impact.DependencyRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, err := s.current()
	if err != nil {
		return nil, err
	}
	if idx.snap.ProjectID != 0 && idx.snap.ProjectID != projectID {
		return nil, fmt.Errorf("%w: %d (snapshot holds project %d)", ErrUnknownProject, projectID, idx.snap.ProjectID)
	}

	rows := make([]impact.DependencyRow, 0)
	root := keyOf(rootType.Token(), rootID)
	expanded := map[snapshotKey]bool{root: true}
	level := []snapshotKey{root}

	for depth := 1; depth <= s.fetchDepth && len(level) > 0; depth++ {
		var next []snapshotKey
		for _, target := range level {
			for _, i := range idx.byTarget[target] {
				d := idx.snap.Dependencies[i]
				rows = append(rows, idx.row(d, depth))

				src := keyOf(d.SourceType, d.SourceID)
				if !expanded[src] {
					expanded[src] = true
					next = append(next, src)
				}
			}
		}
		level = next
	}
	return rows, nil
}

func (idx *snapshotIndex) row(d schema.Dependency, depth int) impact.DependencyRow {
	r := impact.DependencyRow{
		SourceEntityType: d.SourceType,
		SourceEntityID:   d.SourceID,
		TargetEntityType: d.TargetType,
		TargetEntityID:   d.TargetID,
		DependencyType:   d.Kind,
		Depth:            depth,
	}
	if e, ok := idx.entities[keyOf(d.SourceType, d.SourceID)]; ok {
		r.SourceEntityName = e.Name
		if e.Criticality != nil {
			level := *e.Criticality
			r.SourceCriticalityLevel = &level
		}
	}
	if e, ok := idx.entities[keyOf(d.TargetType, d.TargetID)]; ok {
		r.TargetEntityName = e.Name
	}
	return r
}

func (s *Snapshot) Close() error { return nil }
