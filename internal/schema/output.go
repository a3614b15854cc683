package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a snapshot from a YAML file.
func LoadYAML(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}
	s := &Snapshot{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return s, nil
}

// WriteYAML writes the snapshot to path, creating parent directories.
// The file is written to a temporary name first and renamed into place so
// readers never see a partial snapshot.
func (s *Snapshot) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// FindEntity looks up an entity by type token and case-insensitive name.
func (s *Snapshot) FindEntity(entityType, name string) (Entity, bool) {
	for _, e := range s.Entities {
		if strings.EqualFold(e.Type, entityType) && strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Entity{}, false
}

// Entity returns the entity with the given type token and id.
func (s *Snapshot) Entity(entityType string, id int64) (Entity, bool) {
	for _, e := range s.Entities {
		if strings.EqualFold(e.Type, entityType) && e.ID == id {
			return e, true
		}
	}
	return Entity{}, false
}

// Summary returns a human-readable summary of the snapshot.
func (s *Snapshot) Summary() string {
	byType := make(map[string]int)
	for _, e := range s.Entities {
		byType[strings.ToUpper(e.Type)]++
	}
	kinds := make(map[string]int)
	for _, d := range s.Dependencies {
		kinds[strings.ToUpper(d.Kind)]++
	}

	return fmt.Sprintf("Found %d entities (%s)\nFound %d dependencies (%s)",
		len(s.Entities), formatCounts(byType), len(s.Dependencies), formatCounts(kinds))
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}
