package discovery

import (
	"fmt"
	"strings"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/schema"
)

// ScriptGenerator renders a snapshot as a PostgreSQL script that creates the
// entity_dependencies table and replaces one project's rows in it.
type ScriptGenerator struct {
	Snapshot *schema.Snapshot
}

// GenerateScript returns the DDL plus a single transaction that deletes the
// project's existing rows and inserts one row per snapshot dependency.
func (sg *ScriptGenerator) GenerateScript() string {
	s := sg.Snapshot
	var b strings.Builder

	fmt.Fprintf(&b, "-- Acto dependency load script (project %d)\n", s.ProjectID)
	fmt.Fprintf(&b, "-- Run: psql -h HOST -U USER -d DB -f this_script.sql\n\n")
	b.WriteString(entityDependenciesDDL)
	b.WriteString("\nBEGIN;\n\n")
	fmt.Fprintf(&b, "DELETE FROM entity_dependencies WHERE project_id = %d;\n", s.ProjectID)

	if len(s.Dependencies) > 0 {
		b.WriteString("\nINSERT INTO entity_dependencies\n")
		b.WriteString("\t(project_id, source_entity_type, source_entity_id, source_entity_name,\n")
		b.WriteString("\t target_entity_type, target_entity_id, target_entity_name, dependency_type, criticality_level)\n")
		b.WriteString("VALUES\n")
		for i, d := range s.Dependencies {
			src, _ := s.Entity(d.SourceType, d.SourceID)
			tgt, _ := s.Entity(d.TargetType, d.TargetID)
			fmt.Fprintf(&b, "\t(%d, %s, %d, %s, %s, %d, %s, %s, %s)",
				s.ProjectID,
				quoteLiteral(strings.ToUpper(d.SourceType)), d.SourceID, nullableText(src.Name),
				quoteLiteral(strings.ToUpper(d.TargetType)), d.TargetID, nullableText(tgt.Name),
				quoteLiteral(strings.ToUpper(d.Kind)), nullableInt(src.Criticality))
			if i < len(s.Dependencies)-1 {
				b.WriteString(",\n")
			} else {
				b.WriteString(";\n")
			}
		}
	}

	b.WriteString("\nCOMMIT;\n")
	return b.String()
}

const entityDependenciesDDL = `CREATE TABLE IF NOT EXISTS entity_dependencies (
	id bigserial PRIMARY KEY,
	project_id bigint NOT NULL,
	source_entity_type text NOT NULL,
	source_entity_id bigint NOT NULL,
	source_entity_name text,
	target_entity_type text NOT NULL,
	target_entity_id bigint NOT NULL,
	target_entity_name text,
	dependency_type text NOT NULL,
	criticality_level integer CHECK (criticality_level BETWEEN 1 AND 5)
);

CREATE INDEX IF NOT EXISTS entity_dependencies_target_idx
	ON entity_dependencies (project_id, upper(target_entity_type), target_entity_id);
`

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func nullableText(s string) string {
	if s == "" {
		return "NULL"
	}
	return quoteLiteral(s)
}

func nullableInt(v *int) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%d", *v)
}
