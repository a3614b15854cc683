// Package report renders analysis outcomes for terminals, files and pull
// request comments.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/audit"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/engine"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/state"
)

// Output formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ImpactReport is the rendered form of one analysis.
type ImpactReport struct {
	Version     string                 `json:"version"`
	GeneratedAt time.Time              `json:"generated_at"`
	AnalysisID  string                 `json:"analysis_id"`
	ProjectID   int64                  `json:"project_id"`
	Result      *impact.ImpactResult   `json:"result"`
	Approval    *audit.ApprovalRequest `json:"approval,omitempty"`
}

// New builds a report from an engine outcome.
func New(out *engine.Outcome, at time.Time) *ImpactReport {
	return &ImpactReport{
		Version:     "1",
		GeneratedAt: at,
		AnalysisID:  out.ID,
		ProjectID:   out.ProjectID,
		Result:      out.Result,
		Approval:    out.Approval,
	}
}

// Render writes the report to w in the given format.
func Render(w io.Writer, r *ImpactReport, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(r))
		return err
	case FormatText, "":
		_, err := io.WriteString(w, Text(r))
		return err
	default:
		return fmt.Errorf("unknown report format %q (want text, json or markdown)", format)
	}
}

// WriteFile renders the report into path, creating parent directories.
func WriteFile(r *ImpactReport, path, format string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := Render(f, r, format); err != nil {
		f.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	return f.Close()
}

// ReadJSON reads a report from a JSON file.
func ReadJSON(path string) (*ImpactReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	r := &ImpactReport{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return r, nil
}

// Text renders the report as human-readable text.
func Text(r *ImpactReport) string {
	var b strings.Builder
	res := r.Result

	b.WriteString("=== Acto Impact Report ===\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("Root:     %s\n", DisplayEntity(res.RootEntity)))
	b.WriteString(fmt.Sprintf("Change:   %s\n", res.ChangeType))
	b.WriteString(fmt.Sprintf("Policy:   %s\n\n", res.PolicyVersion))
	b.WriteString(overallLine(res) + "\n")
	b.WriteString(approvalLine(r) + "\n")
	b.WriteString(pathsLine(res) + "\n\n")

	if len(res.EntityImpacts) == 0 {
		b.WriteString("No downstream dependents.\n")
		return b.String()
	}

	t := impactTable(res)
	t.SetStyle(table.StyleLight)
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// Markdown renders the report for pull request comments.
func Markdown(r *ImpactReport) string {
	var b strings.Builder
	res := r.Result

	b.WriteString(fmt.Sprintf("### Impact of %s on `%s`\n\n", res.ChangeType, DisplayEntity(res.RootEntity)))
	b.WriteString("- " + overallLine(res) + "\n")
	b.WriteString("- " + approvalLine(r) + "\n")
	b.WriteString("- " + pathsLine(res) + "\n")
	b.WriteString(fmt.Sprintf("- Policy: `%s`\n\n", res.PolicyVersion))

	if len(res.EntityImpacts) == 0 {
		b.WriteString("No downstream dependents.\n")
		return b.String()
	}

	b.WriteString(impactTable(res).RenderMarkdown())
	b.WriteString("\n")
	return b.String()
}

func impactTable(res *impact.ImpactResult) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Entity", "Level", "Worst", "Cumulative", "Paths", "Dominant path"})
	for _, ei := range res.EntityImpacts {
		t.AppendRow(table.Row{
			DisplayEntity(ei.Entity),
			ei.WorstCaseImpactLevel.String(),
			ei.WorstCaseRiskScore,
			ei.CumulativeRiskScore,
			len(ei.Paths),
			ei.DominantPathID,
		})
	}
	return t
}

func overallLine(res *impact.ImpactResult) string {
	line := fmt.Sprintf("Overall:  %s (score %d)", res.OverallImpact.WorstImpactLevel, res.OverallImpact.WorstRiskScore)
	if res.OverallImpact.TriggeringPathID != "" {
		line += " via " + res.OverallImpact.TriggeringPathID
	}
	return line
}

func approvalLine(r *ImpactReport) string {
	switch {
	case r.Approval != nil:
		return fmt.Sprintf("Approval: REQUIRED (request %s)", r.Approval.ID)
	case r.Result.OverallImpact.RequiresApproval:
		return "Approval: REQUIRED"
	default:
		return "Approval: not required"
	}
}

func pathsLine(res *impact.ImpactResult) string {
	line := fmt.Sprintf("Paths:    %d across %d entities, max depth %d",
		res.TotalPaths, res.TotalEntities, res.MaxDepthReached)
	if res.IsTruncated {
		line += fmt.Sprintf(" (truncated: %s)", res.TruncationReason)
	}
	return line
}

// DisplayEntity renders "Type:ID (name)".
func DisplayEntity(e impact.EntityRef) string {
	if e.Name == "" {
		return e.String()
	}
	return fmt.Sprintf("%s (%s)", e.String(), e.Name)
}

// History renders recent analyses as a table.
func History(entries []state.Entry) string {
	if len(entries) == 0 {
		return "No analyses recorded yet.\n"
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"When", "Project", "Root", "Change", "Level", "Score", "Paths", "Approval"})
	for _, e := range entries {
		root := fmt.Sprintf("%s:%d", e.RootType, e.RootID)
		if e.RootName != "" {
			root += " (" + e.RootName + ")"
		}
		paths := fmt.Sprintf("%d", e.TotalPaths)
		if e.Truncated {
			paths += "+"
		}
		approval := ""
		if e.RequiresApproval {
			approval = "required"
		}
		t.AppendRow(table.Row{
			e.AnalyzedAt.Local().Format("2006-01-02 15:04"),
			e.ProjectID, root, e.ChangeType, e.WorstLevel, e.WorstScore, paths, approval,
		})
	}
	return t.Render() + "\n"
}

// Policy renders the scoring tables of a risk policy.
func Policy(p impact.RiskPolicy) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Policy %s\n\n", p.Version))

	weights := table.NewWriter()
	weights.SetStyle(table.StyleLight)
	weights.AppendHeader(table.Row{"Dependency", "Weight"})
	for _, d := range []impact.DependencyType{
		impact.DependencySelect, impact.DependencyInsert, impact.DependencyUpdate,
		impact.DependencyDelete, impact.DependencyLogicalFk, impact.DependencyUnknown,
	} {
		weights.AppendRow(table.Row{d.String(), p.Weights.For(d)})
	}
	b.WriteString(weights.Render() + "\n\n")

	mult := table.NewWriter()
	mult.SetStyle(table.StyleLight)
	mult.AppendHeader(table.Row{"Change", "Multiplier"})
	for _, c := range []impact.ChangeType{impact.ChangeCreate, impact.ChangeModify, impact.ChangeDelete} {
		mult.AppendRow(table.Row{c.String(), p.Multipliers.For(c)})
	}
	b.WriteString(mult.Render() + "\n\n")

	levels := table.NewWriter()
	levels.SetStyle(table.StyleLight)
	levels.AppendHeader(table.Row{"Level", "Min score", "Approval"})
	t := p.Thresholds
	for _, row := range []struct {
		level impact.ImpactLevel
		min   int
	}{
		{impact.ImpactLow, t.Low},
		{impact.ImpactMedium, t.Medium},
		{impact.ImpactHigh, t.High},
		{impact.ImpactCritical, t.Critical},
	} {
		approval := ""
		if impact.RequiresApproval(row.level) {
			approval = "required"
		}
		levels.AppendRow(table.Row{row.level.String(), row.min, approval})
	}
	b.WriteString(levels.Render() + "\n")
	b.WriteString("\nscore = weight x multiplier x criticality / min(depth, 5)\n")
	return b.String()
}
