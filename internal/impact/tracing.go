package impact

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("acto.impact")

func startAnalysisSpan(ctx context.Context, projectID int64, root EntityRef, change ChangeType) (context.Context, trace.Span) {
	return tracer.Start(ctx, "impact.Analyze",
		trace.WithAttributes(
			attribute.Int64("impact.project_id", projectID),
			attribute.String("impact.root", root.String()),
			attribute.String("impact.change_type", change.String()),
		),
	)
}

func setAnalysisSpanResult(span trace.Span, result *ImpactResult) {
	span.SetAttributes(
		attribute.String("impact.worst_level", result.OverallImpact.WorstImpactLevel.String()),
		attribute.Int("impact.worst_score", result.OverallImpact.WorstRiskScore),
		attribute.Int("impact.total_paths", result.TotalPaths),
		attribute.Int("impact.total_entities", result.TotalEntities),
		attribute.Bool("impact.truncated", result.IsTruncated),
		attribute.Bool("impact.requires_approval", result.OverallImpact.RequiresApproval),
	)
}

func setAnalysisSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
