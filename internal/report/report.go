package report

import (
	"github.com/joseph-ayodele/agentic-ocr/constants"
	"github.com/joseph-ayodele/agentic-ocr/internal/assess"
)

// ExtractionReport aggregates the current FieldResult set for one run. It is
// always rebuilt from scratch, never patched field-by-field, so recomputing
// it on an unchanged result set yields an identical report.
type ExtractionReport struct {
	TotalFields         int `json:"total_fields"`
	FilledFields        int `json:"filled_fields"`
	UnfilledFields      int `json:"unfilled_fields"`
	LowConfidenceFields int `json:"low_confidence_fields"`
	InvalidFields       int `json:"invalid_fields"`
	NeedsReviewFields   int `json:"needs_review_fields"`

	AverageConfidence     float64 `json:"average_confidence"`
	CompletionRate        float64 `json:"completion_rate"`
	ValidationSuccessRate float64 `json:"validation_success_rate"`
	QualityScore          float64 `json:"quality_score"`

	// FlaggedFieldNames holds every field needing retry or review, in schema
	// order.
	FlaggedFieldNames []string `json:"flagged_field_names"`

	// FieldDetails are value copies of the per-field results at build time.
	FieldDetails map[string]assess.FieldResult `json:"field_details"`
}

// Quality score weights: completion dominates, then confidence, then
// validation success.
const (
	filledWeight     = 0.5
	confidenceWeight = 0.3
	validationWeight = 0.2
)

// Build aggregates results into a report. order is the schema field order and
// defines FlaggedFieldNames ordering; results is keyed by field name.
func Build(order []string, results map[string]*assess.FieldResult) *ExtractionReport {
	rep := &ExtractionReport{
		TotalFields:       len(results),
		FlaggedFieldNames: []string{},
		FieldDetails:      make(map[string]assess.FieldResult, len(results)),
	}

	var confidenceSum float64
	for _, res := range results {
		confidenceSum += res.Confidence
		switch res.Status {
		case constants.FieldStatusFilled:
			rep.FilledFields++
		case constants.FieldStatusUnfilled:
			rep.UnfilledFields++
		case constants.FieldStatusLowConfidence:
			rep.LowConfidenceFields++
		case constants.FieldStatusInvalid:
			rep.InvalidFields++
		case constants.FieldStatusNeedsReview:
			rep.NeedsReviewFields++
		}
		rep.FieldDetails[res.Name] = *res
	}

	for _, name := range order {
		if res, ok := results[name]; ok && res.Status.Flagged() {
			rep.FlaggedFieldNames = append(rep.FlaggedFieldNames, name)
		}
	}

	if rep.TotalFields == 0 {
		return rep
	}

	total := float64(rep.TotalFields)
	rep.AverageConfidence = confidenceSum / total
	rep.CompletionRate = float64(rep.FilledFields) / total * 100
	rep.ValidationSuccessRate = float64(rep.TotalFields-rep.InvalidFields) / total * 100
	rep.QualityScore = clamp(
		rep.CompletionRate*filledWeight+
			rep.AverageConfidence*100*confidenceWeight+
			rep.ValidationSuccessRate*validationWeight,
		0, 100)
	return rep
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
