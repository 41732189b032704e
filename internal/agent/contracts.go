package agent

import (
	"context"

	"github.com/joseph-ayodele/agentic-ocr/constants"
	"github.com/joseph-ayodele/agentic-ocr/internal/report"
	"github.com/joseph-ayodele/agentic-ocr/internal/schema"
)

// Page is one scanned document page. Number is 1-based document order; the
// merge policy depends on it.
type Page struct {
	Number int
	Image  []byte
	MIME   string
}

// Schema is the caller-supplied contract for one document type: the field
// shape handed to the provider, per-field metadata, and the field order used
// for reports. An empty Order falls back to lexical order.
type Schema struct {
	Fields   map[string]string
	Metadata map[string]schema.FieldMetadata
	Order    []string
}

// FieldOrder returns a complete ordering over Fields: the explicit Order
// entries that exist, then any remaining fields lexically.
func (s Schema) FieldOrder() []string {
	seen := make(map[string]bool, len(s.Fields))
	out := make([]string, 0, len(s.Fields))
	for _, name := range s.Order {
		if _, ok := s.Fields[name]; ok && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, name := range schema.SortedNames(s.Fields) {
		if !seen[name] {
			out = append(out, name)
		}
	}
	return out
}

// ExtractRequest asks a provider to read fields off one page image.
// TargetFields scopes a focused retry to the named fields; empty means all.
type ExtractRequest struct {
	Page             Page
	Fields           map[string]string
	SystemPrompt     string
	UserInstructions string
	TargetFields     []string
	// PriorValues carries the current best values for the target fields so a
	// retry prompt can show the provider what the last attempt produced.
	PriorValues map[string]string
}

// ExtractResult is the provider's answer. Every requested field must have an
// entry; empty value plus zero confidence is the not-found signal, never an
// error.
type ExtractResult struct {
	Values      map[string]string
	Confidences map[string]float64
}

// Extractor is the vision-capable extraction port. Implementations wrap a
// concrete provider (OpenAI, Claude, Gemini, ...) and are selected by
// configuration.
type Extractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (ExtractResult, error)
}

// EvaluateRequest hands the evaluator the full extraction state for a
// qualitative second opinion.
type EvaluateRequest struct {
	Page   Page
	Fields map[string]string
	Values map[string]string
	Report *report.ExtractionReport
}

// Evaluation is the evaluator's critique. CorrectedFields overwrite field
// values and trigger re-assessment; FlaggedFields are forced to NEEDS_REVIEW
// regardless of their computed status.
type Evaluation struct {
	OverallQuality  constants.OverallQuality `json:"overall_quality"`
	CriticalIssues  []string                 `json:"critical_issues,omitempty"`
	Suggestions     []string                 `json:"suggestions,omitempty"`
	CorrectedFields map[string]string        `json:"corrected_fields,omitempty"`
	FlaggedFields   []string                 `json:"flagged_fields,omitempty"`
}

// Evaluator is the optional secondary port driving the review pass.
type Evaluator interface {
	Evaluate(ctx context.Context, req EvaluateRequest) (Evaluation, error)
}
