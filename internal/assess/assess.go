package assess

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/agentic-ocr/constants"
	"github.com/joseph-ayodele/agentic-ocr/internal/schema"
	"github.com/joseph-ayodele/agentic-ocr/internal/validate"
)

// FieldResult carries everything known about one schema field during a run.
// One instance per field; the assessor and orchestrator mutate it in place
// across passes, and it becomes read-only once the run completes.
type FieldResult struct {
	Name             string                `json:"name"`
	Value            string                `json:"value"`
	Confidence       float64               `json:"confidence"`
	Status           constants.FieldStatus `json:"status"`
	ValidationErrors []string              `json:"validation_errors,omitempty"`
	RetryCount       int                   `json:"retry_count"`
	SourcePage       int                   `json:"source_page,omitempty"`
	Notes            string                `json:"notes,omitempty"`
}

// IsEmpty reports whether a raw value counts as unfilled.
func IsEmpty(value string) bool {
	return strings.TrimSpace(value) == ""
}

// Assessor assigns a status to each field from its value, confidence,
// validator outcome and metadata. This is the decision core the flagging
// pipeline depends on.
type Assessor struct {
	validators *validate.Registry
	logger     *slog.Logger
}

func NewAssessor(validators *validate.Registry, logger *slog.Logger) *Assessor {
	if validators == nil {
		validators = validate.New(validate.Config{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assessor{validators: validators, logger: logger}
}

// Assess recomputes res.Status in strict priority order: unfilled, invalid,
// low confidence, filled. It rewrites Status, ValidationErrors and Notes but
// never touches Value or Confidence, except that an empty value forces
// Confidence to 0. NEEDS_REVIEW is applied out of band by the evaluator pass
// and is deliberately not reachable from here.
func (a *Assessor) Assess(res *FieldResult, meta schema.FieldMetadata) {
	meta = meta.Normalize()
	res.ValidationErrors = nil
	res.Notes = ""

	if IsEmpty(res.Value) {
		res.Status = constants.FieldStatusUnfilled
		res.Confidence = 0
		if meta.Required {
			res.Notes = "Required field is unfilled"
		} else {
			res.Notes = "Field is unfilled"
		}
		return
	}

	if ok, msg := a.validators.Validate(meta.Type, res.Value); !ok {
		res.Status = constants.FieldStatusInvalid
		res.ValidationErrors = append(res.ValidationErrors, msg)
		res.Notes = "Validation failed: " + msg
		return
	}

	if res.Confidence < meta.MinConfidence {
		res.Status = constants.FieldStatusLowConfidence
		res.Notes = fmt.Sprintf("Confidence %.2f below threshold %.2f", res.Confidence, meta.MinConfidence)
		return
	}

	res.Status = constants.FieldStatusFilled
}

// AssessAll runs Assess over every result. Fields without metadata fall back
// to TEXT with the default threshold.
func (a *Assessor) AssessAll(results map[string]*FieldResult, metadata map[string]schema.FieldMetadata) {
	for name, res := range results {
		a.Assess(res, metadata[name])
	}
}
