package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joseph-ayodele/agentic-ocr/constants"
	"github.com/joseph-ayodele/agentic-ocr/internal/common"
)

// DefaultMinConfidence applies when a field's metadata does not set its own
// threshold.
const DefaultMinConfidence = 0.6

// FieldMetadata describes one schema field: what type it holds, whether it is
// required, and how confident the extractor must be. Immutable once built.
type FieldMetadata struct {
	Name          string              `json:"name"`
	Type          constants.FieldType `json:"type"`
	Required      bool                `json:"required"`
	MinConfidence float64             `json:"min_confidence"`
	Description   string              `json:"description,omitempty"`
}

// Normalize fills defaults: empty type becomes TEXT, unset threshold becomes
// DefaultMinConfidence.
func (m FieldMetadata) Normalize() FieldMetadata {
	if m.Type == "" {
		m.Type = constants.FieldTypeText
	}
	if m.MinConfidence <= 0 {
		m.MinConfidence = DefaultMinConfidence
	}
	return m
}

// Check validates a field set against its metadata map before a run starts.
// Misconfiguration here is fatal: no retry pass can fix an unknown field type
// or an out-of-range threshold.
func Check(fields map[string]string, metadata map[string]FieldMetadata) error {
	if len(fields) == 0 {
		return common.NewAppError("SCHEMA_EMPTY", "schema has no fields", common.ErrInvalidInput)
	}
	for name, meta := range metadata {
		if _, ok := fields[name]; !ok {
			return common.NewAppError("SCHEMA_MISMATCH",
				fmt.Sprintf("metadata for %q has no matching schema field", name), common.ErrInvalidInput)
		}
		m := meta.Normalize()
		if !constants.KnownFieldType(m.Type) {
			return common.NewAppError("SCHEMA_UNKNOWN_TYPE",
				fmt.Sprintf("field %q has unknown type %q", name, meta.Type), common.ErrInvalidInput)
		}
		if m.MinConfidence < 0 || m.MinConfidence > 1 {
			return common.NewAppError("SCHEMA_BAD_THRESHOLD",
				fmt.Sprintf("field %q min_confidence %.2f outside [0,1]", name, meta.MinConfidence), common.ErrInvalidInput)
		}
	}
	return nil
}

// InferType guesses a field's type from its name. Heuristic only; explicit
// metadata always wins.
func InferType(name string) constants.FieldType {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "date"):
		return constants.FieldTypeDate
	case containsAny(n, "amount", "balance", "salary", "pay", "income", "total", "price"):
		return constants.FieldTypeCurrency
	case strings.Contains(n, "email"):
		return constants.FieldTypeEmail
	case strings.Contains(n, "phone") || strings.Contains(n, "tel"):
		return constants.FieldTypePhone
	case strings.Contains(n, "iban"):
		return constants.FieldTypeIBAN
	case strings.Contains(n, "address"):
		return constants.FieldTypeAddress
	case containsAny(n, "rate", "percent", "ratio"):
		return constants.FieldTypePercentage
	case containsAny(n, "count", "number", "year", "age"):
		return constants.FieldTypeNumber
	}
	return constants.FieldTypeText
}

// MetadataFromFieldNames builds a metadata map for a bare field list using
// name-based type inference. Fields listed in required are marked required.
func MetadataFromFieldNames(names []string, required []string) map[string]FieldMetadata {
	req := make(map[string]bool, len(required))
	for _, r := range required {
		req[r] = true
	}
	out := make(map[string]FieldMetadata, len(names))
	for _, name := range names {
		out[name] = FieldMetadata{
			Name:          name,
			Type:          InferType(name),
			Required:      req[name],
			MinConfidence: DefaultMinConfidence,
		}
	}
	return out
}

// SortedNames returns field names in lexical order; used as a deterministic
// fallback when a schema carries no explicit ordering.
func SortedNames(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
