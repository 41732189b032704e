package constants

// FieldStatus is the canonical status for an extracted field.
type FieldStatus string

// Stable values (these exact strings appear in reports and exports).
const (
	FieldStatusFilled        FieldStatus = "FILLED"         // valid data with good confidence
	FieldStatusUnfilled      FieldStatus = "UNFILLED"       // empty or whitespace-only
	FieldStatusLowConfidence FieldStatus = "LOW_CONFIDENCE" // data present but confidence below threshold
	FieldStatusInvalid       FieldStatus = "INVALID"        // data present but fails validation
	FieldStatusNeedsReview   FieldStatus = "NEEDS_REVIEW"   // flagged by the evaluator for manual review
)

// Flagged reports whether a field with this status needs retry or human attention.
// FILLED is never flagged.
func (s FieldStatus) Flagged() bool {
	return s != FieldStatusFilled
}

// FieldType declares the semantic type a field's value is validated against.
type FieldType string

const (
	FieldTypeText       FieldType = "TEXT"
	FieldTypeNumber     FieldType = "NUMBER"
	FieldTypeCurrency   FieldType = "CURRENCY"
	FieldTypeDate       FieldType = "DATE"
	FieldTypeEmail      FieldType = "EMAIL"
	FieldTypePhone      FieldType = "PHONE"
	FieldTypeIBAN       FieldType = "IBAN"
	FieldTypeAddress    FieldType = "ADDRESS"
	FieldTypePercentage FieldType = "PERCENTAGE"
)

// FieldTypes holds every known field type; the validator dispatch table and
// schema checks are keyed off this closed set.
var FieldTypes = []FieldType{
	FieldTypeText,
	FieldTypeNumber,
	FieldTypeCurrency,
	FieldTypeDate,
	FieldTypeEmail,
	FieldTypePhone,
	FieldTypeIBAN,
	FieldTypeAddress,
	FieldTypePercentage,
}

// KnownFieldType reports whether t is one of the closed FieldType set.
func KnownFieldType(t FieldType) bool {
	for _, k := range FieldTypes {
		if t == k {
			return true
		}
	}
	return false
}
