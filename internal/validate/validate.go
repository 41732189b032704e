package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/agentic-ocr/constants"
)

// Func checks a raw value against one field type. It never fails hard:
// the bool says whether the value passes, the string carries the rejection
// reason (empty on success) so retries and reports can surface it.
type Func func(value string) (ok bool, message string)

// Config holds tunables for the validator set.
type Config struct {
	// MaxPercent is the upper bound for PERCENTAGE values. Default 100;
	// raise it for domains with rates above 100%.
	MaxPercent float64
}

// Registry maps the closed FieldType set to validator funcs. Extending it
// means adding a FieldType constant plus one table entry.
type Registry struct {
	cfg   Config
	table map[constants.FieldType]Func
}

func New(cfg Config) *Registry {
	if cfg.MaxPercent <= 0 {
		cfg.MaxPercent = 100
	}
	r := &Registry{cfg: cfg}
	r.table = map[constants.FieldType]Func{
		constants.FieldTypeText:       validateText,
		constants.FieldTypeNumber:     validateNumber,
		constants.FieldTypeCurrency:   validateCurrency,
		constants.FieldTypeDate:       validateDate,
		constants.FieldTypeEmail:      validateEmail,
		constants.FieldTypePhone:      validatePhone,
		constants.FieldTypeIBAN:       validateIBAN,
		constants.FieldTypeAddress:    validateAddress,
		constants.FieldTypePercentage: r.validatePercentage,
	}
	return r
}

// Supports reports whether t has a validator. Schema checking uses this to
// fail fast on misconfigured field types before a run starts.
func (r *Registry) Supports(t constants.FieldType) bool {
	_, ok := r.table[t]
	return ok
}

// Validate dispatches value to the validator for t. Unknown types are
// rejected rather than silently accepted; schema checks should have caught
// them already.
func (r *Registry) Validate(t constants.FieldType, value string) (bool, string) {
	fn, ok := r.table[t]
	if !ok {
		return false, fmt.Sprintf("no validator for field type %q", t)
	}
	return fn(value)
}

func validateText(string) (bool, string) {
	// Emptiness is the assessor's concern, not a validation failure.
	return true, ""
}

// dateLayouts are tried in order; the first successful parse wins.
var dateLayouts = []struct {
	display string
	layout  string
}{
	{"YYYY-MM-DD", "2006-01-02"},
	{"DD/MM/YYYY", "02/01/2006"},
	{"MM/DD/YYYY", "01/02/2006"},
	{"DD-MM-YYYY", "02-01-2006"},
	{"D Mon YYYY", "2 Jan 2006"},
	{"Mon D, YYYY", "Jan 2, 2006"},
	{"D Month YYYY", "2 January 2006"},
}

func validateDate(value string) (bool, string) {
	v := strings.TrimSpace(value)
	for _, l := range dateLayouts {
		if _, err := time.Parse(l.layout, v); err == nil {
			return true, ""
		}
	}
	names := make([]string, 0, len(dateLayouts))
	for _, l := range dateLayouts {
		names = append(names, l.display)
	}
	return false, fmt.Sprintf("invalid date %q: tried formats %s", value, strings.Join(names, ", "))
}

func validateNumber(value string) (bool, string) {
	v := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		return false, fmt.Sprintf("invalid number: %q", value)
	}
	return true, ""
}

var (
	// Optional currency symbol or ISO 4217 code, e.g. "€", "$", "EUR ".
	reCurrencyPrefix = regexp.MustCompile(`^([€$£¥]|[A-Z]{3})?\s*`)

	// Amount shapes: ungrouped with either decimal separator, comma-grouped
	// with dot decimals, or dot-grouped with comma decimals. Grouping must be
	// consistent; more than 2 decimal digits or a second decimal point fails
	// all three.
	reAmountPlain      = regexp.MustCompile(`^-?\d+([.,]\d{1,2})?$`)
	reAmountCommaGroup = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d{1,2})?$`)
	reAmountDotGroup   = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+(,\d{1,2})?$`)
)

func validateCurrency(value string) (bool, string) {
	v := reCurrencyPrefix.ReplaceAllString(strings.TrimSpace(value), "")
	if reAmountPlain.MatchString(v) || reAmountCommaGroup.MatchString(v) || reAmountDotGroup.MatchString(v) {
		return true, ""
	}
	return false, fmt.Sprintf("invalid currency amount %q: expected optional symbol or ISO code, consistent thousands grouping, at most 2 decimals", value)
}

var reEmail = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(value string) (bool, string) {
	if reEmail.MatchString(strings.TrimSpace(value)) {
		return true, ""
	}
	return false, fmt.Sprintf("invalid email address: %q", value)
}

var (
	rePhoneSeparators = regexp.MustCompile(`[\s\-().]`)
	rePhoneDigits     = regexp.MustCompile(`^\+?\d{7,15}$`)
)

func validatePhone(value string) (bool, string) {
	v := rePhoneSeparators.ReplaceAllString(strings.TrimSpace(value), "")
	if rePhoneDigits.MatchString(v) {
		return true, ""
	}
	return false, fmt.Sprintf("invalid phone number %q: expected 7-15 digits with optional leading +", value)
}

// reIBAN is a structural check only: country code, check digits, 10-30
// alphanumerics. The mod-97 checksum is NOT verified.
var reIBAN = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{10,30}$`)

func validateIBAN(value string) (bool, string) {
	v := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(value), " ", ""))
	if reIBAN.MatchString(v) {
		return true, ""
	}
	return false, fmt.Sprintf("value %q does not match IBAN structure (2 letters, 2 check digits, 10-30 alphanumerics; checksum not verified)", value)
}

const addressMinLength = 10

func validateAddress(value string) (bool, string) {
	v := strings.TrimSpace(value)
	segments := strings.Split(v, "\n")
	if countNonEmpty(segments) < 2 {
		segments = strings.Split(v, ",")
	}
	if countNonEmpty(segments) >= 2 && len(v) >= addressMinLength {
		return true, ""
	}
	return false, fmt.Sprintf("address %q too short: need at least 2 lines or comma-separated segments and %d characters", value, addressMinLength)
}

func countNonEmpty(parts []string) int {
	n := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

func (r *Registry) validatePercentage(value string) (bool, string) {
	v := strings.TrimSpace(value)
	v = strings.TrimSpace(strings.TrimSuffix(v, "%"))
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return false, fmt.Sprintf("invalid percentage: %q", value)
	}
	if f < 0 || f > r.cfg.MaxPercent {
		return false, fmt.Sprintf("percentage %q outside [0, %g]", value, r.cfg.MaxPercent)
	}
	return true, ""
}
