package agent

import "strings"

const extractionSystemPrompt = "You are a precise OCR extraction agent. Extract fields accurately and indicate confidence."

const retrySystemPrompt = "You are a precise OCR extraction specialist. Focus on extracting the specified fields with maximum accuracy."

const extractionInstructions = `Extract all visible fields from this document page into the provided schema.

For each field, you must provide:
1. The extracted value
2. A confidence score (0.0 to 1.0) indicating your certainty

Rules:
- If a field is not visible on this page, leave it empty
- If text is unclear or partially visible, extract what you can and lower the confidence
- Dates should be in YYYY-MM-DD format when possible
- Numbers should be clean (no extra characters)
- DO NOT add or remove fields from the schema`

// retryInstructions builds the focused prompt for a retry iteration. Naming
// the flagged fields and why they failed is what makes the scoped re-request
// cheaper and more accurate than a full re-extraction.
func retryInstructions(flagged []string) string {
	var b strings.Builder
	b.WriteString("FOCUSED EXTRACTION - these fields were unclear or failed validation:\n\n")
	b.WriteString(strings.Join(flagged, ", "))
	b.WriteString(`

Previous attempt had issues:
- Some fields were unfilled
- Some had low confidence
- Some failed validation

Instructions:
- Look VERY carefully for these specific fields
- If truly not present, leave empty
- If partially visible, extract what you can see
- Provide honest confidence scores`)
	return b.String()
}
