package constants

// OverallQuality is the evaluator's qualitative rating of a full extraction.
type OverallQuality string

const (
	QualityGood    OverallQuality = "good"
	QualityFair    OverallQuality = "fair"
	QualityPoor    OverallQuality = "poor"
	QualityUnknown OverallQuality = "unknown"
)
