package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/agentic-ocr/constants"
	"github.com/joseph-ayodele/agentic-ocr/internal/schema"
)

// mockExtractor is a test implementation of the Extractor port. Full-schema
// calls are served per page; focused retry calls consume retries in order.
type mockExtractor struct {
	mu          sync.Mutex
	pages       map[int]ExtractResult
	pageErrs    map[int]error
	retries     []ExtractResult
	retryErr    error
	fullCalls   int
	retryCalls  int
	lastTargets []string
	onCall      func(req ExtractRequest)
}

func (m *mockExtractor) ExtractFields(_ context.Context, req ExtractRequest) (ExtractResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onCall != nil {
		m.onCall(req)
	}

	if len(req.TargetFields) == 0 {
		m.fullCalls++
		if err := m.pageErrs[req.Page.Number]; err != nil {
			return ExtractResult{}, err
		}
		return m.pages[req.Page.Number], nil
	}

	m.retryCalls++
	m.lastTargets = append([]string(nil), req.TargetFields...)
	if m.retryErr != nil {
		return ExtractResult{}, m.retryErr
	}
	if m.retryCalls-1 < len(m.retries) {
		return m.retries[m.retryCalls-1], nil
	}
	return ExtractResult{Values: map[string]string{}, Confidences: map[string]float64{}}, nil
}

type mockEvaluator struct {
	evaluation Evaluation
	err        error
	calls      int
}

func (m *mockEvaluator) Evaluate(_ context.Context, _ EvaluateRequest) (Evaluation, error) {
	m.calls++
	if m.err != nil {
		return Evaluation{}, m.err
	}
	return m.evaluation, nil
}

func bankSchema() Schema {
	return Schema{
		Fields: map[string]string{"iban": "", "amount": ""},
		Metadata: map[string]schema.FieldMetadata{
			"iban":   {Name: "iban", Type: constants.FieldTypeIBAN, Required: true},
			"amount": {Name: "amount", Type: constants.FieldTypeCurrency},
		},
		Order: []string{"iban", "amount"},
	}
}

func result(values map[string]string, confidences map[string]float64) ExtractResult {
	return ExtractResult{Values: values, Confidences: confidences}
}

func TestRunHappyPath(t *testing.T) {
	ext := &mockExtractor{
		pages: map[int]ExtractResult{
			1: result(
				map[string]string{"iban": "DE89370400440532013000", "amount": "1,234.56"},
				map[string]float64{"iban": 0.92, "amount": 0.9},
			),
		},
	}
	a := New(ext, nil, nil, Config{}, nil)

	res, err := a.Run(context.Background(), []Page{{Number: 1}}, bankSchema())
	require.NoError(t, err)

	assert.Equal(t, 1, ext.fullCalls)
	assert.Zero(t, ext.retryCalls, "nothing flagged, no retry call")
	assert.Empty(t, res.Report.FlaggedFieldNames)
	assert.InDelta(t, 100.0, res.Report.CompletionRate, 1e-9)
}

func TestRunEveryFieldGetsAResult(t *testing.T) {
	// Provider never mentions "amount"; it must still show up as UNFILLED.
	ext := &mockExtractor{
		pages: map[int]ExtractResult{
			1: result(map[string]string{"iban": "DE89370400440532013000"}, map[string]float64{"iban": 0.9}),
		},
	}
	a := New(ext, nil, nil, Config{MaxRetryAttempts: 1}, nil)

	res, err := a.Run(context.Background(), []Page{{Number: 1}}, bankSchema())
	require.NoError(t, err)

	require.Len(t, res.Values, 2)
	require.Len(t, res.Report.FieldDetails, 2)
	assert.Equal(t, constants.FieldStatusUnfilled, res.Report.FieldDetails["amount"].Status)
	assert.Zero(t, res.Confidences["amount"])
}

func TestRunMergePrefersHigherConfidence(t *testing.T) {
	ext := &mockExtractor{
		pages: map[int]ExtractResult{
			1: result(map[string]string{"iban": "DE89370400440532013000"}, map[string]float64{"iban": 0.95}),
			2: result(map[string]string{"iban": "DE00000000000000000000"}, map[string]float64{"iban": 0.4}),
		},
	}
	a := New(ext, nil, nil, Config{}, nil)

	res, err := a.Run(context.Background(), []Page{{Number: 1}, {Number: 2}}, bankSchema())
	require.NoError(t, err)

	assert.Equal(t, "DE89370400440532013000", res.Values["iban"])
	assert.Equal(t, 1, res.Report.FieldDetails["iban"].SourcePage)
}

func TestRunMergeTiePrefersLaterPage(t *testing.T) {
	ext := &mockExtractor{
		pages: map[int]ExtractResult{
			1: result(map[string]string{"amount": "100.00"}, map[string]float64{"amount": 0.8}),
			2: result(map[string]string{"amount": "2,400.00"}, map[string]float64{"amount": 0.8}),
		},
	}
	a := New(ext, nil, nil, Config{}, nil)

	res, err := a.Run(context.Background(), []Page{{Number: 1}, {Number: 2}}, bankSchema())
	require.NoError(t, err)

	assert.Equal(t, "2,400.00", res.Values["amount"])
	assert.Equal(t, 2, res.Report.FieldDetails["amount"].SourcePage)
}

func TestRunRetryFlipsFlaggedFieldToFilled(t *testing.T) {
	ext := &mockExtractor{
		pages: map[int]ExtractResult{
			1: result(
				map[string]string{"iban": "DE89370400440532013000", "amount": "12.345.67"},
				map[string]float64{"iban": 0.9, "amount": 0.9},
			),
		},
		retries: []ExtractResult{
			result(map[string]string{"amount": "1234.56"}, map[string]float64{"amount": 0.95}),
		},
	}
	a := New(ext, nil, nil, Config{}, nil)

	res, err := a.Run(context.Background(), []Page{{Number: 1}}, bankSchema())
	require.NoError(t, err)

	assert.Equal(t, 1, ext.retryCalls)
	assert.Equal(t, []string{"amount"}, ext.lastTargets, "retry call is scoped to flagged fields")

	detail := res.Report.FieldDetails["amount"]
	assert.Equal(t, constants.FieldStatusFilled, detail.Status)
	assert.Equal(t, "1234.56", detail.Value)
	assert.Equal(t, 1, detail.RetryCount)
	assert.Empty(t, res.Report.FlaggedFieldNames)
}

func TestRunRetryOverwritesEvenAtLowerConfidence(t *testing.T) {
	sch := bankSchema()
	ext := &mockExtractor{
		pages: map[int]ExtractResult{
			// Valid value but below the 0.6 threshold -> LOW_CONFIDENCE.
			1: result(map[string]string{"iban": "DE89370400440532013000", "amount": "999.99"}, map[string]float64{"iban": 0.9, "amount": 0.55}),
		},
		retries: []ExtractResult{
			result(map[string]string{"amount": "1,000.00"}, map[string]float64{"amount": 0.5}),
		},
	}
	a := New(ext, nil, nil, Config{MaxRetryAttempts: 1}, nil)

	res, err := a.Run(context.Background(), []Page{{Number: 1}}, sch)
	require.NoError(t, err)

	detail := res.Report.FieldDetails["amount"]
	assert.Equal(t, "1,000.00", detail.Value, "a newer answer replaces a failed one")
	assert.InDelta(t, 0.5, detail.Confidence, 1e-9)
	assert.Equal(t, 1, detail.RetryCount)
}

func TestRunStallDetectionStopsEarly(t *testing.T) {
	ext := &mockExtractor{
		pages: map[int]ExtractResult{
			1: result(map[string]string{"amount": "1,234.56"}, map[string]float64{"amount": 0.9}),
		},
		// Retries never return the missing iban.
	}
	a := New(ext, nil, nil, Config{MaxRetryAttempts: 3}, nil)

	res, err := a.Run(context.Background(), []Page{{Number: 1}}, bankSchema())
	require.NoError(t, err)

	assert.Equal(t, 1, ext.retryCalls, "identical flagged set after one retry means stop")
	assert.Equal(t, []string{"iban"}, res.Report.FlaggedFieldNames)
	assert.Equal(t, 1, res.Attempts)
}

func TestRunRetryBudgetIsBounded(t *testing.T) {
	// Three flagged fields; each retry iteration fixes exactly one, so the
	// flagged set keeps shrinking and stall detection never fires.
	sch := Schema{
		Fields: map[string]string{"a": "", "b": "", "c": ""},
		Metadata: map[string]schema.FieldMetadata{
			"a": {Name: "a", Type: constants.FieldTypeText},
			"b": {Name: "b", Type: constants.FieldTypeText},
			"c": {Name: "c", Type: constants.FieldTypeText},
		},
		Order: []string{"a", "b", "c"},
	}
	ext := &mockExtractor{
		pages: map[int]ExtractResult{1: result(map[string]string{}, map[string]float64{})},
		retries: []ExtractResult{
			result(map[string]string{"a": "one"}, map[string]float64{"a": 0.9}),
			result(map[string]string{"b": "two"}, map[string]float64{"b": 0.9}),
			result(map[string]string{"c": "three"}, map[string]float64{"c": 0.9}),
		},
	}
	a := New(ext, nil, nil, Config{MaxRetryAttempts: 2}, nil)

	res, err := a.Run(context.Background(), []Page{{Number: 1}}, sch)
	require.NoError(t, err)

	assert.Equal(t, 2, ext.retryCalls, "never exceeds the attempt budget")
	assert.Equal(t, []string{"c"}, res.Report.FlaggedFieldNames)
	assert.Equal(t, 2, res.Attempts)
}

func TestRunPageFailureDoesNotAbort(t *testing.T) {
	ext := &mockExtractor{
		pages: map[int]ExtractResult{
			2: result(
				map[string]string{"iban": "DE89370400440532013000", "amount": "1,234.56"},
				map[string]float64{"iban": 0.9, "amount": 0.9},
			),
		},
		pageErrs: map[int]error{1: errors.New("provider timeout")},
	}
	a := New(ext, nil, nil, Config{}, nil)

	res, err := a.Run(context.Background(), []Page{{Number: 1}, {Number: 2}}, bankSchema())
	require.NoError(t, err)
	assert.InDelta(t, 100.0, res.Report.CompletionRate, 1e-9)
}

func TestRunRetryFailureKeepsLastKnownState(t *testing.T) {
	ext := &mockExtractor{
		pages: map[int]ExtractResult{
			1: result(map[string]string{"amount": "999.99"}, map[string]float64{"amount": 0.55}),
		},
		retryErr: errors.New("provider unavailable"),
	}
	a := New(ext, nil, nil, Config{MaxRetryAttempts: 2}, nil)

	res, err := a.Run(context.Background(), []Page{{Number: 1}}, bankSchema())
	require.NoError(t, err, "a provider failure never aborts the document")

	assert.Equal(t, 2, ext.retryCalls, "failed calls still consume the budget")
	detail := res.Report.FieldDetails["amount"]
	assert.Equal(t, "999.99", detail.Value)
	assert.Equal(t, constants.FieldStatusLowConfidence, detail.Status)
	assert.Zero(t, detail.RetryCount)
}

func TestRunCancellationReturnsPartialReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ext := &mockExtractor{
		pages: map[int]ExtractResult{
			1: result(map[string]string{"iban": "DE89370400440532013000"}, map[string]float64{"iban": 0.9}),
		},
	}
	ext.onCall = func(ExtractRequest) { cancel() }
	a := New(ext, nil, nil, Config{}, nil)

	res, err := a.Run(ctx, []Page{{Number: 1}, {Number: 2}}, bankSchema())
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res, "a partial report is more useful than none")

	assert.Equal(t, 1, ext.fullCalls, "second page call abandoned")
	assert.Equal(t, "DE89370400440532013000", res.Values["iban"])
	require.NotNil(t, res.Report)
	assert.Equal(t, 2, res.Report.TotalFields)
}

func TestRunEvaluatorCorrectionsAndReviewFlags(t *testing.T) {
	ext := &mockExtractor{
		pages: map[int]ExtractResult{
			1: result(
				map[string]string{"iban": "DE89370400440532013000", "amount": "12.345.67"},
				map[string]float64{"iban": 0.9, "amount": 0.9},
			),
		},
	}
	ev := &mockEvaluator{evaluation: Evaluation{
		OverallQuality:  constants.QualityFair,
		CriticalIssues:  []string{"amount misread grouping"},
		CorrectedFields: map[string]string{"amount": "12,345.67"},
		FlaggedFields:   []string{"iban"},
	}}
	a := New(ext, ev, nil, Config{MaxRetryAttempts: 1, Evaluate: true}, nil)

	res, err := a.Run(context.Background(), []Page{{Number: 1}}, bankSchema())
	require.NoError(t, err)
	require.NotNil(t, res.Evaluation)
	assert.Equal(t, 1, ev.calls)

	amount := res.Report.FieldDetails["amount"]
	assert.Equal(t, "12,345.67", amount.Value)
	assert.Equal(t, constants.FieldStatusFilled, amount.Status, "corrected value is re-assessed")

	iban := res.Report.FieldDetails["iban"]
	assert.Equal(t, constants.FieldStatusNeedsReview, iban.Status, "evaluator flag overrides computed status")
	assert.Contains(t, res.Report.FlaggedFieldNames, "iban")
	assert.Equal(t, 1, res.Report.NeedsReviewFields)
}

func TestRunEvaluatorFailureStillReturnsReport(t *testing.T) {
	ext := &mockExtractor{
		pages: map[int]ExtractResult{
			1: result(
				map[string]string{"iban": "DE89370400440532013000", "amount": "1,234.56"},
				map[string]float64{"iban": 0.9, "amount": 0.9},
			),
		},
	}
	ev := &mockEvaluator{err: errors.New("evaluator down")}
	a := New(ext, ev, nil, Config{Evaluate: true}, nil)

	res, err := a.Run(context.Background(), []Page{{Number: 1}}, bankSchema())
	require.NoError(t, err)
	assert.Nil(t, res.Evaluation)
	require.NotNil(t, res.Report)
}

func TestRunEvaluatorSkippedWhenDisabled(t *testing.T) {
	ext := &mockExtractor{
		pages: map[int]ExtractResult{
			1: result(
				map[string]string{"iban": "DE89370400440532013000", "amount": "1,234.56"},
				map[string]float64{"iban": 0.9, "amount": 0.9},
			),
		},
	}
	ev := &mockEvaluator{}
	a := New(ext, ev, nil, Config{}, nil)

	res, err := a.Run(context.Background(), []Page{{Number: 1}}, bankSchema())
	require.NoError(t, err)
	assert.Zero(t, ev.calls)
	assert.Nil(t, res.Evaluation)
}

func TestRunFailsFastOnMisconfiguredSchema(t *testing.T) {
	ext := &mockExtractor{pages: map[int]ExtractResult{}}
	a := New(ext, nil, nil, Config{}, nil)

	sch := Schema{
		Fields: map[string]string{"flag": ""},
		Metadata: map[string]schema.FieldMetadata{
			"flag": {Name: "flag", Type: constants.FieldType("BOOLEAN")},
		},
	}
	res, err := a.Run(context.Background(), []Page{{Number: 1}}, sch)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Zero(t, ext.fullCalls, "no extraction before the schema check passes")
}

func TestSchemaFieldOrder(t *testing.T) {
	s := Schema{
		Fields: map[string]string{"b": "", "a": "", "c": ""},
		Order:  []string{"c", "a", "ghost"},
	}
	assert.Equal(t, []string{"c", "a", "b"}, s.FieldOrder())

	s.Order = nil
	assert.Equal(t, []string{"a", "b", "c"}, s.FieldOrder())
}
