package replay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/agentic-ocr/internal/agent"
)

func testFixture() Fixture {
	return Fixture{
		Pages: map[string]Result{
			"1": {
				Values:      map[string]string{"iban": "DE89370400440532013000"},
				Confidences: map[string]float64{"iban": 0.9},
			},
			"2": {
				Values:      map[string]string{"amount": "1,234.56"},
				Confidences: map[string]float64{"amount": 0.85},
			},
		},
		Retries: []Result{
			{
				Values:      map[string]string{"amount": "1234.56"},
				Confidences: map[string]float64{"amount": 0.95},
			},
		},
	}
}

func TestExtractorServesPageResults(t *testing.T) {
	ext, err := NewExtractor(testFixture())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ext.PageNumbers())

	fields := map[string]string{"iban": "", "amount": ""}
	res, err := ext.ExtractFields(context.Background(), agent.ExtractRequest{
		Page:   agent.Page{Number: 1},
		Fields: fields,
	})
	require.NoError(t, err)

	assert.Equal(t, "DE89370400440532013000", res.Values["iban"])
	// Unmentioned fields come back empty with zero confidence, per the port
	// contract.
	assert.Equal(t, "", res.Values["amount"])
	assert.Zero(t, res.Confidences["amount"])
}

func TestExtractorConsumesRetriesInOrder(t *testing.T) {
	ext, err := NewExtractor(testFixture())
	require.NoError(t, err)

	req := agent.ExtractRequest{
		Page:         agent.Page{Number: 1},
		Fields:       map[string]string{"amount": ""},
		TargetFields: []string{"amount"},
	}

	res, err := ext.ExtractFields(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "1234.56", res.Values["amount"])

	// Fixture has a single retry entry; further focused calls return empty.
	res, err = ext.ExtractFields(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "", res.Values["amount"])
}

func TestNewExtractorRejectsBadPageKey(t *testing.T) {
	_, err := NewExtractor(Fixture{Pages: map[string]Result{"one": {}}})
	assert.Error(t, err)
}
