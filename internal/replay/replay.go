// Package replay provides fixture-backed implementations of the extraction
// and evaluator ports. They play canned per-page results in order, which
// makes the full multi-pass loop runnable without a vision provider. Used by
// cmd/agentocr and in tests.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/joseph-ayodele/agentic-ocr/internal/agent"
)

// Fixture is the on-disk shape: one extraction result per page number, plus
// an ordered list of results returned to successive focused retries.
type Fixture struct {
	Pages   map[string]Result `json:"pages"`
	Retries []Result          `json:"retries,omitempty"`
}

type Result struct {
	Values      map[string]string  `json:"values"`
	Confidences map[string]float64 `json:"confidences"`
}

// Extractor replays a Fixture through the agent.Extractor port.
type Extractor struct {
	mu      sync.Mutex
	pages   map[int]Result
	retries []Result
	calls   int
}

// NewExtractor builds a replay extractor from a fixture.
func NewExtractor(fx Fixture) (*Extractor, error) {
	pages := make(map[int]Result, len(fx.Pages))
	for key, res := range fx.Pages {
		n, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("fixture page key %q is not a page number: %w", key, err)
		}
		pages[n] = res
	}
	return &Extractor{pages: pages, retries: fx.Retries}, nil
}

// LoadExtractor reads a fixture file and builds a replay extractor.
func LoadExtractor(path string) (*Extractor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return NewExtractor(fx)
}

// ExtractFields serves the page result for full-schema calls and the next
// retry entry for focused calls. Fields the fixture does not mention come
// back empty with zero confidence, matching the port contract.
func (e *Extractor) ExtractFields(ctx context.Context, req agent.ExtractRequest) (agent.ExtractResult, error) {
	if err := ctx.Err(); err != nil {
		return agent.ExtractResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var src Result
	if len(req.TargetFields) == 0 {
		src = e.pages[req.Page.Number]
	} else if e.calls < len(e.retries) {
		src = e.retries[e.calls]
		e.calls++
	}

	out := agent.ExtractResult{
		Values:      make(map[string]string, len(req.Fields)),
		Confidences: make(map[string]float64, len(req.Fields)),
	}
	for name := range req.Fields {
		out.Values[name] = src.Values[name]
		out.Confidences[name] = src.Confidences[name]
	}
	return out, nil
}

// PageNumbers returns the page numbers the fixture covers, ascending.
func (e *Extractor) PageNumbers() []int {
	nums := make([]int, 0, len(e.pages))
	for n := range e.pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Evaluator replays a canned agent.Evaluation.
type Evaluator struct {
	evaluation agent.Evaluation
}

func NewEvaluator(ev agent.Evaluation) *Evaluator {
	return &Evaluator{evaluation: ev}
}

// LoadEvaluator reads an evaluation JSON file.
func LoadEvaluator(path string) (*Evaluator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read evaluation %s: %w", path, err)
	}
	var ev agent.Evaluation
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("parse evaluation %s: %w", path, err)
	}
	return &Evaluator{evaluation: ev}, nil
}

func (e *Evaluator) Evaluate(ctx context.Context, _ agent.EvaluateRequest) (agent.Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return agent.Evaluation{}, err
	}
	return e.evaluation, nil
}
