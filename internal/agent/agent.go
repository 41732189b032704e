package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/agentic-ocr/constants"
	"github.com/joseph-ayodele/agentic-ocr/internal/assess"
	"github.com/joseph-ayodele/agentic-ocr/internal/report"
	"github.com/joseph-ayodele/agentic-ocr/internal/schema"
)

// Config holds thresholds and behavior flags for the agent.
type Config struct {
	// MaxRetryAttempts bounds pass 3. Default 3.
	MaxRetryAttempts int
	// Evaluate gates pass 4; it also requires an Evaluator to be wired.
	Evaluate bool
}

// Agent drives the multi-pass loop over one document: extract every page,
// assess every field, retry the flagged ones with a focused prompt, and
// optionally run the evaluator. One Run call owns its field results
// exclusively, so concurrent documents need no coordination.
type Agent struct {
	extractor Extractor
	evaluator Evaluator
	assessor  *assess.Assessor
	cfg       Config
	logger    *slog.Logger
}

func New(extractor Extractor, evaluator Evaluator, assessor *assess.Assessor, cfg Config, logger *slog.Logger) *Agent {
	if cfg.MaxRetryAttempts <= 0 {
		cfg.MaxRetryAttempts = 3
	}
	if assessor == nil {
		assessor = assess.NewAssessor(nil, logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		extractor: extractor,
		evaluator: evaluator,
		assessor:  assessor,
		cfg:       cfg,
		logger:    logger,
	}
}

// RunResult is the sole payload surfaced to the caller: final values and
// confidences, the report, and the evaluation if pass 4 ran.
type RunResult struct {
	RunID       string                   `json:"run_id"`
	Values      map[string]string        `json:"values"`
	Confidences map[string]float64       `json:"confidences"`
	Report      *report.ExtractionReport `json:"report"`
	Evaluation  *Evaluation              `json:"evaluation,omitempty"`
	FieldOrder  []string                 `json:"field_order"`
	Pages       int                      `json:"pages"`
	Attempts    int                      `json:"attempts"`
	Elapsed     time.Duration            `json:"elapsed_ns"`
}

// Run executes the full pipeline for one document. The run always
// terminates: by an empty flagged list, by stall detection, or by exhausting
// the retry budget. Individual port call failures are absorbed (affected
// fields keep their last known state); only schema misconfiguration is fatal
// before pass 1. On cancellation the partial result is returned alongside
// the context error, since a partial report beats none.
func (a *Agent) Run(ctx context.Context, pages []Page, sch Schema) (*RunResult, error) {
	rid := uuid.New().String()
	start := time.Now()

	if err := schema.Check(sch.Fields, sch.Metadata); err != nil {
		return nil, fmt.Errorf("schema check: %w", err)
	}
	if a.extractor == nil {
		return nil, fmt.Errorf("no extractor wired")
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	order := sch.FieldOrder()
	results := make(map[string]*assess.FieldResult, len(sch.Fields))
	for name := range sch.Fields {
		results[name] = &assess.FieldResult{Name: name, Status: constants.FieldStatusUnfilled}
	}

	a.logger.Info("agent.run.start",
		"run_id", rid, "pages", len(pages), "fields", len(sch.Fields),
		"max_retries", a.cfg.MaxRetryAttempts, "evaluate", a.cfg.Evaluate,
	)

	finish := func(rep *report.ExtractionReport, ev *Evaluation, attempts int) *RunResult {
		return a.buildResult(rid, order, results, rep, ev, len(pages), attempts, start)
	}

	// Pass 1: extract every page in document order and merge per field.
	for _, page := range pages {
		if ctx.Err() != nil {
			a.assessor.AssessAll(results, sch.Metadata)
			rep := report.Build(order, results)
			a.logger.Warn("agent.run.canceled", "run_id", rid, "phase", "extracting")
			return finish(rep, nil, 0), ctx.Err()
		}
		res, err := a.extractor.ExtractFields(ctx, ExtractRequest{
			Page:             page,
			Fields:           sch.Fields,
			SystemPrompt:     extractionSystemPrompt,
			UserInstructions: extractionInstructions,
		})
		if err != nil {
			a.logger.Warn("agent.extract.page_failed",
				"run_id", rid, "page", page.Number, "error", err)
			continue
		}
		a.mergePage(results, page.Number, res)
	}

	// Pass 2: assess everything and build the first report.
	a.assessor.AssessAll(results, sch.Metadata)
	rep := report.Build(order, results)
	a.logger.Info("agent.assess.ok",
		"run_id", rid,
		"completion_rate", rep.CompletionRate,
		"quality_score", rep.QualityScore,
		"flagged", len(rep.FlaggedFieldNames),
	)

	// Pass 3: bounded focused retries of the flagged fields.
	attempts := 0
	flagged := rep.FlaggedFieldNames
	for attempt := 1; attempt <= a.cfg.MaxRetryAttempts; attempt++ {
		if len(flagged) == 0 {
			break
		}
		if ctx.Err() != nil {
			a.logger.Warn("agent.run.canceled", "run_id", rid, "phase", "retrying")
			return finish(rep, nil, attempts), ctx.Err()
		}
		attempts = attempt
		a.logger.Info("agent.retry.attempt",
			"run_id", rid, "attempt", attempt, "flagged", len(flagged))

		res, err := a.extractor.ExtractFields(ctx, ExtractRequest{
			Page:             pages[0],
			Fields:           subset(sch.Fields, flagged),
			SystemPrompt:     retrySystemPrompt,
			UserInstructions: retryInstructions(flagged),
			TargetFields:     flagged,
			PriorValues:      currentValues(results, flagged),
		})
		if err != nil {
			// Flagged fields keep their last known state; the budget still
			// bounds the loop.
			a.logger.Warn("agent.retry.call_failed",
				"run_id", rid, "attempt", attempt, "error", err)
			continue
		}

		for _, name := range flagged {
			value, ok := res.Values[name]
			if !ok || assess.IsEmpty(value) {
				continue
			}
			fr := results[name]
			// A newer answer replaces a failed one even at lower confidence.
			fr.Value = value
			fr.Confidence = res.Confidences[name]
			fr.SourcePage = pages[0].Number
			fr.RetryCount++
			a.assessor.Assess(fr, sch.Metadata[name])
		}

		rep = report.Build(order, results)
		next := rep.FlaggedFieldNames
		if equalNames(next, flagged) {
			a.logger.Info("agent.retry.stalled",
				"run_id", rid, "attempt", attempt, "flagged", len(next))
			flagged = next
			break
		}
		flagged = next
	}

	// Pass 4: optional evaluator critique.
	var evaluation *Evaluation
	if a.cfg.Evaluate && a.evaluator != nil && ctx.Err() == nil {
		ev, err := a.evaluator.Evaluate(ctx, EvaluateRequest{
			Page:   pages[0],
			Fields: sch.Fields,
			Values: currentValues(results, order),
			Report: rep,
		})
		if err != nil {
			a.logger.Warn("agent.evaluate.failed", "run_id", rid, "error", err)
		} else {
			for name, corrected := range ev.CorrectedFields {
				fr, ok := results[name]
				if !ok || assess.IsEmpty(corrected) {
					continue
				}
				fr.Value = corrected
				a.assessor.Assess(fr, sch.Metadata[name])
				if fr.Notes == "" {
					fr.Notes = "Corrected by evaluator"
				}
			}
			for _, name := range ev.FlaggedFields {
				if fr, ok := results[name]; ok {
					fr.Status = constants.FieldStatusNeedsReview
					fr.Notes = "Flagged by evaluator"
				}
			}
			rep = report.Build(order, results)
			evaluation = &ev
			a.logger.Info("agent.evaluate.ok",
				"run_id", rid,
				"overall_quality", ev.OverallQuality,
				"corrections", len(ev.CorrectedFields),
				"review_fields", len(ev.FlaggedFields),
			)
		}
	}

	out := finish(rep, evaluation, attempts)
	a.logger.Info("agent.run.ok",
		"run_id", rid,
		"completion_rate", rep.CompletionRate,
		"quality_score", rep.QualityScore,
		"flagged", len(rep.FlaggedFieldNames),
		"attempts", attempts,
		"elapsed_ms", out.Elapsed.Milliseconds(),
	)
	return out, nil
}

// mergePage folds one page's extraction into the running results. Higher
// confidence wins; on a tie the later page wins, since later pages often
// carry the totals/summary lines that supersede earlier partial reads. Empty
// values are the not-found signal and never displace data.
func (a *Agent) mergePage(results map[string]*assess.FieldResult, pageNum int, res ExtractResult) {
	for name, fr := range results {
		value, ok := res.Values[name]
		if !ok || assess.IsEmpty(value) {
			// Missing keys count as empty + zero confidence, not an error.
			continue
		}
		conf := res.Confidences[name]
		if assess.IsEmpty(fr.Value) || conf >= fr.Confidence {
			fr.Value = value
			fr.Confidence = conf
			fr.SourcePage = pageNum
		}
	}
}

func (a *Agent) buildResult(
	rid string,
	order []string,
	results map[string]*assess.FieldResult,
	rep *report.ExtractionReport,
	ev *Evaluation,
	pages, attempts int,
	start time.Time,
) *RunResult {
	values := make(map[string]string, len(results))
	confidences := make(map[string]float64, len(results))
	for name, fr := range results {
		values[name] = fr.Value
		confidences[name] = fr.Confidence
	}
	return &RunResult{
		RunID:       rid,
		Values:      values,
		Confidences: confidences,
		Report:      rep,
		Evaluation:  ev,
		FieldOrder:  order,
		Pages:       pages,
		Attempts:    attempts,
		Elapsed:     time.Since(start),
	}
}

func subset(fields map[string]string, names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		if v, ok := fields[name]; ok {
			out[name] = v
		}
	}
	return out
}

func currentValues(results map[string]*assess.FieldResult, names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		if fr, ok := results[name]; ok {
			out[name] = fr.Value
		}
	}
	return out
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
