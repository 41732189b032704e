// Command agentocr runs one document through the agentic extraction loop
// using replay fixtures in place of a live vision provider, then prints the
// run result as JSON and optionally writes an XLSX report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/agentic-ocr/internal/agent"
	"github.com/joseph-ayodele/agentic-ocr/internal/assess"
	"github.com/joseph-ayodele/agentic-ocr/internal/common"
	"github.com/joseph-ayodele/agentic-ocr/internal/export"
	"github.com/joseph-ayodele/agentic-ocr/internal/replay"
	"github.com/joseph-ayodele/agentic-ocr/internal/schema"
	"github.com/joseph-ayodele/agentic-ocr/internal/validate"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		schemaPath  = flag.String("schema", "", "document type definition JSON (required)")
		fixturePath = flag.String("fixture", "", "replay extraction fixture JSON (required)")
		evalPath    = flag.String("evaluation", "", "replay evaluation JSON (optional, enables the evaluator pass)")
		xlsxPath    = flag.String("xlsx", "", "write the report workbook to this path (optional)")
	)
	flag.Parse()

	if *schemaPath == "" || *fixturePath == "" {
		logger.Error("usage", "cmd", "agentocr -schema <definition.json> -fixture <fixture.json> [-evaluation <eval.json>] [-xlsx <out.xlsx>]")
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	def, err := schema.LoadDefinition(*schemaPath)
	if err != nil {
		logger.Error("load definition", "error", err)
		os.Exit(1)
	}

	extractor, err := replay.LoadExtractor(*fixturePath)
	if err != nil {
		logger.Error("load fixture", "error", err)
		os.Exit(1)
	}

	var evaluator agent.Evaluator
	evaluate := cfg.Agent.Evaluate
	if *evalPath != "" {
		ev, err := replay.LoadEvaluator(*evalPath)
		if err != nil {
			logger.Error("load evaluation", "error", err)
			os.Exit(1)
		}
		evaluator = ev
		evaluate = true
	}

	pages := make([]agent.Page, 0)
	for _, n := range extractor.PageNumbers() {
		pages = append(pages, agent.Page{Number: n})
	}
	if len(pages) == 0 {
		pages = append(pages, agent.Page{Number: 1})
	}

	assessor := assess.NewAssessor(validate.New(validate.Config{MaxPercent: cfg.Agent.MaxPercent}), logger)
	a := agent.New(extractor, evaluator, assessor, agent.Config{
		MaxRetryAttempts: cfg.Agent.MaxRetryAttempts,
		Evaluate:         evaluate,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Agent.RunTimeout)
	defer cancel()

	res, err := a.Run(ctx, pages, agent.Schema{
		Fields:   def.FieldShape(),
		Metadata: def.MetadataMap(),
		Order:    def.FieldOrder(),
	})
	if err != nil {
		if res == nil {
			logger.Error("extraction failed", "error", err)
			os.Exit(1)
		}
		logger.Warn("extraction incomplete, emitting partial report", "error", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}

	if *xlsxPath != "" {
		svc := export.NewService(logger)
		data, err := svc.RunXLSX(res)
		if err != nil {
			logger.Error("export xlsx", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxPath, data, 0o644); err != nil {
			logger.Error("write xlsx", "error", err)
			os.Exit(1)
		}
		logger.Info("report written", "path", *xlsxPath, "bytes", len(data))
	}
}
