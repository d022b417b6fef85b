package main

import (
	"context"

	"golang.org/x/sync/errgroup"

	"DocForensics/pkg/analyzer"
	"DocForensics/pkg/grab"
	"DocForensics/pkg/models"
)

// batchResult is the outcome of one file in a batch run
type batchResult struct {
	Path   string
	Report *models.ForensicReport
	Err    error
}

// runBatch analyzes inputs with at most workers documents in flight.
// Results keep the input order and one failure does not stop the others.
func runBatch(ctx context.Context, engine *analyzer.Engine, grabber *grab.Grabber, inputs []string, workers int) []batchResult {
	results := make([]batchResult, len(inputs))

	var g errgroup.Group
	g.SetLimit(workerCount(workers, len(inputs)))

	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			report, err := analyzeInput(ctx, engine, grabber, input)
			results[i] = batchResult{Path: input, Report: report, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// analyzeInput downloads URLs and reads everything else from disk
func analyzeInput(ctx context.Context, engine *analyzer.Engine, grabber *grab.Grabber, input string) (*models.ForensicReport, error) {
	if !grab.IsURL(input) {
		return engine.AnalyzeFile(ctx, input)
	}

	dl, err := grabber.Fetch(ctx, input)
	if err != nil {
		return nil, err
	}
	return engine.AnalyzeDocument(ctx, dl.Data, dl.Filename)
}

func workerCount(workers, files int) int {
	if workers < 1 {
		workers = 1
	}
	if files > 0 && workers > files {
		workers = files
	}
	return workers
}

func countFailed(results []batchResult) int {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	return failed
}
