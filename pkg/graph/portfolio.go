package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kabuto-ai/kabuto/pkg/models"
)

// AnalyzeMany runs a full analysis per code with at most
// cfg.MaxConcurrent runs in flight. Every submitted code ends up in
// exactly one of Results or FailedCodes; a run that blows up (or never
// gets a slot because the context died) fails alone without taking the
// rest of the portfolio with it.
func (p *Pipeline) AnalyzeMany(ctx context.Context, codes []string) *models.PortfolioResult {
	limit := int64(p.cfg.MaxConcurrent)
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)

	type outcome struct {
		result *models.AnalysisResult
		err    error
	}
	outcomes := make([]outcome, len(codes))

	var wg sync.WaitGroup
	for i, code := range codes {
		wg.Add(1)
		go func(i int, code string) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				outcomes[i].err = fmt.Errorf("%s: %w", code, err)
				return
			}
			defer sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					outcomes[i].err = fmt.Errorf("%s: panic: %v", code, r)
				}
			}()
			outcomes[i].result = p.Analyze(ctx, code)
		}(i, code)
	}
	wg.Wait()

	portfolio := &models.PortfolioResult{
		Codes:     codes,
		Model:     p.cfg.Model,
		Timestamp: time.Now(),
	}
	for i, code := range codes {
		switch {
		case outcomes[i].result != nil:
			portfolio.Results = append(portfolio.Results, *outcomes[i].result)
		default:
			portfolio.FailedCodes = append(portfolio.FailedCodes, code)
			p.log.Warn("portfolio entry failed", "code", code, "error", outcomes[i].err)
		}
	}
	return portfolio
}
