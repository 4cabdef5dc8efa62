// Package graph sequences the analysis phases for a single stock and
// for portfolios. Each phase consumes the outputs of earlier phases and
// fails independently: a broken phase records why it broke and the run
// carries on with whatever is still possible downstream.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kabuto-ai/kabuto/config"
	"github.com/kabuto-ai/kabuto/pkg/agents"
	"github.com/kabuto-ai/kabuto/pkg/dataflows"
	"github.com/kabuto-ai/kabuto/pkg/facts"
	"github.com/kabuto-ai/kabuto/pkg/llm"
	"github.com/kabuto-ai/kabuto/pkg/models"
)

// Phase names as they appear in AnalysisResult.PhaseErrors.
const (
	PhaseAnalysts     = "analysts"
	PhaseDebate       = "debate"
	PhaseDecision     = "decision"
	PhaseVerification = "verification"
	PhaseRefine       = "refine"
	PhaseReview       = "review"
)

// Pipeline drives a full multi-agent analysis run.
type Pipeline struct {
	provider llm.Provider
	fetcher  dataflows.Fetcher
	cfg      *config.Config
	log      *slog.Logger
}

// NewPipeline validates the configuration and builds a pipeline.
// Configuration problems are the only errors surfaced here; once a
// pipeline exists, Analyze never returns an error.
func NewPipeline(provider llm.Provider, fetcher dataflows.Fetcher, cfg *config.Config, log *slog.Logger) (*Pipeline, error) {
	if provider == nil {
		return nil, fmt.Errorf("graph: nil provider")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("graph: nil fetcher")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{provider: provider, fetcher: fetcher, cfg: cfg, log: log}, nil
}

// Analyze runs the whole phase sequence for one stock code and always
// returns a result. Phases that fail leave their slot nil and an entry
// in PhaseErrors; partial results are normal output, not an error state.
func (p *Pipeline) Analyze(ctx context.Context, code string) *models.AnalysisResult {
	result := &models.AnalysisResult{
		Code:        code,
		PhaseErrors: map[string]string{},
		Model:       p.cfg.Model,
		Timestamp:   time.Now(),
	}

	edinetCode := p.cfg.EdinetCode
	if edinetCode == "" {
		resolved, err := p.fetcher.ResolveEdinetCode(ctx, code)
		if err != nil {
			p.log.Warn("EDINET code resolution failed, filings unavailable", "code", code, "error", err)
		} else {
			edinetCode = resolved
		}
	}

	bundle := p.fetcher.FetchAll(ctx, code, dataflows.FetchOptions{
		EdinetCode: edinetCode,
		Timeout:    p.cfg.TaskTimeout,
	})
	if bundle.Statements != nil {
		result.CompanyName = bundle.Statements.CompanyName
	}
	result.SourcesUsed = bundle.SourcesUsed()
	result.RawData = bundle.Raw()

	actx := &agents.Context{
		Code:         code,
		Bundle:       bundle,
		CurrentPrice: bundle.CurrentPrice(),
		DataSummary:  facts.BuildSummary(bundle, code, p.cfg.Language),
	}

	p.phase(PhaseAnalysts, result.PhaseErrors, func() error {
		reports, err := p.runAnalysts(ctx, actx)
		actx.Reports = reports
		result.AnalystReports = reports
		return err
	})

	p.phase(PhaseDebate, result.PhaseErrors, func() error {
		debate, err := p.runDebate(ctx, actx)
		if err != nil {
			return err
		}
		actx.BullCase = &debate.BullCase
		actx.BearCase = &debate.BearCase
		result.Debate = debate
		return nil
	})

	p.phase(PhaseDecision, result.PhaseErrors, func() error {
		report, decision, err := p.runTrader(ctx, actx)
		if err != nil {
			return err
		}
		actx.TraderReport = report
		result.Decision = decision
		return nil
	})

	if result.Decision != nil {
		var feedback []string
		p.phase(PhaseVerification, result.PhaseErrors, func() error {
			result.Decision, feedback = agents.VerifyKeyFacts(ctx, p.provider, result.Decision, actx.DataSummary, p.log)
			return nil
		})
		if len(feedback) > 0 {
			p.phase(PhaseRefine, result.PhaseErrors, func() error {
				result.Decision = agents.RefineDecision(ctx, p.provider, result.Decision, feedback, actx.DataSummary, p.cfg.Language, p.log)
				return nil
			})
		}
	}

	// The review reads the trader's raw report, not the verified
	// decision: the reviewer judges the argument as made, and a
	// missing report means there is nothing to approve.
	if actx.TraderReport != nil {
		p.phase(PhaseReview, result.PhaseErrors, func() error {
			review, err := p.runRisk(ctx, actx)
			if err != nil {
				return err
			}
			result.RiskReview = review
			return nil
		})
	}

	if len(result.PhaseErrors) > 0 {
		p.log.Warn("analysis completed with phase errors", "code", code, "phases", phaseNames(result.PhaseErrors))
	}
	return result
}

// phase runs one phase with failure isolation. Errors and panics are
// recorded under the phase name and never escape the run.
func (p *Pipeline) phase(name string, errs map[string]string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			errs[name] = fmt.Sprintf("panic: %v", r)
			p.log.Error("phase panicked", "phase", name, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		errs[name] = err.Error()
		p.log.Warn("phase failed", "phase", name, "error", err)
	}
}

// runAnalysts fans the analyst variants out concurrently. One analyst
// failing never disturbs its siblings; the returned reports keep the
// registry order of the survivors. An error is returned alongside any
// partial reports when at least one analyst failed.
func (p *Pipeline) runAnalysts(ctx context.Context, actx *agents.Context) ([]models.AgentReport, error) {
	kinds := agents.AnalystKinds()
	reports := make([]*models.AgentReport, len(kinds))
	failures := make([]error, len(kinds))

	var wg sync.WaitGroup
	for i, kind := range kinds {
		agent, err := agents.New(kind, p.provider, p.cfg.Language)
		if err != nil {
			failures[i] = err
			continue
		}
		wg.Add(1)
		go func(i int, agent *agents.Agent) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					failures[i] = fmt.Errorf("%s: panic: %v", agent.Name(), r)
				}
			}()
			report, err := agent.Invoke(ctx, actx)
			if err != nil {
				failures[i] = fmt.Errorf("%s: %w", agent.Name(), err)
				return
			}
			reports[i] = report
		}(i, agent)
	}
	wg.Wait()

	var kept []models.AgentReport
	var failed []error
	for i := range kinds {
		if reports[i] != nil {
			kept = append(kept, *reports[i])
		}
		if failures[i] != nil {
			failed = append(failed, failures[i])
		}
	}
	if len(failed) > 0 {
		return kept, fmt.Errorf("%d/%d analyst agents failed: %v", len(failed), len(kinds), joinErrors(failed))
	}
	return kept, nil
}

// runDebate alternates bull and bear strictly in sequence. Unlike the
// analyst phase this is all or nothing: a failed turn aborts the
// debate because each turn must see the previous one.
func (p *Pipeline) runDebate(ctx context.Context, actx *agents.Context) (*models.DebateResult, error) {
	bull, err := agents.New(agents.KindBull, p.provider, p.cfg.Language)
	if err != nil {
		return nil, err
	}
	bear, err := agents.New(agents.KindBear, p.provider, p.cfg.Language)
	if err != nil {
		return nil, err
	}

	rounds := p.cfg.DebateRounds
	if rounds < 1 {
		rounds = 1
	}

	turn := *actx
	bullReport, err := bull.Invoke(ctx, &turn)
	if err != nil {
		return nil, fmt.Errorf("bull round 1: %w", err)
	}
	turn.BullCase = bullReport

	bearReport, err := bear.Invoke(ctx, &turn)
	if err != nil {
		return nil, fmt.Errorf("bear round 1: %w", err)
	}
	turn.BearCase = bearReport

	for round := 2; round <= rounds; round++ {
		bullReport, err = bull.Invoke(ctx, &turn)
		if err != nil {
			return nil, fmt.Errorf("bull round %d: %w", round, err)
		}
		turn.BullCase = bullReport

		bearReport, err = bear.Invoke(ctx, &turn)
		if err != nil {
			return nil, fmt.Errorf("bear round %d: %w", round, err)
		}
		turn.BearCase = bearReport
	}

	return &models.DebateResult{
		BullCase: *bullReport,
		BearCase: *bearReport,
		Rounds:   rounds,
	}, nil
}

// runTrader asks for the structured decision and decodes it leniently:
// the model call failing is a phase error, but malformed output is not.
func (p *Pipeline) runTrader(ctx context.Context, actx *agents.Context) (*models.AgentReport, *models.TradingDecision, error) {
	trader, err := agents.New(agents.KindTrader, p.provider, p.cfg.Language)
	if err != nil {
		return nil, nil, err
	}
	report, err := trader.Invoke(ctx, actx)
	if err != nil {
		return nil, nil, err
	}
	return report, agents.ParseDecision(report.Content), nil
}

func (p *Pipeline) runRisk(ctx context.Context, actx *agents.Context) (*models.RiskReview, error) {
	risk, err := agents.New(agents.KindRisk, p.provider, p.cfg.Language)
	if err != nil {
		return nil, err
	}
	report, err := risk.Invoke(ctx, actx)
	if err != nil {
		return nil, err
	}
	return agents.ParseRiskReview(report.Content), nil
}

func joinErrors(errs []error) string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}

func phaseNames(errs map[string]string) []string {
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	return names
}
