// Package agents defines the interchangeable pipeline agents. Each variant is
// a table entry pairing a prompt template with a context projection; behavior
// differences live in data, not in type hierarchies.
package agents

import (
	"context"
	"fmt"

	"github.com/kabuto-ai/kabuto/pkg/dataflows"
	"github.com/kabuto-ai/kabuto/pkg/llm"
	"github.com/kabuto-ai/kabuto/pkg/models"
)

// Kind identifies an agent variant.
type Kind string

const (
	KindFundamental Kind = "fundamental"
	KindMacro       Kind = "macro"
	KindEvent       Kind = "event"
	KindSentiment   Kind = "sentiment"
	KindTechnical   Kind = "technical"
	KindBull        Kind = "bull"
	KindBear        Kind = "bear"
	KindTrader      Kind = "trader"
	KindRisk        Kind = "risk"
)

// Context carries the inputs an agent may project into its prompt.
type Context struct {
	Code         string
	Bundle       *dataflows.Bundle
	Reports      []models.AgentReport
	BullCase     *models.AgentReport
	BearCase     *models.AgentReport
	TraderReport *models.AgentReport
	CurrentPrice *float64
	DataSummary  string
}

type agentSpec struct {
	displayName string
	systemJA    string
	systemEN    string
	buildPrompt func(c *Context, language string) string
	sources     func(c *Context) []string
	structured  bool
}

// Agent binds a variant descriptor to a completion provider.
type Agent struct {
	kind     Kind
	spec     agentSpec
	provider llm.Provider
	language string
}

func New(kind Kind, provider llm.Provider, language string) (*Agent, error) {
	spec, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("unknown agent kind %q", kind)
	}
	return &Agent{
		kind:     kind,
		spec:     spec,
		provider: provider,
		language: language,
	}, nil
}

// AnalystKinds lists the analysts run concurrently in phase one.
func AnalystKinds() []Kind {
	return []Kind{KindFundamental, KindMacro, KindEvent, KindSentiment, KindTechnical}
}

func (a *Agent) Name() string {
	return string(a.kind)
}

// Structured reports whether the variant's output is expected to be a JSON
// object (trader and risk manager).
func (a *Agent) Structured() bool {
	return a.spec.structured
}

func (a *Agent) systemPrompt() string {
	if a.language == "en" && a.spec.systemEN != "" {
		return a.spec.systemEN
	}
	return a.spec.systemJA
}

// Invoke runs one completion over the projected context and wraps the output
// in a report. The provider error is returned untouched; failure containment
// is the orchestrator's job.
func (a *Agent) Invoke(ctx context.Context, c *Context) (*models.AgentReport, error) {
	system := a.systemPrompt()
	if a.spec.structured {
		system += "\n\nRespond with a single valid JSON object and nothing else."
	}
	user := a.spec.buildPrompt(c, a.language)

	content, err := a.provider.Complete(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.kind, err)
	}

	var sources []string
	if a.spec.sources != nil {
		sources = a.spec.sources(c)
	}
	return &models.AgentReport{
		AgentName:   string(a.kind),
		DisplayName: a.spec.displayName,
		Content:     content,
		DataSources: sources,
	}, nil
}
