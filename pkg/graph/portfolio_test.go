package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kabuto-ai/kabuto/internal/logging"
	"github.com/kabuto-ai/kabuto/pkg/dataflows"
)

func TestAnalyzeManyRespectsConcurrencyCap(t *testing.T) {
	fetcher := &fakeFetcher{delay: 30 * time.Millisecond}
	cfg := testConfig()
	cfg.MaxConcurrent = 2
	p, err := NewPipeline(&fakeProvider{}, fetcher, cfg, logging.NewNop())
	require.NoError(t, err)

	codes := []string{"7203", "6758", "9984", "8306"}
	portfolio := p.AnalyzeMany(context.Background(), codes)

	assert.Equal(t, 4, fetcher.started)
	assert.LessOrEqual(t, fetcher.peak, 2, "more than two runs overlapped")

	// Partition invariant: every code lands in exactly one bucket.
	assert.Len(t, portfolio.Results, 4)
	assert.Empty(t, portfolio.FailedCodes)
	assert.Equal(t, codes, portfolio.Codes)
}

func TestAnalyzeManyPreservesInputOrder(t *testing.T) {
	p := newTestPipeline(t, &fakeProvider{})

	codes := []string{"9432", "7203", "6758"}
	portfolio := p.AnalyzeMany(context.Background(), codes)

	require.Len(t, portfolio.Results, 3)
	for i, code := range codes {
		assert.Equal(t, code, portfolio.Results[i].Code)
	}
}

type panickyFetcher struct {
	fakeFetcher
	panicCode string
}

func (f *panickyFetcher) FetchAll(ctx context.Context, code string, opts dataflows.FetchOptions) *dataflows.Bundle {
	if code == f.panicCode {
		panic("corrupt feed for " + code)
	}
	return f.fakeFetcher.FetchAll(ctx, code, opts)
}

func TestAnalyzeManyContainsPanickedRun(t *testing.T) {
	fetcher := &panickyFetcher{panicCode: "6758"}
	p, err := NewPipeline(&fakeProvider{}, fetcher, testConfig(), logging.NewNop())
	require.NoError(t, err)

	codes := []string{"7203", "6758", "9984"}
	portfolio := p.AnalyzeMany(context.Background(), codes)

	assert.Len(t, portfolio.Results, 2)
	assert.Equal(t, []string{"6758"}, portfolio.FailedCodes)
	assert.Equal(t, "7203", portfolio.Results[0].Code)
	assert.Equal(t, "9984", portfolio.Results[1].Code)
}

func TestAnalyzeManyCancelledContextFailsAll(t *testing.T) {
	p := newTestPipeline(t, &fakeProvider{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	portfolio := p.AnalyzeMany(ctx, []string{"7203", "6758"})

	assert.Empty(t, portfolio.Results)
	assert.Equal(t, []string{"7203", "6758"}, portfolio.FailedCodes)
}

func TestAnalyzeManySerialWhenCapOne(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	fetcher := &fakeFetcher{delay: 10 * time.Millisecond}
	p, err := NewPipeline(&fakeProvider{}, fetcher, cfg, logging.NewNop())
	require.NoError(t, err)

	portfolio := p.AnalyzeMany(context.Background(), []string{"7203", "6758"})

	assert.Len(t, portfolio.Results, 2)
	assert.Equal(t, 1, fetcher.peak)
}
