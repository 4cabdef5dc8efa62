// Package dataflows fetches raw market data from the Japanese disclosure and
// market data sources feeding the analysis pipeline.
package dataflows

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kabuto-ai/kabuto/config"
)

// Fetcher is the data-collection contract consumed by the orchestrator.
type Fetcher interface {
	// FetchAll collects every available source concurrently. Sources that
	// fail or time out are left nil in the bundle, never reported as errors.
	FetchAll(ctx context.Context, code string, opts FetchOptions) *Bundle
	// ResolveEdinetCode maps a stock code to its EDINET filer code.
	ResolveEdinetCode(ctx context.Context, code string) (string, error)
}

// FetchOptions tunes a single FetchAll run.
type FetchOptions struct {
	EdinetCode  string
	CompanyName string
	Timeout     time.Duration
}

// Service aggregates the individual source clients.
type Service struct {
	edinet   *EdinetClient
	tdnet    *TdnetClient
	yahoo    *YahooClient
	longport *LongportClient
	news     *NewsClient
	estat    *EStatClient
	fx       *FXClient
	log      *slog.Logger
}

func NewService(cfg *config.Config, log *slog.Logger) *Service {
	s := &Service{
		edinet: NewEdinetClient(cfg.EdinetAPIKey),
		tdnet:  NewTdnetClient(),
		yahoo:  NewYahooClient(),
		news:   NewNewsClient(),
		estat:  NewEStatClient(cfg.EStatAppID),
		fx:     NewFXClient(),
		log:    log,
	}
	if lp, err := NewLongportClient(cfg); err == nil {
		s.longport = lp
	} else {
		log.Debug("longport quotes disabled", "reason", err)
	}
	return s
}

func (s *Service) ResolveEdinetCode(ctx context.Context, code string) (string, error) {
	return s.edinet.ResolveFilerCode(ctx, code)
}

// FetchAll runs every source concurrently under a per-source timeout.
// A failing source never aborts its siblings.
func (s *Service) FetchAll(ctx context.Context, code string, opts FetchOptions) *Bundle {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	bundle := &Bundle{}
	var wg sync.WaitGroup

	run := func(source string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if err := fn(sctx); err != nil {
				s.log.Warn("data fetch failed", "source", source, "error", err)
			}
		}()
	}

	if opts.EdinetCode != "" {
		run("statements", func(sctx context.Context) error {
			st, err := s.edinet.GetStatements(sctx, opts.EdinetCode)
			if err == nil {
				bundle.Statements = st
			}
			return err
		})
	}
	run("disclosures", func(sctx context.Context) error {
		ds, err := s.tdnet.GetDisclosures(sctx, code)
		if err == nil {
			bundle.Disclosures = ds
		}
		return err
	})
	run("stock_price", func(sctx context.Context) error {
		price, err := s.fetchPrice(sctx, code)
		if err == nil {
			bundle.StockPrice = price
		}
		return err
	})
	run("news", func(sctx context.Context) error {
		query := opts.CompanyName
		if query == "" {
			query = code
		}
		items, err := s.news.Search(sctx, query)
		if err == nil {
			bundle.News = items
		}
		return err
	})
	run("macro", func(sctx context.Context) error {
		tables, err := s.estat.ListTables(sctx, "GDP")
		if err == nil {
			bundle.Macro = tables
		}
		return err
	})
	run("fx", func(sctx context.Context) error {
		rates, err := s.fx.GetRates(sctx)
		if err == nil {
			bundle.FX = rates
		}
		return err
	})

	wg.Wait()
	return bundle
}

// fetchPrice prefers broker quotes when longport credentials are configured,
// falling back to Yahoo Finance.
func (s *Service) fetchPrice(ctx context.Context, code string) (*PriceData, error) {
	if s.longport != nil {
		if price, err := s.longport.GetQuote(ctx, code); err == nil {
			return price, nil
		} else {
			s.log.Debug("longport quote failed, falling back to yahoo", "error", err)
		}
	}
	return s.yahoo.GetQuote(ctx, code)
}
