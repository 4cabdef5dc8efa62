// Package cli wires the commands, terminal rendering, and interactive
// prompts around the analysis pipeline.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kabuto-ai/kabuto/config"
	"github.com/kabuto-ai/kabuto/internal/logging"
	"github.com/kabuto-ai/kabuto/internal/notify"
	"github.com/kabuto-ai/kabuto/pkg/dataflows"
	"github.com/kabuto-ai/kabuto/pkg/graph"
	"github.com/kabuto-ai/kabuto/pkg/llm"
	"github.com/kabuto-ai/kabuto/pkg/models"
	"github.com/kabuto-ai/kabuto/pkg/snapshot"
)

var version = "0.3.0"

// NewRootCmd builds the kabuto command tree.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "kabuto",
		Short: "Kabuto - multi-agent investment research for Japanese equities",
		Long: `Kabuto runs a multi-agent LLM pipeline over Japanese market data
(EDINET filings, TDNET disclosures, prices, news, macro statistics) and
produces an investment research report with a verified decision.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.EnsureDataDir()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := PromptForCode()
			if err != nil {
				return err
			}
			return runAnalyze(cmd.Context(), cfg, code, false)
		},
	}

	rootCmd.AddCommand(newAnalyzeCmd(cfg))
	rootCmd.AddCommand(newPortfolioCmd(cfg))
	rootCmd.AddCommand(newDiffCmd(cfg))
	rootCmd.AddCommand(newWatchCmd(cfg))
	rootCmd.AddCommand(newSourcesCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfg.Model, "model", "m", cfg.Model, "model identifier")
	flags.Float32VarP(&cfg.Temperature, "temperature", "t", cfg.Temperature, "sampling temperature")
	flags.IntVarP(&cfg.DebateRounds, "debate-rounds", "d", cfg.DebateRounds, "bull vs bear debate rounds")
	flags.DurationVar(&cfg.TaskTimeout, "timeout", cfg.TaskTimeout, "per-agent timeout")
	flags.StringVarP(&cfg.Language, "language", "l", cfg.Language, "output language (ja or en)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.BoolVar(&cfg.Notify, "notify", cfg.Notify, "send results to Telegram")

	return rootCmd
}

func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "analyze [CODE]",
		Short: "Analyze one stock by securities code",
		Long: `Run the full analysis pipeline for one securities code.
Example: kabuto analyze 7203 --debate-rounds=2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var code string
			var err error
			if len(args) == 1 {
				code = strings.ToUpper(args[0])
			} else {
				code, err = PromptForCode()
				if err != nil {
					return err
				}
			}
			return runAnalyze(cmd.Context(), cfg, code, jsonOutput)
		},
	}
	cmd.Flags().StringVarP(&cfg.EdinetCode, "edinet-code", "e", cfg.EdinetCode, "EDINET filer code override")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func newPortfolioCmd(cfg *config.Config) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "portfolio CODE...",
		Short: "Analyze several stocks under a concurrency cap",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codes := make([]string, len(args))
			for i, a := range args {
				codes[i] = strings.ToUpper(a)
			}
			return runPortfolio(cmd.Context(), cfg, codes, jsonOutput)
		},
	}
	cmd.Flags().IntVarP(&cfg.MaxConcurrent, "max-concurrent", "c", cfg.MaxConcurrent, "max concurrent analyses")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func newDiffCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "diff CODE",
		Short: "Re-analyze a stock and show only what changed",
		Long: `Run a fresh analysis and compare it against the stored snapshot,
printing only the material changes. The stored snapshot is not updated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.Context(), cfg, strings.ToUpper(args[0]))
		},
	}
}

func newSourcesCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Show which data sources are configured",
		Run: func(cmd *cobra.Command, args []string) {
			renderSources(os.Stdout, cfg)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kabuto v%s\n", version)
			fmt.Println("Multi-agent investment research for Japanese equities")
		},
	}
}

// deps bundles everything a command run needs.
type deps struct {
	pipeline *graph.Pipeline
	store    *snapshot.Store
	notifier *notify.Telegram
	cfg      *config.Config
}

func buildDeps(ctx context.Context, cfg *config.Config) (*deps, func(), error) {
	log := logging.New(cfg.LogLevel)

	client, err := llm.NewClient(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	fetcher := dataflows.NewService(cfg, log)
	pipeline, err := graph.NewPipeline(client, fetcher, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	store, err := snapshot.Open(cfg.SnapshotDBPath(), log)
	if err != nil {
		return nil, nil, err
	}
	d := &deps{
		pipeline: pipeline,
		store:    store,
		notifier: notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, log),
		cfg:      cfg,
	}
	cleanup := func() { _ = store.Close() }
	return d, cleanup, nil
}

func runAnalyze(ctx context.Context, cfg *config.Config, code string, jsonOutput bool) error {
	d, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if !jsonOutput {
		fmt.Println(headerStyle.Render(fmt.Sprintf("kabuto — Analysis: %s\nModel: %s | Debate rounds: %d",
			code, cfg.Model, cfg.DebateRounds)))
	}

	prior := d.store.Load(code)
	result := d.pipeline.Analyze(ctx, code)

	if err := d.store.Save(result); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("snapshot save failed: "+err.Error()))
	}
	var changes []string
	if prior != nil {
		changes = snapshot.Diff(prior, result)
	}

	if jsonOutput {
		return printJSON(result)
	}
	RenderResult(os.Stdout, result, changes, cfg.Language)

	if cfg.Notify {
		if err := d.notifier.Send(ctx, result, changes); err != nil {
			fmt.Println(errorStyle.Render("❌ Telegram alert failed: " + err.Error()))
		} else {
			fmt.Println(approvedStyle.Render("✅ Telegram alert sent."))
		}
	}
	return nil
}

func runDiff(ctx context.Context, cfg *config.Config, code string) error {
	d, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	prior := d.store.Load(code)
	if prior == nil {
		fmt.Println(dimStyle.Render(fmt.Sprintf("No stored snapshot for %s. Run `kabuto analyze %s` first.", code, code)))
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("kabuto — Diff: %s\nBaseline: %s", code, prior.Timestamp.Format("2006-01-02 15:04"))))

	result := d.pipeline.Analyze(ctx, code)
	changes := snapshot.Diff(prior, result)
	if len(changes) == 0 {
		fmt.Println(dimStyle.Render("No material changes."))
		return nil
	}
	fmt.Println(sectionStyle.Render("🔄 前回比較 (What Changed)"))
	for _, change := range changes {
		fmt.Println("  " + changeStyle.Render(change))
	}
	return nil
}

func runPortfolio(ctx context.Context, cfg *config.Config, codes []string, jsonOutput bool) error {
	d, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if !jsonOutput {
		fmt.Println(headerStyle.Render(fmt.Sprintf("kabuto — Portfolio: %s\nModel: %s | Max concurrent: %d",
			strings.Join(codes, ", "), cfg.Model, cfg.MaxConcurrent)))
	}

	priors := make(map[string]*models.AnalysisResult, len(codes))
	for _, code := range codes {
		priors[code] = d.store.Load(code)
	}

	portfolio := d.pipeline.AnalyzeMany(ctx, codes)

	changes := map[string][]string{}
	for i := range portfolio.Results {
		r := &portfolio.Results[i]
		if err := d.store.Save(r); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("snapshot save failed: "+err.Error()))
		}
		if prior := priors[r.Code]; prior != nil {
			if diff := snapshot.Diff(prior, r); len(diff) > 0 {
				changes[r.Code] = diff
			}
		}
	}

	if jsonOutput {
		return printJSON(portfolio)
	}
	RenderPortfolio(os.Stdout, portfolio, changes)

	if cfg.Notify {
		if err := d.notifier.SendPortfolio(ctx, portfolio, changes); err != nil {
			fmt.Println(errorStyle.Render("❌ Telegram portfolio alert failed: " + err.Error()))
		} else {
			fmt.Println(approvedStyle.Render("✅ Telegram portfolio alert sent."))
		}
	}
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
