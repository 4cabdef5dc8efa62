package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/kabuto-ai/kabuto/config"
	"github.com/kabuto-ai/kabuto/internal/logging"
	"github.com/kabuto-ai/kabuto/pkg/models"
	"github.com/kabuto-ai/kabuto/pkg/snapshot"
)

func newWatchCmd(cfg *config.Config) *cobra.Command {
	var schedule string
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "watch CODE...",
		Short: "Re-analyze a portfolio on a schedule and alert on changes",
		Long: `Run the portfolio analysis on a cron schedule. After each run the
results are diffed against the previous snapshot and material changes
are sent to Telegram. The config file is watched for live updates.
Example: kabuto watch 7203 6758 --schedule "0 8 * * MON-FRI"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if schedule != "" {
				cfg.WatchSchedule = schedule
			}
			codes := make([]string, len(args))
			for i, a := range args {
				codes[i] = strings.ToUpper(a)
			}
			return runWatch(cmd.Context(), cfg, codes, runOnStart)
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression (default from config)")
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run one analysis immediately")
	return cmd
}

// watcher owns the scheduled runs. It rebuilds its dependencies per
// tick so config updates picked up between runs take effect.
type watcher struct {
	cfg   *config.Config
	codes []string
}

func runWatch(ctx context.Context, cfg *config.Config, codes []string, runOnStart bool) error {
	log := logging.New(cfg.LogLevel)

	mgr, err := config.NewManager(config.WithInitialConfig(cfg))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	w := &watcher{cfg: cfg, codes: codes}

	if err := mgr.Watch(ctx, func(updated config.Config) {
		*w.cfg = updated
		log.Info("configuration reloaded", "path", mgr.Path())
	}); err != nil {
		log.Warn("config watch unavailable", "error", err)
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.WatchSchedule, func() { w.tick(ctx) }); err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", cfg.WatchSchedule, err)
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("kabuto — Watch: %s\nSchedule: %s",
		strings.Join(codes, ", "), cfg.WatchSchedule)))

	if runOnStart {
		w.tick(ctx)
	}

	c.Start()
	defer c.Stop()

	<-ctx.Done()
	log.Info("watch mode stopped")
	return nil
}

// tick runs one scheduled portfolio pass: analyze, snapshot, diff,
// and alert only when something material changed.
func (w *watcher) tick(ctx context.Context) {
	d, cleanup, err := buildDeps(ctx, w.cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("watch run failed: "+err.Error()))
		return
	}
	defer cleanup()

	priors := make(map[string]*models.AnalysisResult, len(w.codes))
	for _, code := range w.codes {
		priors[code] = d.store.Load(code)
	}

	portfolio := d.pipeline.AnalyzeMany(ctx, w.codes)

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

	RenderPortfolio(os.Stdout, portfolio, changes)

	if !d.notifier.Configured() {
		return
	}
	// First run has no baseline; alert anyway so the channel gets the
	// initial signal set.
	baseline := false
	for _, p := range priors {
		if p != nil {
			baseline = true
			break
		}
	}
	if !baseline || len(changes) > 0 || len(portfolio.FailedCodes) > 0 {
		if err := d.notifier.SendPortfolio(ctx, portfolio, changes); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("telegram alert failed: "+err.Error()))
		}
	}
}
