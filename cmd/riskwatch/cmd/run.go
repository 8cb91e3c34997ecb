package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/riskwatch/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitor loop on its configured cadence",
	Long: `Run the monitor continuously. Each poll authenticates, fetches the
active accounts, updates anchors, performs the daily rollover when due, and
evaluates every account's MLL verdict.

Example:
  riskwatch run -f config.yaml -a accounts.yaml`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg.Logging)

	m, jnl, err := buildMonitor(cfg, log)
	if err != nil {
		return err
	}
	defer jnl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poll := func() {
		pollCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()

		report, err := m.Poll(pollCtx, time.Now())
		if err != nil {
			log.Error().Err(err).Msg("poll failed")
			return
		}
		log.Info().
			Int("accounts", len(report.Accounts)).
			Int("rolled_over", len(report.RolledOver)).
			Float64("portfolio_equity", report.Portfolio.TotalEquity).
			Float64("portfolio_pnl", report.Portfolio.TotalPnL).
			Str("risk", report.Risk.Level.String()).
			Msg("poll completed")
	}

	sched := scheduler.New(log)
	if err := sched.Register(cfg.Poll.CronSpec, poll); err != nil {
		return err
	}

	// First pass immediately so state is warm before the first cron tick.
	poll()

	sched.Start()
	<-ctx.Done()
	<-sched.Stop().Done()
	log.Info().Msg("shutdown complete")
	return nil
}
