package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/riskwatch/mll"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Run one poll pass and print every account's verdict",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := m.Poll(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("poll: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tPLAN\tEQUITY\tANCHOR\tFLOOR\tUSED\tREMAINING\tSTATUS\tWARN\tRP&L\tUP&L")
	for _, ar := range report.Accounts {
		v := ar.Verdict
		if v.Status == mll.StatusUnknown {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t-\t-\t-\t-\t%s\t-\t%.2f\t%.2f\n",
				ar.Account.Name, v.PlanLabel, v.CurrentEquity, v.Status,
				ar.Realized.RealizedPnL, ar.Unrealized.UnrealizedPnL)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t%s\t%.2f\t%.2f\n",
			ar.Account.Name, v.PlanLabel, v.CurrentEquity, v.EODHighAnchor,
			v.Floor, v.Used, v.Remaining, v.Status, v.Warning,
			ar.Realized.RealizedPnL, ar.Unrealized.UnrealizedPnL)
	}
	w.Flush()

	p := report.Portfolio
	fmt.Printf("\nPortfolio: %d accounts, equity %.2f, P&L %.2f (realized %.2f, unrealized %.2f), fees %.2f\n",
		p.AccountCount, p.TotalEquity, p.TotalPnL, p.TotalRealizedPnL, p.TotalUnrealizedPnL, p.TotalFees)
	fmt.Printf("Risk: %s", report.Risk.Level)
	for i, factor := range report.Risk.Factors {
		if i == 0 {
			fmt.Printf(" (%s", factor)
		} else {
			fmt.Printf(", %s", factor)
		}
	}
	fmt.Println(")")

	if len(report.RolledOver) > 0 {
		fmt.Printf("Rolled over: %v\n", report.RolledOver)
	}

	st := m.Status(time.Now())
	fmt.Printf("Rollover window open: %v (trading date %s, %d account(s) pending)\n",
		st.InWindow, st.TradingDate, len(st.Due))
	return nil
}
