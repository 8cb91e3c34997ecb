package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/riskwatch/anchor"
)

var anchorsCmd = &cobra.Command{
	Use:   "anchors",
	Short: "Dump the persisted anchor records",
	RunE:  runAnchors,
}

func init() {
	rootCmd.AddCommand(anchorsCmd)
}

func runAnchors(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg.Logging)

	store, err := anchor.Open(cfg.Anchors.Path, log)
	if err != nil {
		return fmt.Errorf("open anchor store: %w", err)
	}

	records := store.Snapshots()
	if len(records) == 0 {
		fmt.Println("no anchor records")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tSTART\tEOD HIGH\tINTRADAY HIGH\tLAST ROLLOVER\tLOCKED")
	for _, rec := range records {
		start := "-"
		if rec.StartingBalanceSet() {
			start = fmt.Sprintf("%.2f", rec.StartingBalanceValue())
		}
		intraday := "-"
		if rec.IntradayHighSet() {
			intraday = fmt.Sprintf("%.2f", rec.IntradayHighValue())
		}
		date := rec.LastRolloverDate
		if date == "" {
			date = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\t%v\n",
			rec.AccountID, start, rec.EODHighAnchor, intraday, date, rec.LockedOut)
	}
	return w.Flush()
}
