package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/creative-engine/internal/runlog"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past runs from the local ledger",
	Long: `Runs prints the run ledger: when each batch ran, what it advertised,
how many creatives succeeded, and where the archive ended up.`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to show (0 = all)")
	runsCmd.Flags().String("ledger-dir", defaultLedgerDir, "directory of the run ledger database")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	ledgerDir, _ := cmd.Flags().GetString("ledger-dir")
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := runlog.Open(ledgerDir)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no runs recorded yet")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tPRODUCT\tPROVIDER\tOK\tFALLBACK\tFAILED\tARCHIVE")
	for _, rec := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			rec.ID,
			rec.CreatedAt.Format("2006-01-02 15:04"),
			rec.ProductDesc,
			rec.Provider,
			rec.Succeeded,
			rec.Fallback,
			rec.Failed,
			rec.ArchivePath,
		)
	}
	return tw.Flush()
}
