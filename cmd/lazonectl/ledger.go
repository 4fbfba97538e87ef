package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazone/lazone-api/internal/domain/ledger"
	"github.com/lazone/lazone-api/internal/pkg/database"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the credit ledger",
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Show a user's ledger entries in consumption order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseID("user", args[0])
		if err != nil {
			return err
		}

		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer database.ClosePostgres(db)

		entries, err := ledger.NewRepository(db).ListByUser(cmd.Context(), userID)
		if err != nil {
			return err
		}
		return printEntries(cmd.OutOrStdout(), entries, time.Now())
	},
}

func init() {
	ledgerCmd.AddCommand(ledgerShowCmd)
}

func printEntries(w io.Writer, entries []*ledger.Entry, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tRAIL\tTRANSACTION\tUSED\tSTATUS\tPURCHASED\tEXPIRES")

	available := 0
	for _, e := range entries {
		status := e.EffectiveStatus(now)
		if status == ledger.StatusActive {
			available += e.Remaining()
		}
		expires := "-"
		if e.ExpirationDate != nil {
			expires = e.ExpirationDate.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\t%s\n",
			e.ID, e.ProductID, e.Rail, e.TransactionID,
			e.CreditsUsed, e.CreditsAmount, status,
			e.PurchaseDate.Format("2006-01-02"), expires,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\navailable credits: %d\n", available)
	return err
}
