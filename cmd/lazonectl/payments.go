package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lazone/lazone-api/internal/domain/catalog"
	"github.com/lazone/lazone-api/internal/domain/ledger"
	"github.com/lazone/lazone-api/internal/domain/listing"
	"github.com/lazone/lazone-api/internal/domain/manualpayment"
	"github.com/lazone/lazone-api/internal/domain/notification"
	"github.com/lazone/lazone-api/internal/domain/purchase"
	"github.com/lazone/lazone-api/internal/domain/subscription"
	"github.com/lazone/lazone-api/internal/pkg/database"
)

var (
	paymentsStatus      string
	paymentsListingType string
	adminID             string
	rejectReason        string
)

var paymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "Review mobile-money payments",
}

var paymentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List payments by status, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPaymentService(func(svc *manualpayment.Service) error {
			items, err := svc.ListByStatus(cmd.Context(), manualpayment.Status(paymentsStatus), paymentsListingType)
			if err != nil {
				return err
			}
			return printPayments(cmd.OutOrStdout(), items)
		})
	},
}

var paymentsApproveCmd = &cobra.Command{
	Use:     "approve <payment-id>",
	Short:   "Approve a pending payment and activate its listing or credit the ledger",
	Example: `  lazonectl payments approve 1b4e28ba-2fa1-11d2-883f-0016d3cca427 --admin 6fa459ea-ee8a-3ca4-894e-db77e160355e`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paymentID, err := parseID("payment", args[0])
		if err != nil {
			return err
		}
		reviewer, err := parseID("admin", adminID)
		if err != nil {
			return err
		}

		return withPaymentService(func(svc *manualpayment.Service) error {
			p, err := svc.Approve(cmd.Context(), paymentID, reviewer)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "payment %s %s\n", p.ID, p.Status)
			return nil
		})
	},
}

var paymentsRejectCmd = &cobra.Command{
	Use:   "reject <payment-id>",
	Short: "Reject a pending payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paymentID, err := parseID("payment", args[0])
		if err != nil {
			return err
		}
		reviewer, err := parseID("admin", adminID)
		if err != nil {
			return err
		}

		return withPaymentService(func(svc *manualpayment.Service) error {
			p, err := svc.Reject(cmd.Context(), paymentID, reviewer, rejectReason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "payment %s %s\n", p.ID, p.Status)
			return nil
		})
	},
}

func init() {
	paymentsListCmd.Flags().StringVar(&paymentsStatus, "status", string(manualpayment.StatusPending), "pending, completed or rejected")
	paymentsListCmd.Flags().StringVar(&paymentsListingType, "listing-type", "", "Filter by listing type")

	for _, c := range []*cobra.Command{paymentsApproveCmd, paymentsRejectCmd} {
		c.Flags().StringVar(&adminID, "admin", "", "Reviewing administrator's user id")
		_ = c.MarkFlagRequired("admin")
	}
	paymentsRejectCmd.Flags().StringVar(&rejectReason, "reason", "", "Reason shown to the submitter")

	paymentsCmd.AddCommand(paymentsListCmd, paymentsApproveCmd, paymentsRejectCmd)
}

func withPaymentService(fn func(svc *manualpayment.Service) error) error {
	db, cfg, err := openDB()
	if err != nil {
		return err
	}
	defer database.ClosePostgres(db)

	invalidator, closeCache := summaryInvalidator(cfg)
	defer closeCache()

	notifications := notification.NewService(notification.NewRepository(db))
	purchases := purchase.NewService(
		ledger.NewRepository(db),
		catalog.Default(),
		subscription.NewService(subscription.NewRepository(db)),
		notifications,
		invalidator,
	)
	svc := manualpayment.NewService(
		manualpayment.NewRepository(db),
		listing.NewRepository(db),
		purchases,
		notifications,
		invalidator,
	)
	return fn(svc)
}

func printPayments(w io.Writer, items []*manualpayment.ReviewItem) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSUBMITTER\tAMOUNT\tPHONE\tREF\tTYPE\tPROPERTY\tCREATED")
	for _, it := range items {
		property := "-"
		if it.PropertyID.Valid {
			property = it.PropertyID.UUID.String()
		}
		fmt.Fprintf(tw, "%s\t%s <%s>\t%.2f %s\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.SubmitterName, it.SubmitterEmail,
			it.Amount, it.Currency,
			it.SenderPhone, it.TransactionRef, it.ListingType, property,
			it.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return tw.Flush()
}
