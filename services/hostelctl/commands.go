package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/pavitra93/go-hostel-management-system/shared/hostel"
	"github.com/pavitra93/go-hostel-management-system/shared/store"
)

func MigrateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the documents and findings tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd)
			if err != nil {
				return err
			}
			if err := store.NewGormStore(rt.db, nil).AutoMigrate(); err != nil {
				return err
			}
			if err := rt.findings.AutoMigrate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrated tables: documents, reconciliation_findings")
			return nil
		},
	}
}

func StatsCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Hostel stats rollup",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh <hostel-id>",
		Short: "Recompute and store a hostel's stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd)
			if err != nil {
				return err
			}
			stats, err := rt.svc.Stats.Refresh(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to refresh stats: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	})
	return cmd
}

func ReconcileCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile <hostel-id>",
		Short: "Report tenant and bed mismatches in a hostel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, _ := cmd.Flags().GetBool("record")

			rt, err := open(cmd)
			if err != nil {
				return err
			}
			report, err := rt.svc.Reconciler.Reconcile(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to reconcile: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scanned %d rooms and %d tenants\n", report.RoomsScanned, report.TenantsSeen)
			if report.Consistent() {
				fmt.Fprintln(out, "No mismatches found.")
			} else {
				fmt.Fprintf(out, "%-26s  %-36s  %-4s  %-36s  %s\n", "Kind", "Room", "Bed", "Tenant", "Detail")
				for _, m := range report.Mismatches {
					fmt.Fprintf(out, "%-26s  %-36s  %-4d  %-36s  %s\n", m.Kind, m.RoomID, m.BedNumber, m.TenantID, m.Detail)
				}
			}

			if record {
				result, err := rt.findings.Record(cmd.Context(), report)
				if err != nil {
					return fmt.Errorf("failed to record findings: %w", err)
				}
				fmt.Fprintf(out, "Findings: %d opened, %d still open, %d resolved\n", result.Opened, result.Seen, result.Resolved)
			}
			return nil
		},
	}
	cmd.Flags().Bool("record", false, "Persist the mismatches as reconciliation findings")
	return cmd
}

func PaymentsCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Payment ledger queries",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "pending [hostel-id]",
		Short: "List pending payments, soonest due first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var hostelID string
			if len(args) == 1 {
				hostelID = args[0]
			}

			rt, err := open(cmd)
			if err != nil {
				return err
			}
			payments, err := rt.svc.Payments.ListPending(cmd.Context(), hostelID)
			if err != nil {
				return fmt.Errorf("failed to list pending payments: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(payments) == 0 {
				fmt.Fprintln(out, "No pending payments.")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-36s  %-10s  %12s\n", "Payment", "Tenant", "Due", "Amount")
			for _, p := range payments {
				fmt.Fprintf(out, "%-36s  %-36s  %-10s  %12s\n", p.ID, p.TenantID, p.DueDate.Format("2006-01-02"), p.Amount.StringFixed(2))
			}
			return nil
		},
	})

	statsCmd := &cobra.Command{
		Use:   "stats <hostel-id>",
		Short: "Collected, pending and overdue totals for a hostel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := periodFlags(cmd)
			if err != nil {
				return err
			}

			rt, err := open(cmd)
			if err != nil {
				return err
			}
			stats, err := rt.svc.Payments.ComputeStats(cmd.Context(), args[0], period)
			if err != nil {
				return fmt.Errorf("failed to compute payment stats: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
	statsCmd.Flags().String("from", "", "Start date (YYYY-MM-DD), requires --to")
	statsCmd.Flags().String("to", "", "End date (YYYY-MM-DD), inclusive")
	cmd.AddCommand(statsCmd)

	return cmd
}

// periodFlags reads --from/--to. Neither set means all time.
func periodFlags(cmd *cobra.Command) (*hostel.DateRange, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("--from and --to must be given together")
	}

	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, fmt.Errorf("invalid --from date: %w", err)
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, fmt.Errorf("invalid --to date: %w", err)
	}
	return &hostel.DateRange{From: start, To: end.Add(24*time.Hour - time.Nanosecond)}, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
