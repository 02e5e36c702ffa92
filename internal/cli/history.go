package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect the alert ledger",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger alerts",
	RunE:  runAlertsList,
}

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Inspect purchase orders",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent purchase orders",
	RunE:  runOrdersList,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect job run history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent job runs",
	RunE:  runRunsList,
}

func init() {
	rootCmd.AddCommand(alertsCmd, ordersCmd, runsCmd)
	alertsCmd.AddCommand(alertsListCmd)
	ordersCmd.AddCommand(ordersListCmd)
	runsCmd.AddCommand(runsListCmd)

	alertsListCmd.Flags().StringP("status", "s", "active", "active, resolved, or empty for both")
	alertsListCmd.Flags().StringP("kind", "k", "", "low_stock or budget_variance")
	alertsListCmd.Flags().StringP("entity", "e", "", "Entity id")
	alertsListCmd.Flags().IntP("limit", "l", 50, "Maximum rows")

	ordersListCmd.Flags().IntP("limit", "l", 20, "Maximum rows")

	runsListCmd.Flags().StringP("job", "j", "", "Filter by job name")
	runsListCmd.Flags().IntP("limit", "l", 20, "Maximum rows")
}

func runAlertsList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	f := cmd.Flags()
	status, _ := f.GetString("status")
	kind, _ := f.GetString("kind")
	entity, _ := f.GetString("entity")
	limit, _ := f.GetInt("limit")

	rows, err := a.Ledger.List(cmd.Context(), model.AlertFilter{
		EntityID: entity,
		Kind:     model.AlertKind(kind),
		Status:   model.AlertStatus(status),
		Limit:    limit,
	})
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No alerts.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ENTITY\tKIND\tSEVERITY\tVALUE\tSTATUS\tTRIGGERED\tMESSAGE\n")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%s\t%s\t%s\n",
			r.EntityID, r.Kind, r.Severity, r.ObservedValue, r.Status, r.TriggeredAt.Format(time.DateTime), r.Message)
	}
	return w.Flush()
}

func runOrdersList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	orders, err := a.Store.ListPurchaseOrders(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list purchase orders: %w", err)
	}
	if len(orders) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No purchase orders.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "NUMBER\tSUPPLIER\tSTATUS\tLINES\tTOTAL\tCREATED\n")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%s\n",
			o.Number, o.SupplierID, o.Status, len(o.Lines), o.Total, o.CreatedAt.Format(time.DateTime))
	}
	return w.Flush()
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	job, _ := cmd.Flags().GetString("job")
	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := a.Store.ListJobRuns(cmd.Context(), job, limit)
	if err != nil {
		return fmt.Errorf("list job runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No job runs.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tJOB\tSTATUS\tATTEMPTS\tSTARTED\tERROR\n")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.Job, r.Status, r.Attempts, r.StartedAt.Format(time.DateTime), r.Error)
	}
	return w.Flush()
}
