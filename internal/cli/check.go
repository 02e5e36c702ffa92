package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/campus-guardian/pkg/automation"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a monitoring job now",
}

var checkStockCmd = &cobra.Command{
	Use:   "stock [item-id...]",
	Short: "Check stock levels for the given items, a category, or every active item",
	RunE:  runCheck(automation.JobStockMonitor),
}

var checkBudgetCmd = &cobra.Command{
	Use:   "budget [budget-id...]",
	Short: "Check budget usage for the given budgets, a department, or every active budget",
	RunE:  runCheck(automation.JobBudgetMonitor),
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.AddCommand(checkStockCmd)
	checkCmd.AddCommand(checkBudgetCmd)

	for _, c := range []*cobra.Command{checkStockCmd, checkBudgetCmd} {
		c.Flags().Bool("force", false, "Notify even inside the cooldown window")
		c.Flags().Bool("no-notify", false, "Record alerts without notifying anyone")
		c.Flags().Bool("no-cache", false, "Do not cache the run statistics")
	}
	checkStockCmd.Flags().StringP("category", "c", "", "Only items in this category")
	checkStockCmd.Flags().Bool("no-reorder", false, "Do not draft purchase orders")
	checkStockCmd.Flags().Float64("auto-approve-limit", -1, "Auto-approve drafted orders up to this total (default from config)")
	checkBudgetCmd.Flags().StringP("department", "d", "", "Only budgets of this department")
}

func runCheck(job string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		f := cmd.Flags()
		opts := a.DefaultOptions()
		if v, _ := f.GetBool("no-notify"); v {
			opts.SendNotifications = false
		}
		if v, _ := f.GetBool("no-cache"); v {
			opts.UpdateCache = false
		}
		if v, _ := f.GetBool("no-reorder"); v {
			opts.AutoReorder = false
		}
		if f.Changed("auto-approve-limit") {
			limit, _ := f.GetFloat64("auto-approve-limit")
			if limit < 0 {
				return fmt.Errorf("auto-approve-limit must not be negative")
			}
			opts.AutoApproveLimit = limit
		}

		req := automation.Request{EntityIDs: args, Options: opts}
		req.Force, _ = f.GetBool("force")
		if f.Lookup("category") != nil {
			req.Category, _ = f.GetString("category")
		} else {
			req.Category, _ = f.GetString("department")
		}

		exec, err := a.Runner.Run(cmd.Context(), job, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Run %s completed in %d attempt(s)\n", exec.Run.ID, exec.Run.Attempts)
		printStats(cmd.OutOrStdout(), exec.Stats)
		return nil
	}
}

func printStats(out io.Writer, s *model.RunStats) {
	fmt.Fprintf(out, "Evaluated:   %d\n", s.Evaluated)
	fmt.Fprintf(out, "Affected:    %d\n", len(s.Affected))
	fmt.Fprintf(out, "Notified:    %d\n", s.Notified)
	fmt.Fprintf(out, "Suppressed:  %d\n", s.Suppressed)
	fmt.Fprintf(out, "Resolved:    %d\n", s.Resolved)
	if s.Failed > 0 {
		fmt.Fprintf(out, "Failed:      %d\n", s.Failed)
	}
	if s.OrdersCreated > 0 {
		fmt.Fprintf(out, "Orders:      %d (%d auto-approved)\n", s.OrdersCreated, s.OrdersAutoApproved)
	}
	if len(s.NotFound) > 0 {
		fmt.Fprintf(out, "Not found:   %v\n", s.NotFound)
	}

	if len(s.Affected) == 0 {
		return
	}
	fmt.Fprintf(out, "\n")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  ID\tNAME\tSEVERITY\tVALUE\tTHRESHOLD\n")
	for _, e := range s.Affected {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%g\t%g\n", e.ID, e.Name, e.Severity, e.Value, e.Threshold)
	}
	w.Flush()
}
