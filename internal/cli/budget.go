package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
	"github.com/ogulcanaydogan/campus-guardian/pkg/storage"
	"github.com/ogulcanaydogan/campus-guardian/pkg/threshold"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage departmental budgets",
}

var budgetSetCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Create or update a budget allocation",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetSet,
}

var budgetSpendCmd = &cobra.Command{
	Use:   "spend <id> <amount>",
	Short: "Record spending against a budget and check it",
	Args:  cobra.ExactArgs(2),
	RunE:  runBudgetSpend,
}

var budgetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current budget status",
	RunE:  runBudgetStatus,
}

func init() {
	rootCmd.AddCommand(budgetCmd)
	budgetCmd.AddCommand(budgetSetCmd)
	budgetCmd.AddCommand(budgetSpendCmd)
	budgetCmd.AddCommand(budgetStatusCmd)

	budgetSetCmd.Flags().StringP("name", "n", "", "Budget name")
	budgetSetCmd.Flags().StringP("department", "d", "", "Department")
	budgetSetCmd.Flags().StringP("period", "P", "", "Budget period label, e.g. 2026-27")
	budgetSetCmd.Flags().Float64P("allocated", "a", 0, "Allocated amount")
	budgetSetCmd.Flags().Bool("active", true, "Whether the budget is monitored")

	budgetStatusCmd.Flags().StringP("department", "d", "", "Filter by department")
}

func runBudgetSet(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	b, err := a.Store.GetBudget(ctx, args[0])
	switch {
	case errors.Is(err, storage.ErrNotFound):
		b = &model.Budget{ID: args[0], Name: args[0], Active: true}
	case err != nil:
		return err
	}

	f := cmd.Flags()
	if f.Changed("name") {
		b.Name, _ = f.GetString("name")
	}
	if f.Changed("department") {
		b.Department, _ = f.GetString("department")
	}
	if f.Changed("period") {
		b.Period, _ = f.GetString("period")
	}
	if f.Changed("allocated") {
		b.Allocated, _ = f.GetFloat64("allocated")
	}
	if f.Changed("active") {
		b.Active, _ = f.GetBool("active")
	}

	if err := a.Store.UpsertBudget(ctx, b); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Budget set:\n")
	fmt.Fprintf(out, "  ID:          %s\n", b.ID)
	fmt.Fprintf(out, "  Name:        %s\n", b.Name)
	fmt.Fprintf(out, "  Department:  %s\n", b.Department)
	fmt.Fprintf(out, "  Allocated:   %.2f\n", b.Allocated)
	return nil
}

func runBudgetSpend(cmd *cobra.Command, args []string) error {
	var amount float64
	if _, err := fmt.Sscanf(args[1], "%g", &amount); err != nil {
		return fmt.Errorf("invalid amount %q", args[1])
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.Budget.RecordSpend(cmd.Context(), args[0], amount, a.DefaultOptions())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %.2f against %s\n", amount, args[0])
	printStats(cmd.OutOrStdout(), stats)
	return nil
}

func runBudgetStatus(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	dept, _ := cmd.Flags().GetString("department")
	budgets, err := a.Store.ListBudgets(cmd.Context(), model.BudgetFilter{Department: dept})
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}

	if len(budgets) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No budgets configured. Use 'cg budget set' to create one.")
		return nil
	}

	cutoffs := a.Config.Alerts.BudgetCutoffs
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tDEPARTMENT\tALLOCATED\tSPENT\tREMAINING\tUSAGE\n")
	for _, b := range budgets {
		remaining := b.Allocated - b.Spent
		if remaining < 0 {
			remaining = 0
		}
		pct, _ := threshold.BudgetUsage(b.Spent, b.Allocated)

		status := ""
		switch sev := threshold.ClassifyBudget(b.Spent, b.Allocated, cutoffs); sev {
		case model.SeverityExceeded, model.SeverityCritical, model.SeverityWarning:
			status = " [" + strings.ToUpper(string(sev)) + "]"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.1f%%%s\n",
			b.ID, b.Name, b.Department, b.Allocated, b.Spent, remaining, pct, status)
	}
	return w.Flush()
}
