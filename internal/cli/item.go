package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/campus-guardian/pkg/automation"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
	"github.com/ogulcanaydogan/campus-guardian/pkg/storage"
	"github.com/ogulcanaydogan/campus-guardian/pkg/threshold"
)

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage inventory items",
}

var itemSetCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Create or update an item; unset flags keep their stored values",
	Args:  cobra.ExactArgs(1),
	RunE:  runItemSet,
}

var itemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List items with their stock severity",
	RunE:  runItemList,
}

func init() {
	rootCmd.AddCommand(itemCmd)
	itemCmd.AddCommand(itemSetCmd)
	itemCmd.AddCommand(itemListCmd)

	f := itemSetCmd.Flags()
	f.StringP("name", "n", "", "Item name")
	f.StringP("category", "c", "", "Category")
	f.String("unit", "", "Unit of measure")
	f.Float64P("quantity", "q", 0, "Quantity on hand")
	f.Float64("min", 0, "Minimum stock level")
	f.Float64("reorder", 0, "Reorder point")
	f.Float64("max", 0, "Maximum stock level")
	f.Float64("eoq", 0, "Economic order quantity")
	f.Float64("unit-cost", 0, "Unit cost")
	f.String("supplier", "", "Preferred supplier id")
	f.Bool("active", true, "Whether the item is monitored")
	f.Bool("check", false, "Run a stock check for this item after saving")

	itemListCmd.Flags().StringP("category", "c", "", "Filter by category")
}

func runItemSet(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	it, err := a.Store.GetItem(ctx, args[0])
	switch {
	case errors.Is(err, storage.ErrNotFound):
		it = &model.Item{ID: args[0], Name: args[0], Active: true}
	case err != nil:
		return err
	}

	f := cmd.Flags()
	setString := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	setFloat := func(name string, dst *float64) {
		if f.Changed(name) {
			*dst, _ = f.GetFloat64(name)
		}
	}
	setString("name", &it.Name)
	setString("category", &it.Category)
	setString("unit", &it.Unit)
	setString("supplier", &it.PreferredSupplierID)
	setFloat("quantity", &it.Quantity)
	setFloat("min", &it.MinimumLevel)
	setFloat("reorder", &it.ReorderPoint)
	setFloat("max", &it.MaximumLevel)
	setFloat("eoq", &it.EconomicOrderQty)
	setFloat("unit-cost", &it.UnitCost)
	if f.Changed("active") {
		it.Active, _ = f.GetBool("active")
	}

	if err := a.Store.UpsertItem(ctx, it); err != nil {
		return fmt.Errorf("save item: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Item saved:\n")
	fmt.Fprintf(out, "  ID:        %s\n", it.ID)
	fmt.Fprintf(out, "  Name:      %s\n", it.Name)
	fmt.Fprintf(out, "  Quantity:  %g\n", it.Quantity)
	fmt.Fprintf(out, "  Severity:  %s\n", threshold.ClassifyStock(it.Quantity, it.MinimumLevel, it.ReorderPoint))

	if check, _ := f.GetBool("check"); check {
		exec, err := a.Runner.Run(ctx, automation.JobStockMonitor, automation.Request{
			EntityIDs: []string{it.ID},
			Options:   a.DefaultOptions(),
		})
		if err != nil {
			return err
		}
		printStats(out, exec.Stats)
	}
	return nil
}

func runItemList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	category, _ := cmd.Flags().GetString("category")
	items, err := a.Store.ListItems(cmd.Context(), model.ItemFilter{Category: category})
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}

	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No items. Use 'cg item set' or 'cg seed' to add some.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tCATEGORY\tQTY\tMIN\tREORDER\tSUPPLIER\tSTATUS\n")
	for _, it := range items {
		status := string(threshold.ClassifyStock(it.Quantity, it.MinimumLevel, it.ReorderPoint))
		if !it.Active {
			status = "inactive"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%g\t%s\t%s\n",
			it.ID, it.Name, it.Category, it.Quantity, it.MinimumLevel, it.ReorderPoint, it.PreferredSupplierID, status)
	}
	return w.Flush()
}
