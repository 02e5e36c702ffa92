package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/campus-guardian/pkg/fixtures"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Load suppliers, items, budgets and staff from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	set, err := fixtures.Load(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	counts, err := set.Apply(cmd.Context(), a.Store)
	if err != nil {
		return err
	}
	a.Resolver.Invalidate()

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d supplier(s), %d item(s), %d budget(s), %d user(s)\n",
		counts.Suppliers, counts.Items, counts.Budgets, counts.Users)
	return nil
}
