package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/api"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

var seedCmd = &cobra.Command{
	Use:   "seed <scenario>",
	Short: "Wipe the database and load a demo scenario",
	Long: `Delete every row in the database and load one of the demo
scenarios. Run without arguments to list them.

Example:
  ledgerctl seed
  ledgerctl seed receivables --db ./data/demo.db`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, sc := range api.Scenarios {
			fmt.Fprintf(out, "%-16s %s\n", sc.ID, sc.Description)
		}
		return nil
	}

	store, svc, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	actor := ledger.Actor{ID: "system:seed", IsAdmin: true}
	if err := api.LoadScenario(cmd.Context(), svc, store, actor, strings.TrimSpace(args[0])); err != nil {
		return err
	}
	slog.Info("scenario loaded", "scenario", args[0], "database", cfg.DatabasePath)
	return nil
}
