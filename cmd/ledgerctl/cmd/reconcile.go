package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/api"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

var (
	repair    bool
	accountID string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare stored balances with transaction history",
	Long: `Recompute each account balance as initial balance plus the sum of
its transaction impacts and report any drift.

With --repair the stored balance is corrected and an audit entry is
written under the system:reconciler actor.

Example:
  ledgerctl reconcile
  ledgerctl reconcile --account 5f0c... --repair`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&repair, "repair", false, "write the calculated balance back")
	reconcileCmd.Flags().StringVar(&accountID, "account", "", "reconcile a single account")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	store, svc, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	var drifts []ledger.Drift
	if accountID != "" {
		d, err := svc.Reconcile(cmd.Context(), api.SchedulerActor, ledger.AccountID(accountID), repair)
		if err != nil {
			return err
		}
		drifts = []ledger.Drift{d}
	} else {
		drifts, err = svc.ReconcileAll(cmd.Context(), api.SchedulerActor, repair)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	inconsistent := 0
	for _, d := range drifts {
		state := "ok"
		if !d.Consistent() {
			inconsistent++
			state = "DRIFT"
			if d.Repaired {
				state = "REPAIRED"
			}
		}
		fmt.Fprintf(out, "%-36s  %-8s  stored=%s  calculated=%s  drift=%s\n",
			d.AccountID, state, d.Stored.StringFixed(2), d.Calculated.StringFixed(2), d.Drift.StringFixed(2))
	}
	fmt.Fprintf(out, "\n%d account(s), %d inconsistent\n", len(drifts), inconsistent)

	if inconsistent > 0 && !repair {
		return fmt.Errorf("%d account(s) drifted; rerun with --repair to fix", inconsistent)
	}
	return nil
}
