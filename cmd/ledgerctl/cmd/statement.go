package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

var (
	periodType  string
	periodDate  string
	fiscalStart int
)

var statementCmd = &cobra.Command{
	Use:   "statement [account-id...]",
	Short: "Print opening and closing balances for a period",
	Long: `Fold completed transactions into a statement per account: opening
balance, inflows, outflows and closing balance for the period that
contains --date (today by default).

Without account ids every account is printed.

Example:
  ledgerctl statement --period quarter
  ledgerctl statement 5f0c... --period month --date 2024-02-01`,
	RunE: runStatement,
}

func init() {
	statementCmd.Flags().StringVar(&periodType, "period", string(ledger.PeriodMonth), "month, quarter, year or fiscal_year")
	statementCmd.Flags().StringVar(&periodDate, "date", "", "any date inside the period (YYYY-MM-DD)")
	statementCmd.Flags().IntVar(&fiscalStart, "fiscal-start", 1, "first month of the fiscal year")
}

func runStatement(cmd *cobra.Command, args []string) error {
	typ, err := ledger.ParsePeriodType(periodType)
	if err != nil {
		return err
	}
	date := ledger.Today()
	if periodDate != "" {
		if date, err = ledger.ParseDate(periodDate); err != nil {
			return fmt.Errorf("--date: %w", err)
		}
	}
	period := ledger.PeriodConfig{Type: typ, FiscalYearStartMonth: time.Month(fiscalStart)}.PeriodFor(date)

	store, svc, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	ids := make([]ledger.AccountID, 0, len(args))
	for _, a := range args {
		ids = append(ids, ledger.AccountID(a))
	}
	if len(ids) == 0 {
		accounts, err := svc.ListAccounts(cmd.Context())
		if err != nil {
			return err
		}
		for _, a := range accounts {
			ids = append(ids, a.ID)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "period %s\n\n", period)
	for _, id := range ids {
		st, err := svc.AccountStatement(cmd.Context(), id, period)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-36s  %s  opening=%s  in=%s  out=%s  closing=%s  (%d tx)\n",
			st.AccountID, st.Currency, st.Opening.StringFixed(2), st.Inflows.StringFixed(2),
			st.Outflows.StringFixed(2), st.Closing.StringFixed(2), st.Count)
	}
	return nil
}
