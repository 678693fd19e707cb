/*
reconcile.go - Reconciliation verb

Resumes the staged exception set, prints the decision table and applies
the dispositions. Rows listed in --misc go to miscellaneous cost,
everything else stays on its project. --undecided aborts after printing
so the table can be inspected without finishing the run.
*/
package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moonlake/settlement-engine/gateway"
	"github.com/moonlake/settlement-engine/reconcile"
	"github.com/moonlake/settlement-engine/settle"
	"github.com/moonlake/settlement-engine/store/sqlite"
	"github.com/moonlake/settlement-engine/timelog"
)

var (
	miscRows  string
	printOnly bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Finish a staged reconciliation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		kv, err := sqlite.New(stagingPath)
		if err != nil {
			return err
		}
		defer kv.Close()

		m := settle.NewMachine(gateway.NewClient(serverURL, token), kv)
		set, err := m.Resume(ctx)
		if err != nil {
			return err
		}
		logger.Info("resumed staged set",
			zap.Int("entries", len(set.Entries)),
			zap.Bool("includes_prior", set.IncludesPrior))

		now := timelog.MonthOf(time.Now())
		view := reconcile.BuildView(set, now)
		printView(view, now)

		if printOnly {
			return nil
		}

		misc, err := parseRows(miscRows, view.Len())
		if err != nil {
			return err
		}
		for _, i := range misc {
			if err := view.SetDisposition(i, reconcile.DispositionMiscellaneous); err != nil {
				return err
			}
		}

		if err := m.CompleteReconciliation(ctx, view); err != nil {
			return err
		}
		fmt.Println("Reconciliation complete. Staged entries cleared.")
		return nil
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&miscRows, "misc", "", "comma list of row numbers to move to miscellaneous cost")
	reconcileCmd.Flags().BoolVar(&printOnly, "print", false, "print the decision table without finishing")
}

func printView(v *reconcile.View, now timelog.MonthKey) {
	// Row numbers refer to the view's flat order, which grouping can
	// reshuffle, so look each row's number up by identity.
	index := make(map[*reconcile.Row]int, v.Len())
	for i, r := range v.Rows() {
		index[r] = i
	}
	printBucket := func(label string, b reconcile.Bucket) {
		if b.Size() == 0 {
			return
		}
		fmt.Printf("%s (%d entries)\n", label, b.Size())
		for _, g := range b.Groups {
			for _, r := range g.Rows {
				fmt.Printf("  [%d] %-16s %-12s %6s h\n", index[r], g.Project, r.Entry.UserID, r.Hours())
			}
		}
	}
	printBucket(now.String(), v.Current)
	printBucket("earlier months", v.Prior)
}

func parseRows(raw string, n int) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	var out []int
	for _, p := range strings.Split(raw, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid row number %q", p)
		}
		if i < 0 || i >= n {
			return nil, fmt.Errorf("row %d out of range [0, %d)", i, n)
		}
		out = append(out, i)
	}
	return out, nil
}
