/*
close.go - Month-close verb

Runs the workflow end to end: eligibility, commit, unknown-project
acknowledgment, exception staging. When entries are staged the run
stops and points at the reconcile verb; the staged set survives in the
staging file until then.
*/
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moonlake/settlement-engine/gateway"
	"github.com/moonlake/settlement-engine/settle"
	"github.com/moonlake/settlement-engine/store/sqlite"
)

var discardStale bool

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Close the current settlement month",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		kv, err := sqlite.New(stagingPath)
		if err != nil {
			return err
		}
		defer kv.Close()

		m := settle.NewMachine(gateway.NewClient(serverURL, token), kv)

		if discardStale {
			if err := m.DiscardStaged(ctx); err != nil {
				return err
			}
		}

		readiness, err := m.Begin(ctx)
		switch {
		case errors.Is(err, settle.ErrAlreadyClosed):
			fmt.Println("This month is already settled. Nothing to do.")
			return nil
		case settle.IsStaleStaging(err):
			var se *settle.StaleStagingError
			errors.As(err, &se)
			return fmt.Errorf("%d staged entries remain from an earlier run; "+
				"run 'settlement reconcile' to finish it or 'settlement close --discard-stale' to drop it", se.EntryCount)
		case err != nil:
			return err
		}
		logger.Info("eligibility checked", zap.Stringer("readiness", readiness))
		if readiness == settle.ReadinessWithPriorMonth {
			fmt.Println("The prior month is still open: closing both months.")
		}

		if err := m.Commit(ctx); err != nil {
			if settle.IsPrivilege(err) {
				return fmt.Errorf("%w; retry with the admin token", err)
			}
			return err
		}

		if unknown := m.UnknownProjects(); len(unknown) > 0 {
			fmt.Println("Timelogs reference unregistered projects:")
			for _, p := range unknown {
				fmt.Printf("  %s\n", p)
			}
			if err := acknowledgeAndSettle(ctx, m); err != nil {
				return err
			}
		}

		switch m.State() {
		case settle.StateCommittedClean, settle.StateCleared:
			fmt.Println("Settlement committed. Nothing to reconcile.")
		case settle.StateExceptionsPending:
			fmt.Println("Timelogs against settled projects were staged.")
			fmt.Println("Run 'settlement reconcile' to decide where their time goes.")
		}
		return nil
	},
}

func acknowledgeAndSettle(ctx context.Context, m *settle.Machine) error {
	err := m.AcknowledgeUnknownProjects(ctx)
	if settle.IsPrivilege(err) {
		return fmt.Errorf("%w; retry with the admin token", err)
	}
	return err
}

func init() {
	closeCmd.Flags().BoolVar(&discardStale, "discard-stale", false, "drop staged entries left by an earlier run")
}
