// reset.go - Timelog reset verb
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moonlake/settlement-engine/gateway"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every timelog on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := gateway.NewClient(serverURL, token)
		if err := c.ResetAllTimelog(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("All timelogs removed.")
		return nil
	},
}
