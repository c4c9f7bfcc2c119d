package main

import (
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <ticket>",
	Short: "Show one ticket with its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := desk.Tickets.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(view)
		}
		printTicket(view)
		return nil
	},
}
