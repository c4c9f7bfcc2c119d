package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/intake-desk/internal/service"
)

var updateCmd = &cobra.Command{
	Use:   "update <ticket>",
	Short: "Change a ticket's status or note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in service.UpdateInput
		if cmd.Flags().Changed("status") {
			v, _ := cmd.Flags().GetString("status")
			in.Status = &v
		}
		if cmd.Flags().Changed("note") {
			v, _ := cmd.Flags().GetString("note")
			in.Note = &v
		}
		in.NotifyClient, _ = cmd.Flags().GetBool("notify")
		in.NotifySubject, _ = cmd.Flags().GetString("subject")

		res, err := desk.Tickets.Update(cmd.Context(), args[0], in)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(res)
		}
		printTicket(res.View)
		switch {
		case res.EmailSent:
			fmt.Println("\nclient notified")
		case res.EmailError != "":
			fmt.Printf("\nclient not notified: %s\n", res.EmailError)
		}
		return nil
	},
}

func init() {
	updateCmd.Flags().StringP("status", "s", "", "new status (open, wip, resolved)")
	updateCmd.Flags().StringP("note", "n", "", "replace the internal note")
	updateCmd.Flags().Bool("notify", false, "email the client about the update")
	updateCmd.Flags().String("subject", "", "subject for the client email")
}
