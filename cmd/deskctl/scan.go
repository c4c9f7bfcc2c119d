package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/intake-desk/internal/service"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Send overdue alerts for tickets past the threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		views, err := desk.Tickets.List(cmd.Context(), service.ListFilter{})
		if err != nil {
			return err
		}
		sent, err := desk.Alerts.ScanAndAlert(cmd.Context(), views)
		if jsonOutput {
			if perr := printJSON(map[string]any{"sent": sent}); perr != nil {
				return perr
			}
		} else {
			fmt.Printf("%d overdue alert(s) sent\n", sent)
		}
		return err
	},
}
