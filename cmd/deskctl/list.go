package main

import (
	"github.com/spf13/cobra"

	"github.com/spec-kit/intake-desk/internal/service"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tickets, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("q")
		kind, _ := cmd.Flags().GetString("kind")
		status, _ := cmd.Flags().GetString("status")
		scan, _ := cmd.Flags().GetBool("scan")

		filter := service.ListFilter{Query: query, Kind: kind, Status: status}
		list := desk.Tickets.List
		if scan {
			list = desk.Tickets.Dashboard
		}
		views, err := list(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(views)
		}
		printTicketTable(views)
		return nil
	},
}

func init() {
	listCmd.Flags().String("q", "", "case-insensitive search over ticket, name, email and fields")
	listCmd.Flags().StringP("kind", "k", "", "filter by kind (contact, quote, project)")
	listCmd.Flags().StringP("status", "s", "", "filter by status (open, wip, resolved)")
	listCmd.Flags().Bool("scan", false, "also send overdue alerts, as the dashboard does")
}
