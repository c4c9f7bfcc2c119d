package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spec-kit/intake-desk/internal/domain"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTicketTable(views []domain.View) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TICKET\tKIND\tSTATUS\tAGE(H)\tOVERDUE\tNAME\tEMAIL")
	for _, v := range views {
		overdue := ""
		if v.Overdue {
			overdue = "yes"
			if v.OverdueAlerted {
				overdue = "alerted"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%s\t%s\t%s\n",
			v.Ticket, v.Kind, v.Status, v.AgeHours, overdue, v.ContactName(), v.ContactEmail())
	}
	w.Flush()
	fmt.Printf("\n%d tickets\n", len(views))
}

func printTicket(v domain.View) {
	fmt.Printf("%s  [%s]  %s\n", v.Ticket, v.Status, v.Kind)
	fmt.Printf("Submitted: %s (%.1fh ago)\n", v.TS, v.AgeHours)
	if v.Overdue {
		fmt.Println("Overdue:   yes")
	}
	for _, f := range v.Fields {
		fmt.Printf("  %-16s %s\n", f.Label+":", f.Value)
	}
	for _, a := range v.Attachments {
		fmt.Printf("  attachment       %s\n", a)
	}
	if v.Note != "" {
		fmt.Printf("Note: %s\n", v.Note)
	}
	if len(v.History) > 0 {
		fmt.Println("History:")
		for _, h := range v.History {
			fmt.Printf("  %s  %-8s %-8s %s\n", h.TS, h.By, h.Status, h.Note)
		}
	}
}
