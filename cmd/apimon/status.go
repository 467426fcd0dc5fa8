package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/kabhi-dev/apimon/internal/store"
)

type statusStore interface {
	ListEndpoints(ctx context.Context) ([]store.Endpoint, error)
}

func executeStatus(out io.Writer, db statusStore) error {
	endpoints, err := db.ListEndpoints(context.Background())
	if err != nil {
		return fmt.Errorf("querying endpoints: %w", err)
	}

	if len(endpoints) == 0 {
		fmt.Fprintln(out, "No monitored endpoints. Add one via POST /api/endpoints.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tURL\tCATEGORY\tINTERVAL\tACTIVE\tSTATUS\tLAST CHECKED")
	for _, e := range endpoints {
		active := "yes"
		if !e.IsActive {
			active = "no"
		}
		last := "never"
		if e.LastCheckedAt != nil {
			last = e.LastCheckedAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%dm\t%s\t%s\t%s\n",
			e.ID, e.URL, e.Category, e.IntervalMinutes, active, e.LastStatus, last)
	}
	w.Flush()
	return nil
}
