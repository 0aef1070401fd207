package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/JonMunkholm/netinventory/internal/importer"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(w io.Writer, header []any, rows ...[]any) error {
	table := tablewriter.NewTable(w)
	table.Header(header...)
	for _, row := range rows {
		if err := table.Append(row...); err != nil {
			return err
		}
	}
	return table.Render()
}

// printRunResult writes the per-phase summary of a run, then any warnings.
func printRunResult(w io.Writer, res *importer.RunResult) {
	title := "Import"
	if res.DryRun {
		title = "Import (dry run, rolled back)"
	}
	fmt.Fprintf(w, "%s %s in %s\n", title, res.RunID, res.Duration.Round(1e6))

	rows := make([][]any, 0, len(res.Phases))
	for _, pr := range res.Phases {
		status := "ok"
		if pr.Failed() {
			status = "rolled back: " + pr.Err
		}
		rows = append(rows, []any{pr.Phase, pr.Created, pr.Updated, pr.Unchanged, pr.Skipped, pr.Errors, status})
	}
	if err := renderTable(w, []any{"Phase", "Created", "Updated", "Unchanged", "Skipped", "Errors", "Status"}, rows...); err != nil {
		fmt.Fprintf(w, "render summary: %v\n", err)
	}

	c := res.Counts
	fmt.Fprintf(w, "Totals: %d regions, %d districts, %d branches, %d contacts, %d ATMs\n",
		c.Regions, c.Districts, c.Branches, c.Contacts, c.ATMs)

	for _, pr := range res.Phases {
		for _, warning := range pr.Warnings {
			fmt.Fprintf(w, "warning [%s]: %s\n", pr.Phase, warning)
		}
	}
	if res.Error != "" {
		fmt.Fprintf(w, "error: %s\n", res.Error)
	}
}
