package ui

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"jiradataset/pkg/checkpoint"
)

// PrintCounts prints a per-project table followed by a total. Projects are
// listed in order; projects missing from order follow alphabetically.
func PrintCounts(title, unit string, order []string, counts map[string]int) {
	fmt.Fprintln(Output, Magenta(title))

	w := tabwriter.NewWriter(Output, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  PROJECT\t%s\n", unit)

	total := 0
	for _, project := range orderedKeys(order, counts) {
		fmt.Fprintf(w, "  %s\t%d\n", project, counts[project])
		total += counts[project]
	}
	fmt.Fprintf(w, "  %s\t%d\n", "TOTAL", total)
	w.Flush()
}

// PrintCheckpoints prints the stored checkpoint of every project
func PrintCheckpoints(entries map[string]checkpoint.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(Output, Dim("No checkpoints recorded"))
		return
	}

	w := tabwriter.NewWriter(Output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  PROJECT\tLAST PAGE\tUPDATED")
	for _, project := range orderedKeys(nil, entries) {
		e := entries[project]
		fmt.Fprintf(w, "  %s\t%d\t%s\n", project, e.LastFetchedPage, e.UpdatedAt().Format(time.RFC3339))
	}
	w.Flush()
}

func orderedKeys[V any](order []string, m map[string]V) []string {
	seen := make(map[string]bool, len(m))
	keys := make([]string, 0, len(m))
	for _, k := range order {
		if _, ok := m[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}

	var rest []string
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
