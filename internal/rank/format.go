// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/expert-engine/pkg/types"
)

// FormatTable writes ranked authors as a human-readable table to w.
func FormatTable(results []types.RankedResult, w io.Writer) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No experts found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-10s  %-30s  %-6s  %-6s  %-6s  %s\n",
		"Rank", "ID", "Name", "Score", "Text", "Graph", "Articles")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for i, r := range results {
		name := r.DisplayName
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		fmt.Fprintf(w, "%-4d  %-10s  %-30s  %-6.3f  %-6.3f  %-6.3f  %d\n",
			i+1, r.AuthorID, name, r.Score, r.TextScore, r.Centrality, len(r.Contributions))
	}

	fmt.Fprintf(w, "\n%d experts\n", len(results))
}

// FormatJSON writes ranked authors as indented JSON to w.
func FormatJSON(results []types.RankedResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
