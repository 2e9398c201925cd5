package trade

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteTable renders requests as an aligned table (spec.md §4.5: "display
// tabularly"), the Go analogue of the original's tabulate(..., grid) call.
func WriteTable(w io.Writer, title string, requests []Request) {
	fmt.Fprintln(w, title)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "tr_id\tcurrency\tquantity\ttype")
	for _, r := range requests {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.TRID, r.Currency, r.Quantity.String(), r.Type)
	}
	tw.Flush()
}
