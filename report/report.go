// Package report formats a Simulator run's outcome for a human reader: a
// summary table, the warning list, and (on failure) the full error chain.
package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/cassiersg/matchi-go/vfyerr"
)

// Outcome is the terminal result of one Simulator.Run call.
type Outcome struct {
	Gadget     string
	CyclesRun  int
	Err        error
	Warnings   []vfyerr.Warning
}

// Write renders outcome as a title plus a summary table, followed by one
// line per warning and (on failure) the full error chain.
func Write(w io.Writer, o Outcome) {
	fmt.Fprintf(w, "matchi-go verification report: %s\n\n", o.Gadget)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Summary")
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"Cycles simulated", o.CyclesRun})
	t.AppendRow(table.Row{"Warnings", len(o.Warnings)})

	status := "PASS"
	if o.Err != nil {
		status = "FAIL"
	}
	t.AppendRow(table.Row{"Result", status})
	t.Render()
	fmt.Fprintln(w)

	if len(o.Warnings) > 0 {
		wt := table.NewWriter()
		wt.SetOutputMirror(w)
		wt.SetTitle("Warnings")
		wt.AppendHeader(table.Row{"#", "Location", "Message"})
		for i, wn := range o.Warnings {
			wt.AppendRow(table.Row{i + 1, wn.Frame.String(), wn.Msg})
		}
		wt.Render()
		fmt.Fprintln(w)
	}

	if o.Err != nil {
		fmt.Fprintln(w, "FAILURE:")
		var ve *vfyerr.Error
		if vfyerr.As(o.Err, &ve) {
			fmt.Fprintf(w, "  kind:     %s\n", ve.Kind)
			if loc := ve.Frame.String(); loc != "" {
				fmt.Fprintf(w, "  location: %s\n", loc)
			}
			fmt.Fprintf(w, "  message:  %s\n", ve.Msg)
			if ve.Cause != nil {
				fmt.Fprintf(w, "  cause:    %v\n", ve.Cause)
			}
		} else {
			fmt.Fprintf(w, "  %v\n", o.Err)
		}
	}
}
