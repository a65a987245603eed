// ColorStdoutRenderer prints human-friendly, colorized fleet tables to STDOUT.
package render

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"robotfleet/internal/fleet"
)

const (
	colorReset   = "\x1b[0m"
	colorDefault = "\x1b[39m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorBlue    = "\x1b[34m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutRenderer prints the fleet as a table using ANSI colors.
// Critical robots are red, pending locations gray.
type ColorStdoutRenderer struct {
	out io.Writer
}

// NewColorStdoutRenderer creates a ColorStdoutRenderer writing to os.Stdout.
func NewColorStdoutRenderer() *ColorStdoutRenderer {
	return &ColorStdoutRenderer{out: os.Stdout}
}

// Render implements fleet.Renderer.
func (r *ColorStdoutRenderer) Render(vm fleet.ViewModel) error {
	fmt.Fprintf(r.out, "%s[%s]%s %sversion=%d%s robots=%d critical=%d pending=%d\n",
		colorGray, vm.UpdatedAt.Format(time.RFC3339), colorReset,
		colorBlue, vm.Version, colorReset,
		len(vm.Robots), vm.CriticalCount(), vm.PendingCount())

	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%sID%s\t%sCITY%s\tSTATUS\tBATTERY\tCPU\tRAM\tLAST UPDATED\n",
		colorDefault, colorReset, colorDefault, colorReset)
	for _, rb := range vm.Robots {
		color := colorGreen
		if rb.Critical {
			color = colorRed
		}
		// Colored columns carry codes of the same length in every row,
		// header included, so tabwriter keeps them aligned.
		cityColor := colorDefault
		if !rb.Resolved {
			cityColor = colorGray
		}
		city := cityColor + rb.Label() + colorReset
		fmt.Fprintf(tw, "%s%s%s\t%s\t%s\t%d%%\t%.1f%%\t%.0f MB\t%s\n",
			color, rb.ID, colorReset, city, rb.Status(), rb.BatteryPercent,
			rb.CPUPercent, rb.RAMMegabytes, rb.LastUpdated)
	}
	return tw.Flush()
}
