// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gonfdez/minipc-agent/internal/pipeline"
	"github.com/gonfdez/minipc-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxFailuresToShow is the number of failed targets to display
	maxFailuresToShow = 5
)

// Printer handles formatted output for the CLI.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintSummary outputs a human-readable report of a finished batch run.
func (p *Printer) PrintSummary(summary *pipeline.Summary) {
	if summary == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Attempted: %d\n", summary.Attempted))
	sb.WriteString(fmt.Sprintf("Saved:     %d\n", summary.Saved))
	sb.WriteString(fmt.Sprintf("Skipped:   %d\n", summary.Skipped))
	sb.WriteString(fmt.Sprintf("Failed:    %d\n", summary.Failed))
	if summary.Conflicts > 0 {
		sb.WriteString(fmt.Sprintf("Conflicts: %d (need manual resolution)\n", summary.Conflicts))
	}
	sb.WriteString(fmt.Sprintf("Elapsed:   %s\n", summary.Elapsed.Round(time.Millisecond)))

	if len(summary.Failures) > 0 {
		sb.WriteString("\nFailed targets:\n")
		count := min(len(summary.Failures), maxFailuresToShow)
		for i := 0; i < count; i++ {
			f := summary.Failures[i]
			sb.WriteString(fmt.Sprintf("  • %s\n", f.Target.URL))
		}
		if len(summary.Failures) > maxFailuresToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(summary.Failures)-maxFailuresToShow))
		}
	}

	p.printBox("BATCH SUMMARY", sb.String())
}

// PrintRecord outputs a short human-readable view of one extracted record.
func (p *Printer) PrintRecord(rec *types.MiniPC) {
	if rec == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Brand:    %s\n", rec.Brand))
	sb.WriteString(fmt.Sprintf("Model:    %s\n", rec.Model))
	sb.WriteString(fmt.Sprintf("CPU:      %s %s\n", rec.CPU.Brand, rec.CPU.Model))
	if rec.Graphics.Model != "" {
		sb.WriteString(fmt.Sprintf("Graphics: %s %s\n", rec.Graphics.Brand, rec.Graphics.Model))
	}
	sb.WriteString(fmt.Sprintf("Variants: %d\n", len(rec.Variants)))
	for i, v := range rec.Variants {
		sb.WriteString(fmt.Sprintf("  • %dGB %s / %dGB %s", v.RAM.CapacityGB, v.RAM.Type, v.Storage.CapacityGB, v.Storage.Type))
		if len(v.Offers) > 0 {
			sb.WriteString(fmt.Sprintf(" (%d offers)", len(v.Offers)))
		}
		sb.WriteString("\n")
		if i >= maxFailuresToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(rec.Variants)-i-1))
			break
		}
	}

	p.printBox("EXTRACTED RECORD", sb.String())
}
