// Package ui prints progress and run summaries to the terminal. Styling is
// only applied when the output is a terminal and NO_COLOR is unset.
package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gaurav-prasanna/constpipe/core"
	"github.com/gaurav-prasanna/constpipe/core/pipeline"
	"github.com/mattn/go-isatty"
)

const progressWidth = 24

// Styles holds the styles used by the Printer.
type Styles struct {
	Header  lipgloss.Style
	Label   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Bar     lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Bar:     lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Bar:     lipgloss.NewStyle(),
	}
}

// Printer writes human-readable output.
type Printer struct {
	out    io.Writer
	tty    bool
	styles Styles
}

// New creates a Printer for out.
func New(out io.Writer) *Printer {
	tty := IsTTY(out)
	styles := PlainStyles()
	if tty && !DetectNoColor() {
		styles = DefaultStyles()
	}
	return &Printer{out: out, tty: tty, styles: styles}
}

// Progress reports bytes processed against the document size. On a terminal
// the line is redrawn in place; otherwise one line is written per update.
func (p *Printer) Progress(done, total int) {
	if total <= 0 {
		return
	}
	if !p.tty {
		fmt.Fprintf(p.out, "processed %d/%d bytes\n", done, total)
		return
	}
	filled := done * progressWidth / total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressWidth-filled)
	fmt.Fprintf(p.out, "\r%s %d/%d bytes", p.styles.Bar.Render(bar), done, total)
	if done == total {
		fmt.Fprintln(p.out)
	}
}

// Success prints a confirmation line.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.out, p.styles.Success.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Warn prints a warning line.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.out, p.styles.Warning.Render("! "+fmt.Sprintf(format, args...)))
}

// Error prints an error line.
func (p *Printer) Error(err error) {
	fmt.Fprintln(p.out, p.styles.Error.Render("✗ "+err.Error()))
}

// Report prints the summary of an ingestion run.
func (p *Printer) Report(r *pipeline.Report) {
	if r == nil {
		return
	}
	title := "Ingestion complete"
	if r.DryRun {
		title = "Dry run complete"
	}
	fmt.Fprintln(p.out, p.styles.Header.Render(title))

	p.field("run", r.RunID)
	p.field("source", r.Source)
	if r.FromCache {
		p.field("fetched", fmt.Sprintf("%d bytes (cache)", r.Bytes))
	} else {
		p.field("fetched", fmt.Sprintf("%d bytes", r.Bytes))
	}
	p.field("elements", fmt.Sprint(r.Elements))
	p.field("documents", fmt.Sprint(r.Documents))

	kinds := make([]string, 0, len(r.Kinds))
	for k := range r.Kinds {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		p.field("  "+strings.ToLower(k), fmt.Sprint(r.Kinds[core.ElementKind(k)]))
	}

	if !r.DryRun {
		p.field("indexed", fmt.Sprintf("%d/%d in %d batches", r.Index.DocumentsSucceeded, r.Index.DocumentsAttempted, r.Index.BatchesAttempted))
		if len(r.Index.FailedBatches) > 0 {
			p.field("failed batches", strings.Trim(fmt.Sprint(r.Index.FailedBatches), "[]"))
		}
	}
	if r.Snapshot != "" {
		p.field("snapshot", r.Snapshot)
	}
	if !r.FinishedAt.IsZero() {
		p.field("duration", r.Duration().Round(time.Millisecond).String())
	}

	if !r.DryRun && r.Index.Partial() {
		p.Warn("%d documents were not indexed", r.Index.NotIndexed())
	}
}

func (p *Printer) field(label, value string) {
	fmt.Fprintf(p.out, "  %s %s\n", p.styles.Label.Render(fmt.Sprintf("%-15s", label)), value)
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}
