package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/asynkron/gopatch/internal/stat"
	"github.com/asynkron/gopatch/pkg/patch"
)

const statBarWidth = 50

type printer struct {
	out    io.Writer
	errOut io.Writer

	heading lipgloss.Style
	status  map[string]lipgloss.Style
	note    lipgloss.Style
	success lipgloss.Style
	failed  lipgloss.Style
	plus    lipgloss.Style
	minus   lipgloss.Style
}

func newPrinter(out, errOut io.Writer, noColor bool) *printer {
	outRenderer := lipgloss.NewRenderer(out)
	errRenderer := lipgloss.NewRenderer(errOut)
	if noColor {
		outRenderer.SetColorProfile(termenv.Ascii)
		errRenderer.SetColorProfile(termenv.Ascii)
	}
	return &printer{
		out:     out,
		errOut:  errOut,
		heading: outRenderer.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		status: map[string]lipgloss.Style{
			"A": outRenderer.NewStyle().Foreground(lipgloss.Color("2")),
			"M": outRenderer.NewStyle().Foreground(lipgloss.Color("33")),
			"D": outRenderer.NewStyle().Foreground(lipgloss.Color("1")),
		},
		note:    outRenderer.NewStyle().Foreground(lipgloss.Color("244")),
		success: outRenderer.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		failed:  errRenderer.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		plus:    outRenderer.NewStyle().Foreground(lipgloss.Color("2")),
		minus:   outRenderer.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

func (p *printer) results(patchPath string, results []patch.Result) {
	fmt.Fprintln(p.out, p.heading.Render(patchPath))
	for _, result := range results {
		style, ok := p.status[result.Status]
		if !ok {
			style = p.note
		}
		fmt.Fprintf(p.out, "  %s %s\n", style.Render(result.Status), result.Path)
		for _, hunk := range result.Hunks {
			if hunk.Offset == 0 {
				continue
			}
			fmt.Fprintf(p.out, "    %s\n", p.note.Render(fmt.Sprintf("hunk #%d applied at offset %+d (patch line %d)", hunk.Number, hunk.Offset, hunk.Line)))
		}
	}
}

func (p *printer) done(verb string, count int) {
	noun := "patches"
	if count == 1 {
		noun = "patch"
	}
	fmt.Fprintln(p.out, p.success.Render(fmt.Sprintf("%d %s %s", count, noun, verb)))
}

func (p *printer) failure(patchPath string, err error) {
	header := "error"
	if patchPath != "" {
		header = fmt.Sprintf("error: %s", patchPath)
	}
	fmt.Fprintln(p.errOut, p.failed.Render(header))

	message := err.Error()
	var pe *patch.Error
	if errors.As(err, &pe) {
		message = patch.FormatError(pe)
	}
	for _, line := range strings.Split(message, "\n") {
		fmt.Fprintf(p.errOut, "  %s\n", line)
	}
}

func (p *printer) stat(patchPath string, summary stat.Summary) {
	fmt.Fprintln(p.out, p.heading.Render(patchPath))
	width := 0
	for _, file := range summary.Files {
		width = max(width, len(file.Path))
	}
	for _, file := range summary.Files {
		plus, minus := summary.Bar(file, statBarWidth)
		fmt.Fprintf(p.out, " %-*s | %d %s%s\n", width, file.Path, file.Insertions+file.Deletions,
			p.plus.Render(plus), p.minus.Render(minus))
	}
	fmt.Fprintln(p.out, summary.Total())
}
