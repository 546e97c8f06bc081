// Package output handles CLI rendering: text and JSON modes, terminal
// styling, tables and number formatting.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Mode selects the output format.
type Mode string

const (
	ModeText Mode = "text"
	ModeJSON Mode = "json"
)

// ParseMode validates an output mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeText, ModeJSON:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// Renderer writes command output in the selected mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	styles *Styles
}

// NewRenderer creates a renderer. Colors are dropped when noColor is
// set or the mode is JSON.
func NewRenderer(out, errOut io.Writer, mode Mode, noColor bool) *Renderer {
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		styles: NewStyles(noColor || mode == ModeJSON),
	}
}

// Mode returns the active output mode.
func (r *Renderer) Mode() Mode { return r.mode }

// Writer returns the output writer for direct use.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the error writer.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Styles returns the terminal styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a line to the output writer.
func (r *Renderer) Println(a ...any) {
	fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to the output writer.
func (r *Renderer) Printf(format string, a ...any) {
	fmt.Fprintf(r.out, format, a...)
}

// Errorln writes a line to the error writer.
func (r *Renderer) Errorln(a ...any) {
	fmt.Fprintln(r.errOut, a...)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders a table with the given header and rows.
func (r *Renderer) Table(header []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	h := make(table.Row, len(header))
	for i, c := range header {
		h[i] = c
	}
	t.AppendHeader(h)

	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, c := range row {
			tr[i] = c
		}
		t.AppendRow(tr)
	}
	t.Render()
}
