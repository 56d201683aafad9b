// Package output provides formatting and rendering utilities for CLI output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/prysmsh/tpsdk/internal/style"
)

// Format represents the output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatQuiet Format = "quiet"
)

var formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatQuiet}

// String implements pflag.Value.
func (f *Format) String() string { return string(*f) }

// Set implements pflag.Value, rejecting unknown formats at flag parse time.
func (f *Format) Set(s string) error {
	v := Format(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(formats, v) {
		return fmt.Errorf("unknown format %q (want table, json, yaml or quiet)", s)
	}
	*f = v
	return nil
}

// Type implements pflag.Value.
func (f *Format) Type() string { return "format" }

// Writer handles formatted output.
type Writer struct {
	format Format
	out    io.Writer
	err    io.Writer
}

// NewWriter creates a new output writer with the given format.
func NewWriter(format string) *Writer {
	return NewWriterTo(format, os.Stdout, os.Stderr)
}

// NewWriterTo is NewWriter with explicit streams.
func NewWriterTo(format string, out, errOut io.Writer) *Writer {
	f := Format(strings.ToLower(format))
	if f == "" {
		f = FormatTable
	}
	return &Writer{
		format: f,
		out:    out,
		err:    errOut,
	}
}

// Format returns the current output format.
func (w *Writer) Format() Format {
	return w.format
}

// Out is the writer's standard output.
func (w *Writer) Out() io.Writer {
	return w.out
}

// JSON outputs data as formatted JSON.
func (w *Writer) JSON(data any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// YAML outputs data as YAML. Values are routed through JSON first so that
// custom MarshalJSON methods shape the document.
func (w *Writer) YAML(data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var generic any
	if err := yaml.Unmarshal(b, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w.out)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// Render prints data in the writer's format; table is used for the table
// format and quiet prints nothing.
func (w *Writer) Render(data any, table func(tw *tabwriter.Writer)) error {
	switch w.format {
	case FormatJSON:
		return w.JSON(data)
	case FormatYAML:
		return w.YAML(data)
	case FormatQuiet:
		return nil
	default:
		tw := w.Table()
		table(tw)
		return tw.Flush()
	}
}

// Table creates a new tabwriter for aligned table output.
func (w *Writer) Table() *tabwriter.Writer {
	return tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
}

// Success prints a success message with a green checkmark.
func (w *Writer) Success(format string, args ...any) {
	if w.format == FormatQuiet {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(w.out, style.Success.Render("✅ "+msg))
}

// Warning prints a warning message in yellow.
func (w *Writer) Warning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(w.err, style.Warning.Render("⚠️  "+msg))
}

// Error prints an error message in red.
func (w *Writer) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(w.err, style.Error.Render("❌ "+msg))
}

// Info prints an info message in cyan.
func (w *Writer) Info(format string, args ...any) {
	if w.format == FormatQuiet {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(w.out, style.Info.Render("ℹ️  "+msg))
}

// Print writes to stdout.
func (w *Writer) Print(format string, args ...any) {
	fmt.Fprintf(w.out, format, args...)
}

// Println writes a line to stdout.
func (w *Writer) Println(args ...any) {
	fmt.Fprintln(w.out, args...)
}

// StatusColor returns a colored session phase or check result.
func StatusColor(status string) string {
	switch strings.ToLower(status) {
	case "paired", "running", "ok", "valid", "success":
		return style.Success.Render(status)
	case "closed", "failed", "error", "invalid":
		return style.Error.Render(status)
	case "connecting", "closing", "warning":
		return style.Warning.Render(status)
	default:
		return status
	}
}
