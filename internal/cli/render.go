package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leonletto/agent-browser/internal/protocol"
)

// Renderer writes worker responses and invocation errors for a human or,
// in JSON mode, as protocol records.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	json   bool
	probes []dataProbe

	outStyle palette
	errStyle palette
}

// palette holds the styles for one output stream.
type palette struct {
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	bold    lipgloss.Style
	dim     lipgloss.Style
}

func newPalette(w io.Writer, color bool) palette {
	lr := lipgloss.NewRenderer(w)
	if color {
		lr.SetColorProfile(termenv.ANSI)
	} else {
		lr.SetColorProfile(termenv.Ascii)
	}
	return palette{
		success: lr.NewStyle().Foreground(lipgloss.Color("2")),
		failure: lr.NewStyle().Foreground(lipgloss.Color("1")),
		warning: lr.NewStyle().Foreground(lipgloss.Color("3")),
		info:    lr.NewStyle().Foreground(lipgloss.Color("6")),
		bold:    lr.NewStyle().Bold(true),
		dim:     lr.NewStyle().Faint(true),
	}
}

// NewRenderer creates a renderer. Each stream is styled only when its
// colour flag is set; otherwise its output is plain text.
func NewRenderer(out, errOut io.Writer, jsonMode, outColor, errColor bool) *Renderer {
	r := &Renderer{
		out:      out,
		errOut:   errOut,
		json:     jsonMode,
		outStyle: newPalette(out, outColor),
		errStyle: newPalette(errOut, errColor),
	}
	r.probes = r.dataProbes()
	return r
}

// JSON reports whether the renderer is in JSON mode.
func (r *Renderer) JSON() bool { return r.json }

// Render writes resp. In JSON mode the record is written as received. In
// human mode a failure goes to the error stream only, and a success is
// rendered from the first payload field that matches.
func (r *Renderer) Render(resp *protocol.Response) error {
	if r.json {
		return r.writeRecord(resp)
	}

	if !resp.Success {
		msg := resp.ErrorMessage()
		if resp.Error == nil {
			msg = "Unknown error"
		}
		_, err := fmt.Fprintf(r.errOut, "%s %s\n", r.errStyle.failure.Render("✗ Error:"), msg)
		return err
	}

	if !resp.HasData() {
		return nil
	}
	value, err := resp.DataValue()
	if err != nil {
		return err
	}
	data, _ := value.(map[string]any)

	for _, p := range r.probes {
		if p.match(data) {
			return p.render(data)
		}
	}
	return r.line(r.outStyle.success.Render("✓") + " Done")
}

// RenderError reports an error raised before or instead of a worker
// response: a failure record in JSON mode, otherwise a line on the error
// stream.
func (r *Renderer) RenderError(err error) error {
	if r.json {
		return r.writeRecord(protocol.Failure(err.Error()))
	}
	_, werr := fmt.Fprintf(r.errOut, "%s %s\n", r.errStyle.failure.Render("✗ Error:"), err.Error())
	return werr
}

// UnknownCommand reports tokens that translate to no request.
func (r *Renderer) UnknownCommand(verb string) error {
	if r.json {
		return r.writeRecord(protocol.Failure("Unknown command: " + verb))
	}
	_, err := fmt.Fprintf(r.errOut, "%s %s\n%s\n",
		r.errStyle.failure.Render("Unknown command:"), verb, r.errStyle.dim.Render("Run: agent-browser --help"))
	return err
}

// Warn writes a non-fatal notice. JSON mode suppresses it so stdout stays
// a single record.
func (r *Renderer) Warn(msg string) {
	if r.json {
		return
	}
	_, _ = fmt.Fprintf(r.errOut, "%s %s\n", r.errStyle.warning.Render("⚠"), msg)
}

func (r *Renderer) writeRecord(resp *protocol.Response) error {
	b, err := protocol.Encode(resp)
	if err != nil {
		return err
	}
	_, err = r.out.Write(b)
	return err
}

func (r *Renderer) line(s string) error {
	_, err := fmt.Fprintln(r.out, s)
	return err
}

// dataProbe pairs a payload shape with its rendering.
type dataProbe struct {
	name   string
	match  func(data map[string]any) bool
	render func(data map[string]any) error
}

// dataProbes returns the payload shapes in priority order. The first probe
// that matches decides the whole output; other fields are ignored.
func (r *Renderer) dataProbes() []dataProbe {
	printString := func(key string) dataProbe {
		return dataProbe{
			name:  key,
			match: func(d map[string]any) bool { _, ok := stringField(d, key); return ok },
			render: func(d map[string]any) error {
				s, _ := stringField(d, key)
				return r.line(s)
			},
		}
	}
	printBool := func(key string) dataProbe {
		return dataProbe{
			name:  key,
			match: func(d map[string]any) bool { _, ok := d[key].(bool); return ok },
			render: func(d map[string]any) error {
				return r.line(fmt.Sprint(d[key].(bool)))
			},
		}
	}
	printPretty := func(key string) dataProbe {
		return dataProbe{
			name:   key,
			match:  func(d map[string]any) bool { _, ok := d[key]; return ok },
			render: func(d map[string]any) error { return r.pretty(d[key]) },
		}
	}
	printList := func(key string, item func(i int, entry map[string]any) string) dataProbe {
		return dataProbe{
			name:  key,
			match: func(d map[string]any) bool { _, ok := d[key].([]any); return ok },
			render: func(d map[string]any) error {
				for i, raw := range d[key].([]any) {
					entry, _ := raw.(map[string]any)
					if err := r.line(item(i, entry)); err != nil {
						return err
					}
				}
				return nil
			},
		}
	}

	return []dataProbe{
		{
			name: "url",
			match: func(d map[string]any) bool {
				_, ok := stringField(d, "url")
				return ok
			},
			render: func(d map[string]any) error {
				url, _ := stringField(d, "url")
				if title, ok := stringField(d, "title"); ok {
					return r.line(r.outStyle.success.Render("✓") + " " + r.outStyle.bold.Render(title) + "\n" + r.outStyle.dim.Render("  "+url))
				}
				return r.line(url)
			},
		},
		printString("snapshot"),
		printString("title"),
		printString("text"),
		printString("html"),
		printString("value"),
		{
			name: "count",
			match: func(d map[string]any) bool {
				_, ok := intField(d, "count")
				return ok
			},
			render: func(d map[string]any) error {
				n, _ := intField(d, "count")
				return r.line(fmt.Sprint(n))
			},
		},
		printBool("visible"),
		printBool("enabled"),
		printBool("checked"),
		printPretty("result"),
		printList("tabs", func(i int, tab map[string]any) string {
			title := stringOr(tab, "title", "Untitled")
			url := stringOr(tab, "url", "")
			marker := " "
			if active, _ := tab["active"].(bool); active {
				marker = "→"
			}
			return fmt.Sprintf("%s [%d] %s - %s", marker, i, title, url)
		}),
		printList("logs", func(_ int, entry map[string]any) string {
			level := stringOr(entry, "type", "log")
			return r.levelStyle(level).Render("["+level+"]") + " " + stringOr(entry, "text", "")
		}),
		printList("errors", func(_ int, entry map[string]any) string {
			return r.outStyle.failure.Render("✗") + " " + stringOr(entry, "message", "")
		}),
		printList("cookies", func(_ int, c map[string]any) string {
			return stringOr(c, "name", "") + "=" + stringOr(c, "value", "")
		}),
		printPretty("box"),
		{
			name:   "closed",
			match:  func(d map[string]any) bool { _, ok := d["closed"]; return ok },
			render: func(map[string]any) error { return r.line(r.outStyle.success.Render("✓") + " Browser closed") },
		},
		{
			name: "path",
			match: func(d map[string]any) bool {
				_, ok := stringField(d, "path")
				return ok
			},
			render: func(d map[string]any) error {
				path, _ := stringField(d, "path")
				return r.line(r.outStyle.success.Render("✓") + " Screenshot saved to " + path)
			},
		},
	}
}

func (r *Renderer) levelStyle(level string) lipgloss.Style {
	switch level {
	case "error":
		return r.outStyle.failure
	case "warning":
		return r.outStyle.warning
	case "info":
		return r.outStyle.info
	}
	return lipgloss.NewStyle()
}

// pretty writes v as indented JSON.
func (r *Renderer) pretty(v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := r.out.Write(buf.Bytes())
	return err
}

func stringField(d map[string]any, key string) (string, bool) {
	s, ok := d[key].(string)
	return s, ok
}

func stringOr(d map[string]any, key, def string) string {
	if s, ok := stringField(d, key); ok {
		return s
	}
	return def
}

// intField accepts integral numbers only; 2.5 is not a count.
func intField(d map[string]any, key string) (int64, bool) {
	n, ok := d[key].(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	return i, err == nil
}
