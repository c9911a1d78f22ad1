// Package report writes command results as text, JSON, YAML, TOML, XML or
// through a Handlebars template.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/aymerick/raymond"
	"github.com/beevik/etree"
	"github.com/mattn/go-runewidth"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatXML  Format = "xml"
)

// Formats lists the accepted formats.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatTOML, FormatXML}

// ParseFormat maps a flag value onto a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case "yml":
		return FormatYAML, nil
	case FormatJSON, FormatYAML, FormatTOML, FormatXML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want one of %s)", s, joinFormats())
	}
}

func joinFormats() string {
	parts := make([]string, len(Formats))
	for i, f := range Formats {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}

// Options selects how a value is written.
type Options struct {
	Format Format
	// Template, when set, is a Handlebars template rendered against the
	// value's JSON form. It takes precedence over Format.
	Template string
	// Root names the document element of XML output.
	Root string
}

// Write renders v to w. Text output is delegated to text.
func Write(w io.Writer, opts Options, v any, text func(io.Writer) error) error {
	if opts.Template != "" {
		data, err := generic(v)
		if err != nil {
			return err
		}
		out, err := raymond.Render(opts.Template, data)
		if err != nil {
			return fmt.Errorf("render template: %w", err)
		}
		_, err = io.WriteString(w, out)
		return err
	}

	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		data, err := generic(v)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		data, err := generic(v)
		if err != nil {
			return err
		}
		if _, ok := data.(map[string]any); !ok {
			data = map[string]any{"items": data}
		}
		if err := toml.NewEncoder(w).Encode(dropNulls(data)); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	case FormatXML:
		out, err := XML(opts.Root, v)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		if text == nil {
			return fmt.Errorf("no text rendering available")
		}
		return text(w)
	}
}

// generic round-trips v through JSON so every encoder and template sees the
// same field names.
func generic(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return normalizeNumbers(out), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

// dropNulls removes null map values and array items, which TOML cannot
// represent.
func dropNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			if e != nil {
				out[k] = dropNulls(e)
			}
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, e := range t {
			if e != nil {
				out = append(out, dropNulls(e))
			}
		}
		return out
	default:
		return v
	}
}

// XML renders v as an indented document. Object keys become elements in
// sorted order and array items become <item> elements.
func XML(root string, v any) ([]byte, error) {
	if root == "" {
		root = "report"
	}
	data, err := generic(v)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	appendValue(doc.CreateElement(root), data)
	doc.Indent(2)

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write xml: %w", err)
	}
	return buf.Bytes(), nil
}

func appendValue(el *etree.Element, v any) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			appendValue(el.CreateElement(k), t[k])
		}
	case []any:
		for _, e := range t {
			appendValue(el.CreateElement("item"), e)
		}
	case nil:
	case string:
		el.SetText(t)
	case bool:
		el.SetText(strconv.FormatBool(t))
	default:
		el.SetText(fmt.Sprint(t))
	}
}

// Table writes rows under headers with columns padded to their display
// width.
func Table(w io.Writer, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}

	line := func(cells []string) error {
		var b strings.Builder
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if i == len(widths)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
		return err
	}

	if err := line(headers); err != nil {
		return err
	}
	rule := make([]string, len(headers))
	for i, n := range widths {
		rule[i] = strings.Repeat("-", n)
	}
	if err := line(rule); err != nil {
		return err
	}
	for _, row := range rows {
		if err := line(row); err != nil {
			return err
		}
	}
	return nil
}
