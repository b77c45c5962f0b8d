package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Table renders rows under a highlighted header line
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a table with the given headers
func NewTable(w io.Writer, noColor bool, headers ...string) *Table {
	return &Table{writer: w, headers: headers, noColor: noColor}
}

// AddRow adds a row; missing cells render empty
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = width(header)
	}
	for _, row := range t.rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], width(row[i]))
		}
	}

	header := t.color(color.Bold, color.FgCyan)
	rule := t.color(color.FgHiBlack)

	t.line(widths, t.headers, header)
	rules := make([]string, len(widths))
	for i, w := range widths {
		rules[i] = strings.Repeat("─", w)
	}
	t.line(widths, rules, rule)

	plain := t.color()
	for _, row := range t.rows {
		t.line(widths, row, plain)
	}
}

func (t *Table) line(widths []int, cells []string, c *color.Color) {
	parts := make([]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if i < len(widths)-1 {
			cell = padRight(cell, widths[i])
		}
		parts[i] = cell
	}
	c.Fprintln(t.writer, strings.Join(parts, "  "))
}

func (t *Table) color(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if t.noColor {
		c.DisableColor()
	}
	return c
}

// Summary renders aligned "key: value" lines
type Summary struct {
	writer  io.Writer
	keys    []string
	values  []string
	noColor bool
}

// NewSummary creates an empty summary
func NewSummary(w io.Writer, noColor bool) *Summary {
	return &Summary{writer: w, noColor: noColor}
}

// Add appends a line
func (s *Summary) Add(key string, value any) {
	s.keys = append(s.keys, key)
	s.values = append(s.values, fmt.Sprint(value))
}

// Render writes the summary
func (s *Summary) Render() {
	keyWidth := 0
	for _, key := range s.keys {
		keyWidth = max(keyWidth, width(key)+1)
	}

	cyan := color.New(color.FgCyan)
	if s.noColor {
		cyan.DisableColor()
	}
	for i, key := range s.keys {
		cyan.Fprint(s.writer, padRight(key+":", keyWidth))
		fmt.Fprintf(s.writer, " %s\n", s.values[i])
	}
}

func width(s string) int {
	return utf8.RuneCountInString(s)
}

func padRight(s string, w int) string {
	if n := width(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}
