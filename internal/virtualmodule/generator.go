// Package virtualmodule renders demo configurations as the source text of the
// "virtual:demos" module imported by the gallery application.
package virtualmodule

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/conduit-lang/gallery/internal/demos"
	"github.com/conduit-lang/gallery/internal/jsstring"
)

const (
	// PublicID is the identifier the application imports
	PublicID = "virtual:demos"

	// ResolvedID marks the module as not backed by a file
	ResolvedID = "\x00" + PublicID

	// ExportName is the single binding the module exports
	ExportName = "configs"
)

// Generate renders configs as module source. Equal inputs always produce
// byte-identical output.
func Generate(configs []demos.Config) string {
	entries := make([]string, len(configs))
	for i, config := range configs {
		entries[i] = formatEntry(config.Descriptor())
	}

	var sb strings.Builder
	sb.WriteString("export const ")
	sb.WriteString(ExportName)
	sb.WriteString(" = [\n")
	sb.WriteString(strings.Join(entries, ",\n"))
	sb.WriteString("\n]\n")
	return sb.String()
}

// GenerateDefault renders the module for an empty configuration list
func GenerateDefault() string {
	return Generate(nil)
}

func formatEntry(d demos.Descriptor) string {
	fields := [][2]string{
		{"id", jsstring.Quote(d.ID)},
		{"type", jsstring.Quote(string(d.Type))},
		{"title", optional(d.Title)},
		{"description", optional(d.Description)},
	}

	switch d.Type {
	case demos.KindHTML:
		fields = append(fields, [2]string{"html", jsstring.Quote(d.HTML)})
	case demos.KindComponent:
		// Spliced as code so the bundler sees a static import
		fields = append(fields, [2]string{"component", string(d.Component)})
	}

	keys := make([]string, 0, len(d.Extra))
	for key := range d.Extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fields = append(fields, [2]string{propertyKey(key), literal(d.Extra[key])})
	}

	lines := make([]string, len(fields))
	for i, f := range fields {
		lines[i] = fmt.Sprintf("    %s: %s", f[0], f[1])
	}

	return "  {\n" + strings.Join(lines, ",\n") + "\n  }"
}

func optional(s *string) string {
	if s == nil {
		return "undefined"
	}
	return jsstring.Quote(*s)
}

// literal renders a pass-through config value. JSON is valid JavaScript
// for every value a JSON document can hold.
func literal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "undefined"
	}
	return string(data)
}

func propertyKey(key string) string {
	if isIdentifier(key) {
		return key
	}
	return jsstring.Quote(key)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
