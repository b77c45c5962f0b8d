package demos

import "encoding/json"

// ConfigFileName is the optional per-demo configuration file
const ConfigFileName = ".config.json"

// Entry file names, checked in this order
const (
	HTMLEntryName      = "index.html"
	ComponentEntryName = "index.vue"
)

// Kind discriminates demo configurations
type Kind string

const (
	KindHTML      Kind = "html"
	KindComponent Kind = "component"
)

// Code is a source fragment that is spliced verbatim into the generated
// module instead of being quoted. It must never be built from untrusted input.
type Code string

// Config is the normalized configuration of one demo directory
type Config struct {
	ID          string
	Type        Kind
	Title       *string
	Description *string
	OnlyDev     bool

	// Dir is the absolute source directory. Build-facing only.
	Dir string

	// HTML is set for KindHTML: demos-root relative in production builds,
	// project-root relative in development.
	HTML string

	// Component and ImportFn are set for KindComponent
	Component string
	ImportFn  Code

	// Extra holds keys from the config file with no meaning to the scanner
	Extra map[string]any
}

// Descriptor is the application-facing view of a Config
type Descriptor struct {
	ID          string
	Type        Kind
	Title       *string
	Description *string
	HTML        string
	Component   Code
	Extra       map[string]any
}

// Descriptor strips build-only plumbing (Dir, OnlyDev, Component path)
func (c Config) Descriptor() Descriptor {
	d := Descriptor{
		ID:          c.ID,
		Type:        c.Type,
		Title:       c.Title,
		Description: c.Description,
		Extra:       c.Extra,
	}
	switch c.Type {
	case KindHTML:
		d.HTML = c.HTML
	case KindComponent:
		d.Component = c.ImportFn
	}
	return d
}

// fileConfig mirrors the recognised keys of the per-demo config file
type fileConfig struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	OnlyDev     *bool   `json:"onlyDev"`
}

// derivedKeys are owned by the scanner; config file values for them are dropped
var derivedKeys = map[string]struct{}{
	"id":           {},
	"type":         {},
	"dir":          {},
	"html":         {},
	"component":    {},
	"importFnText": {},
	"importFn":     {},
	"title":        {},
	"description":  {},
	"onlyDev":      {},
}

// parseConfigFile decodes a per-demo config file. The document must be a
// JSON object.
func parseConfigFile(data []byte) (*fileConfig, map[string]any, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}
	if raw == nil {
		return nil, nil, errNotObject
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, nil, err
	}

	var extra map[string]any
	for key, value := range raw {
		if _, ok := derivedKeys[key]; ok {
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return nil, nil, err
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[key] = v
	}

	return &fc, extra, nil
}
