// Package render formats snapshots for the command line.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/HerbHall/hostsnap/internal/telemetry"
)

// Format represents the output format type.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// ParseFormat accepts json, yaml (or yml) and table, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "table":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json, yaml or table)", s)
	}
}

// Formatter writes snapshots in one format.
type Formatter struct {
	format Format
	writer io.Writer
}

// NewFormatter creates a new formatter.
func NewFormatter(format Format, writer io.Writer) *Formatter {
	return &Formatter{format: format, writer: writer}
}

// Render writes snap in the configured format.
func (f *Formatter) Render(snap *telemetry.Snapshot) error {
	switch f.format {
	case FormatJSON:
		return f.renderJSON(snap)
	case FormatYAML:
		return f.renderYAML(snap)
	case FormatTable:
		return f.renderTable(snap)
	default:
		return fmt.Errorf("unknown output format %q", f.format)
	}
}

func (f *Formatter) renderJSON(snap *telemetry.Snapshot) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func (f *Formatter) renderYAML(snap *telemetry.Snapshot) error {
	enc := yaml.NewEncoder(f.writer)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
