// Package output renders glide CLI results. The status and users commands
// query the admin API and print what comes back as a table for humans or as
// JSON/YAML for scripts.
package output

import (
	"fmt"
	"strings"
)

// Format selects how a command renders its result.
type Format string

const (
	// FormatTable is the default human-readable rendering.
	FormatTable Format = "table"
	// FormatJSON emits indented JSON.
	FormatJSON Format = "json"
	// FormatYAML emits YAML.
	FormatYAML Format = "yaml"
)

// ParseFormat maps an --output flag value to a Format. The empty string means
// table; "yml" is accepted as a yaml alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %q (valid: table, json, yaml)", s)
	}
}

func (f Format) String() string {
	return string(f)
}
