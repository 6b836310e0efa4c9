package output

import (
	"encoding/json"
	"io"
)

// PrintJSON writes v as indented JSON. Used for --output json so the admin
// API payloads stay pipeable into jq.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
