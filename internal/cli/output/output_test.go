package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "table", input: "table", want: FormatTable},
		{name: "empty defaults to table", input: "", want: FormatTable},
		{name: "json", input: "json", want: FormatJSON},
		{name: "JSON uppercase", input: "JSON", want: FormatJSON},
		{name: "yaml", input: "yaml", want: FormatYAML},
		{name: "yml alias", input: "yml", want: FormatYAML},
		{name: "whitespace trimmed", input: "  table  ", want: FormatTable},
		{name: "invalid format", input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type userRow struct {
	Handle        string `json:"handle" yaml:"handle"`
	PendingOffers int    `json:"pending_offers" yaml:"pending_offers"`
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	err := PrintJSON(&buf, []userRow{{Handle: "alice", PendingOffers: 2}})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"handle": "alice"`)
	assert.Contains(t, buf.String(), `"pending_offers": 2`)
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	err := PrintYAML(&buf, []userRow{{Handle: "alice"}, {Handle: "bob"}})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "- handle: alice")
	assert.Contains(t, buf.String(), "- handle: bob")
}

func TestPrintTable(t *testing.T) {
	table := NewTableData("HANDLE", "PENDING OFFERS")
	table.AddRow("alice", "2")
	table.AddRow("bob", "0")

	var buf bytes.Buffer
	err := PrintTable(&buf, table)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "HANDLE")
	assert.Contains(t, out, "PENDING OFFERS")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "bob")
}
