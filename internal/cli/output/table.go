package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// TableData collects the rows of one rendered table, such as the connected
// user roster.
type TableData struct {
	headers []string
	rows    [][]string
}

// NewTableData creates an empty table with the given column headers.
func NewTableData(headers ...string) *TableData {
	return &TableData{headers: headers}
}

// AddRow appends one row. Callers pass cells in header order.
func (t *TableData) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// PrintTable renders the table borderless with left-aligned columns, the
// style every glide command uses.
func PrintTable(w io.Writer, t *TableData) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader(t.headers)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, row := range t.rows {
		table.Append(row)
	}

	table.Render()
	return nil
}
