package formatter

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"relnotes/internal/models"
)

// cellEscaper keeps pipes and line breaks in cell values from splitting a table row.
var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>", "\r", "<br>")

// FormatRowsTable renders rows as a markdown table with the header row first.
// Columns are padded to their display width so CJK text lines up.
func FormatRowsTable(rows []models.Row) string {
	table := make([][]string, 0, len(rows)+2)
	header := models.HeaderRow()

	table = append(table, header)

	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}

	table = append(table, sep)

	for _, r := range rows {
		cols := r.Columns()
		for i, c := range cols {
			cols[i] = cellEscaper.Replace(c)
		}

		table = append(table, cols)
	}

	return strings.Join(alignTable(table, 1), "\n")
}

// alignTable pads every cell to its column's display width. The row at
// separatorRowIdx, if any, is redrawn as dashes.
func alignTable(table [][]string, separatorRowIdx int) []string {
	colCount := 0
	for _, row := range table {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	colWidths := make([]int, colCount)

	for rIdx, row := range table {
		if rIdx == separatorRowIdx {
			continue
		}

		for i, cell := range row {
			if width := runewidth.StringWidth(cell); width > colWidths[i] {
				colWidths[i] = width
			}
		}
	}

	// Minimum width for "---".
	for i := range colWidths {
		if colWidths[i] < 3 {
			colWidths[i] = 3
		}
	}

	result := make([]string, 0, len(table))

	for i, row := range table {
		var sb strings.Builder

		sb.WriteString("|")

		for j := 0; j < colCount; j++ {
			sb.WriteString(" ")

			if i == separatorRowIdx {
				sb.WriteString(strings.Repeat("-", colWidths[j]))
			} else {
				content := ""
				if j < len(row) {
					content = row[j]
				}

				sb.WriteString(content)

				if padding := colWidths[j] - runewidth.StringWidth(content); padding > 0 {
					sb.WriteString(strings.Repeat(" ", padding))
				}
			}

			sb.WriteString(" |")
		}

		result = append(result, sb.String())
	}

	return result
}
