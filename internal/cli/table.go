package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
)

var (
	// Accent style for headers and query names
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA")).Bold(true)

	// Muted style for borders, nulls and summaries
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
)

const (
	nullCell     = "NULL"
	maxCellWidth = 40
)

// isTerminal reports whether stdout is a terminal. Styled output is only
// written to terminals.
func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// formatCell renders a result value for display.
func formatCell(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		return nullCell
	case string:
		s = x
	case []byte:
		s = fmt.Sprintf("\\x%x", x)
	case time.Time:
		s = x.Format(time.RFC3339)
	case float64:
		s = fmt.Sprintf("%g", x)
	default:
		s = fmt.Sprint(x)
	}
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) > maxCellWidth {
		s = string([]rune(s)[:maxCellWidth-1]) + "…"
	}
	return s
}

// renderTable renders a page of results. Without styling it falls back to
// tab-separated lines.
func renderTable(header []string, rows [][]any, styled bool) string {
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(header))
		for j := range header {
			var v any
			if j < len(row) {
				v = row[j]
			}
			cells[i][j] = formatCell(v)
		}
	}

	if !styled {
		var b strings.Builder
		b.WriteString(strings.Join(header, "\t"))
		b.WriteByte('\n')
		for _, row := range cells {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
		return b.String()
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(true).
		BorderStyle(Muted).
		Headers(header...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().PaddingRight(2)
			if row == table.HeaderRow {
				return Accent.PaddingRight(2)
			}
			if row >= 0 && row < len(cells) && col < len(cells[row]) && cells[row][col] == nullCell {
				return Muted.PaddingRight(2)
			}
			return style
		}).
		Rows(cells...)
	return tbl.Render() + "\n"
}
