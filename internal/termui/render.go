// Package termui renders panel models for the terminal.
package termui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"budgetboard/internal/core"
	"budgetboard/internal/view"
)

// Flexoki dark.
var (
	colorBorder = lipgloss.Color("#403E3C")
	colorDim    = lipgloss.Color("#575653")
	colorMuted  = lipgloss.Color("#878580")
	colorText   = lipgloss.Color("#FFFCF0")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
	colorRed    = lipgloss.Color("#D14D41")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	labelStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	valueStyle   = lipgloss.NewStyle().Foreground(colorText)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	incomeStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	expenseStyle = lipgloss.NewStyle().Foreground(colorRed)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
)

func toneStyle(t core.Tone) lipgloss.Style {
	switch t {
	case core.ToneIncome:
		return incomeStyle
	case core.ToneExpense:
		return expenseStyle
	default:
		return valueStyle
	}
}

// message renders the loading, error and empty texts.
func message(phase view.Phase, text string) string {
	if phase == view.PhaseError {
		return errorStyle.Render(text)
	}
	return labelStyle.Render(text)
}

// RenderSummary draws the summary panel. An inert panel is just its title.
func RenderSummary(m view.SummaryModel) string {
	lines := []string{titleStyle.Render(m.Title)}

	switch m.Phase {
	case view.PhaseLoading, view.PhaseError, view.PhaseEmpty:
		lines = append(lines, message(m.Phase, m.Message))
	case view.PhaseReady:
		rows := [][2]string{
			{"Total Received:", incomeStyle.Render(m.TotalReceived)},
			{"Total Spent:", expenseStyle.Render(m.TotalSpent)},
			{"Net Balance:", toneStyle(m.NetTone).Render(m.NetBalance)},
		}
		for i, row := range rows {
			if i == 2 {
				lines = append(lines, dimStyle.Render(strings.Repeat("─", 28)))
			}
			lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render(fmt.Sprintf("%-15s", row[0])), row[1]))
		}
		lines = append(lines, valueStyle.Render(m.Comparison))
	}

	return panelStyle.Render(strings.Join(lines, "\n"))
}

// RenderRecords draws the record list as a table, newest first as given.
func RenderRecords(m view.RecordsModel) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.Title))
	b.WriteString("\n")

	if m.Message != "" {
		b.WriteString(message(m.Phase, m.Message))
		b.WriteString("\n")
	}
	if len(m.Items) == 0 {
		return b.String()
	}

	headers := []string{"Date", "Category", "Description", "Amount"}
	rows := make([][]string, len(m.Items))
	for i, it := range m.Items {
		rows[i] = []string{it.Date, it.Category, it.Description, it.Amount}
	}
	widths := columnWidths(headers, rows)

	b.WriteString(border("╭", "┬", "╮", widths))
	b.WriteString(tableRow(headers, widths, func(int) lipgloss.Style { return titleStyle }))
	b.WriteString(border("├", "┼", "┤", widths))
	for i, row := range rows {
		tone := toneStyle(m.Items[i].Tone)
		b.WriteString(tableRow(row, widths, func(col int) lipgloss.Style {
			if col == len(widths)-1 {
				return tone
			}
			return valueStyle
		}))
	}
	b.WriteString(border("╰", "┴", "╯", widths))
	return b.String()
}

func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func border(left, mid, right string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("─", w+2)
	}
	return dimStyle.Render(left+strings.Join(parts, mid)+right) + "\n"
}

// tableRow pads every cell to its column; the amount column is right-aligned.
func tableRow(cells []string, widths []int, style func(col int) lipgloss.Style) string {
	var b strings.Builder
	b.WriteString(dimStyle.Render("│"))
	for i, cell := range cells {
		pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		padded := " " + cell + pad + " "
		if i == len(cells)-1 {
			padded = " " + pad + cell + " "
		}
		b.WriteString(style(i).Render(padded))
		b.WriteString(dimStyle.Render("│"))
	}
	b.WriteString("\n")
	return b.String()
}
