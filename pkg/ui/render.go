package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"dexql/pkg/types"
)

// Renderer formats results with one set of styles.
type Renderer struct {
	styles Styles
}

func NewRenderer(styles Styles) *Renderer {
	return &Renderer{styles: styles}
}

// Result renders rows as a bordered table followed by a status line.
func (r *Renderer) Result(title string, columns []string, rows [][]any, elapsed time.Duration) string {
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			cells[i][j] = FormatCell(v)
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.styles.Border).
		Headers(columns...).
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return r.styles.Header
			case row >= 0 && row < len(rows) && col < len(rows[row]) && rows[row][col] == nil:
				return r.styles.Null
			default:
				return r.styles.Cell
			}
		})

	status := fmt.Sprintf("%d %s in %s", len(rows), plural(len(rows), "row", "rows"), elapsed.Round(time.Microsecond))
	return lipgloss.JoinVertical(lipgloss.Left,
		r.styles.Title.Render(title),
		t.Render(),
		r.styles.Status.Render(status),
	)
}

// Plan renders an explained plan in a box.
func (r *Renderer) Plan(explain string) string {
	return r.styles.Plan.Render(strings.TrimRight(explain, "\n"))
}

func (r *Renderer) Error(err error) string {
	return r.styles.Error.Render("ERROR: " + err.Error())
}

// FormatCell prints a value the way the String type renders it; nulls
// print as NULL.
func FormatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	s, err := types.String.Value(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s.(string)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
