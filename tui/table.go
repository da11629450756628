package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

var (
	tableBorderColor = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#AAAAAA"}
	tableBorderStyle = lipgloss.NewStyle().Foreground(tableBorderColor)
)

func Table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorderStyle).
		Headers(headers...).
		Rows(rows...).
		String()
}

// RenderErrors lays out GraphQL errors as a table of message, path,
// source locations and the extensions code.
func RenderErrors(errs gqlerror.List) string {
	if len(errs) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(errs))
	for _, e := range errs {
		if e == nil {
			continue
		}
		locs := make([]string, 0, len(e.Locations))
		for _, l := range e.Locations {
			locs = append(locs, fmt.Sprintf("%d:%d", l.Line, l.Column))
		}
		code := ""
		if c, ok := e.Extensions["code"]; ok {
			code = fmt.Sprint(c)
		}
		rows = append(rows, []string{e.Message, e.Path.String(), strings.Join(locs, ","), code})
	}
	return Title(fmt.Sprintf("%d GraphQL error(s)", len(rows))) + "\n" + Table([]string{"Message", "Path", "Location", "Code"}, rows)
}
