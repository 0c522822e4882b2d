package client

// render.go writes a list of persons to a terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"})
	nameStyle   = lipgloss.NewStyle().Bold(true)
	phoneStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "2", Dark: "10"})
	noneStyle   = lipgloss.NewStyle().Faint(true)
	idStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})
	columnStyle = lipgloss.NewStyle().PaddingRight(2)
)

const noPhone = "(no phone)"

// Render writes persons as a list, one line per person with name, phone, address (if fetched) and id
func Render(w io.Writer, persons []Person) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Persons (%d)", len(persons))))
	b.WriteString("\n")
	if len(persons) == 0 {
		b.WriteString(noneStyle.Render("  no persons"))
		b.WriteString("\n")
	}

	nameWidth, phoneWidth, addrWidth := 0, len(noPhone), 0
	for _, p := range persons {
		nameWidth = max(nameWidth, lipgloss.Width(p.Name))
		if p.Phone != nil {
			phoneWidth = max(phoneWidth, lipgloss.Width(*p.Phone))
		}
		if p.Address != nil {
			addrWidth = max(addrWidth, lipgloss.Width(address(p.Address)))
		}
	}

	for _, p := range persons {
		cols := []string{
			"  ",
			columnStyle.Width(nameWidth + 2).Render(nameStyle.Render(p.Name)),
		}
		if p.Phone != nil {
			cols = append(cols, columnStyle.Width(phoneWidth+2).Render(phoneStyle.Render(*p.Phone)))
		} else {
			cols = append(cols, columnStyle.Width(phoneWidth+2).Render(noneStyle.Render(noPhone)))
		}
		if addrWidth > 0 {
			cols = append(cols, columnStyle.Width(addrWidth+2).Render(address(p.Address)))
		}
		cols = append(cols, idStyle.Render(p.ID))
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func address(a *Address) string {
	if a == nil {
		return ""
	}
	return a.Street + ", " + a.City
}
