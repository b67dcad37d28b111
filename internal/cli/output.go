package cli

import (
	"io"

	"github.com/fatih/color"

	"github.com/cpcf/treegen/logging"
)

var actionColors = map[string]*color.Color{
	"create":    color.New(color.FgGreen),
	"update":    color.New(color.FgYellow),
	"unchanged": color.New(color.FgHiBlack),
	"deleted":   color.New(color.FgRed),
	"kept":      color.New(color.FgYellow, color.Bold),
	"missing":   color.New(color.FgHiBlack),
}

// styleAction colors a report action when w is a terminal.
func styleAction(w io.Writer, action string) string {
	c, ok := actionColors[action]
	if !ok || color.NoColor || !logging.IsTerminal(w) {
		return action
	}
	return c.Sprint(action)
}
