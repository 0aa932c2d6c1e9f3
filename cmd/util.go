package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/paytrust/pkg/client"
)

var (
	greenCheck = color.GreenString("✔")
	redCross   = color.RedString("✘")

	bold  = color.New(color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
)

func applyTableFormat(t table.Writer) {
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.Style().Options.DrawBorder = true
}

// logError logs err together with the correlation id of the failed request
// and returns a short error for cobra.
func logError(err error, correlation, msg string) error {
	ev := log.Error().Err(err)
	if correlation != "" {
		ev = ev.Str("correlation_id", correlation)
	}
	if errors.Is(err, client.ErrInvalidSession) {
		ev.Msg(msg)
		return fmt.Errorf("%s: admin token missing or invalid, run 'paytrust token' and set PAYTRUST_TOKEN", msg)
	}
	ev.Msg(msg)
	return fmt.Errorf("%s: %w", msg, err)
}

// readInput reads a literal argument, "@path" or "-" for stdin.
func readInput(arg string) (string, error) {
	switch {
	case arg == "-":
		data, err := os.ReadFile("/dev/stdin")
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	case strings.HasPrefix(arg, "@"):
		data, err := os.ReadFile(strings.TrimPrefix(arg, "@"))
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", arg[1:], err)
		}
		return string(data), nil
	default:
		return arg, nil
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
