package cli

import (
	"bufio"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const tablePadding = 2

// writeTable prints left-aligned columns. Widths ignore ANSI colour codes
// so styled cells line up with plain ones.
func writeTable(out io.Writer, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))
	measure := func(row []string) {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w := runewidth.StringWidth(stripANSI(cell)); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(headers)
	for _, row := range rows {
		measure(row)
	}
	if len(widths) == 0 {
		return nil
	}

	w := bufio.NewWriter(out)
	write := func(row []string) {
		for i := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			w.WriteString(cell)
			if i < len(widths)-1 {
				pad := widths[i] - runewidth.StringWidth(stripANSI(cell))
				w.WriteString(strings.Repeat(" ", max(pad, 0)+tablePadding))
			}
		}
		w.WriteString("\n")
	}
	if len(headers) > 0 {
		write(headers)
	}
	for _, row := range rows {
		write(row)
	}
	return w.Flush()
}

// stripANSI removes CSI escape sequences.
func stripANSI(value string) string {
	if !strings.Contains(value, "\x1b[") {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		if value[i] != 0x1b || i+1 >= len(value) || value[i+1] != '[' {
			b.WriteByte(value[i])
			continue
		}
		for i += 2; i < len(value); i++ {
			if ch := value[i]; ch >= 0x40 && ch <= 0x7e {
				break
			}
		}
	}
	return b.String()
}
