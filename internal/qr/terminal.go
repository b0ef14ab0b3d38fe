package qr

import (
	"io"
	"strings"
)

// WriteTerminal draws modules using half block characters, two module rows
// per line, so a code fits in a terminal at a readable aspect ratio.
func WriteTerminal(w io.Writer, modules [][]bool) error {
	var b strings.Builder

	for y := 0; y < len(modules); y += 2 {
		for x := range modules[y] {
			top := modules[y][x]
			bottom := y+1 < len(modules) && modules[y+1][x]

			// dark modules print as spaces so the code reads on dark terminals
			switch {
			case top && bottom:
				b.WriteString(" ")
			case top:
				b.WriteString("▄")
			case bottom:
				b.WriteString("▀")
			default:
				b.WriteString("█")
			}
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
