package tui

import "strings"

const glyphHeight = 5

// glyphs are the block characters for the full-screen clock.
var glyphs = map[rune][glyphHeight]string{
	'0': {"█████", "█   █", "█   █", "█   █", "█████"},
	'1': {"  ██ ", "   █ ", "   █ ", "   █ ", "  ███"},
	'2': {"█████", "    █", "█████", "█    ", "█████"},
	'3': {"█████", "    █", " ████", "    █", "█████"},
	'4': {"█   █", "█   █", "█████", "    █", "    █"},
	'5': {"█████", "█    ", "█████", "    █", "█████"},
	'6': {"█████", "█    ", "█████", "█   █", "█████"},
	'7': {"█████", "    █", "   █ ", "  █  ", "  █  "},
	'8': {"█████", "█   █", "█████", "█   █", "█████"},
	'9': {"█████", "█   █", "█████", "    █", "█████"},
	':': {"   ", " █ ", "   ", " █ ", "   "},
}

// bigClock renders text such as "05:00" in block digits. Unknown runes
// render as blanks.
func bigClock(text string) string {
	var rows [glyphHeight]strings.Builder
	for i, r := range text {
		g, ok := glyphs[r]
		if !ok {
			g = [glyphHeight]string{"     ", "     ", "     ", "     ", "     "}
		}
		for row := 0; row < glyphHeight; row++ {
			if i > 0 {
				rows[row].WriteString(" ")
			}
			rows[row].WriteString(g[row])
		}
	}

	lines := make([]string, glyphHeight)
	for row := range rows {
		lines[row] = rows[row].String()
	}
	return strings.Join(lines, "\n")
}
