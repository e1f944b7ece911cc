package token

import (
	"strconv"
	"strings"
)

// Position is a location in source text. Line and Column are 1-based;
// Column counts runes. The zero value is an unknown position.
type Position struct {
	Offset int
	Line   int
	Column int
}

// IsValid reports whether p refers to an actual source location.
func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	if !p.IsValid() {
		return "-"
	}

	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// Snippet renders the source line containing p followed by a caret under
// its column:
//
//	  3 | x = "abc
//	          ^
//
// It returns the empty string if p lies outside source.
func Snippet(source string, p Position) string {
	if !p.IsValid() {
		return ""
	}

	lines := strings.Split(source, "\n")
	if p.Line > len(lines) {
		return ""
	}

	line := strings.TrimRight(lines[p.Line-1], "\r")
	num := strconv.Itoa(p.Line)

	var b strings.Builder

	b.WriteString("  ")
	b.WriteString(num)
	b.WriteString(" | ")
	b.WriteString(line)
	b.WriteByte('\n')

	// 2 leading spaces + " | "
	b.WriteString(strings.Repeat(" ", len(num)+5))

	col := 1
	for _, r := range line {
		if col >= p.Column {
			break
		}

		// Keep tabs so the caret lines up with the echoed source.
		if r == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}

		col++
	}

	for ; col < p.Column; col++ {
		b.WriteByte(' ')
	}

	b.WriteString("^\n")

	return b.String()
}
