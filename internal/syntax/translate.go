package syntax

import (
	"fmt"
	"sort"
	"unicode/utf16"
)

func utf16Width(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

// lineBounds returns the offsets of the first character of row and of the
// '\n' ending it (or the end of text on the last line).
func (t *Tree) lineBounds(row int) (int, int) {
	start := t.lines[row]
	end := len(t.text)
	if row+1 < len(t.lines) {
		end = t.lines[row+1] - 1
	}
	return start, end
}

// Offset converts a zero-based (row, UTF-16 column) position to an offset.
// The column may point just past the last character of the line.
func (t *Tree) Offset(row, col int) (int, error) {
	if row < 0 || row >= len(t.lines) || col < 0 {
		return 0, fmt.Errorf("%w: line %d, character %d", ErrOutOfRange, row, col)
	}
	start, end := t.lineBounds(row)
	units := 0
	for off := start; off < end; off++ {
		if units == col {
			return off, nil
		}
		units += utf16Width(t.text[off])
		if units > col {
			return 0, fmt.Errorf("%w: line %d, character %d splits a surrogate pair", ErrOutOfRange, row, col)
		}
	}
	if units == col {
		return end, nil
	}
	return 0, fmt.Errorf("%w: line %d has %d characters, got %d", ErrOutOfRange, row, units, col)
}

// Position converts an offset in [0, Len()] to a (row, UTF-16 column) pair.
func (t *Tree) Position(offset int) (int, int, error) {
	if offset < 0 || offset > len(t.text) {
		return 0, 0, fmt.Errorf("%w: offset %d not in [0,%d]", ErrOutOfRange, offset, len(t.text))
	}
	row := sort.Search(len(t.lines), func(i int) bool { return t.lines[i] > offset }) - 1
	col := 0
	for off := t.lines[row]; off < offset; off++ {
		col += utf16Width(t.text[off])
	}
	return row, col, nil
}
