package text

import (
	"strings"
)

// wikipedia dumps shipped with FEVER escape brackets and colons PTB style
var ptbReplacer = strings.NewReplacer(
	"-LRB-", "(",
	"-RRB-", ")",
	"-LSB-", "[",
	"-RSB-", "]",
	"-LCB-", "{",
	"-RCB-", "}",
	"-COLON-", ":",
)

// UnescapePTB replaces the -LRB- style escapes found in FEVER page ids and
// sentences with the characters they stand for.
func UnescapePTB(s string) string {
	return ptbReplacer.Replace(s)
}

// Normalize unescapes PTB brackets and trims surrounding spaces and
// newlines.
func Normalize(s string) string {
	return strings.Trim(UnescapePTB(s), " \n")
}
