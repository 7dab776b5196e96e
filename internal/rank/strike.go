package rank

import (
	"regexp"
	"strconv"
	"strings"
)

// strikePattern matches the first dollar-ish numeric token in a market
// question, e.g. "$150", "1,234.5".
var strikePattern = regexp.MustCompile(`\$?([\d,]+(?:\.\d+)?)`)

// ExtractStrike parses the strike price from free-text question copy.
// Returns (0, false) when no numeric token is present.
func ExtractStrike(question string) (float64, bool) {
	m := strikePattern.FindStringSubmatch(question)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
