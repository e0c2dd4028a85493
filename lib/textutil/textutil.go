package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return name
}

// SignificantWords splits a product name into the words that carry
// enough signal for cross-wholesaler matching. Short filler words are
// dropped.
func SignificantWords(name string) []string {
	var out []string
	for _, word := range strings.Fields(NormalizeName(name)) {
		word = strings.Trim(word, ".,;:()[]\"'")
		if len(word) > 3 {
			out = append(out, word)
		}
	}
	return out
}

var priceCleanRegex = regexp.MustCompile(`[^0-9,.]`)

// ParsePrice parses a price rendered in the comma-decimal convention
// used by the target catalogs: "123,45" -> 123.45, "1 234,00" -> 1234.00
// (regular or non-breaking spaces as thousands separators, comma as the
// decimal separator, dots treated as grouping). Returns false when no
// number can be recovered.
func ParsePrice(raw string) (float64, bool) {
	raw = priceCleanRegex.ReplaceAllString(raw, "")
	if raw == "" {
		return 0, false
	}

	raw = strings.ReplaceAll(raw, ".", "")
	raw = strings.Replace(raw, ",", ".", 1)
	if i := strings.Index(raw, ","); i >= 0 {
		raw = raw[:i]
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
