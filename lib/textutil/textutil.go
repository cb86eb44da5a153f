package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases the input, replaces every run of non-alphanumeric
// characters with a single hyphen and trims leading/trailing hyphens.
// Applying it to an already-slugified string is a no-op.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

var nonPriceChars = regexp.MustCompile(`[^0-9.]`)

// ParsePrice converts free-form currency text like "$1,234.50" to a
// numeric value. It reports false when nothing numeric remains, so
// text like "Market Price" comes back absent rather than zero.
func ParsePrice(text string) (float64, bool) {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
