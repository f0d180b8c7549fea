package scraper

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// ParseCount reads the first element matching selector and parses its text as
// a listing count. ok is false when the element is missing or its text does not
// start with a number; the count is then 0.
func ParseCount(doc *goquery.Document, selector string) (count int, ok bool) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return 0, false
	}
	return parseLeadingInt(sel.Text())
}

// parseLeadingInt drops thousands separators and parses the leading run of
// digits, so "1,234 jobs" yields 1234.
func parseLeadingInt(text string) (int, bool) {
	s := strings.TrimLeftFunc(strings.ReplaceAll(text, ",", ""), unicode.IsSpace)

	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}

	n, err := strconv.Atoi(sign + s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
