package invoice

import "strings"

// FormatRTN groups the digits of a Honduran RTN as 0000-0000-000000. Input
// that contains anything besides digits, spaces and dashes is kept trimmed
// but otherwise untouched, so placeholders like 0801-XXXX-XXXXXX survive.
func FormatRTN(raw string) string {
	raw = strings.TrimSpace(raw)
	var digits strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '-' || r == ' ':
		default:
			return raw
		}
	}
	d := digits.String()
	if len(d) > 14 {
		d = d[:14]
	}
	switch {
	case len(d) <= 4:
		return d
	case len(d) <= 8:
		return d[:4] + "-" + d[4:]
	default:
		return d[:4] + "-" + d[4:8] + "-" + d[8:]
	}
}
