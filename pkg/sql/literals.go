package sql

import "strings"

// MaskLiterals returns sqlText with the contents of every quoted literal or
// quoted identifier replaced by spaces. The quote characters themselves are
// kept so byte offsets in the result match the input.
//
// Recognized quoting: '...' (with '' doubling), "...", `...` and [...].
// When backslashEscapes is set, a backslash inside '...' escapes the next byte.
func MaskLiterals(sqlText string, backslashEscapes bool) string {
	masked, _ := maskLiterals(sqlText, backslashEscapes)
	return masked
}

// maskLiterals also reports whether every quote was closed.
func maskLiterals(sqlText string, backslashEscapes bool) (string, bool) {
	var b strings.Builder
	b.Grow(len(sqlText))

	var closer byte
	inside := false

	for i := 0; i < len(sqlText); i++ {
		c := sqlText[i]

		if !inside {
			switch c {
			case '\'':
				closer = '\''
			case '"':
				closer = '"'
			case '`':
				closer = '`'
			case '[':
				closer = ']'
			default:
				b.WriteByte(c)
				continue
			}
			inside = true
			b.WriteByte(c)
			continue
		}

		switch {
		case closer == '\'' && backslashEscapes && c == '\\' && i+1 < len(sqlText):
			b.WriteString("  ")
			i++
		case c == closer && i+1 < len(sqlText) && sqlText[i+1] == closer && closer != ']':
			// doubled quote stays inside the literal
			b.WriteString("  ")
			i++
		case c == closer:
			inside = false
			b.WriteByte(c)
		default:
			b.WriteByte(' ')
		}
	}

	return b.String(), !inside
}
