package params

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var closingDelimiters = map[byte]byte{'(': ')', '{': '}', '[': ']', '<': '>'}

// CompilePHPRegexp compiles a delimited expression such as "/foo(\d+)/i".
// Supported modifiers are i, m, s and U; u is accepted and ignored.
func CompilePHPRegexp(expr string) (*regexp.Regexp, error) {
	if len(expr) < 2 {
		return nil, fmt.Errorf("regular expression %q is missing delimiters", expr)
	}
	open := expr[0]
	if open == '\\' || open < 0x20 || open > 0x7e || unicode.IsLetter(rune(open)) || unicode.IsDigit(rune(open)) || unicode.IsSpace(rune(open)) {
		return nil, fmt.Errorf("regular expression %q has an invalid delimiter", expr)
	}
	closing := open
	if c, ok := closingDelimiters[open]; ok {
		closing = c
	}

	end := strings.LastIndexByte(expr, closing)
	if end <= 0 {
		return nil, fmt.Errorf("regular expression %q has no closing delimiter", expr)
	}
	pattern := expr[1:end]

	var flags string
	for _, m := range expr[end+1:] {
		switch m {
		case 'i', 'm', 's', 'U':
			if !strings.ContainsRune(flags, m) {
				flags += string(m)
			}
		case 'u':
		default:
			return nil, fmt.Errorf("unsupported regular expression modifier %q", m)
		}
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %q: %w", expr, err)
	}
	return re, nil
}

// ConvertReplacement rewrites $1, ${1} and \1 references into the ${1} form and
// escapes any other dollar sign.
func ConvertReplacement(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c == '$' || c == '\\') && i+1 < len(s) {
			if j := scanDigits(s, i+1); j > i+1 {
				b.WriteString("${" + s[i+1:j] + "}")
				i = j - 1
				continue
			}
			if c == '$' && s[i+1] == '{' {
				if end := strings.IndexByte(s[i+2:], '}'); end > 0 {
					if scanDigits(s, i+2) == i+2+end {
						b.WriteString(s[i : i+3+end])
						i += 2 + end
						continue
					}
				}
			}
		}
		if c == '$' {
			b.WriteString("$$")
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func scanDigits(s string, from int) int {
	j := from
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	return j
}
