package detect

import (
	"unicode"
	"unicode/utf8"
)

// token is one word of content with its byte span in the original text.
// The text is already lower-cased so downstream comparisons skip folding.
type token struct {
	text  string
	start int
	end   int
}

// tokenize splits content into lower-cased word tokens with byte offsets.
// A word is a maximal run of letters, digits, hyphens and underscores;
// everything else is a separator.
func tokenize(content string) []token {
	var tokens []token
	start := -1

	flush := func(end int) {
		if start < 0 {
			return
		}
		tokens = append(tokens, token{
			text:  lower(content[start:end]),
			start: start,
			end:   end,
		})
		start = -1
	}

	for i, r := range content {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(content))

	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'
}

// lower is a fast-path ToLower for the ASCII-dominated content we see.
func lower(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf || (s[i] >= 'A' && s[i] <= 'Z') {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}

	buf := make([]rune, 0, len(s))
	for _, r := range s {
		buf = append(buf, unicode.ToLower(r))
	}
	return string(buf)
}
