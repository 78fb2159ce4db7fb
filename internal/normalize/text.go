// Package normalize cleans raw message text and canonicalizes place names.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	markdownPattern = regexp.MustCompile("\\*\\*|__|~~|`+")
	urlPattern      = regexp.MustCompile(`(?i)(?:https?://|www\.|t\.me/)\S+`)
	mentionPattern  = regexp.MustCompile(`@[A-Za-z0-9_]{3,}`)
	spacePattern    = regexp.MustCompile(`[ \t\x{00A0}\x{2000}-\x{200A}\x{202F}\x{205F}\x{3000}]+`)
)

// adMarkers identify promotional lines appended by channel admins
var adMarkers = []string{
	"підписатися",
	"підписуйтесь",
	"підпишись",
	"підпишіться",
	"наш канал",
	"наш чат",
	"реклама",
	"донат",
	"підтримати канал",
	"надіслати новину",
	"прислати новину",
}

// Text returns a cleaned copy of a raw message: markdown markers, links,
// mentions, promotional lines and emoji are removed and whitespace collapsed.
// Line structure is kept. Input that is not valid UTF-8 yields "".
func Text(raw string) string {
	if !utf8.ValidString(raw) {
		return ""
	}

	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = markdownPattern.ReplaceAllString(s, "")
	s = urlPattern.ReplaceAllString(s, "")
	s = mentionPattern.ReplaceAllString(s, "")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if isAdLine(line) {
			continue
		}
		line = strings.Map(dropDecorative, line)
		line = strings.TrimSpace(spacePattern.ReplaceAllString(line, " "))
		if !hasWordRune(line) {
			continue
		}
		out = append(out, line)
	}

	return strings.Join(out, "\n")
}

func isAdLine(line string) bool {
	lower := strings.ToLower(line)
	for _, marker := range adMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// dropDecorative maps emoji, pictographs and invisible joiners to nothing.
// Arrows carry direction and are folded into a single '→'.
func dropDecorative(r rune) rune {
	switch {
	case r == '\u200d', r == '\u200c', r == '\u20e3', r == '\u3164':
		return -1
	case r >= '\ufe00' && r <= '\ufe0f':
		return -1
	case isArrow(r):
		return '→'
	case r >= 0x1f000 && r <= 0x1faff:
		return -1
	case r == '•', r == '▪', r == '·':
		return ' '
	case unicode.Is(unicode.So, r), unicode.Is(unicode.Cs, r), unicode.Is(unicode.Co, r):
		return -1
	}
	return r
}

func isArrow(r rune) bool {
	return (r >= 0x2190 && r <= 0x21ff) ||
		(r >= 0x2794 && r <= 0x27bf) ||
		(r >= 0x2b00 && r <= 0x2b0d) ||
		(r >= 0x1f860 && r <= 0x1f8ff)
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// Key lowercases s, unifies apostrophe variants and collapses whitespace.
// Two spellings of the same place produce the same key.
func Key(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = apostropheReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

var apostropheReplacer = strings.NewReplacer("’", "'", "ʼ", "'", "`", "'", "‘", "'")
