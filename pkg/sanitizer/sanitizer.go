package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reTrailingSpace = regexp.MustCompile(`[ \t]+\n`)
	reBlankLines    = regexp.MustCompile(`\n{3,}`)
)

func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

func unifyLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func dropControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, s)
}

func trimLineEnds(s string) string {
	return reTrailingSpace.ReplaceAllString(s, "\n")
}

func capBlankLines(s string) string {
	return reBlankLines.ReplaceAllString(s, "\n\n")
}

// NormalizeMessageContent cleans chat text while keeping its line structure.
// Whitespace-only content normalizes to "".
func NormalizeMessageContent(content string) string {
	p := Pipeline{
		unifyLineEndings,
		dropControlChars,
		trimLineEnds,
		capBlankLines,
		strings.TrimSpace,
	}
	return p.Apply(content)
}
