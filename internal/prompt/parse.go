package prompt

import (
	"iter"
	"regexp"
	"slices"
	"strings"
)

// marker matches a leading enumeration such as "1.", "2)" or "Вариант 3:".
var marker = regexp.MustCompile(`^(?i:вариант\s*)?\d{1,2}[.):](?:\s+|$)`)

// Parse splits raw generated text on blank lines into trimmed segments with
// enumeration markers removed. Empty segments are skipped. The sequence can
// be ranged over any number of times with the same result.
func Parse(raw string) iter.Seq[string] {
	return func(yield func(string) bool) {
		var block []string
		flush := func() bool {
			if len(block) == 0 {
				return true
			}
			seg := cleanSegment(strings.Join(block, "\n"))
			block = block[:0]
			if seg == "" {
				return true
			}
			return yield(seg)
		}

		text := strings.ReplaceAll(raw, "\r\n", "\n")
		for line := range strings.Lines(text) {
			line = strings.TrimRight(line, "\n")
			if strings.TrimSpace(line) == "" {
				if !flush() {
					return
				}
				continue
			}
			block = append(block, line)
		}
		flush()
	}
}

// Segments collects Parse(raw).
func Segments(raw string) []string {
	return slices.Collect(Parse(raw))
}

func cleanSegment(s string) string {
	s = strings.TrimSpace(s)
	for {
		loc := marker.FindStringIndex(s)
		if loc == nil {
			return s
		}
		s = strings.TrimSpace(s[loc[1]:])
	}
}
