package simprinter

import (
	"strconv"
	"strings"
	"unicode"
)

// line is one parsed G-code command, e.g. "G1 F3000 X10" becomes
// {code: "G1", args: {F: 3000, X: 10}}.
type line struct {
	code string
	args map[byte]float64
	// text is the raw argument string, for commands that take a filename.
	text string
}

func (l line) has(letter byte) bool {
	_, ok := l.args[letter]
	return ok
}

func (l line) get(letter byte, def float64) float64 {
	if v, ok := l.args[letter]; ok {
		return v
	}
	return def
}

// parseScript splits a newline-separated script into commands. Blank lines
// and comments are skipped.
func parseScript(script string) []line {
	var out []line
	for _, raw := range strings.Split(script, "\n") {
		if i := strings.IndexByte(raw, ';'); i >= 0 {
			raw = raw[:i]
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		out = append(out, parseLine(raw))
	}
	return out
}

func parseLine(raw string) line {
	fields := strings.Fields(raw)
	l := line{code: strings.ToUpper(fields[0]), args: make(map[byte]float64)}
	if len(fields) == 1 {
		return l
	}
	l.text = strings.TrimSpace(strings.TrimPrefix(raw, fields[0]))

	for _, f := range fields[1:] {
		letter := byte(unicode.ToUpper(rune(f[0])))
		if letter < 'A' || letter > 'Z' {
			continue
		}
		if f[1:] == "" {
			l.args[letter] = 0
			continue
		}
		if v, err := strconv.ParseFloat(f[1:], 64); err == nil {
			l.args[letter] = v
		}
	}
	return l
}
