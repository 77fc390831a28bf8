package content

import (
	"encoding/json"
	"regexp"
	"strings"
)

var codeFencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)```")

// ExtractJSON pulls the first balanced top-level JSON object or array out of
// model output that may carry prose or code fences around it. Bracketed prose
// that does not parse is skipped. Returns "" when there is none.
func ExtractJSON(text string) string {
	return extract(text, "{[")
}

// ExtractObject is ExtractJSON restricted to objects, so a bracketed list in
// the surrounding prose is never mistaken for the payload.
func ExtractObject(text string) string {
	return extract(text, "{")
}

func extract(text, openers string) string {
	if m := codeFencePattern.FindStringSubmatch(text); len(m) > 1 {
		if s := firstValid(m[1], openers); s != "" {
			return s
		}
	}
	return firstValid(text, openers)
}

// firstValid walks every opener in order and returns the first balanced slice
// that is valid JSON once cleaned, ignoring brackets inside string literals.
func firstValid(s, openers string) string {
	for start := strings.IndexAny(s, openers); start >= 0; {
		if end := matchClose(s, start); end > start {
			if cleaned := cleanJSON(s[start : end+1]); json.Valid([]byte(cleaned)) {
				return cleaned
			}
		}
		next := strings.IndexAny(s[start+1:], openers)
		if next < 0 {
			return ""
		}
		start += next + 1
	}
	return ""
}

func matchClose(s string, start int) int {
	stack := make([]byte, 0, 8)
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

// cleanJSON strips // comments and trailing commas outside strings, both common in model output.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return stripTrailingCommas(strings.Join(lines, "\n"))
}

func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}
	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}

// stripTrailingCommas drops a comma, and the whitespace after it, when the
// next token is a closer. String contents are copied untouched.
func stripTrailingCommas(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			b.WriteByte(ch)
			continue
		}
		if ch == '"' {
			inString = true
		}
		if ch == ',' {
			j := i + 1
			for j < len(s) && strings.IndexByte(" \t\r\n", s[j]) >= 0 {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				i = j - 1
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}
