// Package extract turns unreliable free-form model output into validated,
// strictly-typed structures.
package extract

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var ErrNoObject = errors.New("no JSON object found in model output")

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

var quoteReplacer = strings.NewReplacer(
	"“", `"`, // left double quotation mark
	"”", `"`, // right double quotation mark
	"„", `"`, // double low-9 quotation mark
	"‘", `'`, // left single quotation mark
	"’", `'`, // right single quotation mark
)

// Parse recovers the first JSON object from raw model output. The ladder is
// ordered cheapest-safe-transformation first so valid output is never
// rewritten:
//
//  1. direct parse
//  2. the substring from the first '{' to the last '}'
//  3. that substring after textual repairs (code fences, smart quotes,
//     trailing commas), then the first balanced object inside it
//
// Returns the JSON bytes of the recovered object.
func Parse(raw string) ([]byte, error) {
	if doc, ok := tryObject(raw); ok {
		return doc, nil
	}

	sub, ok := braceSubstring(stripFences(raw))
	if !ok {
		return nil, ErrNoObject
	}
	if doc, ok := tryObject(sub); ok {
		return doc, nil
	}

	repaired := trailingCommaRe.ReplaceAllString(quoteReplacer.Replace(sub), "$1")
	if doc, ok := tryObject(repaired); ok {
		return doc, nil
	}
	if balanced, ok := firstBalancedObject(repaired); ok {
		if doc, ok := tryObject(balanced); ok {
			return doc, nil
		}
	}

	return nil, ErrNoObject
}

// tryObject reports whether s parses as a single JSON object.
func tryObject(s string) ([]byte, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &probe); err != nil {
		return nil, false
	}
	return []byte(s), true
}

// braceSubstring cuts from the first '{' to the last '}'.
func braceSubstring(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// stripFences removes markdown code fence lines, keeping their contents.
func stripFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// firstBalancedObject scans for the first brace-balanced object, honouring
// string literals and escapes, so a truncated tail after a complete object
// does not spoil the parse.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
