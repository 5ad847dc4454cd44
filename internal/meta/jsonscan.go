package meta

import (
	"encoding/json"
	"strings"
)

// FindFirstJSONObject returns the first brace-balanced span of text that is a
// valid JSON object, re-serialized with two-space indentation. Key order is
// kept; a repeated key keeps its first position and its last value.
func FindFirstJSONObject(text string) (string, bool) {
	// ends memoizes brace matches once the first candidate fails; see matchBrace
	var ends []int32

	cursor := 0
	for {
		offset := strings.IndexByte(text[cursor:], '{')
		if offset < 0 {
			return "", false
		}
		start := cursor + offset

		var (
			end int
			ok  bool
		)
		if ends != nil && ends[start] != 0 {
			end, ok = int(ends[start]), ends[start] > 0
		} else {
			end, ok = matchBrace(text, start, ends)
		}

		if ok {
			if pretty, valid := reformatJSON(text[start:end]); valid {
				return pretty, true
			}
		}

		if ends == nil {
			ends = make([]int32, len(text))
			matchBrace(text, start, ends)
		}
		cursor = start + 1
	}
}

// balancedObject returns text[start:end] where end is the first point after
// start at which brace depth returns to zero
func balancedObject(text string, start int) (string, bool) {
	end, ok := matchBrace(text, start, nil)
	if !ok {
		return "", false
	}
	return text[start:end], true
}

// matchBrace scans from the '{' at start and returns the offset just past
// the brace that brings depth back to zero. Braces inside double-quoted
// strings are ignored; a backslash inside a string escapes the next byte.
// All delimiters are ASCII, so scanning bytes is safe for UTF-8 input.
//
// When ends is non-nil, every '{' met outside a string during the scan gets
// its own result recorded: end offset when it closed, -1 when it never did.
// A scan from any of those braces would see the same string boundaries, so
// later candidates can reuse the answer instead of rescanning.
func matchBrace(text string, start int, ends []int32) (int, bool) {
	var open []int
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]
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
			open = append(open, i)
		case '}':
			last := open[len(open)-1]
			open = open[:len(open)-1]
			if ends != nil {
				ends[last] = int32(i + 1)
			}
			if len(open) == 0 {
				return i + 1, true
			}
		}
	}

	if ends != nil {
		for _, pos := range open {
			ends[pos] = -1
		}
	}
	return 0, false
}

func reformatJSON(candidate string) (string, bool) {
	if !json.Valid([]byte(candidate)) {
		return "", false
	}
	root, err := parseOrdered(candidate)
	if err != nil || root.kind != kindObject {
		return "", false
	}
	return formatJSON(root), true
}
