package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// thinkTagPattern matches <think>...</think> tags that may appear at the start of LLM responses.
var thinkTagPattern = regexp.MustCompile(`(?s)^[\s]*<think>.*?</think>[\s]*`)

// fencePattern matches markdown code fences with an optional language tag.
var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\n?(.*?)```")

// leadingZeroPattern matches numeric literals with redundant leading zeros
// ("00.95", "007"). Applied only outside string literals.
var leadingZeroPattern = regexp.MustCompile(`(^|[\s:,\[])(-?)0+(\d)`)

// ExtractJSON extracts JSON content from an LLM response that may contain
// <think> tags, markdown code blocks, or other formatting.
func ExtractJSON(response string) (string, error) {
	// Strip <think>...</think> tags from the start of the response
	cleaned := thinkTagPattern.ReplaceAllString(response, "")

	// Find the first occurrence of { or [ to determine JSON type
	objStart := strings.IndexByte(cleaned, '{')
	arrStart := strings.IndexByte(cleaned, '[')

	// Try whichever comes first (or the one that exists)
	if objStart >= 0 && (arrStart < 0 || objStart < arrStart) {
		if jsonStr, ok := extractBalancedJSON(cleaned, '{', '}'); ok {
			if json.Valid([]byte(jsonStr)) {
				return jsonStr, nil
			}
		}
	}

	if arrStart >= 0 {
		if jsonStr, ok := extractBalancedJSON(cleaned, '[', ']'); ok {
			if json.Valid([]byte(jsonStr)) {
				return jsonStr, nil
			}
		}
	}

	// Last resort: check if the entire cleaned response is valid JSON
	trimmed := strings.TrimSpace(cleaned)
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	return "", fmt.Errorf("no valid JSON found in response")
}

// RepairJSON recovers a JSON object from a malformed model response. It
// strips markdown fences and <think> blocks, takes the first balanced
// {...} group, removes // and /* */ comments outside strings, rewrites
// numeric literals with redundant leading zeros, and drops duplicate
// top-level keys keeping the first occurrence. Text around the object is
// discarded. Valid input passes through unchanged, so the function is
// idempotent.
func RepairJSON(response string) (string, error) {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")
	cleaned = stripFences(cleaned)
	cleaned = stripComments(cleaned)

	obj, ok := extractBalancedJSON(cleaned, '{', '}')
	if !ok {
		return "", fmt.Errorf("no balanced JSON object in response")
	}

	obj = normalizeLeadingZeros(obj)

	repaired, err := dropDuplicateTopLevelKeys(obj)
	if err != nil {
		return "", fmt.Errorf("repair JSON: %w", err)
	}
	return repaired, nil
}

// stripFences unwraps markdown code fences, keeping their contents.
func stripFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	return fencePattern.ReplaceAllString(s, "$1")
}

// stripComments removes // line comments and /* */ block comments that
// appear outside string literals.
func stripComments(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			out.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		if c == '"' {
			inString = true
			out.WriteByte(c)
			continue
		}

		if c == '/' && i+1 < len(s) {
			switch s[i+1] {
			case '/':
				for i < len(s) && s[i] != '\n' {
					i++
				}
				if i < len(s) {
					out.WriteByte('\n')
				}
				continue
			case '*':
				i += 2
				for i+1 < len(s) && !(s[i] == '*' && s[i+1] == '/') {
					i++
				}
				i++ // skip the closing '/'
				continue
			}
		}

		out.WriteByte(c)
	}

	return out.String()
}

// normalizeLeadingZeros rewrites "00.95" to "0.95" and "007" to "7" outside
// string literals.
func normalizeLeadingZeros(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	inString := false
	escaped := false
	segStart := 0

	flush := func(end int) {
		segment := s[segStart:end]
		out.WriteString(leadingZeroPattern.ReplaceAllString(segment, "${1}${2}${3}"))
		segStart = end
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
				out.WriteString(s[segStart : i+1])
				segStart = i + 1
			}
			continue
		}
		if c == '"' {
			flush(i)
			inString = true
			// string contents copied verbatim when the closing quote is seen
			segStart = i
		}
	}
	if inString {
		out.WriteString(s[segStart:])
	} else {
		flush(len(s))
	}

	return out.String()
}

// dropDuplicateTopLevelKeys keeps the first occurrence of each top-level key.
// Input that is not a JSON object, or has no duplicates, is returned as-is
// (after validation).
func dropDuplicateTopLevelKeys(s string) (string, error) {
	if !json.Valid([]byte(s)) {
		// Duplicate keys are valid JSON, so anything invalid here is beyond repair.
		return "", fmt.Errorf("not valid JSON after cleanup")
	}

	dec := json.NewDecoder(strings.NewReader(s))
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return s, nil
	}

	type entry struct {
		key   string
		value json.RawMessage
	}
	var entries []entry
	seen := make(map[string]bool)
	duplicates := false

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return "", err
		}
		key, ok := keyTok.(string)
		if !ok {
			return "", fmt.Errorf("unexpected token %v for object key", keyTok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return "", err
		}

		if seen[key] {
			duplicates = true
			continue
		}
		seen[key] = true
		entries = append(entries, entry{key: key, value: value})
	}

	if !duplicates {
		return s, nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteString(", ")
		}
		keyJSON, err := json.Marshal(e.key)
		if err != nil {
			return "", err
		}
		buf.Write(keyJSON)
		buf.WriteString(": ")
		buf.Write(e.value)
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

// extractBalancedJSON finds the first balanced JSON structure starting with openChar.
// It handles nested structures by counting bracket depth.
func extractBalancedJSON(s string, openChar, closeChar byte) (string, bool) {
	// Find the first occurrence of the opening bracket
	start := strings.IndexByte(s, openChar)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}

		if c == '\\' && inString {
			escaped = true
			continue
		}

		if c == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if c == openChar {
			depth++
		} else if c == closeChar {
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// ParseJSONResponse extracts JSON from a response and unmarshals it into the
// target, attempting repair when plain extraction fails.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		jsonStr, err = RepairJSON(response)
		if err != nil {
			return result, err
		}
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}

	return result, nil
}
