// Package ai implements the chat advisor plumbing: response shape
// extraction, stream decoding, the Gemini HTTP client and prompt assembly.
package ai

import (
	"encoding/json"
	"fmt"
	"sort"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// shapeMatcher pairs a JMESPath expression with a name for debugging. The
// expression selects a candidate value; the extractor decides whether the
// selection is usable.
type shapeMatcher struct {
	name string
	expr jmespath.JMESPath
}

func mustMatcher(name, expr string) shapeMatcher {
	compiled, err := jmespath.Compile(expr)
	if err != nil {
		panic(fmt.Sprintf("compile shape matcher %s: %v", name, err))
	}
	return shapeMatcher{name: name, expr: compiled}
}

// partMatchers select parts arrays whose elements carry a text field.
// stringMatchers select a plain string. Order matters: first match wins.
var (
	partMatchers = []shapeMatcher{
		mustMatcher("delta_parts", "delta.content.parts"),
		mustMatcher("first_candidate_parts", "candidates[0].content.parts"),
		mustMatcher("all_candidate_parts", "candidates[].content.parts[]"),
	}
	stringMatchers = []shapeMatcher{
		mustMatcher("text", "text"),
		mustMatcher("response", "response"),
		mustMatcher("answer", "answer"),
	}
	contentPartsMatcher = mustMatcher("content_parts", "content.parts")
)

// ExtractText pulls human-readable text out of an arbitrary decoded JSON
// value. It recognizes the streaming and non-streaming response shapes of
// common generation backends, then falls back to the first string leaf found
// by breadth-first traversal, then to a pretty-printed serialization. It
// never panics and always returns a string.
func ExtractText(v any) string {
	if v == nil {
		return coerce(v)
	}

	for _, m := range partMatchers {
		if text, ok := searchParts(m, v); ok {
			return text
		}
	}
	for _, m := range stringMatchers {
		if found, err := m.expr.Search(v); err == nil {
			if s, ok := found.(string); ok {
				return s
			}
		}
	}
	if text, ok := searchParts(contentPartsMatcher, v); ok {
		return text
	}

	if s, ok := firstStringLeaf(v); ok {
		return s
	}

	return coerce(v)
}

// searchParts evaluates a matcher expecting a non-empty parts array and
// concatenates the text field of each element. Elements without a text field
// contribute an empty string.
func searchParts(m shapeMatcher, v any) (string, bool) {
	found, err := m.expr.Search(v)
	if err != nil {
		return "", false
	}
	parts, ok := found.([]any)
	if !ok || len(parts) == 0 {
		return "", false
	}

	var out string
	for _, part := range parts {
		obj, ok := part.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := obj["text"].(string); ok {
			out += text
		}
	}
	return out, true
}

// firstStringLeaf walks the value breadth first and returns the first string
// leaf. Decoded JSON objects carry no key order, so map children are visited
// in sorted-key order to keep the result deterministic.
func firstStringLeaf(v any) (string, bool) {
	queue := []any{v}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		switch n := node.(type) {
		case string:
			return n, true
		case map[string]any:
			keys := make([]string, 0, len(n))
			for k := range n {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				queue = append(queue, n[k])
			}
		case []any:
			queue = append(queue, n...)
		}
	}
	return "", false
}

func coerce(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
