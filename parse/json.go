package parse

import (
	"encoding/json"
	"regexp"
	"strings"

	ai "github.com/spetersoncode/reins"
)

var (
	fencedBlockRe   = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// parseStructured locates JSON-shaped snippets (fenced code blocks first,
// then bare objects and arrays) and decodes any that qualify as action
// requests. An object qualifies if it has a name field ("name" or "tool")
// and a map-valued arguments field ("arguments" or "params").
func parseStructured(text string) []ai.ActionRequest {
	for _, m := range fencedBlockRe.FindAllStringSubmatch(text, -1) {
		if reqs := decodeActions(m[1]); len(reqs) > 0 {
			return reqs
		}
	}
	for _, snippet := range jsonCandidates(text) {
		if reqs := decodeActions(snippet); len(reqs) > 0 {
			return reqs
		}
	}
	return nil
}

// jsonCandidates returns balanced object and array spans found by direct
// scanning, outermost first.
func jsonCandidates(text string) []string {
	var out []string
	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		end := scanBalanced(text, i)
		if end < 0 {
			continue
		}
		out = append(out, text[i:end+1])
		i = end
	}
	return out
}

// scanBalanced returns the index of the delimiter closing the object or
// array opening at start, respecting string literals and escapes.
// Returns -1 when the span never closes.
func scanBalanced(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// repairJSON fixes the near-miss syntax models commonly emit: smart quotes
// and trailing commas.
func repairJSON(s string) string {
	r := strings.NewReplacer(
		"“", `"`, // left double quote
		"”", `"`, // right double quote
		"‘", "'", // left single quote
		"’", "'", // right single quote
	)
	s = r.Replace(s)
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

// decodeActions decodes a JSON snippet into action requests. It accepts a
// single qualifying object or an array of them; anything else yields nil.
func decodeActions(snippet string) []ai.ActionRequest {
	snippet = repairJSON(strings.TrimSpace(snippet))
	if snippet == "" {
		return nil
	}

	switch snippet[0] {
	case '{':
		var obj map[string]any
		if err := json.Unmarshal([]byte(snippet), &obj); err != nil {
			return nil
		}
		if req, ok := actionFromObject(obj); ok {
			return []ai.ActionRequest{req}
		}
	case '[':
		var arr []map[string]any
		if err := json.Unmarshal([]byte(snippet), &arr); err != nil {
			return nil
		}
		var reqs []ai.ActionRequest
		for _, obj := range arr {
			if req, ok := actionFromObject(obj); ok {
				reqs = append(reqs, req)
			}
		}
		return reqs
	}
	return nil
}

// actionFromObject normalizes a decoded object into the canonical
// ActionRequest shape. The accepted field synonyms (name/tool,
// arguments/params) are resolved here so no downstream code branches on
// encoding variants.
func actionFromObject(obj map[string]any) (ai.ActionRequest, bool) {
	name := stringField(obj, "name", "tool")
	if name == "" {
		return ai.ActionRequest{}, false
	}

	rawArgs, present := firstField(obj, "arguments", "params")
	if !present {
		return ai.ActionRequest{}, false
	}
	args, ok := rawArgs.(map[string]any)
	if !ok {
		// Argument payload is not a map; discard this request silently.
		return ai.ActionRequest{}, false
	}

	req := ai.NewToolAction(name, args)
	if id := stringField(obj, "id"); id != "" {
		req.ID = id
	}
	return req, true
}

func stringField(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := obj[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func firstField(obj map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	return nil, false
}
