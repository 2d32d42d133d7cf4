package parse

import (
	"encoding/json"
	"regexp"
	"strings"

	ai "github.com/spetersoncode/reins"
)

var nameTagRe = regexp.MustCompile(`(?s)<(name|tool_name|tool)>(.*?)</(?:name|tool_name|tool)>`)

var (
	taskTagRe = regexp.MustCompile(`(?s)<task>(.*?)</task>`)
	argsTagRe = regexp.MustCompile(`(?s)<arguments>(.*?)</arguments>`)
)

// parseTagged extracts <tool_call> and <agent_call> regions. Blocks carrying
// a name sub-tag are decoded from their sub-tags; a block without one falls
// back to structured-JSON interpretation of its body.
func parseTagged(text string) []ai.ActionRequest {
	var reqs []ai.ActionRequest
	for _, body := range tagBodies(text, "tool_call") {
		if req, ok := toolFromTags(body); ok {
			reqs = append(reqs, req)
		} else {
			reqs = append(reqs, decodeActions(body)...)
		}
	}
	for _, body := range tagBodies(text, "agent_call") {
		if req, ok := agentFromTags(body); ok {
			reqs = append(reqs, req)
		}
	}
	return reqs
}

// tagBodies returns the inner text of every <tag>...</tag> region. A final
// unclosed <tag> swallows the rest of the text; some models truncate the
// closing tag.
func tagBodies(text, tag string) []string {
	open := "<" + tag + ">"
	close := "</" + tag + ">"

	var bodies []string
	for {
		start := strings.Index(text, open)
		if start < 0 {
			return bodies
		}
		rest := text[start+len(open):]
		end := strings.Index(rest, close)
		if end < 0 {
			if body := strings.TrimSpace(rest); body != "" {
				bodies = append(bodies, body)
			}
			return bodies
		}
		if body := strings.TrimSpace(rest[:end]); body != "" {
			bodies = append(bodies, body)
		}
		text = rest[end+len(close):]
	}
}

func toolFromTags(body string) (ai.ActionRequest, bool) {
	m := nameTagRe.FindStringSubmatch(body)
	if m == nil {
		return ai.ActionRequest{}, false
	}
	name := strings.TrimSpace(m[2])
	if name == "" {
		return ai.ActionRequest{}, false
	}

	// Absent arguments default to an empty map.
	args := map[string]any{}
	if am := argsTagRe.FindStringSubmatch(body); am != nil {
		payload := repairJSON(strings.TrimSpace(am[1]))
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), &args); err != nil {
				// Payload is not a map; discard the request silently.
				return ai.ActionRequest{}, false
			}
		}
	}
	return ai.NewToolAction(name, args), true
}

func agentFromTags(body string) (ai.ActionRequest, bool) {
	m := nameTagRe.FindStringSubmatch(body)
	if m == nil {
		return ai.ActionRequest{}, false
	}
	name := strings.TrimSpace(m[2])
	if name == "" {
		return ai.ActionRequest{}, false
	}

	task := ""
	if tm := taskTagRe.FindStringSubmatch(body); tm != nil {
		task = strings.TrimSpace(tm[1])
	}
	return ai.NewAgentAction(name, task), true
}
