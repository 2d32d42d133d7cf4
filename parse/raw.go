package parse

import (
	"encoding/json"
	"strings"

	ai "github.com/spetersoncode/reins"
)

// Sentinel tokens of the raw delimiter convention. The target name follows
// a "to=functions." marker and the JSON payload sits between the message
// sentinels. The outer text is not valid JSON, so extraction is done by
// direct scanning.
const (
	rawTargetMarker = "to=functions."
	rawPayloadStart = "<|message|>"
	rawPayloadEnd   = "<|call|>"
)

// parseRawDelimited recognizes the backend-specific raw delimiter token form.
func parseRawDelimited(text string) []ai.ActionRequest {
	var reqs []ai.ActionRequest
	for {
		idx := strings.Index(text, rawTargetMarker)
		if idx < 0 {
			return reqs
		}
		rest := text[idx+len(rawTargetMarker):]

		name := scanIdentifier(rest)
		if name == "" {
			text = rest
			continue
		}

		start := strings.Index(rest, rawPayloadStart)
		if start < 0 {
			return reqs
		}
		payload := rest[start+len(rawPayloadStart):]
		end := strings.Index(payload, rawPayloadEnd)
		if end < 0 {
			return reqs
		}

		args := map[string]any{}
		raw := repairJSON(strings.TrimSpace(payload[:end]))
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				// Not a map; skip this occurrence, keep scanning.
				text = payload[end+len(rawPayloadEnd):]
				continue
			}
		}

		reqs = append(reqs, ai.NewToolAction(name, args))
		text = payload[end+len(rawPayloadEnd):]
	}
}

// scanIdentifier reads a leading tool-name token: letters, digits,
// underscore, dot, and dash.
func scanIdentifier(s string) string {
	end := 0
	for end < len(s) {
		c := s[end]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
			c == '_' || c == '.' || c == '-' {
			end++
			continue
		}
		break
	}
	return s[:end]
}
