package parse

import (
	"encoding/json"
	"regexp"
	"strings"

	ai "github.com/spetersoncode/reins"
)

var looseToolRe = regexp.MustCompile(`(?i)Tool:\s*([A-Za-z0-9_.\-]+)\s*(?:\n\s*)?Params:\s*`)

// parseLoose is the last-resort scan for "Tool: NAME Params: {json}" shaped
// lines. The params object is taken by balanced scanning so nested braces
// survive.
func parseLoose(text string) []ai.ActionRequest {
	var reqs []ai.ActionRequest
	for _, loc := range looseToolRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[loc[2]:loc[3]]
		rest := text[loc[1]:]

		open := strings.IndexByte(rest, '{')
		if open != 0 && (open < 0 || strings.TrimSpace(rest[:open]) != "") {
			continue
		}
		end := scanBalanced(rest, open)
		if end < 0 {
			continue
		}

		args := map[string]any{}
		raw := repairJSON(rest[open : end+1])
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			continue
		}
		reqs = append(reqs, ai.NewToolAction(name, args))
	}
	return reqs
}
