package parse

import (
	"strings"

	ai "github.com/spetersoncode/reins"
)

// stage is one recognized action encoding. Stages are pure text scanners.
type stage func(text string) []ai.ActionRequest

// The cascade order is significant: the first stage producing a non-empty
// result wins, and stages are never merged.
var stages = []stage{
	parseStructured,
	parseTagged,
	parseRawDelimited,
	parseLoose,
}

// Parse extracts action requests from model output text. It returns the
// results of the first cascade stage that recognizes anything, or an empty
// slice when no stage does. Requests whose argument payload is not a JSON
// object are discarded silently rather than failing the whole parse.
func Parse(text string) []ai.ActionRequest {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	for _, s := range stages {
		if reqs := s(text); len(reqs) > 0 {
			return reqs
		}
	}
	return nil
}
