// Package parse extracts structured action requests from free-form model
// output.
//
// Models encode action requests in several incompatible conventions:
// fenced or bare JSON blocks, <tool_call>/<agent_call> tag regions, a raw
// delimiter token form, and loose "Tool: NAME Params: {...}" lines. Parse
// tries each convention in a fixed order and returns the first stage's
// results, so a well-formed JSON block always wins over tag-shaped text
// appearing elsewhere in the same output.
//
// Parse is a pure function: it never fails, never panics, and returns an
// empty slice when nothing recognizable is found.
package parse
