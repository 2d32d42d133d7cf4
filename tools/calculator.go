package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	ai "github.com/spetersoncode/reins"
	"github.com/spetersoncode/reins/invoke"
)

var calculatorSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"a": {"type": "number", "description": "First operand"},
		"b": {"type": "number", "description": "Second operand"},
		"op": {"type": "string", "description": "Operation to perform", "enum": ["add", "sub", "mul", "div"]}
	},
	"required": ["a", "b", "op"]
}`)

// Calculator returns a basic arithmetic tool. Results are cached since the
// operation is deterministic.
func Calculator() invoke.Definition {
	return invoke.Definition{
		Tool: ai.Tool{
			Name:        "calculator",
			Description: "Perform basic arithmetic on two numbers",
			Parameters:  calculatorSchema,
		},
		Handler:  calculate,
		CacheTTL: time.Hour,
	}
}

func calculate(_ context.Context, args map[string]any) (string, error) {
	a, ok := args["a"].(float64)
	if !ok {
		return "", fmt.Errorf("calculator: a must be a number")
	}
	b, ok := args["b"].(float64)
	if !ok {
		return "", fmt.Errorf("calculator: b must be a number")
	}
	op, _ := args["op"].(string)

	var result float64
	switch op {
	case "add":
		result = a + b
	case "sub":
		result = a - b
	case "mul":
		result = a * b
	case "div":
		if b == 0 {
			return "", fmt.Errorf("calculator: division by zero")
		}
		result = a / b
	default:
		return "", fmt.Errorf("calculator: unknown operation %q", op)
	}

	return strconv.FormatFloat(result, 'f', -1, 64), nil
}
