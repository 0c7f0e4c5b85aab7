package chat

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
)

// ToolTypeFunction is the only tool type the API accepts.
const ToolTypeFunction = "function"

// Tool is a function the model may call.
type Tool struct {
	Type     string   `json:"type" validate:"required,oneof=function"`
	Function Function `json:"function" validate:"required"`
}

// Function describes a callable function. Parameters is a JSON Schema
// object, typically a map or a json.RawMessage.
type Function struct {
	Name        string `json:"name" validate:"required,max=64"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
	Strict      *bool  `json:"strict,omitempty"`
}

// FunctionTool builds a function tool.
func FunctionTool(name, description string, parameters any) Tool {
	return Tool{
		Type: ToolTypeFunction,
		Function: Function{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// ToolCall is a call the model made. Index is only present in stream deltas,
// where one call arrives split over several chunks.
type ToolCall struct {
	Index    *int         `json:"index,omitempty"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments"`
}

// DecodeArguments unmarshals the call arguments into v. Models occasionally
// emit slightly broken JSON (trailing commas, single quotes, truncation), so
// a failed decode is retried once on a repaired copy.
func (f FunctionCall) DecodeArguments(v any) error {
	err := json.Unmarshal([]byte(f.Arguments), v)
	if err == nil {
		return nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(f.Arguments)
	if repairErr != nil {
		return fmt.Errorf("function %s arguments: %w", f.Name, err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("function %s arguments after repair: %w", f.Name, err)
	}
	return nil
}

// MergeToolCallDeltas folds streamed tool call fragments into complete calls,
// ordered by index. Name and id come from the first fragment; arguments are
// concatenated.
func MergeToolCallDeltas(calls []ToolCall, deltas []ToolCall) []ToolCall {
	for _, d := range deltas {
		idx := len(calls)
		if d.Index != nil {
			idx = *d.Index
		}
		for len(calls) <= idx {
			calls = append(calls, ToolCall{})
		}
		c := &calls[idx]
		if c.ID == "" {
			c.ID = d.ID
		}
		if c.Type == "" {
			c.Type = d.Type
		}
		if c.Function.Name == "" {
			c.Function.Name = d.Function.Name
		}
		c.Function.Arguments += d.Function.Arguments
	}
	for i := range calls {
		calls[i].Index = nil
	}
	return calls
}
