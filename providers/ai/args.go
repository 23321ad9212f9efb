package ai

import (
	"encoding/json"
	"fmt"

	"github.com/leofalp/vertexgen/internal/utils"
)

// DecodeArgs converts the arguments of a function call into T, usually the struct the
// function's parameter schema was generated from.
//
//	args, err := ai.DecodeArgs[FindTheatersArgs](call)
func DecodeArgs[T any](call FunctionCall) (T, error) {
	var zero T
	raw, err := json.Marshal(call.Args)
	if err != nil {
		return zero, fmt.Errorf("encode args of %s: %w", call.Name, err)
	}
	if call.Args == nil {
		raw = []byte("{}")
	}
	args, err := utils.ParseJSONLenient[T](raw)
	if err != nil {
		return zero, fmt.Errorf("decode args of %s: %w", call.Name, err)
	}
	return args, nil
}

// ArgsString renders the call arguments as compact JSON, "{}" when there are none.
func (c FunctionCall) ArgsString() string {
	if c.Args == nil {
		return "{}"
	}
	return utils.JSONToString(c.Args)
}
