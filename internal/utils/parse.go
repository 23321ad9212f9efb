package utils

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
)

// ParseJSONLenient decodes raw into T. Strict decoding is tried first; when it fails the
// input is passed through jsonrepair (single quotes, trailing commas, unquoted keys, cut-off
// objects) and decoded again. Model-produced JSON such as function-call arguments is the
// intended input; wire payloads are never repaired.
//
//	args, err := ParseJSONLenient[FindMoviesArgs]([]byte(`{location: 'Mountain View',}`))
func ParseJSONLenient[T any](raw []byte) (T, error) {
	var result T

	err := json.Unmarshal(raw, &result)
	if err == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(string(raw))
	if repairErr != nil {
		return result, fmt.Errorf("failed to unmarshal %T and failed to repair JSON: unmarshal error: %w, repair error: %v", result, err, repairErr)
	}

	var retry T
	if err := json.Unmarshal([]byte(repaired), &retry); err != nil {
		return result, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w (original: %s, repaired: %s)",
			result, err, TruncateString(string(raw), 200), TruncateString(repaired, 200))
	}
	return retry, nil
}
