package utils

// Ptr returns a pointer to a copy of v, for filling optional request fields from literals:
//
//	cfg := ai.GenerationConfig{Temperature: utils.Ptr(0.4)}
func Ptr[T any](v T) *T {
	return &v
}
