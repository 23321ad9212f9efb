// Package jsonschema builds the OpenAPI-style schema objects used for function declaration
// parameters from Go struct types.
//
// Vertex AI accepts a subset of JSON Schema for function parameters and does not resolve
// $ref, so nested structs are always inlined and recursive types are rejected. The main
// entry point is [Generate].
package jsonschema
