package jsonschema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Schema is the parameter schema of a function declaration. Only the keywords Vertex AI
// understands are modelled.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	// Items is the element schema of an array.
	Items    *Schema `json:"items,omitempty"`
	Enum     []any   `json:"enum,omitempty"`
	Nullable bool    `json:"nullable,omitempty"`
}

// ErrRecursiveType is returned for types that contain themselves.
var ErrRecursiveType = errors.New("recursive types cannot be expressed without $ref")

// Generate derives a schema from T, which is usually a struct describing function arguments.
//
// Field rules:
//   - the property name comes from the json tag, fields tagged "-" and unexported fields
//     are skipped
//   - a field is required unless it is a pointer or tagged omitempty; the jsonschema tag can
//     force it with "required"
//   - the jsonschema tag also accepts "enum=value" (repeatable) and "description=text";
//     description must come last because the text runs to the end of the tag and may
//     contain commas
//
// Pointers are dereferenced and marked nullable when they are struct fields.
func Generate[T any]() (*Schema, error) {
	return generate(reflect.TypeFor[T](), map[reflect.Type]bool{})
}

// MustGenerate is Generate for package-level declarations; it panics on error.
func MustGenerate[T any]() *Schema {
	schema, err := Generate[T]()
	if err != nil {
		panic(fmt.Sprintf("jsonschema: %v", err))
	}
	return schema
}

func generate(t reflect.Type, inProgress map[reflect.Type]bool) (*Schema, error) {
	switch t.Kind() {
	case reflect.Pointer:
		return generate(t.Elem(), inProgress)
	case reflect.String:
		return &Schema{Type: "string"}, nil
	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}, nil
	case reflect.Slice, reflect.Array:
		items, err := generate(t.Elem(), inProgress)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: items}, nil
	case reflect.Map:
		return &Schema{Type: "object"}, nil
	case reflect.Struct:
		return generateStruct(t, inProgress)
	default:
		return nil, fmt.Errorf("unsupported kind %s for type %s", t.Kind(), t)
	}
}

func generateStruct(t reflect.Type, inProgress map[reflect.Type]bool) (*Schema, error) {
	if inProgress[t] {
		return nil, fmt.Errorf("%w: %s", ErrRecursiveType, t)
	}
	inProgress[t] = true
	defer delete(inProgress, t)

	schema := &Schema{Type: "object", Properties: map[string]*Schema{}}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, omitEmpty, skip := jsonFieldName(field)
		if skip {
			continue
		}

		fieldSchema, err := generate(field.Type, inProgress)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		if field.Type.Kind() == reflect.Pointer {
			fieldSchema.Nullable = true
		}

		requiredByTag, err := applyTag(field.Type, field.Tag.Get("jsonschema"), fieldSchema)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		schema.Properties[name] = fieldSchema
		if requiredByTag || (field.Type.Kind() != reflect.Pointer && !omitEmpty) {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema, nil
}

func jsonFieldName(field reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name, options, _ := strings.Cut(tag, ",")
	if name == "" {
		name = field.Name
	}
	for _, option := range strings.Split(options, ",") {
		if option == "omitempty" || option == "omitzero" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

// applyTag applies a jsonschema struct tag to schema and reports whether it marks the field
// required.
func applyTag(fieldType reflect.Type, tag string, schema *Schema) (bool, error) {
	required := false
	for tag != "" {
		if description, ok := strings.CutPrefix(tag, "description="); ok {
			schema.Description = description
			break
		}

		var item string
		item, tag, _ = strings.Cut(tag, ",")
		key, value, hasValue := strings.Cut(item, "=")
		switch {
		case key == "required" && !hasValue:
			required = true
		case key == "enum" && hasValue:
			enumValue, err := parseEnumValue(fieldType, value)
			if err != nil {
				return false, err
			}
			schema.Enum = append(schema.Enum, enumValue)
		default:
			return false, fmt.Errorf("unknown jsonschema tag item %q", item)
		}
	}
	return required, nil
}

func parseEnumValue(fieldType reflect.Type, value string) (any, error) {
	for fieldType.Kind() == reflect.Pointer {
		fieldType = fieldType.Elem()
	}
	switch fieldType.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %q as integer: %w", value, err)
		}
		return v, nil
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %q as number: %w", value, err)
		}
		return v, nil
	case reflect.Bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %q as bool: %w", value, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("enum tag unsupported for field type %s", fieldType)
	}
}

// String returns the compact JSON form of the schema.
func (s *Schema) String() string {
	encoded, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(encoded)
}
