// Package schema describes the shape of a dynamic value: a type tag plus
// a validator/decoder for the JSON payload carried under that tag. It is
// used both to validate a template's input parameter and to decode an
// incoming parameter JSON into a tagged DynamicValue (see pkg/value).
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Message string
	Path    []string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("%s at path %v", e.Message, e.Path)
	}
	return e.Message
}

func prefixPath(err error, segment string) error {
	if valErr, ok := err.(*ValidationError); ok {
		valErr.Path = append([]string{segment}, valErr.Path...)
	}
	return err
}

// Schema defines validation rules and the wire type tag for a dynamic
// value. TypeTag is stable and used verbatim in JSON encoding, e.g.
// {"Int": 1} or {"String": "hello"}.
type Schema interface {
	// TypeTag returns the tag used in the dynamic value's JSON encoding.
	TypeTag() string
	// Validate validates a decoded Go value against the schema.
	Validate(value any) (any, error)
	// Decode parses raw JSON into a Go value appropriate for this schema,
	// validating it in the process.
	Decode(raw json.RawMessage) (any, error)
}

// StringSchema validates strings.
type StringSchema struct {
	MinLength int
	MaxLength int
	Pattern   string
}

func (s *StringSchema) TypeTag() string { return "String" }

func (s *StringSchema) Validate(value any) (any, error) {
	str, ok := value.(string)
	if !ok {
		return nil, &ValidationError{Message: "value is not a string"}
	}

	if s.MinLength > 0 && len(str) < s.MinLength {
		return nil, &ValidationError{
			Message: fmt.Sprintf("string length %d is less than minimum length %d", len(str), s.MinLength),
		}
	}

	if s.MaxLength > 0 && len(str) > s.MaxLength {
		return nil, &ValidationError{
			Message: fmt.Sprintf("string length %d is greater than maximum length %d", len(str), s.MaxLength),
		}
	}

	// TODO: Implement pattern validation

	return str, nil
}

func (s *StringSchema) Decode(raw json.RawMessage) (any, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return nil, &ValidationError{Message: "value is not a string: " + err.Error()}
	}
	return s.Validate(str)
}

// IntSchema validates whole numbers, encoded with type tag "Int".
type IntSchema struct {
	Min      int64
	Max      int64
	HasMin   bool
	HasMax   bool
	Positive bool
	Negative bool
}

func (s *IntSchema) TypeTag() string { return "Int" }

func (s *IntSchema) Validate(value any) (any, error) {
	num, err := toInt64(value)
	if err != nil {
		return nil, &ValidationError{Message: "value is not an integer"}
	}

	if s.HasMin && num < s.Min {
		return nil, &ValidationError{Message: fmt.Sprintf("value %d is less than minimum %d", num, s.Min)}
	}
	if s.HasMax && num > s.Max {
		return nil, &ValidationError{Message: fmt.Sprintf("value %d is greater than maximum %d", num, s.Max)}
	}
	if s.Positive && num <= 0 {
		return nil, &ValidationError{Message: "value must be positive"}
	}
	if s.Negative && num >= 0 {
		return nil, &ValidationError{Message: "value must be negative"}
	}

	return num, nil
}

func (s *IntSchema) Decode(raw json.RawMessage) (any, error) {
	var num int64
	if err := json.Unmarshal(raw, &num); err != nil {
		return nil, &ValidationError{Message: "value is not an integer: " + err.Error()}
	}
	return s.Validate(num)
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if float64(int64(v)) != v {
			return 0, fmt.Errorf("not an integer")
		}
		return int64(v), nil
	default:
		return 0, fmt.Errorf("not a number")
	}
}

// NumberSchema validates floating point numbers, encoded with type tag
// "Float".
type NumberSchema struct {
	Min      float64
	Max      float64
	Positive bool
	Negative bool
}

func (s *NumberSchema) TypeTag() string { return "Float" }

func (s *NumberSchema) Validate(value any) (any, error) {
	var num float64

	switch v := value.(type) {
	case int:
		num = float64(v)
	case int64:
		num = float64(v)
	case float32:
		num = float64(v)
	case float64:
		num = v
	default:
		return nil, &ValidationError{Message: "value is not a number"}
	}

	if s.Min != 0 && num < s.Min {
		return nil, &ValidationError{Message: fmt.Sprintf("number %f is less than minimum %f", num, s.Min)}
	}
	if s.Max != 0 && num > s.Max {
		return nil, &ValidationError{Message: fmt.Sprintf("number %f is greater than maximum %f", num, s.Max)}
	}
	if s.Positive && num <= 0 {
		return nil, &ValidationError{Message: "number must be positive"}
	}
	if s.Negative && num >= 0 {
		return nil, &ValidationError{Message: "number must be negative"}
	}

	return num, nil
}

func (s *NumberSchema) Decode(raw json.RawMessage) (any, error) {
	var num float64
	if err := json.Unmarshal(raw, &num); err != nil {
		return nil, &ValidationError{Message: "value is not a number: " + err.Error()}
	}
	return s.Validate(num)
}

// BooleanSchema validates booleans, encoded with type tag "Bool".
type BooleanSchema struct{}

func (s *BooleanSchema) TypeTag() string { return "Bool" }

func (s *BooleanSchema) Validate(value any) (any, error) {
	b, ok := value.(bool)
	if !ok {
		return nil, &ValidationError{Message: "value is not a boolean"}
	}
	return b, nil
}

func (s *BooleanSchema) Decode(raw json.RawMessage) (any, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, &ValidationError{Message: "value is not a boolean: " + err.Error()}
	}
	return b, nil
}

// ArraySchema validates arrays, encoded with type tag "Array".
type ArraySchema struct {
	ItemSchema Schema
	MinItems   int
	MaxItems   int
}

func (s *ArraySchema) TypeTag() string { return "Array" }

func (s *ArraySchema) Validate(value any) (any, error) {
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Slice && val.Kind() != reflect.Array {
		return nil, &ValidationError{Message: "value is not an array"}
	}

	length := val.Len()

	if s.MinItems > 0 && length < s.MinItems {
		return nil, &ValidationError{
			Message: fmt.Sprintf("array length %d is less than minimum length %d", length, s.MinItems),
		}
	}
	if s.MaxItems > 0 && length > s.MaxItems {
		return nil, &ValidationError{
			Message: fmt.Sprintf("array length %d is greater than maximum length %d", length, s.MaxItems),
		}
	}

	if s.ItemSchema == nil {
		return value, nil
	}

	result := make([]any, 0, length)
	for i := 0; i < length; i++ {
		item := val.Index(i).Interface()
		validated, err := s.ItemSchema.Validate(item)
		if err != nil {
			return nil, prefixPath(err, fmt.Sprintf("[%d]", i))
		}
		result = append(result, validated)
	}
	return result, nil
}

func (s *ArraySchema) Decode(raw json.RawMessage) (any, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &ValidationError{Message: "value is not an array: " + err.Error()}
	}

	result := make([]any, 0, len(items))
	for i, item := range items {
		var decoded any
		var err error
		if s.ItemSchema != nil {
			decoded, err = s.ItemSchema.Decode(item)
		} else {
			err = json.Unmarshal(item, &decoded)
		}
		if err != nil {
			return nil, prefixPath(err, fmt.Sprintf("[%d]", i))
		}
		result = append(result, decoded)
	}
	return result, nil
}

// RecordSchema validates structured records with named fields, encoded
// with type tag "Record".
type RecordSchema struct {
	Fields   map[string]Schema
	Required []string
}

func (s *RecordSchema) TypeTag() string { return "Record" }

func (s *RecordSchema) Validate(value any) (any, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, &ValidationError{Message: "value is not a record"}
	}

	for _, req := range s.Required {
		if _, present := m[req]; !present {
			return nil, &ValidationError{Message: fmt.Sprintf("required field %s is missing", req)}
		}
	}

	result := make(map[string]any, len(m))
	for key, fieldSchema := range s.Fields {
		raw, present := m[key]
		if !present {
			continue
		}
		validated, err := fieldSchema.Validate(raw)
		if err != nil {
			return nil, prefixPath(err, key)
		}
		result[key] = validated
	}
	return result, nil
}

func (s *RecordSchema) Decode(raw json.RawMessage) (any, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, &ValidationError{Message: "value is not a record: " + err.Error()}
	}

	for _, req := range s.Required {
		if _, present := obj[req]; !present {
			return nil, &ValidationError{Message: fmt.Sprintf("required field %s is missing", req)}
		}
	}

	result := make(map[string]any, len(obj))
	for key, fieldSchema := range s.Fields {
		fieldRaw, present := obj[key]
		if !present {
			continue
		}
		decoded, err := fieldSchema.Decode(fieldRaw)
		if err != nil {
			return nil, prefixPath(err, key)
		}
		result[key] = decoded
	}
	return result, nil
}

// SumSchema validates a tagged union where exactly one variant applies,
// encoded with type tag "Sum".
type SumSchema struct {
	Variants map[string]Schema
}

func (s *SumSchema) TypeTag() string { return "Sum" }

func (s *SumSchema) Validate(value any) (any, error) {
	pair, ok := value.(map[string]any)
	if !ok || len(pair) != 1 {
		return nil, &ValidationError{Message: "value is not a single-variant sum"}
	}
	for tag, inner := range pair {
		variant, known := s.Variants[tag]
		if !known {
			return nil, &ValidationError{Message: fmt.Sprintf("unknown variant %q", tag)}
		}
		validated, err := variant.Validate(inner)
		if err != nil {
			return nil, prefixPath(err, tag)
		}
		return map[string]any{tag: validated}, nil
	}
	return nil, &ValidationError{Message: "empty sum value"}
}

func (s *SumSchema) Decode(raw json.RawMessage) (any, error) {
	var pair map[string]json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 1 {
		return nil, &ValidationError{Message: "value is not a single-variant sum"}
	}
	for tag, inner := range pair {
		variant, known := s.Variants[tag]
		if !known {
			return nil, &ValidationError{Message: fmt.Sprintf("unknown variant %q", tag)}
		}
		decoded, err := variant.Decode(inner)
		if err != nil {
			return nil, prefixPath(err, tag)
		}
		return map[string]any{tag: decoded}, nil
	}
	return nil, &ValidationError{Message: "empty sum value"}
}

// CustomSchema accepts any JSON value, encoded with type tag "Any".
type CustomSchema struct{}

func (s *CustomSchema) TypeTag() string { return "Any" }

func (s *CustomSchema) Validate(value any) (any, error) { return value, nil }

func (s *CustomSchema) Decode(raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &ValidationError{Message: "invalid JSON: " + err.Error()}
	}
	return v, nil
}

// String creates a new string schema.
func String() *StringSchema { return &StringSchema{} }

// Int creates a new integer schema.
func Int() *IntSchema { return &IntSchema{} }

// Number creates a new floating point schema.
func Number() *NumberSchema { return &NumberSchema{} }

// Boolean creates a new boolean schema.
func Boolean() *BooleanSchema { return &BooleanSchema{} }

// Array creates a new array schema.
func Array(itemSchema Schema) *ArraySchema { return &ArraySchema{ItemSchema: itemSchema} }

// Record creates a new record schema.
func Record(fields map[string]Schema) *RecordSchema { return &RecordSchema{Fields: fields} }

// Sum creates a new tagged-union schema.
func Sum(variants map[string]Schema) *SumSchema { return &SumSchema{Variants: variants} }

// Custom creates a schema that accepts any value.
func Custom() Schema { return &CustomSchema{} }
