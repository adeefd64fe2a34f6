package schema

import (
	"encoding/json"
	"fmt"
)

// descriptor is the self-describing JSON form of a Schema: a kind tag
// plus whatever a composite schema needs to reconstruct its children.
// This lets a Schema travel inside a serialized flow value (spec §3/§9
// requires flows to carry a self-describing schema).
type descriptor struct {
	Kind     string                `json:"kind"`
	Item     *descriptor           `json:"item,omitempty"`
	Fields   map[string]descriptor `json:"fields,omitempty"`
	Required []string              `json:"required,omitempty"`
	Variants map[string]descriptor `json:"variants,omitempty"`
}

// Encode renders a Schema to its self-describing JSON form.
func Encode(s Schema) (json.RawMessage, error) {
	d, err := toDescriptor(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(d)
}

// Decode reconstructs a Schema from its self-describing JSON form.
func Decode(raw json.RawMessage) (Schema, error) {
	var d descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return fromDescriptor(d)
}

func toDescriptor(s Schema) (descriptor, error) {
	switch v := s.(type) {
	case *StringSchema:
		return descriptor{Kind: "String"}, nil
	case *IntSchema:
		return descriptor{Kind: "Int"}, nil
	case *NumberSchema:
		return descriptor{Kind: "Float"}, nil
	case *BooleanSchema:
		return descriptor{Kind: "Bool"}, nil
	case *CustomSchema:
		return descriptor{Kind: "Any"}, nil
	case *ArraySchema:
		item, err := toDescriptor(v.ItemSchema)
		if err != nil {
			return descriptor{}, err
		}
		return descriptor{Kind: "Array", Item: &item}, nil
	case *RecordSchema:
		fields := make(map[string]descriptor, len(v.Fields))
		for name, fieldSchema := range v.Fields {
			d, err := toDescriptor(fieldSchema)
			if err != nil {
				return descriptor{}, err
			}
			fields[name] = d
		}
		return descriptor{Kind: "Record", Fields: fields, Required: v.Required}, nil
	case *SumSchema:
		variants := make(map[string]descriptor, len(v.Variants))
		for name, variantSchema := range v.Variants {
			d, err := toDescriptor(variantSchema)
			if err != nil {
				return descriptor{}, err
			}
			variants[name] = d
		}
		return descriptor{Kind: "Sum", Variants: variants}, nil
	default:
		return descriptor{}, fmt.Errorf("encode schema: unsupported schema type %T", s)
	}
}

func fromDescriptor(d descriptor) (Schema, error) {
	switch d.Kind {
	case "String":
		return String(), nil
	case "Int":
		return Int(), nil
	case "Float":
		return Number(), nil
	case "Bool":
		return Boolean(), nil
	case "Any":
		return Custom(), nil
	case "Array":
		if d.Item == nil {
			return nil, fmt.Errorf("decode schema: array missing item descriptor")
		}
		item, err := fromDescriptor(*d.Item)
		if err != nil {
			return nil, err
		}
		return Array(item), nil
	case "Record":
		fields := make(map[string]Schema, len(d.Fields))
		for name, fieldDescriptor := range d.Fields {
			s, err := fromDescriptor(fieldDescriptor)
			if err != nil {
				return nil, err
			}
			fields[name] = s
		}
		return &RecordSchema{Fields: fields, Required: d.Required}, nil
	case "Sum":
		variants := make(map[string]Schema, len(d.Variants))
		for name, variantDescriptor := range d.Variants {
			s, err := fromDescriptor(variantDescriptor)
			if err != nil {
				return nil, err
			}
			variants[name] = s
		}
		return &SumSchema{Variants: variants}, nil
	default:
		return nil, fmt.Errorf("decode schema: unknown kind %q", d.Kind)
	}
}
