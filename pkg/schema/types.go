package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind is one of the closed set of field types a stream schema may use
type Kind string

const (
	KindString   Kind = "string"
	KindInteger  Kind = "integer"
	KindDateTime Kind = "datetime"
	KindArray    Kind = "array"
	KindObject   Kind = "object"
)

// Type describes a field. Items is set for arrays, Properties for objects.
type Type struct {
	Kind       Kind
	Items      *Type
	Properties []Property
}

// Property is a named field. Order within a list is preserved on the wire.
type Property struct {
	Name string
	Type Type
}

func String() Type   { return Type{Kind: KindString} }
func Integer() Type  { return Type{Kind: KindInteger} }
func DateTime() Type { return Type{Kind: KindDateTime} }

// ArrayOf declares an array whose elements have the given type
func ArrayOf(items Type) Type {
	return Type{Kind: KindArray, Items: &items}
}

// Object declares a nested object with ordered properties
func Object(props ...Property) Type {
	return Type{Kind: KindObject, Properties: props}
}

// Prop is shorthand for a Property literal
func Prop(name string, t Type) Property {
	return Property{Name: name, Type: t}
}

// Schema is the top-level record layout of one stream
type Schema struct {
	Properties []Property
}

// New builds a Schema from ordered properties
func New(props ...Property) Schema {
	return Schema{Properties: props}
}

// Names returns the top-level field names in declaration order
func (s Schema) Names() []string {
	names := make([]string, len(s.Properties))
	for i, p := range s.Properties {
		names[i] = p.Name
	}
	return names
}

// Validate reports duplicate or empty property names and malformed types
func (s Schema) Validate() error {
	return validateProps("", s.Properties)
}

func validateProps(prefix string, props []Property) error {
	seen := make(map[string]bool, len(props))
	for _, p := range props {
		path := prefix + p.Name
		if p.Name == "" {
			return fmt.Errorf("empty property name under %q", prefix)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate property %q", path)
		}
		seen[p.Name] = true
		if err := validateType(path, p.Type); err != nil {
			return err
		}
	}
	return nil
}

func validateType(path string, t Type) error {
	switch t.Kind {
	case KindString, KindInteger, KindDateTime:
		return nil
	case KindArray:
		if t.Items == nil {
			return fmt.Errorf("array %q has no item type", path)
		}
		return validateType(path+"[]", *t.Items)
	case KindObject:
		return validateProps(path+".", t.Properties)
	default:
		return fmt.Errorf("unknown kind %q for %q", t.Kind, path)
	}
}

// MarshalJSON renders the schema as a JSON Schema object with properties in
// declaration order. Every field is nullable since the API omits empty values.
func (s Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"type":"object","properties":`)
	if err := writeProperties(&buf, s.Properties); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON renders a single field type as JSON Schema
func (t Type) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeType(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeProperties(buf *bytes.Buffer, props []Property) error {
	buf.WriteByte('{')
	for i, p := range props {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(p.Name)
		if err != nil {
			return err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if err := writeType(buf, p.Type); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeType(buf *bytes.Buffer, t Type) error {
	switch t.Kind {
	case KindString:
		buf.WriteString(`{"type":["string","null"]}`)
	case KindInteger:
		buf.WriteString(`{"type":["integer","null"]}`)
	case KindDateTime:
		buf.WriteString(`{"type":["string","null"],"format":"date-time"}`)
	case KindArray:
		if t.Items == nil {
			return fmt.Errorf("array type without items")
		}
		buf.WriteString(`{"type":["array","null"],"items":`)
		if err := writeType(buf, *t.Items); err != nil {
			return err
		}
		buf.WriteByte('}')
	case KindObject:
		buf.WriteString(`{"type":["object","null"],"properties":`)
		if err := writeProperties(buf, t.Properties); err != nil {
			return err
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown schema kind %q", t.Kind)
	}
	return nil
}
