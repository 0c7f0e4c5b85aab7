// Package union holds the shared plumbing for the closed variant sets of the
// wire model: reading a discriminator out of a raw JSON object and reporting
// schema errors when it is missing or not one of the known tokens.
package union

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	// ErrMissingDiscriminator is returned when a payload lacks its tag field.
	ErrMissingDiscriminator = errors.New("missing discriminator")
	// ErrUnknownDiscriminator is returned when the tag names no known variant.
	ErrUnknownDiscriminator = errors.New("unknown discriminator")
)

// SchemaError describes a payload that could not be mapped onto a variant.
type SchemaError struct {
	Kind  string // union being decoded, e.g. "chat message"
	Field string // discriminator field, e.g. "role"
	Value string // offending value, empty when missing
	Err   error  // ErrMissingDiscriminator or ErrUnknownDiscriminator
}

func (e *SchemaError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v %q", e.Kind, e.Err, e.Field)
	}
	return fmt.Sprintf("%s: %v %s=%q", e.Kind, e.Err, e.Field, e.Value)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Tag returns the string discriminator stored under field in the JSON object data.
func Tag(kind string, data []byte, field string) (string, error) {
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("%s: invalid JSON", kind)
	}
	res := gjson.GetBytes(data, field)
	if !res.Exists() || res.Type != gjson.String || res.Str == "" {
		return "", &SchemaError{Kind: kind, Field: field, Err: ErrMissingDiscriminator}
	}
	return res.Str, nil
}

// Unknown builds the error for a discriminator value outside the closed set.
func Unknown(kind, field, value string) error {
	return &SchemaError{Kind: kind, Field: field, Value: value, Err: ErrUnknownDiscriminator}
}

// Marshal encodes v as a JSON object whose first member is field=tag.
// v must encode to an object and must not itself add field; variants pass a
// local alias of their own type to avoid recursing into MarshalJSON.
func Marshal(field, tag string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("union: %T does not encode to an object", v)
	}
	key, _ := json.Marshal(field)
	val, err := json.Marshal(tag)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(body)+len(key)+len(val)+2)
	out = append(out, '{')
	out = append(out, key...)
	out = append(out, ':')
	out = append(out, val...)
	if len(body) > 2 {
		out = append(out, ',')
	}
	return append(out, body[1:]...), nil
}
