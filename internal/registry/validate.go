package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func (r *Registry) compiled(name string, schema json.RawMessage) (*jsonschema.Schema, error) {
	if v, ok := r.schemas.Load(name); ok {
		return v.(*jsonschema.Schema), nil
	}
	s, err := jsonschema.CompileString(name+".json", string(schema))
	if err != nil {
		return nil, err
	}
	r.schemas.Store(name, s)
	return s, nil
}

func firstLeafValidationError(err *jsonschema.ValidationError) *jsonschema.ValidationError {
	if err == nil {
		return nil
	}
	if len(err.Causes) == 0 {
		return err
	}
	for _, c := range err.Causes {
		if leaf := firstLeafValidationError(c); leaf != nil {
			return leaf
		}
	}
	return err
}

// Validate checks args against the tool's input schema. Missing or null
// arguments are treated as an empty object.
func (r *Registry) Validate(name string, args json.RawMessage) error {
	tool, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("unknown tool: %s", name)
	}
	if len(tool.InputSchema) == 0 {
		return nil
	}
	s, err := r.compiled(name, tool.InputSchema)
	if err != nil {
		return fmt.Errorf("invalid input schema for %s: %w", name, err)
	}

	var v any = map[string]any{}
	if trimmed := bytes.TrimSpace(args); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("arguments for %s are not valid JSON: %w", name, err)
		}
	}

	if err := s.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			leaf := firstLeafValidationError(ve)
			loc := leaf.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msg := leaf.Message
			if msg == "" {
				msg = leaf.Error()
			}
			return fmt.Errorf("invalid arguments for %s at %s: %s", name, loc, msg)
		}
		return fmt.Errorf("invalid arguments for %s: %v", name, err)
	}
	return nil
}
