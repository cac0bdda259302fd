package schemas

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/ternarybob/folium/internal/interfaces"
	"github.com/ternarybob/folium/internal/models"
)

// schemaFiles maps a call type to its embedded schema
var schemaFiles = map[interfaces.CallType]string{
	interfaces.CallTypeContext: "context_metadata.json",
	interfaces.CallTypeTable:   "table_metadata.json",
	interfaces.CallTypeImage:   "image_metadata.json",
}

// Validator checks model payloads against the expected schema before they
// are merged or persisted. A mismatch surfaces as
// *models.SchemaValidationError and nothing is written for the page.
type Validator struct {
	compiled map[interfaces.CallType]*jsonschema.Schema
}

// NewValidator compiles the embedded schemas
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	compiled := make(map[interfaces.CallType]*jsonschema.Schema, len(schemaFiles))
	for callType, file := range schemaFiles {
		data, err := GetSchema(file)
		if err != nil {
			return nil, fmt.Errorf("missing embedded schema %s: %w", file, err)
		}
		if err := compiler.AddResource(file, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to load schema %s: %w", file, err)
		}
		schema, err := compiler.Compile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", file, err)
		}
		compiled[callType] = schema
	}

	return &Validator{compiled: compiled}, nil
}

// Validate parses raw JSON and checks it against the schema for callType.
// The decoded payload is returned for merging so callers only parse once.
func (v *Validator) Validate(callType interfaces.CallType, raw []byte) (map[string]interface{}, error) {
	schema, ok := v.compiled[callType]
	if !ok {
		return nil, fmt.Errorf("no schema registered for call type %s", callType)
	}

	var payload interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &models.SchemaValidationError{
			CallType: string(callType),
			Detail:   "payload is not valid JSON",
			Err:      err,
		}
	}

	if err := schema.Validate(payload); err != nil {
		return nil, &models.SchemaValidationError{
			CallType: string(callType),
			Detail:   err.Error(),
			Err:      err,
		}
	}

	object, ok := payload.(map[string]interface{})
	if !ok {
		return nil, &models.SchemaValidationError{
			CallType: string(callType),
			Detail:   "payload is not a JSON object",
		}
	}

	return object, nil
}

// Decode validates raw JSON and unmarshals it into out
func (v *Validator) Decode(callType interfaces.CallType, raw []byte, out interface{}) error {
	if _, err := v.Validate(callType, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &models.SchemaValidationError{
			CallType: string(callType),
			Detail:   "payload does not match the expected record shape",
			Err:      err,
		}
	}
	return nil
}
