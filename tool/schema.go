//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a JSON-schema-shaped structural validator for tool arguments.
type Schema struct {
	// Type is the JSON schema type (object, string, number, etc.).
	Type string `json:"type,omitempty"`
	// Description describes the value.
	Description string `json:"description,omitempty"`
	// Properties holds object property schemas.
	Properties map[string]*Schema `json:"properties,omitempty"`
	// Items holds the array item schema.
	Items *Schema `json:"items,omitempty"`
	// Required lists required object properties.
	Required []string `json:"required,omitempty"`
	// Enum restricts the value to a fixed set.
	Enum []any `json:"enum,omitempty"`
	// Default is the default value.
	Default any `json:"default,omitempty"`
	// AdditionalProperties controls whether unknown properties are allowed.
	AdditionalProperties *bool `json:"additionalProperties,omitempty"`
	// Ref is a reference to a schema under Defs.
	Ref string `json:"$ref,omitempty"`
	// Defs holds reusable schema definitions.
	Defs map[string]*Schema `json:"$defs,omitempty"`
}

// ValidationError reports arguments that failed a tool's input schema.
type ValidationError struct {
	// Tool is the tool whose schema was violated.
	Tool string
	// Causes lists the individual schema violations.
	Causes []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %q: %s", e.Tool, strings.Join(e.Causes, "; "))
}

// ValidateArgs validates args against the tool's input schema.
//
// A tool without an input schema accepts any arguments. Validation failures
// are local errors raised before the provider is contacted.
func (s Spec) ValidateArgs(args map[string]any) error {
	if s.InputSchema == nil {
		return nil
	}
	schemaBytes, err := json.Marshal(s.InputSchema)
	if err != nil {
		return fmt.Errorf("marshal input schema for tool %q: %w", s.Name, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return fmt.Errorf("validate arguments for tool %q: %w", s.Name, err)
	}
	if result.Valid() {
		return nil
	}
	causes := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		causes = append(causes, desc.String())
	}
	return &ValidationError{Tool: s.Name, Causes: causes}
}
