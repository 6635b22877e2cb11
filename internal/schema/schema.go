// Package schema validates JSON documents against JSON Schema definitions
// held as Go maps. Compiled schemas are cached by name.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Definition names a JSON Schema document.
type Definition struct {
	// Name identifies the schema in the cache and in error messages. Kebab-case.
	Name string

	// Description is a human-readable summary of the document.
	Description string

	// Document is the JSON Schema itself.
	Document map[string]any
}

var compiled sync.Map // map[string]*jsonschema.Schema

// Validate parses raw as JSON and checks it against def.
func Validate(def *Definition, raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return ValidateValue(def, parsed)
}

// ValidateValue checks an already-decoded JSON value against def.
func ValidateValue(def *Definition, value any) error {
	if def == nil {
		return nil
	}
	sch, err := compile(def)
	if err != nil {
		return fmt.Errorf("compile schema %q: %w", def.Name, err)
	}
	if err := sch.Validate(value); err != nil {
		return fmt.Errorf("%s: %w", def.Name, err)
	}
	return nil
}

func compile(def *Definition) (*jsonschema.Schema, error) {
	if cached, ok := compiled.Load(def.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants plain decoded JSON, so round-trip the Go map.
	b, err := json.Marshal(def.Document)
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", def.Name)
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, err
	}
	compiled.Store(def.Name, sch)
	return sch, nil
}
