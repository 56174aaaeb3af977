package toolspec

import (
	"encoding/json"
	"fmt"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/tool_spec_schema.json
var toolSpecSchemaJSON string

const toolSpecSchemaURL = "https://macc.dev/schema/tool-spec.json"

var (
	toolSpecSchemaOnce       sync.Once
	compiledToolSpecSchema   *jsonschema.Schema
	toolSpecSchemaCompileErr error
)

// compiledSchema compiles the embedded tool-spec JSON Schema once and
// caches the result, mirroring the compile-once/validate-many pattern JSON
// Schema consumers in the ecosystem use for a schema that never changes at
// runtime.
func compiledSchema() (*jsonschema.Schema, error) {
	toolSpecSchemaOnce.Do(func() {
		var schemaDoc any
		if err := json.Unmarshal([]byte(toolSpecSchemaJSON), &schemaDoc); err != nil {
			toolSpecSchemaCompileErr = fmt.Errorf("parse tool-spec schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(toolSpecSchemaURL, schemaDoc); err != nil {
			toolSpecSchemaCompileErr = fmt.Errorf("add tool-spec schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile(toolSpecSchemaURL)
		if err != nil {
			toolSpecSchemaCompileErr = fmt.Errorf("compile tool-spec schema: %w", err)
			return
		}
		compiledToolSpecSchema = schema
	})
	return compiledToolSpecSchema, toolSpecSchemaCompileErr
}

// validateSchema checks doc (already decoded to plain JSON-compatible
// values: map[string]any, []any, string, float64, bool, nil) against the
// tool-spec JSON Schema. This catches wire-format shape errors (missing
// required fields, wrong enum values, wrong types) before the document
// ever reaches struct decoding, leaving Validate's hand-written rules to
// enforce what JSON Schema can't express (pointer whitelisting, type-
// matched defaults, cross-field performer/session constraints).
func validateSchema(doc any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	return schema.Validate(doc)
}

// normalizeForSchema round-trips doc through encoding/json so a document
// decoded by gopkg.in/yaml.v3 (which produces Go ints, not float64) presents
// the canonical JSON value types jsonschema.Schema.Validate expects.
func normalizeForSchema(doc any) (any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize document for schema validation: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, fmt.Errorf("normalize document for schema validation: %w", err)
	}
	return normalized, nil
}
