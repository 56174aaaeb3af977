package source

import (
	"encoding/json"
	"fmt"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/package_manifest_schema.json
var packageManifestSchemaJSON string

const packageManifestSchemaURL = "https://macc.dev/schema/package-manifest.json"

var (
	packageManifestSchemaOnce     sync.Once
	compiledPackageManifestSchema *jsonschema.Schema
	packageManifestSchemaErr      error
)

// compiledManifestSchema compiles the embedded macc.package.json schema
// once, following the same compile-once/validate-many idiom as
// internal/toolspec's tool-spec schema.
func compiledManifestSchema() (*jsonschema.Schema, error) {
	packageManifestSchemaOnce.Do(func() {
		var schemaDoc any
		if err := json.Unmarshal([]byte(packageManifestSchemaJSON), &schemaDoc); err != nil {
			packageManifestSchemaErr = fmt.Errorf("parse package manifest schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(packageManifestSchemaURL, schemaDoc); err != nil {
			packageManifestSchemaErr = fmt.Errorf("add package manifest schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile(packageManifestSchemaURL)
		if err != nil {
			packageManifestSchemaErr = fmt.Errorf("compile package manifest schema: %w", err)
			return
		}
		compiledPackageManifestSchema = schema
	})
	return compiledPackageManifestSchema, packageManifestSchemaErr
}

// validateManifestSchema checks a decoded macc.package.json document's
// shape (required type/id/version, and the mcp/merge_target pair required
// when type is "mcp") before ValidateMcpFolder's hand-written checks run
// the rest of §4.G's rules (non-empty dotted merge_target, non-empty
// server description).
func validateManifestSchema(doc any) error {
	schema, err := compiledManifestSchema()
	if err != nil {
		return err
	}
	return schema.Validate(doc)
}
