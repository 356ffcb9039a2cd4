// Package schema provides JSON schema validation for pxtest configuration files.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	schemafs "github.com/openpixel/pxtest/schema"
)

var (
	testSchema  *jsonschema.Schema
	compileOnce sync.Once
	compileErr  error
)

// compileSchemas compiles all embedded schemas once.
func compileSchemas() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()

		testData, err := schemafs.FS.ReadFile("test.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("read test schema: %w", err)
			return
		}

		testDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(testData))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal test schema: %w", err)
			return
		}

		if err := compiler.AddResource("test.schema.json", testDoc); err != nil {
			compileErr = fmt.Errorf("add test schema resource: %w", err)
			return
		}

		testSchema, err = compiler.Compile("test.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile test schema: %w", err)
			return
		}
	})

	return compileErr
}

// ValidateTest validates a decoded test configuration document against the
// test schema. The document is round-tripped through JSON so YAML-decoded
// values carry the types the validator expects.
func ValidateTest(doc any) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("invalid test configuration: %w", err)
	}

	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("invalid test configuration: %w", err)
	}

	if err := testSchema.Validate(v); err != nil {
		return fmt.Errorf("test configuration validation failed: %w", err)
	}

	return nil
}
