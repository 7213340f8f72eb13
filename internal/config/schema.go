package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaResource = "permgate-profile.json"

// ErrInvalidProfile is returned when a profile violates the schema.
var ErrInvalidProfile = errors.New("profile does not match schema")

var (
	compileOnce sync.Once
	compiled    *validator.Schema
	compileErr  error
)

// Schema returns the profile JSON Schema.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		Anonymous:                  true,
		DoNotReference:             true,
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
	}
	s := r.Reflect(&Profile{})
	s.Title = "permgate device profile"
	return json.MarshalIndent(s, "", "  ")
}

// Validate checks a profile against the generated schema.
func Validate(p Profile) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	var doc interface{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}

	if err := sch.Validate(doc); err != nil {
		var ve *validator.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", ErrInvalidProfile, ve.Error())
		}
		return err
	}
	return nil
}

func compiledSchema() (*validator.Schema, error) {
	compileOnce.Do(func() {
		raw, err := Schema()
		if err != nil {
			compileErr = err
			return
		}
		c := validator.NewCompiler()
		if err := c.AddResource(schemaResource, bytes.NewReader(raw)); err != nil {
			compileErr = fmt.Errorf("failed to add profile schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaResource)
	})
	return compiled, compileErr
}
