package users

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
)

var (
	schemaOnce sync.Once
	schemaJSON []byte
	schemaErr  error
)

// Schema returns the JSON Schema of a User record, reflected from the Go
// type. The result is computed once and shared; callers must not modify it.
func Schema() ([]byte, error) {
	schemaOnce.Do(func() {
		schemaJSON, schemaErr = json.MarshalIndent(reflectSchema(new(User), "User"), "", "  ")
	})
	return schemaJSON, schemaErr
}

// CandidateSchema returns the JSON Schema of a Candidate as a compact string,
// suitable for embedding in a prompt.
func CandidateSchema() (string, error) {
	b, err := json.Marshal(reflectSchema(new(Candidate), "User profile"))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func reflectSchema(v any, title string) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true, // inline defs
		ExpandedStruct: true, // put struct at root
	}
	s := r.Reflect(v)
	s.Title = title
	return s
}
