package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
)

// BuildJobPayloadJSONSchema returns the JSON Schema for a job request body as
// a generic map. It only pins the envelope: an object with known keys and
// JSON types. Lengths and patterns are checked by Validate after Sanitize.
func BuildJobPayloadJSONSchema() map[string]any {
	str := map[string]any{"type": []string{"string", "null"}}
	props := map[string]any{
		"totalAmount": map[string]any{"type": []string{"string", "number", "null"}},
	}
	for _, name := range []string{
		"uid", "customerName", "mobileNumber", "mobileModel", "issue",
		"customIssue", "components", "status", "entryDate", "expectedDate",
		"completionDate", "notes",
	} {
		props[name] = str
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

var (
	payloadOnce   sync.Once
	payloadSchema *jsonschema.Schema
	payloadErr    error
)

// JobPayloadSchema compiles BuildJobPayloadJSONSchema once.
func JobPayloadSchema() (*jsonschema.Schema, error) {
	payloadOnce.Do(func() {
		payloadSchema, payloadErr = compileSchema(BuildJobPayloadJSONSchema())
	})
	return payloadSchema, payloadErr
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("job.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("job.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// DecodeJobPayload checks data against the payload schema and decodes it
// into a Record. Numbers keep their original text as json.Number.
func DecodeJobPayload(data []byte) (Record, error) {
	schema, err := JobPayloadSchema()
	if err != nil {
		return nil, common.NewAppError("INTERNAL", "job payload schema", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, common.NewAppError("INVALID_INPUT", "request body is not valid JSON", common.ErrInvalidInput)
	}
	if err := schema.Validate(v); err != nil {
		return nil, common.NewAppError("INVALID_INPUT", payloadMessage(err), common.ErrInvalidInput)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	rec := Record{}
	if err := dec.Decode(&rec); err != nil {
		return nil, common.NewAppError("INVALID_INPUT", "request body is not valid JSON", common.ErrInvalidInput)
	}
	return rec, nil
}

// payloadMessage flattens a schema error into its leaf messages.
func payloadMessage(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var msgs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return "invalid payload: " + strings.Join(msgs, "; ")
}
