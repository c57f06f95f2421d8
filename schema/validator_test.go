package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "base_url": {"type": "string"},
    "version": {"type": "string"}
  }
}`

const loggingSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "level": {"type": "string", "enum": ["debug", "info", "warn", "error"]}
  }
}`

func TestValidatorAcceptsAndRejects(t *testing.T) {
	v, err := NewValidator("base.json", []byte(baseSchema))
	require.NoError(t, err)

	assert.NoError(t, v.Validate(map[string]interface{}{"base_url": "http://x", "extra": 1}))

	err = v.Validate(map[string]interface{}{"base_url": 42})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/base_url")
}

func TestComposeInlinesExtensions(t *testing.T) {
	composed, err := Compose([]byte(baseSchema), map[string][]byte{"logging": []byte(loggingSchema)}, "Hermes")
	require.NoError(t, err)

	var root map[string]interface{}
	require.NoError(t, json.Unmarshal(composed, &root))
	assert.Equal(t, "Hermes", root["title"])
	assert.Equal(t, true, root["additionalProperties"])

	props := root["properties"].(map[string]interface{})
	logging := props["logging"].(map[string]interface{})
	assert.NotContains(t, logging, "$schema")

	v, err := NewValidator("composed.json", composed)
	require.NoError(t, err)
	assert.NoError(t, v.Validate(map[string]interface{}{"logging": map[string]interface{}{"level": "debug"}}))
	assert.Error(t, v.Validate(map[string]interface{}{"logging": map[string]interface{}{"level": "loud"}}))
}

func TestNewValidatorRejectsBadSchema(t *testing.T) {
	_, err := NewValidator("bad.json", []byte(`{"type": 12}`))
	assert.Error(t, err)
}
