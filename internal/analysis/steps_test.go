package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSteps(t *testing.T) {
	t.Parallel()

	require.Len(t, Steps, 3)
	assert.Equal(t, []string{"description", "tags", "text"},
		[]string{Steps[0].Name, Steps[1].Name, Steps[2].Name})
	for _, step := range Steps {
		assert.NotEmpty(t, step.Prompt, step.Name)
		assert.NotEmpty(t, step.Fields, step.Name)
	}
}

func TestStep_JSONSchema(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(TextStep.JSONSchema())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "object",
		"properties": {
			"has_text": {"type": "boolean", "description": "Whether the image contains visible text"},
			"text_content": {"type": "string", "description": "The text visible in the image"}
		},
		"required": ["has_text", "text_content"]
	}`, string(data))

	tags := TagsStep.JSONSchema()["properties"].(map[string]any)["tags"].(map[string]any)
	assert.Equal(t, "array", tags["type"])
	assert.Equal(t, map[string]any{"type": "string"}, tags["items"])
}

func TestImageMetadata_AsResult(t *testing.T) {
	t.Parallel()

	m := ImageMetadata{Description: "d", Tags: []string{"a"}, IsProcessed: true}
	result := m.AsResult()
	m.Tags[0] = "changed"

	assert.Equal(t, []string{"a"}, result["tags"])
	assert.Equal(t, "", result["text_content"])
	assert.Equal(t, true, result["is_processed"])
}
