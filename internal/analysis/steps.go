package analysis

// FieldType is the JSON type of a field in a step's answer.
type FieldType string

// Supported field types
const (
	FieldString      FieldType = "string"
	FieldBoolean     FieldType = "boolean"
	FieldStringArray FieldType = "string_array"
)

// Field describes one property of the JSON object a step asks for.
type Field struct {
	Name        string
	Type        FieldType
	Description string
}

// Step is one structured prompt in the pipeline. Backends translate Fields
// into their own schema format; every field is required in the answer.
type Step struct {
	Name   string
	Prompt string
	Fields []Field
}

// Pipeline steps, in the order they run.
var (
	DescriptionStep = Step{
		Name:   "description",
		Prompt: "Describe this image in one or two sentences.",
		Fields: []Field{
			{Name: "description", Type: FieldString, Description: "A one or two sentence description of the image"},
		},
	}

	TagsStep = Step{
		Name: "tags",
		Prompt: "List 5-10 relevant tags for this image. " +
			"Include both objects, artistic style, type of image, color, etc.",
		Fields: []Field{
			{Name: "tags", Type: FieldStringArray, Description: "Relevant tags for the image"},
		},
	}

	TextStep = Step{
		Name: "text",
		Prompt: "Identify if there is visible text in the image. " +
			"Respond with JSON where 'has_text' is true only if there is actual text visible in the image, " +
			"and 'text_content' contains the extracted text. " +
			"If no text is visible, set 'has_text' to false and 'text_content' to empty string.",
		Fields: []Field{
			{Name: "has_text", Type: FieldBoolean, Description: "Whether the image contains visible text"},
			{Name: "text_content", Type: FieldString, Description: "The text visible in the image"},
		},
	}
)

// Steps is the full pipeline.
var Steps = []Step{DescriptionStep, TagsStep, TextStep}

// JSONSchema renders the step's answer as a JSON schema object, the form
// accepted by Ollama's structured outputs.
func (s Step) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s.Fields))
	required := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		var prop map[string]any
		switch f.Type {
		case FieldStringArray:
			prop = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
		case FieldBoolean:
			prop = map[string]any{"type": "boolean"}
		default:
			prop = map[string]any{"type": "string"}
		}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		properties[f.Name] = prop
		required = append(required, f.Name)
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
