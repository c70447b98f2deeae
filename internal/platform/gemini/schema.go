package gemini

import (
	"github.com/phrazzld/image-tagger/internal/analysis"
	"google.golang.org/genai"
)

// responseSchema converts a step's fields into a genai.Schema
func responseSchema(step analysis.Step) *genai.Schema {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(step.Fields)),
		Required:   make([]string, 0, len(step.Fields)),
	}
	for _, f := range step.Fields {
		var prop *genai.Schema
		switch f.Type {
		case analysis.FieldStringArray:
			prop = &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
		case analysis.FieldBoolean:
			prop = &genai.Schema{Type: genai.TypeBoolean}
		default:
			prop = &genai.Schema{Type: genai.TypeString}
		}
		prop.Description = f.Description
		schema.Properties[f.Name] = prop
		schema.Required = append(schema.Required, f.Name)
	}
	return schema
}
